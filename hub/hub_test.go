package hub

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestPublishReachesRoomMembersOnly(t *testing.T) {
	h := New(zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.Run(ctx)

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		h.Attach(conn, r.URL.Query().Get("room"))
	}))
	defer srv.Close()

	dial := func(room string) *websocket.Conn {
		url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?room=" + room
		conn, _, err := websocket.DefaultDialer.Dial(url, nil)
		require.NoError(t, err)
		return conn
	}

	member := dial("t-1")
	defer member.Close()
	other := dial("t-2")
	defer other.Close()

	require.Eventually(t, func() bool { return h.RoomSize("t-1") == 1 && h.RoomSize("t-2") == 1 },
		2*time.Second, 10*time.Millisecond)

	h.Publish("t-1", EventTournamentJoined, map[string]int{"registered_count": 3})

	_ = member.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := member.ReadMessage()
	require.NoError(t, err)

	var msg struct {
		Type    string         `json:"type"`
		RoomID  string         `json:"room_id"`
		Payload map[string]int `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(data, &msg))
	assert.Equal(t, EventTournamentJoined, msg.Type)
	assert.Equal(t, "t-1", msg.RoomID)
	assert.Equal(t, 3, msg.Payload["registered_count"])

	_ = other.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	_, _, err = other.ReadMessage()
	assert.Error(t, err, "client of another room must not receive the event")
}

func TestClientLeavesRoomOnDisconnect(t *testing.T) {
	h := New(zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.Run(ctx)

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		h.Attach(conn, "t-1")
	}))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return h.RoomSize("t-1") == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return h.RoomSize("t-1") == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestPublishWithoutRunDoesNotBlock(t *testing.T) {
	h := New(zap.NewNop())
	done := make(chan struct{})
	go func() {
		for i := 0; i < 200; i++ {
			h.Publish("t-1", EventPointsUpdated, nil)
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked")
	}
}
