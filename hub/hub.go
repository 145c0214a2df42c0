// Package hub рассылает события турниров websocket-клиентам, сгруппированным по комнатам турниров.
package hub

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	EventTournamentJoined    = "tournament.joined"
	EventTournamentLive      = "tournament.live"
	EventTournamentCancelled = "tournament.cancelled"
	EventTournamentFinalized = "tournament.finalized"
	EventPointsUpdated       = "points.updated"
)

type Message struct {
	Type    string      `json:"type"`
	RoomID  string      `json:"room_id"`
	Payload interface{} `json:"payload,omitempty"`
	SentAt  time.Time   `json:"sent_at"`
}

type roomMessage struct {
	room string
	data []byte
}

type Hub struct {
	register   chan *Client
	unregister chan *Client
	broadcast  chan roomMessage
	done       chan struct{}
	rooms      map[string]map[*Client]bool
	mu         sync.RWMutex
	logger     *zap.Logger
}

func New(logger *zap.Logger) *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan roomMessage, 64),
		done:       make(chan struct{}),
		rooms:      make(map[string]map[*Client]bool),
		logger:     logger,
	}
}

// Run управляет составом комнат до отмены ctx, затем закрывает всех клиентов.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for room, clients := range h.rooms {
				for c := range clients {
					c.close()
				}
				delete(h.rooms, room)
			}
			h.mu.Unlock()
			return

		case c := <-h.register:
			h.mu.Lock()
			if _, ok := h.rooms[c.room]; !ok {
				h.rooms[c.room] = make(map[*Client]bool)
			}
			h.rooms[c.room][c] = true
			h.logger.Debug("ws client registered", zap.String("room", c.room), zap.Int("clients", len(h.rooms[c.room])))
			h.mu.Unlock()

		case c := <-h.unregister:
			h.mu.Lock()
			if clients, ok := h.rooms[c.room]; ok && clients[c] {
				c.close()
				delete(clients, c)
				if len(clients) == 0 {
					delete(h.rooms, c.room)
				}
			}
			h.mu.Unlock()

		case msg := <-h.broadcast:
			h.mu.RLock()
			for c := range h.rooms[msg.room] {
				if !c.trySend(msg.data) {
					h.logger.Warn("ws client send buffer full, dropping message", zap.String("room", msg.room))
				}
			}
			h.mu.RUnlock()
		}
	}
}

// Publish ставит событие в очередь комнаты турнира и никогда не блокирует вызывающего: при
// полной очереди событие отбрасывается с записью в лог.
func (h *Hub) Publish(tournamentID, eventType string, payload interface{}) {
	data, err := json.Marshal(Message{Type: eventType, RoomID: tournamentID, Payload: payload, SentAt: time.Now().UTC()})
	if err != nil {
		h.logger.Error("failed to encode ws message", zap.String("type", eventType), zap.Error(err))
		return
	}
	select {
	case h.broadcast <- roomMessage{room: tournamentID, data: data}:
	default:
		h.logger.Warn("ws broadcast queue full, dropping event", zap.String("room", tournamentID), zap.String("type", eventType))
	}
}

// RoomSize возвращает число клиентов в комнате.
func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}
