package services

import (
	"bytes"
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Dosada05/tournament-arena/hub"
	"github.com/Dosada05/tournament-arena/models"
	"github.com/Dosada05/tournament-arena/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type memoryUploader struct {
	mu      sync.Mutex
	objects map[string][]byte
	deleted []string
}

func newMemoryUploader() *memoryUploader {
	return &memoryUploader{objects: make(map[string][]byte)}
}

func (u *memoryUploader) Upload(_ context.Context, key, _ string, r io.Reader) (*storage.UploadResult, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	u.objects[key] = data
	return &storage.UploadResult{Key: key, Location: u.GetPublicURL(key)}, nil
}

func (u *memoryUploader) Delete(_ context.Context, key string) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	delete(u.objects, key)
	u.deleted = append(u.deleted, key)
	return nil
}

func (u *memoryUploader) GetPublicURL(key string) string {
	return "https://cdn.example.com/" + key
}

func validTournamentInput() TournamentInput {
	return TournamentInput{
		Name:           "Spring Showdown",
		CategoryID:     "pubg",
		StartDate:      fixedNow.Add(24 * time.Hour),
		EndDate:        fixedNow.Add(30 * time.Hour),
		EntryFee:       25,
		MaxPlayers:     64,
		PrizePoolFirst: 1000,
	}
}

func TestTournamentCreateAndUpdate(t *testing.T) {
	f := newFixture(t)
	svc := NewTournamentService(f.store, nil, f.notifier, zap.NewNop(), fixedClock())

	tr, err := svc.Create(f.ctx, f.staff, validTournamentInput())
	require.NoError(t, err)
	assert.Equal(t, models.StatusUpcoming, tr.Status)
	assert.Equal(t, 0, tr.RegisteredCount)
	assert.Equal(t, f.staff.UserID, tr.CreatedBy)

	in := validTournamentInput()
	in.Name = "Spring Showdown II"
	in.MaxPlayers = 32
	updated, err := svc.Update(f.ctx, f.staff, tr.ID, in)
	require.NoError(t, err)
	assert.Equal(t, "Spring Showdown II", updated.Name)
	assert.Equal(t, 32, updated.MaxPlayers)

	player := f.addUser(t, "viewer", 0)
	_, err = svc.Create(f.ctx, actorOf(player), validTournamentInput())
	assert.ErrorIs(t, err, ErrForbiddenOperation)

	bad := validTournamentInput()
	bad.CategoryID = "chess"
	_, err = svc.Create(f.ctx, f.staff, bad)
	assert.ErrorIs(t, err, ErrCategoryNotFound)
}

func TestTournamentInputValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*TournamentInput)
	}{
		{"short name", func(in *TournamentInput) { in.Name = "ab" }},
		{"no category", func(in *TournamentInput) { in.CategoryID = "" }},
		{"end before start", func(in *TournamentInput) { in.EndDate = in.StartDate.Add(-time.Hour) }},
		{"negative fee", func(in *TournamentInput) { in.EntryFee = -1 }},
		{"no slots", func(in *TournamentInput) { in.MaxPlayers = 0 }},
		{"too many slots", func(in *TournamentInput) { in.MaxPlayers = maxTournamentPlayers + 1 }},
		{"negative prize", func(in *TournamentInput) { in.PrizePoolThird = -5 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validTournamentInput()
			tt.mutate(&in)
			_, err := in.validate()
			assert.ErrorIs(t, err, ErrValidationFailed)
		})
	}
}

func TestTournamentLifecycle(t *testing.T) {
	f := newFixture(t)
	svc := NewTournamentService(f.store, nil, f.notifier, zap.NewNop(), fixedClock())
	tr := f.addTournament(t, nil)

	_, err := svc.GoLive(f.ctx, f.staff, tr.ID, GoLiveInput{RoomID: "room-7"})
	assert.ErrorIs(t, err, ErrValidationFailed)

	live, err := svc.GoLive(f.ctx, f.staff, tr.ID, GoLiveInput{RoomID: "room-7", RoomPassword: "pw"})
	require.NoError(t, err)
	assert.Equal(t, models.StatusLive, live.Status)

	_, err = svc.GoLive(f.ctx, f.staff, tr.ID, GoLiveInput{RoomID: "room-7", RoomPassword: "pw"})
	assert.ErrorIs(t, err, ErrTournamentInvalidStatusTransition)

	_, err = svc.Update(f.ctx, f.staff, tr.ID, validTournamentInput())
	assert.ErrorIs(t, err, ErrTournamentInvalidStatusTransition)

	cancelled, err := svc.Cancel(f.ctx, f.staff, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, cancelled.Status)

	_, err = svc.Cancel(f.ctx, f.staff, tr.ID)
	assert.ErrorIs(t, err, ErrTournamentInvalidStatusTransition)

	assert.Equal(t, []string{hub.EventTournamentLive, hub.EventTournamentCancelled}, f.notifier.types())
	// пароль комнаты не рассылается
	for _, e := range f.notifier.events {
		assert.NotContains(t, e.payload, "room_password")
	}
}

func TestTournamentRoomCredentialsVisibility(t *testing.T) {
	f := newFixture(t)
	svc := NewTournamentService(f.store, nil, f.notifier, zap.NewNop(), fixedClock())
	settlement := newSettlement(f)
	tr := f.addTournament(t, func(tr *models.Tournament) { tr.EntryFee = 0 })
	registered := f.addUser(t, "registered", 0)
	outsider := f.addUser(t, "outsider", 0)

	_, err := settlement.Join(f.ctx, actorOf(registered), tr.ID, JoinInput{})
	require.NoError(t, err)
	_, err = svc.GoLive(f.ctx, f.staff, tr.ID, GoLiveInput{RoomID: "room-1", RoomPassword: "hunter2"})
	require.NoError(t, err)

	got, err := svc.Get(f.ctx, actorOf(registered), tr.ID)
	require.NoError(t, err)
	require.NotNil(t, got.RoomPassword)
	assert.Equal(t, "hunter2", *got.RoomPassword)

	got, err = svc.Get(f.ctx, f.staff, tr.ID)
	require.NoError(t, err)
	assert.NotNil(t, got.RoomID)

	got, err = svc.Get(f.ctx, actorOf(outsider), tr.ID)
	require.NoError(t, err)
	assert.Nil(t, got.RoomID)
	assert.Nil(t, got.RoomPassword)

	got, err = svc.Get(f.ctx, models.Actor{}, tr.ID)
	require.NoError(t, err)
	assert.Nil(t, got.RoomPassword)

	list, err := svc.List(f.ctx, models.TournamentFilter{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Nil(t, list[0].RoomPassword)

	_, err = svc.Get(f.ctx, f.staff, "missing")
	assert.ErrorIs(t, err, ErrTournamentNotFound)
}

func TestTournamentListFilters(t *testing.T) {
	f := newFixture(t)
	svc := NewTournamentService(f.store, nil, nil, nil, fixedClock())
	f.addTournament(t, nil)
	f.addTournament(t, func(tr *models.Tournament) { tr.Status = models.StatusLive })

	live := models.StatusLive
	list, err := svc.List(f.ctx, models.TournamentFilter{Status: &live})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, models.StatusLive, list[0].Status)

	unknown := models.TournamentStatus("paused")
	_, err = svc.List(f.ctx, models.TournamentFilter{Status: &unknown})
	assert.ErrorIs(t, err, ErrValidationFailed)
}

func TestTournamentCancelStale(t *testing.T) {
	f := newFixture(t)
	svc := NewTournamentService(f.store, nil, f.notifier, zap.NewNop(), fixedClock())
	stale := f.addTournament(t, func(tr *models.Tournament) {
		tr.StartDate = fixedNow.Add(-48 * time.Hour)
		tr.EndDate = fixedNow.Add(-time.Hour)
	})
	staleLive := f.addTournament(t, func(tr *models.Tournament) {
		tr.StartDate = fixedNow.Add(-48 * time.Hour)
		tr.EndDate = fixedNow.Add(-time.Hour)
		tr.Status = models.StatusLive
	})
	fresh := f.addTournament(t, nil)

	n, err := svc.CancelStale(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	for id, want := range map[string]models.TournamentStatus{
		stale.ID:     models.StatusCancelled,
		staleLive.ID: models.StatusLive,
		fresh.ID:     models.StatusUpcoming,
	} {
		got, err := f.store.Tournaments().GetByID(f.ctx, id)
		require.NoError(t, err)
		assert.Equal(t, want, got.Status)
	}

	n, err = svc.CancelStale(f.ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestTournamentUploadBanner(t *testing.T) {
	f := newFixture(t)
	uploader := newMemoryUploader()
	svc := NewTournamentService(f.store, uploader, nil, zap.NewNop(), fixedClock())
	tr := f.addTournament(t, nil)

	first, err := svc.UploadBanner(f.ctx, f.staff, tr.ID, "image/png", bytes.NewReader([]byte("png-1")))
	require.NoError(t, err)
	require.NotNil(t, first.BannerURL)
	assert.True(t, strings.HasPrefix(*first.BannerURL, "https://cdn.example.com/tournaments/"+tr.ID+"/banner-"))
	firstKey := *first.BannerKey

	second, err := svc.UploadBanner(f.ctx, f.staff, tr.ID, "image/webp", bytes.NewReader([]byte("webp-2")))
	require.NoError(t, err)
	assert.NotEqual(t, firstKey, *second.BannerKey)
	assert.Equal(t, []string{firstKey}, uploader.deleted)
	assert.Len(t, uploader.objects, 1)

	_, err = svc.UploadBanner(f.ctx, f.staff, tr.ID, "text/plain", strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrValidationFailed)

	noUploads := NewTournamentService(f.store, nil, nil, nil, fixedClock())
	_, err = noUploads.UploadBanner(f.ctx, f.staff, tr.ID, "image/png", strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrUploadsDisabled)
}
