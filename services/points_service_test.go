package services

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/Dosada05/tournament-arena/hub"
	"github.com/Dosada05/tournament-arena/models"
	"github.com/Dosada05/tournament-arena/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

func TestPointsUpsertRanksAndOverwrites(t *testing.T) {
	f := newFixture(t)
	svc := NewPointsService(f.store, f.notifier, zap.NewNop(), fixedClock())
	tr := f.addTournament(t, nil)
	kai := f.addUser(t, "kai", 0)

	ranked, err := svc.Upsert(f.ctx, f.staff, tr.ID, []PointsInput{
		{PlayerName: "Alpha", Wins: 1, Kills: 4, TotalPoints: 30},
		{UserID: strPtr(kai.ID), Kills: 9, TotalPoints: 50},
		{PlayerName: "Bravo", TotalPoints: 30},
	})
	require.NoError(t, err)
	require.Len(t, ranked, 3)
	assert.Equal(t, "kai", ranked[0].PlayerName)
	assert.Equal(t, 1, ranked[0].Rank)
	// при равенстве очков порядок первой вставки
	assert.Equal(t, "Alpha", ranked[1].PlayerName)
	assert.Equal(t, "Bravo", ranked[2].PlayerName)
	assert.Equal(t, 3, ranked[2].Rank)

	// повторная запись по тому же ключу перезаписывает строку
	ranked, err = svc.Upsert(f.ctx, f.staff, tr.ID, []PointsInput{
		{PlayerName: "Bravo", Wins: 2, TotalPoints: 80},
	})
	require.NoError(t, err)
	require.Len(t, ranked, 3)
	assert.Equal(t, "Bravo", ranked[0].PlayerName)
	assert.Equal(t, 2, ranked[0].Wins)

	table, err := svc.Table(f.ctx, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, ranked, table)

	assert.Equal(t, []string{hub.EventPointsUpdated, hub.EventPointsUpdated}, f.notifier.types())
}

func TestPointsUpsertValidation(t *testing.T) {
	f := newFixture(t)
	svc := NewPointsService(f.store, nil, nil, fixedClock())
	tr := f.addTournament(t, nil)
	player := f.addUser(t, "player", 0)

	tests := []struct {
		name    string
		entries []PointsInput
		wantErr error
	}{
		{"empty", nil, ErrValidationFailed},
		{"no key", []PointsInput{{TotalPoints: 1}}, ErrValidationFailed},
		{"duplicate", []PointsInput{{PlayerName: "A"}, {PlayerName: "A"}}, ErrValidationFailed},
		{"negative", []PointsInput{{PlayerName: "A", Kills: -1}}, ErrValidationFailed},
		{"unknown user", []PointsInput{{UserID: strPtr("ghost")}}, ErrUserNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Upsert(f.ctx, f.staff, tr.ID, tt.entries)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	_, err := svc.Upsert(f.ctx, actorOf(player), tr.ID, []PointsInput{{PlayerName: "A"}})
	assert.ErrorIs(t, err, ErrForbiddenOperation)

	_, err = svc.Upsert(f.ctx, f.staff, "missing", []PointsInput{{PlayerName: "A"}})
	assert.ErrorIs(t, err, ErrTournamentNotFound)

	cancelled := f.addTournament(t, func(tr *models.Tournament) { tr.Status = models.StatusCancelled })
	_, err = svc.Upsert(f.ctx, f.staff, cancelled.ID, []PointsInput{{PlayerName: "A"}})
	assert.ErrorIs(t, err, ErrTournamentInvalidStatusTransition)

	table, err := svc.Table(f.ctx, tr.ID)
	require.NoError(t, err)
	assert.Empty(t, table)
}

func TestPointsExport(t *testing.T) {
	f := newFixture(t)
	svc := NewPointsService(f.store, nil, nil, fixedClock())
	tr := f.addTournament(t, nil)

	_, err := svc.Upsert(f.ctx, f.staff, tr.ID, []PointsInput{
		{PlayerName: "Low", TotalPoints: 5},
		{PlayerName: "High", Wins: 3, Kills: 12, TotalPoints: 90},
	})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, svc.Export(f.ctx, tr.ID, &buf))

	book, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer book.Close()

	rows, err := book.GetRows(pointsSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"Rank", "Player", "Wins", "Kills", "Total points", "Updated at"}, rows[0])
	assert.Equal(t, []string{"1", "High", "3", "12", "90"}, rows[1][:5])
	assert.Equal(t, "Low", rows[2][1])
}

// lockTrackingStore запоминает турниры, заблокированные через GetByIDForUpdate внутри транзакций.
type lockTrackingStore struct {
	repositories.Store
	mu     sync.Mutex
	locked []string
}

func (s *lockTrackingStore) WithTx(ctx context.Context, fn func(tx repositories.Repos) error) error {
	return s.Store.WithTx(ctx, func(tx repositories.Repos) error {
		return fn(lockTrackingRepos{Repos: tx, store: s})
	})
}

type lockTrackingRepos struct {
	repositories.Repos
	store *lockTrackingStore
}

func (r lockTrackingRepos) Tournaments() repositories.TournamentRepository {
	return lockTrackingTournaments{TournamentRepository: r.Repos.Tournaments(), store: r.store}
}

type lockTrackingTournaments struct {
	repositories.TournamentRepository
	store *lockTrackingStore
}

func (r lockTrackingTournaments) GetByIDForUpdate(ctx context.Context, id string) (*models.Tournament, error) {
	r.store.mu.Lock()
	r.store.locked = append(r.store.locked, id)
	r.store.mu.Unlock()
	return r.TournamentRepository.GetByIDForUpdate(ctx, id)
}

func TestPointsUpsertLocksTournament(t *testing.T) {
	f := newFixture(t)
	store := &lockTrackingStore{Store: f.store}
	svc := NewPointsService(store, nil, zap.NewNop(), fixedClock())
	tr := f.addTournament(t, nil)

	_, err := svc.Upsert(f.ctx, f.staff, tr.ID, []PointsInput{{PlayerName: "Alpha", TotalPoints: 10}})
	require.NoError(t, err)
	assert.Equal(t, []string{tr.ID}, store.locked)
}

func TestPointsConcurrentUpsertsGetDistinctSeq(t *testing.T) {
	f := newFixture(t)
	svc := NewPointsService(f.store, nil, zap.NewNop(), fixedClock())
	tr := f.addTournament(t, nil)

	const writers = 12
	var wg sync.WaitGroup
	errs := make([]error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Upsert(f.ctx, f.staff, tr.ID, []PointsInput{
				{PlayerName: fmt.Sprintf("player-%02d", i), TotalPoints: 10},
			})
		}(i)
	}
	wg.Wait()
	for _, err := range errs {
		require.NoError(t, err)
	}

	ranked, err := svc.Table(f.ctx, tr.ID)
	require.NoError(t, err)
	require.Len(t, ranked, writers)
	seen := make(map[int]bool, writers)
	for i, e := range ranked {
		assert.False(t, seen[e.Seq], "seq %d stored twice", e.Seq)
		seen[e.Seq] = true
		// все очки равны, значит ранг идет по seq
		if i > 0 {
			assert.Less(t, ranked[i-1].Seq, e.Seq)
		}
	}
}
