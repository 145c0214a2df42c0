package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/Dosada05/tournament-arena/models"
	"github.com/Dosada05/tournament-arena/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedUser(t *testing.T, s *Store, id string, balance int64) {
	t.Helper()
	require.NoError(t, s.Users().Create(context.Background(), &models.UserAccount{
		ID:          id,
		Username:    id,
		Email:       id + "@example.com",
		Role:        models.RolePlayer,
		Status:      models.AccountActive,
		CoinBalance: balance,
	}))
}

func TestWithTxRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	seedUser(t, s, "u1", 100)

	boom := errors.New("boom")
	err := s.WithTx(ctx, func(tx repositories.Repos) error {
		require.NoError(t, tx.Users().UpdateCoinBalance(ctx, "u1", 0))
		// внутри транзакции изменение видно
		u, err := tx.Users().GetByID(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, int64(0), u.CoinBalance)

		// снаружи еще нет
		outside, err := s.Users().GetByID(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, int64(100), outside.CoinBalance)
		return boom
	})
	require.ErrorIs(t, err, boom)

	u, err := s.Users().GetByID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(100), u.CoinBalance)
}

func TestWithTxCommits(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	seedUser(t, s, "u1", 100)

	require.NoError(t, s.WithTx(ctx, func(tx repositories.Repos) error {
		return tx.Users().UpdateCoinBalance(ctx, "u1", 42)
	}))
	u, err := s.Users().GetByID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(42), u.CoinBalance)
}

func TestUserUniqueness(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	seedUser(t, s, "neo", 0)

	err := s.Users().Create(ctx, &models.UserAccount{ID: "x", Username: "other", Email: "NEO@example.com"})
	assert.ErrorIs(t, err, repositories.ErrUserEmailConflict)
	err = s.Users().Create(ctx, &models.UserAccount{ID: "y", Username: "Neo", Email: "neo2@example.com"})
	assert.ErrorIs(t, err, repositories.ErrUserUsernameConflict)
}

func TestCoinRequestMirrorFollowsDecision(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	seedUser(t, s, "u1", 0)

	req := &models.CoinRequest{ID: "r1", UserID: "u1", Kind: models.CoinRequestAdd, AmountCoins: 5, Status: models.CoinRequestPending}
	require.NoError(t, s.CoinRequests().Create(ctx, req))
	assert.ErrorIs(t, s.CoinRequests().Create(ctx, &models.CoinRequest{ID: "r2", UserID: "ghost"}), repositories.ErrUserNotFound)

	req.Status = models.CoinRequestDenied
	require.NoError(t, s.CoinRequests().RecordDecision(ctx, req))

	global, err := s.CoinRequests().GetByID(ctx, "r1")
	require.NoError(t, err)
	mine, err := s.CoinRequests().ListByUser(ctx, "u1", models.CoinRequestFilter{})
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, global.Status, mine[0].Status)
	assert.Equal(t, models.CoinRequestDenied, mine[0].Status)
}

func TestIncrementRegisteredCountRespectsCapacity(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	require.NoError(t, s.Categories().Create(ctx, &models.Category{ID: "pubg", Name: "PUBG"}))
	require.NoError(t, s.Tournaments().Create(ctx, &models.Tournament{ID: "t1", CategoryID: "pubg", MaxPlayers: 1}))

	require.NoError(t, s.Tournaments().IncrementRegisteredCount(ctx, "t1"))
	assert.ErrorIs(t, s.Tournaments().IncrementRegisteredCount(ctx, "t1"), repositories.ErrTournamentCapacity)

	assert.ErrorIs(t, s.Tournaments().Create(ctx, &models.Tournament{ID: "t2", CategoryID: "chess"}), repositories.ErrTournamentInvalidCategory)
}

func TestPointsKeepFirstSeq(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	require.NoError(t, s.Categories().Create(ctx, &models.Category{ID: "pubg", Name: "PUBG"}))
	require.NoError(t, s.Tournaments().Create(ctx, &models.Tournament{ID: "t1", CategoryID: "pubg", MaxPlayers: 10}))

	for _, key := range []string{"a", "b", "a"} {
		require.NoError(t, s.Points().Upsert(ctx, &models.PointsEntry{TournamentID: "t1", Key: key, PlayerName: key}))
	}
	entries, err := s.Points().ListByTournament(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "a", entries[0].Key)
	assert.Equal(t, 1, entries[0].Seq)
	assert.Equal(t, 2, entries[1].Seq)
}

func TestPaginate(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}
	assert.Equal(t, []int{1, 2, 3, 4, 5}, paginate(items, 0, 0))
	assert.Equal(t, []int{2, 3}, paginate(items, 2, 1))
	assert.Empty(t, paginate(items, 2, 10))
}
