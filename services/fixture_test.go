package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Dosada05/tournament-arena/models"
	"github.com/Dosada05/tournament-arena/repositories/memory"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func fixedClock() Clock {
	return func() time.Time { return fixedNow }
}

type published struct {
	tournamentID string
	eventType    string
	payload      interface{}
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []published
}

func (n *recordingNotifier) Publish(tournamentID, eventType string, payload interface{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, published{tournamentID, eventType, payload})
}

func (n *recordingNotifier) types() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, 0, len(n.events))
	for _, e := range n.events {
		out = append(out, e.eventType)
	}
	return out
}

type fixture struct {
	ctx      context.Context
	store    *memory.Store
	notifier *recordingNotifier
	staff    models.Actor
	admin    models.Actor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		ctx:      context.Background(),
		store:    memory.NewStore(),
		notifier: &recordingNotifier{},
	}
	staff := f.addUserWithRole(t, "staffer", 0, models.RoleStaff)
	admin := f.addUserWithRole(t, "root", 0, models.RoleAdmin)
	f.staff = models.Actor{UserID: staff.ID, Role: models.RoleStaff}
	f.admin = models.Actor{UserID: admin.ID, Role: models.RoleAdmin}
	require.NoError(t, f.store.Categories().Create(f.ctx, &models.Category{ID: "pubg", Name: "PUBG"}))
	return f
}

func (f *fixture) addUser(t *testing.T, username string, balance int64) models.UserAccount {
	t.Helper()
	return f.addUserWithRole(t, username, balance, models.RolePlayer)
}

func (f *fixture) addUserWithRole(t *testing.T, username string, balance int64, role models.UserRole) models.UserAccount {
	t.Helper()
	u := &models.UserAccount{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        username + "@example.com",
		Role:         role,
		CoinBalance:  balance,
		Status:       models.AccountActive,
		PasswordHash: "x",
	}
	require.NoError(t, f.store.Users().Create(f.ctx, u))
	return *u
}

func (f *fixture) balance(t *testing.T, userID string) int64 {
	t.Helper()
	u, err := f.store.Users().GetByID(f.ctx, userID)
	require.NoError(t, err)
	return u.CoinBalance
}

// addTournament сохраняет турнир в статусе upcoming; mutate меняет значения по умолчанию до вставки.
func (f *fixture) addTournament(t *testing.T, mutate func(*models.Tournament)) models.Tournament {
	t.Helper()
	tr := &models.Tournament{
		ID:         uuid.NewString(),
		Name:       "Weekend Cup",
		CategoryID: "pubg",
		StartDate:  fixedNow.Add(24 * time.Hour),
		EndDate:    fixedNow.Add(48 * time.Hour),
		EntryFee:   10,
		MaxPlayers: 100,
		Status:     models.StatusUpcoming,
		CreatedBy:  f.staff.UserID,
	}
	if mutate != nil {
		mutate(tr)
	}
	require.NoError(t, f.store.Tournaments().Create(f.ctx, tr))
	return *tr
}

func (f *fixture) addCoinRequest(t *testing.T, user models.UserAccount, kind models.CoinRequestKind, amount int64) models.CoinRequest {
	t.Helper()
	req := &models.CoinRequest{
		ID:               uuid.NewString(),
		UserID:           user.ID,
		Username:         user.Username,
		Kind:             kind,
		AmountCoins:      amount,
		SupportingDetail: "txn-42",
		Status:           models.CoinRequestPending,
		RequestDate:      fixedNow,
	}
	require.NoError(t, f.store.CoinRequests().Create(f.ctx, req))
	return *req
}

func actorOf(u models.UserAccount) models.Actor {
	return models.Actor{UserID: u.ID, Role: u.Role}
}

func strPtr(s string) *string { return &s }
