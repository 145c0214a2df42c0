package services

import (
	"fmt"
	"sort"
	"sync"
	"testing"

	"github.com/Dosada05/tournament-arena/hub"
	"github.com/Dosada05/tournament-arena/metrics"
	"github.com/Dosada05/tournament-arena/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newSettlement(f *fixture) SettlementService {
	return NewSettlementService(f.store, f.notifier, nil, metrics.New(), zap.NewNop(), fixedClock())
}

func requireJoinRejected(t *testing.T, err error, want JoinRejectReason) {
	t.Helper()
	require.ErrorIs(t, err, ErrJoinRejected)
	reason, ok := JoinRejectReasonOf(err)
	require.True(t, ok)
	assert.Equal(t, want, reason)
}

func TestDecideApproveWithdrawOverBalanceFails(t *testing.T) {
	f := newFixture(t)
	svc := newSettlement(f)
	alice := f.addUser(t, "alice", 100)
	req := f.addCoinRequest(t, alice, models.CoinRequestWithdraw, 150)

	_, err := svc.Decide(f.ctx, f.staff, req.ID, models.CoinRequestApproved)
	require.ErrorIs(t, err, ErrInsufficientFunds)

	assert.Equal(t, int64(100), f.balance(t, alice.ID))
	stored, err := f.store.CoinRequests().GetByID(f.ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CoinRequestPending, stored.Status)
	assert.Nil(t, stored.DecisionDate)
}

func TestDecideApproveAddCreditsBalance(t *testing.T) {
	f := newFixture(t)
	svc := newSettlement(f)
	alice := f.addUser(t, "alice", 100)
	req := f.addCoinRequest(t, alice, models.CoinRequestAdd, 50)

	decided, err := svc.Decide(f.ctx, f.staff, req.ID, models.CoinRequestApproved)
	require.NoError(t, err)
	assert.Equal(t, models.CoinRequestApproved, decided.Status)
	require.NotNil(t, decided.DecidedBy)
	assert.Equal(t, f.staff.UserID, *decided.DecidedBy)
	require.NotNil(t, decided.DecisionDate)
	assert.True(t, decided.DecisionDate.Equal(fixedNow))

	assert.Equal(t, int64(150), f.balance(t, alice.ID))

	// обе копии записи обновлены
	mine, err := f.store.CoinRequests().ListByUser(f.ctx, alice.ID, models.CoinRequestFilter{})
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, models.CoinRequestApproved, mine[0].Status)
}

func TestDecideApproveWithdrawDebits(t *testing.T) {
	f := newFixture(t)
	svc := newSettlement(f)
	alice := f.addUser(t, "alice", 100)
	req := f.addCoinRequest(t, alice, models.CoinRequestWithdraw, 100)

	_, err := svc.Decide(f.ctx, f.staff, req.ID, models.CoinRequestApproved)
	require.NoError(t, err)
	assert.Equal(t, int64(0), f.balance(t, alice.ID))
}

func TestDecideDenyLeavesBalance(t *testing.T) {
	f := newFixture(t)
	svc := newSettlement(f)
	alice := f.addUser(t, "alice", 100)
	req := f.addCoinRequest(t, alice, models.CoinRequestWithdraw, 500)

	decided, err := svc.Decide(f.ctx, f.staff, req.ID, models.CoinRequestDenied)
	require.NoError(t, err)
	assert.Equal(t, models.CoinRequestDenied, decided.Status)
	assert.Equal(t, int64(100), f.balance(t, alice.ID))

	_, err = svc.Decide(f.ctx, f.staff, req.ID, models.CoinRequestApproved)
	require.ErrorIs(t, err, ErrAlreadyDecided)
	assert.Equal(t, int64(100), f.balance(t, alice.ID))
}

func TestDecideRejectsBadInput(t *testing.T) {
	f := newFixture(t)
	svc := newSettlement(f)
	alice := f.addUser(t, "alice", 100)
	req := f.addCoinRequest(t, alice, models.CoinRequestAdd, 10)

	_, err := svc.Decide(f.ctx, actorOf(alice), req.ID, models.CoinRequestApproved)
	assert.ErrorIs(t, err, ErrForbiddenOperation)

	_, err = svc.Decide(f.ctx, f.staff, req.ID, models.CoinRequestPending)
	assert.ErrorIs(t, err, ErrValidationFailed)

	_, err = svc.Decide(f.ctx, f.staff, "missing", models.CoinRequestApproved)
	assert.ErrorIs(t, err, ErrCoinRequestNotFound)

	_, err = svc.Decide(f.ctx, models.Actor{}, req.ID, models.CoinRequestApproved)
	assert.ErrorIs(t, err, ErrAuthenticationFailed)
}

func TestDecideConcurrentApprovalsApplyOnce(t *testing.T) {
	f := newFixture(t)
	svc := newSettlement(f)
	alice := f.addUser(t, "alice", 0)
	req := f.addCoinRequest(t, alice, models.CoinRequestAdd, 70)

	const workers = 8
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Decide(f.ctx, f.staff, req.ID, models.CoinRequestApproved)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, ErrAlreadyDecided)
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, int64(70), f.balance(t, alice.ID))
}

func TestJoinChargesFeeAndTakesSlot(t *testing.T) {
	f := newFixture(t)
	svc := newSettlement(f)
	alice := f.addUser(t, "alice", 100)
	tr := f.addTournament(t, nil)

	reg, err := svc.Join(f.ctx, actorOf(alice), tr.ID, JoinInput{})
	require.NoError(t, err)
	assert.Equal(t, 1, reg.SlotNumber)
	assert.Equal(t, "alice", reg.TeamName)
	assert.Equal(t, []string{alice.ID}, reg.PlayerIDs)

	assert.Equal(t, int64(90), f.balance(t, alice.ID))
	stored, err := f.store.Tournaments().GetByID(f.ctx, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.RegisteredCount)

	joined, err := f.store.UserTournaments().ListJoined(f.ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, joined, 1)
	assert.Equal(t, tr.ID, joined[0].TournamentID)
	assert.Equal(t, 1, joined[0].SlotNumber)

	assert.Equal(t, []string{hub.EventTournamentJoined}, f.notifier.types())
}

func TestJoinFreeTournamentKeepsBalance(t *testing.T) {
	f := newFixture(t)
	svc := newSettlement(f)
	bob := f.addUser(t, "bob", 0)
	tr := f.addTournament(t, func(tr *models.Tournament) { tr.EntryFee = 0 })

	_, err := svc.Join(f.ctx, actorOf(bob), tr.ID, JoinInput{})
	require.NoError(t, err)
	assert.Equal(t, int64(0), f.balance(t, bob.ID))
}

func TestJoinRejections(t *testing.T) {
	f := newFixture(t)
	svc := newSettlement(f)

	t.Run("closed", func(t *testing.T) {
		u := f.addUser(t, "closed-player", 100)
		tr := f.addTournament(t, func(tr *models.Tournament) { tr.Status = models.StatusLive })
		_, err := svc.Join(f.ctx, actorOf(u), tr.ID, JoinInput{})
		requireJoinRejected(t, err, JoinClosed)
		assert.Equal(t, int64(100), f.balance(t, u.ID))
	})

	t.Run("already joined", func(t *testing.T) {
		u := f.addUser(t, "twice", 100)
		tr := f.addTournament(t, nil)
		_, err := svc.Join(f.ctx, actorOf(u), tr.ID, JoinInput{})
		require.NoError(t, err)
		_, err = svc.Join(f.ctx, actorOf(u), tr.ID, JoinInput{})
		requireJoinRejected(t, err, JoinAlreadyJoined)
		assert.Equal(t, int64(90), f.balance(t, u.ID))
	})

	t.Run("full", func(t *testing.T) {
		u := f.addUser(t, "latecomer", 100)
		tr := f.addTournament(t, func(tr *models.Tournament) {
			tr.MaxPlayers = 2
			tr.RegisteredCount = 2
		})
		_, err := svc.Join(f.ctx, actorOf(u), tr.ID, JoinInput{})
		requireJoinRejected(t, err, JoinFull)
	})

	t.Run("insufficient funds", func(t *testing.T) {
		u := f.addUser(t, "broke", 5)
		tr := f.addTournament(t, nil)
		_, err := svc.Join(f.ctx, actorOf(u), tr.ID, JoinInput{})
		requireJoinRejected(t, err, JoinInsufficientFunds)
		assert.Equal(t, int64(5), f.balance(t, u.ID))
		stored, err := f.store.Tournaments().GetByID(f.ctx, tr.ID)
		require.NoError(t, err)
		assert.Equal(t, 0, stored.RegisteredCount)
	})

	t.Run("unknown tournament", func(t *testing.T) {
		u := f.addUser(t, "lost", 100)
		_, err := svc.Join(f.ctx, actorOf(u), "missing", JoinInput{})
		assert.ErrorIs(t, err, ErrTournamentNotFound)
	})
}

func TestJoinBlockedAccount(t *testing.T) {
	f := newFixture(t)
	svc := newSettlement(f)
	u := f.addUser(t, "banned", 100)
	require.NoError(t, f.store.Users().UpdateStatus(f.ctx, u.ID, models.AccountBlocked))
	tr := f.addTournament(t, nil)

	_, err := svc.Join(f.ctx, actorOf(u), tr.ID, JoinInput{})
	assert.ErrorIs(t, err, ErrAccountBlocked)
}

func TestJoinLastSlotRace(t *testing.T) {
	f := newFixture(t)
	svc := newSettlement(f)
	a := f.addUser(t, "racer-a", 100)
	b := f.addUser(t, "racer-b", 100)
	tr := f.addTournament(t, func(tr *models.Tournament) {
		tr.MaxPlayers = 2
		tr.RegisteredCount = 1
	})

	players := []models.UserAccount{a, b}
	regs := make([]*models.Registration, len(players))
	errs := make([]error, len(players))
	var wg sync.WaitGroup
	for i, p := range players {
		wg.Add(1)
		go func(i int, p models.UserAccount) {
			defer wg.Done()
			regs[i], errs[i] = svc.Join(f.ctx, actorOf(p), tr.ID, JoinInput{})
		}(i, p)
	}
	wg.Wait()

	var winner, loser int
	switch {
	case errs[0] == nil && errs[1] != nil:
		winner, loser = 0, 1
	case errs[1] == nil && errs[0] != nil:
		winner, loser = 1, 0
	default:
		t.Fatalf("expected exactly one successful join, got %v and %v", errs[0], errs[1])
	}
	assert.Equal(t, 2, regs[winner].SlotNumber)
	requireJoinRejected(t, errs[loser], JoinFull)
	assert.Equal(t, int64(90), f.balance(t, players[winner].ID))
	assert.Equal(t, int64(100), f.balance(t, players[loser].ID))

	stored, err := f.store.Tournaments().GetByID(f.ctx, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stored.RegisteredCount)
}

func TestJoinConcurrentSlotsAreUnique(t *testing.T) {
	f := newFixture(t)
	svc := newSettlement(f)
	const (
		capacity = 20
		players  = 25
	)
	tr := f.addTournament(t, func(tr *models.Tournament) { tr.MaxPlayers = capacity })

	accounts := make([]models.UserAccount, players)
	for i := range accounts {
		accounts[i] = f.addUser(t, fmt.Sprintf("rush-%02d", i), 100)
	}

	regs := make([]*models.Registration, players)
	errs := make([]error, players)
	var wg sync.WaitGroup
	for i, p := range accounts {
		wg.Add(1)
		go func(i int, p models.UserAccount) {
			defer wg.Done()
			regs[i], errs[i] = svc.Join(f.ctx, actorOf(p), tr.ID, JoinInput{})
		}(i, p)
	}
	wg.Wait()

	var slots []int
	full := 0
	for i, err := range errs {
		if err != nil {
			requireJoinRejected(t, err, JoinFull)
			assert.Equal(t, int64(100), f.balance(t, accounts[i].ID))
			full++
			continue
		}
		slots = append(slots, regs[i].SlotNumber)
		assert.Equal(t, int64(90), f.balance(t, accounts[i].ID))
	}
	sort.Ints(slots)

	want := make([]int, capacity)
	for i := range want {
		want[i] = i + 1
	}
	assert.Equal(t, want, slots)
	assert.Equal(t, players-capacity, full)

	stored, err := f.store.Tournaments().GetByID(f.ctx, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, capacity, stored.RegisteredCount)
}

func TestJoinAsTeam(t *testing.T) {
	f := newFixture(t)
	svc := newSettlement(f)
	owner := f.addUser(t, "captain", 100)
	mate := f.addUser(t, "mate", 0)
	outsider := f.addUser(t, "outsider", 100)
	team := &models.Team{
		ID:          "team-1",
		Name:        "Night Owls",
		OwnerID:     owner.ID,
		Members:     []string{owner.ID, mate.ID},
		MemberNames: map[string]string{owner.ID: owner.Username, mate.ID: mate.Username},
	}
	require.NoError(t, f.store.Teams().Create(f.ctx, team))
	tr := f.addTournament(t, nil)

	reg, err := svc.Join(f.ctx, actorOf(owner), tr.ID, JoinInput{TeamID: strPtr(team.ID)})
	require.NoError(t, err)
	assert.Equal(t, "Night Owls", reg.TeamName)
	assert.ElementsMatch(t, []string{owner.ID, mate.ID}, reg.PlayerIDs)

	_, err = svc.Join(f.ctx, actorOf(outsider), tr.ID, JoinInput{TeamID: strPtr(team.ID)})
	assert.ErrorIs(t, err, ErrNotTeamMember)
	assert.Equal(t, int64(100), f.balance(t, outsider.ID))
}

func TestFinalizePaysWinners(t *testing.T) {
	f := newFixture(t)
	svc := newSettlement(f)
	tr := f.addTournament(t, func(tr *models.Tournament) {
		tr.EntryFee = 0
		tr.PrizePoolFirst = 1000
		tr.PrizePoolSecond = 500
	})
	first := f.addUser(t, "first", 10)
	second := f.addUser(t, "second", 20)
	for _, u := range []models.UserAccount{first, second} {
		_, err := svc.Join(f.ctx, actorOf(u), tr.ID, JoinInput{})
		require.NoError(t, err)
	}

	done, err := svc.Finalize(f.ctx, f.staff, tr.ID, WinnersInput{First: first.ID, Second: strPtr(second.ID)})
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, done.Status)
	require.Len(t, done.Winners, 2)
	assert.Equal(t, models.Winner{UserID: first.ID, Username: "first", Place: models.PlaceFirst}, done.Winners[0])
	assert.Equal(t, models.PlaceSecond, done.Winners[1].Place)

	assert.Equal(t, int64(1010), f.balance(t, first.ID))
	assert.Equal(t, int64(520), f.balance(t, second.ID))

	won, err := f.store.UserTournaments().ListWon(f.ctx, first.ID)
	require.NoError(t, err)
	require.Len(t, won, 1)
	assert.Equal(t, int64(1000), won[0].PrizeWon)
	assert.Equal(t, models.PlaceFirst, won[0].Place)

	joined, err := f.store.UserTournaments().ListJoined(f.ctx, first.ID)
	require.NoError(t, err)
	assert.Empty(t, joined)

	// регистрация сохраняется
	_, err = f.store.Registrations().Get(f.ctx, tr.ID, first.ID)
	require.NoError(t, err)

	_, err = svc.Finalize(f.ctx, f.staff, tr.ID, WinnersInput{First: first.ID})
	require.ErrorIs(t, err, ErrAlreadyFinalized)
	assert.Equal(t, int64(1010), f.balance(t, first.ID))

	assert.Contains(t, f.notifier.types(), hub.EventTournamentFinalized)
}

func TestFinalizeRejections(t *testing.T) {
	f := newFixture(t)
	svc := newSettlement(f)
	tr := f.addTournament(t, func(tr *models.Tournament) {
		tr.EntryFee = 0
		tr.PrizePoolFirst = 1000
	})
	a := f.addUser(t, "a", 0)
	stranger := f.addUser(t, "stranger", 0)
	_, err := svc.Join(f.ctx, actorOf(a), tr.ID, JoinInput{})
	require.NoError(t, err)

	_, err = svc.Finalize(f.ctx, actorOf(a), tr.ID, WinnersInput{First: a.ID})
	assert.ErrorIs(t, err, ErrForbiddenOperation)

	_, err = svc.Finalize(f.ctx, f.staff, tr.ID, WinnersInput{})
	assert.ErrorIs(t, err, ErrValidationFailed)

	_, err = svc.Finalize(f.ctx, f.staff, tr.ID, WinnersInput{First: a.ID, Third: strPtr(a.ID)})
	assert.ErrorIs(t, err, ErrDuplicateWinner)

	_, err = svc.Finalize(f.ctx, f.staff, tr.ID, WinnersInput{First: a.ID, Second: strPtr(stranger.ID)})
	assert.ErrorIs(t, err, ErrWinnerNotRegistered)

	_, err = svc.Finalize(f.ctx, f.staff, tr.ID, WinnersInput{First: "ghost"})
	assert.ErrorIs(t, err, ErrAccountNotFound)

	// ни одна неудачная попытка не выплатила приз
	assert.Equal(t, int64(0), f.balance(t, a.ID))
	stored, err := f.store.Tournaments().GetByID(f.ctx, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusUpcoming, stored.Status)
}

func TestFinalizeCancelledTournament(t *testing.T) {
	f := newFixture(t)
	svc := newSettlement(f)
	a := f.addUser(t, "a", 0)
	tr := f.addTournament(t, func(tr *models.Tournament) { tr.Status = models.StatusCancelled })

	_, err := svc.Finalize(f.ctx, f.staff, tr.ID, WinnersInput{First: a.ID})
	assert.ErrorIs(t, err, ErrTournamentInvalidStatusTransition)
}

func TestOutcomeOf(t *testing.T) {
	assert.Equal(t, "ok", outcomeOf(nil))
	assert.Equal(t, "rejected_full", outcomeOf(rejectJoin(JoinFull)))
	assert.Equal(t, "already_decided", outcomeOf(ErrAlreadyDecided))
}
