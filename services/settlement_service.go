package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/Dosada05/tournament-arena/hub"
	"github.com/Dosada05/tournament-arena/metrics"
	"github.com/Dosada05/tournament-arena/models"
	"github.com/Dosada05/tournament-arena/repositories"
	"go.uber.org/zap"
)

const decisionMailTimeout = 30 * time.Second

// SettlementService проводит все изменения баланса монет. Каждая операция идет в одной
// транзакции хранилища и перечитывает внутри нее все состояние, от которого зависит решение.
type SettlementService interface {
	Decide(ctx context.Context, actor models.Actor, requestID string, decision models.CoinRequestStatus) (*models.CoinRequest, error)
	Join(ctx context.Context, actor models.Actor, tournamentID string, input JoinInput) (*models.Registration, error)
	Finalize(ctx context.Context, actor models.Actor, tournamentID string, winners WinnersInput) (*models.Tournament, error)
}

type JoinInput struct {
	TeamID *string `json:"team_id,omitempty"`
}

type WinnersInput struct {
	First  string  `json:"first"`
	Second *string `json:"second,omitempty"`
	Third  *string `json:"third,omitempty"`
}

type placedWinner struct {
	place  models.Place
	userID string
}

// placed возвращает заданных победителей в порядке мест.
func (w WinnersInput) placed() []placedWinner {
	out := []placedWinner{{place: models.PlaceFirst, userID: w.First}}
	if id := derefString(w.Second); id != "" {
		out = append(out, placedWinner{place: models.PlaceSecond, userID: id})
	}
	if id := derefString(w.Third); id != "" {
		out = append(out, placedWinner{place: models.PlaceThird, userID: id})
	}
	return out
}

// DecisionMailer уведомляет владельца заявки о решении.
type DecisionMailer interface {
	SendCoinDecision(ctx context.Context, to string, username string, req models.CoinRequest) error
}

type settlementService struct {
	store    repositories.Store
	notifier Notifier
	mailer   DecisionMailer
	metrics  *metrics.Metrics
	logger   *zap.Logger
	clock    Clock
}

func NewSettlementService(
	store repositories.Store,
	notifier Notifier,
	mailer DecisionMailer,
	m *metrics.Metrics,
	logger *zap.Logger,
	clock Clock,
) SettlementService {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &settlementService{
		store:    store,
		notifier: notifier,
		mailer:   mailer,
		metrics:  m,
		logger:   logger.Named("settlement"),
		clock:    clock,
	}
}

func (s *settlementService) Decide(ctx context.Context, actor models.Actor, requestID string, decision models.CoinRequestStatus) (*models.CoinRequest, error) {
	started := time.Now()
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	if decision != models.CoinRequestApproved && decision != models.CoinRequestDenied {
		return nil, validationError("decision must be %q or %q", models.CoinRequestApproved, models.CoinRequestDenied)
	}

	var (
		decided *models.CoinRequest
		owner   *models.UserAccount
	)
	err := s.store.WithTx(ctx, func(tx repositories.Repos) error {
		req, err := tx.CoinRequests().GetByIDForUpdate(ctx, requestID)
		if err != nil {
			if errors.Is(err, repositories.ErrCoinRequestNotFound) {
				return ErrCoinRequestNotFound
			}
			return fmt.Errorf("failed to load coin request %s: %w", requestID, err)
		}
		if req.Status.Terminal() {
			return ErrAlreadyDecided
		}

		user, err := tx.Users().GetByIDForUpdate(ctx, req.UserID)
		if err != nil {
			if errors.Is(err, repositories.ErrUserNotFound) {
				return ErrAccountNotFound
			}
			return fmt.Errorf("failed to load account %s: %w", req.UserID, err)
		}

		if decision == models.CoinRequestApproved {
			balance := user.CoinBalance
			switch req.Kind {
			case models.CoinRequestAdd:
				balance += req.AmountCoins
			case models.CoinRequestWithdraw:
				balance -= req.AmountCoins
				if balance < 0 {
					return ErrInsufficientFunds
				}
			default:
				return fmt.Errorf("coin request %s has unknown kind %q", req.ID, req.Kind)
			}
			if err := tx.Users().UpdateCoinBalance(ctx, user.ID, balance); err != nil {
				return fmt.Errorf("failed to update balance: %w", err)
			}
			user.CoinBalance = balance
		}

		now := s.clock.now()
		req.Status = decision
		req.DecisionDate = &now
		req.DecidedBy = &actor.UserID
		if err := tx.CoinRequests().RecordDecision(ctx, req); err != nil {
			return fmt.Errorf("failed to record decision: %w", err)
		}

		decided, owner = req, user
		return nil
	})
	s.metrics.ObserveSettlement("decide", outcomeOf(err), started)
	if err != nil {
		return nil, translateTxError(err)
	}

	s.logger.Info("coin request decided",
		zap.String("request_id", decided.ID),
		zap.String("user_id", decided.UserID),
		zap.String("kind", string(decided.Kind)),
		zap.Int64("amount", decided.AmountCoins),
		zap.String("decision", string(decision)),
		zap.String("decided_by", actor.UserID),
	)
	s.sendDecisionMail(ctx, owner, *decided)
	return decided, nil
}

func (s *settlementService) sendDecisionMail(ctx context.Context, owner *models.UserAccount, req models.CoinRequest) {
	if s.mailer == nil || owner == nil || owner.Email == "" {
		return
	}
	mailCtx := context.WithoutCancel(ctx)
	go func() {
		mailCtx, cancel := context.WithTimeout(mailCtx, decisionMailTimeout)
		defer cancel()
		if err := s.mailer.SendCoinDecision(mailCtx, owner.Email, owner.Username, req); err != nil {
			s.logger.Warn("failed to send decision notice", zap.String("request_id", req.ID), zap.Error(err))
		}
	}()
}

func (s *settlementService) Join(ctx context.Context, actor models.Actor, tournamentID string, input JoinInput) (*models.Registration, error) {
	started := time.Now()
	if err := requireUser(actor); err != nil {
		return nil, err
	}

	var reg *models.Registration
	err := s.store.WithTx(ctx, func(tx repositories.Repos) error {
		t, err := tx.Tournaments().GetByIDForUpdate(ctx, tournamentID)
		if err != nil {
			if errors.Is(err, repositories.ErrTournamentNotFound) {
				return ErrTournamentNotFound
			}
			return fmt.Errorf("failed to load tournament %s: %w", tournamentID, err)
		}
		if t.Status != models.StatusUpcoming {
			return rejectJoin(JoinClosed)
		}

		user, err := tx.Users().GetByIDForUpdate(ctx, actor.UserID)
		if err != nil {
			if errors.Is(err, repositories.ErrUserNotFound) {
				return ErrAccountNotFound
			}
			return fmt.Errorf("failed to load account %s: %w", actor.UserID, err)
		}
		if user.Status == models.AccountBlocked {
			return ErrAccountBlocked
		}

		if _, err := tx.Registrations().Get(ctx, t.ID, user.ID); err == nil {
			return rejectJoin(JoinAlreadyJoined)
		} else if !errors.Is(err, repositories.ErrRegistrationNotFound) {
			return fmt.Errorf("failed to check registration: %w", err)
		}
		if t.RegisteredCount >= t.MaxPlayers {
			return rejectJoin(JoinFull)
		}
		if user.CoinBalance < t.EntryFee {
			return rejectJoin(JoinInsufficientFunds)
		}

		teamName, playerIDs := user.Username, []string{user.ID}
		if teamID := derefString(input.TeamID); teamID != "" {
			team, err := tx.Teams().GetByID(ctx, teamID)
			if err != nil {
				if errors.Is(err, repositories.ErrTeamNotFound) {
					return ErrTeamNotFound
				}
				return fmt.Errorf("failed to load team %s: %w", teamID, err)
			}
			if !team.HasMember(user.ID) {
				return ErrNotTeamMember
			}
			teamName, playerIDs = team.Name, team.Members
		}

		now := s.clock.now()
		slot := t.RegisteredCount + 1
		reg = &models.Registration{
			UserID:           user.ID,
			TournamentID:     t.ID,
			TeamName:         teamName,
			PlayerIDs:        playerIDs,
			SlotNumber:       slot,
			RegistrationDate: now,
		}
		if err := tx.Registrations().Create(ctx, reg); err != nil {
			if errors.Is(err, repositories.ErrRegistrationConflict) {
				return rejectJoin(JoinAlreadyJoined)
			}
			return fmt.Errorf("failed to create registration: %w", err)
		}
		if err := tx.UserTournaments().CreateJoined(ctx, &models.JoinedTournament{
			UserID:       user.ID,
			TournamentID: t.ID,
			Name:         t.Name,
			CategoryID:   t.CategoryID,
			StartDate:    t.StartDate,
			EntryFee:     t.EntryFee,
			SlotNumber:   slot,
			JoinedAt:     now,
		}); err != nil {
			return fmt.Errorf("failed to create joined view: %w", err)
		}
		if err := tx.Tournaments().IncrementRegisteredCount(ctx, t.ID); err != nil {
			if errors.Is(err, repositories.ErrTournamentCapacity) {
				return rejectJoin(JoinFull)
			}
			return fmt.Errorf("failed to increment registered count: %w", err)
		}
		if t.EntryFee > 0 {
			if err := tx.Users().UpdateCoinBalance(ctx, user.ID, user.CoinBalance-t.EntryFee); err != nil {
				return fmt.Errorf("failed to charge entry fee: %w", err)
			}
		}
		return nil
	})
	s.metrics.ObserveSettlement("join", outcomeOf(err), started)
	if err != nil {
		return nil, translateTxError(err)
	}

	s.logger.Info("player joined tournament",
		zap.String("tournament_id", tournamentID),
		zap.String("user_id", reg.UserID),
		zap.Int("slot", reg.SlotNumber),
	)
	s.notifier.Publish(tournamentID, hub.EventTournamentJoined, map[string]interface{}{
		"tournament_id":    tournamentID,
		"registered_count": reg.SlotNumber,
	})
	return reg, nil
}

func (s *settlementService) Finalize(ctx context.Context, actor models.Actor, tournamentID string, winners WinnersInput) (*models.Tournament, error) {
	started := time.Now()
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	if winners.First == "" {
		return nil, validationError("first place winner is required")
	}
	placed := winners.placed()
	seen := make(map[string]bool, len(placed))
	for _, w := range placed {
		if seen[w.userID] {
			s.metrics.ObserveSettlement("finalize", outcomeOf(ErrDuplicateWinner), started)
			return nil, ErrDuplicateWinner
		}
		seen[w.userID] = true
	}

	var finalized *models.Tournament
	err := s.store.WithTx(ctx, func(tx repositories.Repos) error {
		t, err := tx.Tournaments().GetByIDForUpdate(ctx, tournamentID)
		if err != nil {
			if errors.Is(err, repositories.ErrTournamentNotFound) {
				return ErrTournamentNotFound
			}
			return fmt.Errorf("failed to load tournament %s: %w", tournamentID, err)
		}
		switch t.Status {
		case models.StatusCompleted:
			return ErrAlreadyFinalized
		case models.StatusCancelled:
			return fmt.Errorf("%w: cancelled tournament cannot be finalized", ErrTournamentInvalidStatusTransition)
		}

		// аккаунты блокируем по порядку id, чтобы параллельные выплаты с общими победителями не ловили deadlock
		ids := make([]string, 0, len(placed))
		for _, w := range placed {
			ids = append(ids, w.userID)
		}
		sort.Strings(ids)
		accounts := make(map[string]*models.UserAccount, len(ids))
		for _, id := range ids {
			user, err := tx.Users().GetByIDForUpdate(ctx, id)
			if err != nil {
				if errors.Is(err, repositories.ErrUserNotFound) {
					return fmt.Errorf("%w: %s", ErrAccountNotFound, id)
				}
				return fmt.Errorf("failed to load account %s: %w", id, err)
			}
			if _, err := tx.Registrations().Get(ctx, t.ID, id); err != nil {
				if errors.Is(err, repositories.ErrRegistrationNotFound) {
					return fmt.Errorf("%w: %s", ErrWinnerNotRegistered, id)
				}
				return fmt.Errorf("failed to check registration of %s: %w", id, err)
			}
			accounts[id] = user
		}

		now := s.clock.now()
		resolved := make([]models.Winner, 0, len(placed))
		for _, w := range placed {
			user := accounts[w.userID]
			prize := t.Prize(w.place)
			if prize > 0 {
				if err := tx.Users().UpdateCoinBalance(ctx, user.ID, user.CoinBalance+prize); err != nil {
					return fmt.Errorf("failed to credit prize to %s: %w", user.ID, err)
				}
			}
			if err := tx.UserTournaments().DeleteJoined(ctx, user.ID, t.ID); err != nil {
				return fmt.Errorf("failed to remove joined view of %s: %w", user.ID, err)
			}
			if err := tx.UserTournaments().CreateWon(ctx, &models.WonTournament{
				UserID:         user.ID,
				TournamentID:   t.ID,
				Name:           t.Name,
				PrizeWon:       prize,
				Place:          w.place,
				CompletionDate: now,
			}); err != nil {
				return fmt.Errorf("failed to create won record for %s: %w", user.ID, err)
			}
			resolved = append(resolved, models.Winner{UserID: user.ID, Username: user.Username, Place: w.place})
		}

		if err := tx.Tournaments().MarkCompleted(ctx, t.ID, resolved); err != nil {
			return fmt.Errorf("failed to complete tournament: %w", err)
		}
		t.Status = models.StatusCompleted
		t.Winners = resolved
		finalized = t
		return nil
	})
	s.metrics.ObserveSettlement("finalize", outcomeOf(err), started)
	if err != nil {
		return nil, translateTxError(err)
	}

	s.logger.Info("tournament finalized",
		zap.String("tournament_id", finalized.ID),
		zap.Int("winners", len(finalized.Winners)),
		zap.String("finalized_by", actor.UserID),
	)
	s.notifier.Publish(finalized.ID, hub.EventTournamentFinalized, map[string]interface{}{
		"tournament_id": finalized.ID,
		"winners":       finalized.Winners,
	})
	return finalized, nil
}

// outcomeOf дает метку результата операции для метрик.
func outcomeOf(err error) string {
	if reason, ok := JoinRejectReasonOf(err); ok {
		return "rejected_" + string(reason)
	}
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrAlreadyDecided):
		return "already_decided"
	case errors.Is(err, ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, ErrAccountNotFound):
		return "account_not_found"
	case errors.Is(err, ErrDuplicateWinner):
		return "duplicate_winner"
	case errors.Is(err, ErrAlreadyFinalized):
		return "already_finalized"
	case errors.Is(err, ErrWinnerNotRegistered):
		return "winner_not_registered"
	case errors.Is(err, repositories.ErrTxConflict):
		return "conflict"
	}
	return "error"
}
