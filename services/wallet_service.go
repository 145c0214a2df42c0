package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/Dosada05/tournament-arena/models"
	"github.com/Dosada05/tournament-arena/repositories"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// maxCoinRequestAmount ограничивает одну заявку; большие суммы игрок делит сам.
const maxCoinRequestAmount = 1_000_000

type WalletService interface {
	CreateRequest(ctx context.Context, actor models.Actor, input CoinRequestInput) (*models.CoinRequest, error)
	ListMine(ctx context.Context, actor models.Actor, filter models.CoinRequestFilter) ([]models.CoinRequest, error)
	ListAll(ctx context.Context, actor models.Actor, filter models.CoinRequestFilter) ([]models.CoinRequest, error)
}

type CoinRequestInput struct {
	Kind             models.CoinRequestKind `json:"kind"`
	AmountCoins      int64                  `json:"amount_coins"`
	SupportingDetail string                 `json:"supporting_detail"`
}

type walletService struct {
	store  repositories.Store
	logger *zap.Logger
	clock  Clock
}

func NewWalletService(store repositories.Store, logger *zap.Logger, clock Clock) WalletService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &walletService{store: store, logger: logger.Named("wallet"), clock: clock}
}

func (s *walletService) CreateRequest(ctx context.Context, actor models.Actor, input CoinRequestInput) (*models.CoinRequest, error) {
	if err := requireUser(actor); err != nil {
		return nil, err
	}
	if input.Kind != models.CoinRequestAdd && input.Kind != models.CoinRequestWithdraw {
		return nil, validationError("kind must be %q or %q", models.CoinRequestAdd, models.CoinRequestWithdraw)
	}
	if input.AmountCoins <= 0 || input.AmountCoins > maxCoinRequestAmount {
		return nil, validationError("amount_coins must be between 1 and %d", maxCoinRequestAmount)
	}
	detail, err := requireText("supporting_detail", input.SupportingDetail, 1, 256)
	if err != nil {
		return nil, err
	}

	var req *models.CoinRequest
	err = s.store.WithTx(ctx, func(tx repositories.Repos) error {
		user, err := tx.Users().GetByID(ctx, actor.UserID)
		if err != nil {
			if errors.Is(err, repositories.ErrUserNotFound) {
				return ErrAccountNotFound
			}
			return fmt.Errorf("failed to load account: %w", err)
		}
		if user.Status == models.AccountBlocked {
			return ErrAccountBlocked
		}
		// только предварительная проверка, Decide перепроверяет баланс при одобрении
		if input.Kind == models.CoinRequestWithdraw && input.AmountCoins > user.CoinBalance {
			return ErrInsufficientFunds
		}

		req = &models.CoinRequest{
			ID:               uuid.NewString(),
			UserID:           user.ID,
			Username:         user.Username,
			Kind:             input.Kind,
			AmountCoins:      input.AmountCoins,
			SupportingDetail: detail,
			Status:           models.CoinRequestPending,
			RequestDate:      s.clock.now(),
		}
		if err := tx.CoinRequests().Create(ctx, req); err != nil {
			return fmt.Errorf("failed to create coin request: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, translateTxError(err)
	}

	s.logger.Info("coin request created",
		zap.String("request_id", req.ID),
		zap.String("user_id", req.UserID),
		zap.String("kind", string(req.Kind)),
		zap.Int64("amount", req.AmountCoins),
	)
	return req, nil
}

func (s *walletService) ListMine(ctx context.Context, actor models.Actor, filter models.CoinRequestFilter) ([]models.CoinRequest, error) {
	if err := requireUser(actor); err != nil {
		return nil, err
	}
	filter.Limit, filter.Offset = normalizeLimit(filter.Limit, filter.Offset)
	list, err := s.store.CoinRequests().ListByUser(ctx, actor.UserID, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list coin requests: %w", err)
	}
	return list, nil
}

func (s *walletService) ListAll(ctx context.Context, actor models.Actor, filter models.CoinRequestFilter) ([]models.CoinRequest, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	filter.Limit, filter.Offset = normalizeLimit(filter.Limit, filter.Offset)
	list, err := s.store.CoinRequests().List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list coin requests: %w", err)
	}
	return list, nil
}
