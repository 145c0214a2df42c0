package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/Dosada05/tournament-arena/models"
	"github.com/Dosada05/tournament-arena/repositories"
	"golang.org/x/sync/errgroup"
)

type DashboardService interface {
	Get(ctx context.Context, actor models.Actor) (*models.Dashboard, error)
}

type dashboardService struct {
	repos repositories.Repos
}

func NewDashboardService(repos repositories.Repos) DashboardService {
	return &dashboardService{repos: repos}
}

func (s *dashboardService) Get(ctx context.Context, actor models.Actor) (*models.Dashboard, error) {
	if err := requireUser(actor); err != nil {
		return nil, err
	}

	var (
		d       = &models.Dashboard{}
		pending = models.CoinRequestPending
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		user, err := s.repos.Users().GetByID(gctx, actor.UserID)
		if err != nil {
			if errors.Is(err, repositories.ErrUserNotFound) {
				return ErrUserNotFound
			}
			return fmt.Errorf("failed to load account: %w", err)
		}
		user.PasswordHash = ""
		d.Account = *user
		return nil
	})
	g.Go(func() (err error) {
		d.Joined, err = s.repos.UserTournaments().ListJoined(gctx, actor.UserID)
		return err
	})
	g.Go(func() (err error) {
		d.Won, err = s.repos.UserTournaments().ListWon(gctx, actor.UserID)
		return err
	})
	g.Go(func() (err error) {
		d.PendingRequests, err = s.repos.CoinRequests().ListByUser(gctx, actor.UserID, models.CoinRequestFilter{Status: &pending})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, w := range d.Won {
		d.TotalPrizeWon += w.PrizeWon
	}
	if d.Joined == nil {
		d.Joined = []models.JoinedTournament{}
	}
	if d.Won == nil {
		d.Won = []models.WonTournament{}
	}
	if d.PendingRequests == nil {
		d.PendingRequests = []models.CoinRequest{}
	}
	return d, nil
}
