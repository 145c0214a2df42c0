package services

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/Dosada05/tournament-arena/models"
	"github.com/Dosada05/tournament-arena/repositories"
	"github.com/Dosada05/tournament-arena/storage"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type TeamService interface {
	Create(ctx context.Context, actor models.Actor, name string) (*models.Team, error)
	Get(ctx context.Context, id string) (*models.Team, error)
	ListMine(ctx context.Context, actor models.Actor) ([]models.Team, error)
	Leave(ctx context.Context, actor models.Actor, teamID string) error
	UploadLogo(ctx context.Context, actor models.Actor, teamID string, contentType string, body io.Reader) (*models.Team, error)
}

type teamService struct {
	store    repositories.Store
	uploader storage.FileUploader
	logger   *zap.Logger
	clock    Clock
}

func NewTeamService(store repositories.Store, uploader storage.FileUploader, logger *zap.Logger, clock Clock) TeamService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &teamService{store: store, uploader: uploader, logger: logger.Named("teams"), clock: clock}
}

func mapTeamRepoError(err error, action string) error {
	switch {
	case errors.Is(err, repositories.ErrTeamNotFound):
		return ErrTeamNotFound
	case errors.Is(err, repositories.ErrTeamNameConflict):
		return ErrTeamNameConflict
	case errors.Is(err, repositories.ErrTeamMemberConflict):
		return ErrAlreadyTeamMember
	case errors.Is(err, repositories.ErrTeamMemberNotFound):
		return ErrNotTeamMember
	}
	return fmt.Errorf("failed to %s team: %w", action, err)
}

func (s *teamService) Create(ctx context.Context, actor models.Actor, name string) (*models.Team, error) {
	if err := requireUser(actor); err != nil {
		return nil, err
	}
	clean, err := requireText("name", name, 2, 50)
	if err != nil {
		return nil, err
	}

	var team *models.Team
	err = s.store.WithTx(ctx, func(tx repositories.Repos) error {
		owner, err := tx.Users().GetByID(ctx, actor.UserID)
		if err != nil {
			if errors.Is(err, repositories.ErrUserNotFound) {
				return ErrUserNotFound
			}
			return fmt.Errorf("failed to load owner: %w", err)
		}
		team = &models.Team{
			ID:          uuid.NewString(),
			Name:        clean,
			OwnerID:     owner.ID,
			Members:     []string{owner.ID},
			MemberNames: map[string]string{owner.ID: owner.Username},
			CreatedAt:   s.clock.now(),
		}
		if err := tx.Teams().Create(ctx, team); err != nil {
			return mapTeamRepoError(err, "create")
		}
		return nil
	})
	if err != nil {
		return nil, translateTxError(err)
	}
	s.logger.Info("team created", zap.String("team_id", team.ID), zap.String("owner_id", team.OwnerID))
	return s.present(team), nil
}

func (s *teamService) Get(ctx context.Context, id string) (*models.Team, error) {
	team, err := s.store.Teams().GetByID(ctx, id)
	if err != nil {
		return nil, mapTeamRepoError(err, "get")
	}
	return s.present(team), nil
}

func (s *teamService) ListMine(ctx context.Context, actor models.Actor) ([]models.Team, error) {
	if err := requireUser(actor); err != nil {
		return nil, err
	}
	teams, err := s.store.Teams().ListByMember(ctx, actor.UserID)
	if err != nil {
		return nil, mapTeamRepoError(err, "list")
	}
	for i := range teams {
		s.present(&teams[i])
	}
	return teams, nil
}

func (s *teamService) Leave(ctx context.Context, actor models.Actor, teamID string) error {
	if err := requireUser(actor); err != nil {
		return err
	}
	err := s.store.WithTx(ctx, func(tx repositories.Repos) error {
		team, err := tx.Teams().GetByIDForUpdate(ctx, teamID)
		if err != nil {
			return mapTeamRepoError(err, "load")
		}
		if !team.HasMember(actor.UserID) {
			return ErrNotTeamMember
		}
		if team.OwnerID == actor.UserID {
			return ErrOwnerCannotLeave
		}
		if err := tx.Teams().RemoveMember(ctx, teamID, actor.UserID); err != nil {
			return mapTeamRepoError(err, "leave")
		}
		return nil
	})
	return translateTxError(err)
}

func (s *teamService) UploadLogo(ctx context.Context, actor models.Actor, teamID string, contentType string, body io.Reader) (*models.Team, error) {
	if err := requireUser(actor); err != nil {
		return nil, err
	}
	if s.uploader == nil {
		return nil, ErrUploadsDisabled
	}
	ext, err := storage.ImageExtension(contentType)
	if err != nil {
		return nil, validationError("%v", err)
	}
	team, err := s.store.Teams().GetByID(ctx, teamID)
	if err != nil {
		return nil, mapTeamRepoError(err, "get")
	}
	if team.OwnerID != actor.UserID {
		return nil, ErrOwnerActionForbidden
	}

	key := storage.ObjectKey("teams", team.ID, "logo", ext)
	if _, err := s.uploader.Upload(ctx, key, contentType, body); err != nil {
		return nil, fmt.Errorf("failed to upload logo: %w", err)
	}
	if err := s.store.Teams().UpdateLogoKey(ctx, team.ID, &key); err != nil {
		if delErr := s.uploader.Delete(ctx, key); delErr != nil {
			s.logger.Warn("failed to delete orphaned logo", zap.String("key", key), zap.Error(delErr))
		}
		return nil, mapTeamRepoError(err, "update logo of")
	}
	if old := team.LogoKey; old != nil && *old != "" {
		if err := s.uploader.Delete(ctx, *old); err != nil {
			s.logger.Warn("failed to delete previous logo", zap.String("key", *old), zap.Error(err))
		}
	}
	team.LogoKey = &key
	return s.present(team), nil
}

func (s *teamService) present(t *models.Team) *models.Team {
	t.LogoURL = publicURL(s.uploader, t.LogoKey)
	return t
}
