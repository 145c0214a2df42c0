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

type InviteService interface {
	// Invite отправляет приглашение в команду пользователю с указанным username. Только владелец.
	Invite(ctx context.Context, actor models.Actor, teamID, username string) (*models.TeamInvitation, error)
	ListMine(ctx context.Context, actor models.Actor, status *models.InvitationStatus) ([]models.TeamInvitation, error)
	// Respond принимает или отклоняет ожидающее приглашение, адресованное вызывающему.
	Respond(ctx context.Context, actor models.Actor, invitationID string, accept bool) (*models.TeamInvitation, error)
}

type inviteService struct {
	store  repositories.Store
	logger *zap.Logger
	clock  Clock
}

func NewInviteService(store repositories.Store, logger *zap.Logger, clock Clock) InviteService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &inviteService{store: store, logger: logger.Named("invites"), clock: clock}
}

func (s *inviteService) Invite(ctx context.Context, actor models.Actor, teamID, username string) (*models.TeamInvitation, error) {
	if err := requireUser(actor); err != nil {
		return nil, err
	}
	if username == "" {
		return nil, validationError("username is required")
	}

	var inv *models.TeamInvitation
	err := s.store.WithTx(ctx, func(tx repositories.Repos) error {
		team, err := tx.Teams().GetByIDForUpdate(ctx, teamID)
		if err != nil {
			return mapTeamRepoError(err, "load")
		}
		if team.OwnerID != actor.UserID {
			return ErrOwnerActionForbidden
		}

		invitee, err := tx.Users().GetByUsername(ctx, username)
		if err != nil {
			if errors.Is(err, repositories.ErrUserNotFound) {
				return ErrUserNotFound
			}
			return fmt.Errorf("failed to find invitee: %w", err)
		}
		if team.HasMember(invitee.ID) {
			return ErrAlreadyTeamMember
		}

		if _, err := tx.Invitations().FindPending(ctx, team.ID, invitee.ID); err == nil {
			return ErrInvitationConflict
		} else if !errors.Is(err, repositories.ErrInvitationNotFound) {
			return fmt.Errorf("failed to check pending invitations: %w", err)
		}

		inv = &models.TeamInvitation{
			ID:         uuid.NewString(),
			TeamID:     team.ID,
			TeamName:   team.Name,
			FromUserID: actor.UserID,
			ToUserID:   invitee.ID,
			Status:     models.InvitationPending,
			CreatedAt:  s.clock.now(),
		}
		if err := tx.Invitations().Create(ctx, inv); err != nil {
			if errors.Is(err, repositories.ErrInvitationConflict) {
				return ErrInvitationConflict
			}
			return fmt.Errorf("failed to create invitation: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, translateTxError(err)
	}
	s.logger.Info("team invitation sent",
		zap.String("invitation_id", inv.ID),
		zap.String("team_id", inv.TeamID),
		zap.String("to_user_id", inv.ToUserID),
	)
	return inv, nil
}

func (s *inviteService) ListMine(ctx context.Context, actor models.Actor, status *models.InvitationStatus) ([]models.TeamInvitation, error) {
	if err := requireUser(actor); err != nil {
		return nil, err
	}
	list, err := s.store.Invitations().ListForUser(ctx, actor.UserID, status)
	if err != nil {
		return nil, fmt.Errorf("failed to list invitations: %w", err)
	}
	return list, nil
}

func (s *inviteService) Respond(ctx context.Context, actor models.Actor, invitationID string, accept bool) (*models.TeamInvitation, error) {
	if err := requireUser(actor); err != nil {
		return nil, err
	}

	var inv *models.TeamInvitation
	err := s.store.WithTx(ctx, func(tx repositories.Repos) error {
		var err error
		inv, err = tx.Invitations().GetByIDForUpdate(ctx, invitationID)
		if err != nil {
			if errors.Is(err, repositories.ErrInvitationNotFound) {
				return ErrInvitationNotFound
			}
			return fmt.Errorf("failed to load invitation: %w", err)
		}
		// чужие приглашения не раскрываем
		if inv.ToUserID != actor.UserID {
			return ErrInvitationNotFound
		}
		if inv.Status != models.InvitationPending {
			return ErrInvitationResolved
		}

		status := models.InvitationDeclined
		if accept {
			status = models.InvitationAccepted
			user, err := tx.Users().GetByID(ctx, actor.UserID)
			if err != nil {
				if errors.Is(err, repositories.ErrUserNotFound) {
					return ErrUserNotFound
				}
				return fmt.Errorf("failed to load invitee: %w", err)
			}
			if err := tx.Teams().AddMember(ctx, inv.TeamID, user.ID, user.Username); err != nil {
				return mapTeamRepoError(err, "join")
			}
		}

		now := s.clock.now()
		if err := tx.Invitations().UpdateStatus(ctx, inv.ID, status, now); err != nil {
			return fmt.Errorf("failed to update invitation: %w", err)
		}
		inv.Status = status
		inv.RespondedAt = &now
		return nil
	})
	if err != nil {
		return nil, translateTxError(err)
	}
	s.logger.Info("team invitation answered",
		zap.String("invitation_id", inv.ID),
		zap.String("status", string(inv.Status)),
	)
	return inv, nil
}
