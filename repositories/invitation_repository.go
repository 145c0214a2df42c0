package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Dosada05/tournament-arena/models"
)

var (
	ErrInvitationNotFound = errors.New("invitation not found")
	ErrInvitationConflict = errors.New("pending invitation already exists")
)

type InvitationRepository interface {
	Create(ctx context.Context, inv *models.TeamInvitation) error
	GetByID(ctx context.Context, id string) (*models.TeamInvitation, error)
	GetByIDForUpdate(ctx context.Context, id string) (*models.TeamInvitation, error)
	ListForUser(ctx context.Context, userID string, status *models.InvitationStatus) ([]models.TeamInvitation, error)
	FindPending(ctx context.Context, teamID, toUserID string) (*models.TeamInvitation, error)
	UpdateStatus(ctx context.Context, id string, status models.InvitationStatus, respondedAt time.Time) error
}

type postgresInvitationRepository struct {
	exec SQLExecutor
}

const invitationColumns = `id, team_id, team_name, from_user_id, to_user_id, status, created_at, responded_at`

func (r *postgresInvitationRepository) Create(ctx context.Context, inv *models.TeamInvitation) error {
	query := `
		INSERT INTO team_invitations (id, team_id, team_name, from_user_id, to_user_id, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.exec.ExecContext(ctx, query,
		inv.ID, inv.TeamID, inv.TeamName, inv.FromUserID, inv.ToUserID, inv.Status, inv.CreatedAt,
	)
	if err != nil {
		// частичный уникальный индекс по (team_id, to_user_id) WHERE status = 'pending'
		if isUniqueViolation(err, "") {
			return ErrInvitationConflict
		}
		if isForeignKeyViolation(err) {
			return ErrTeamNotFound
		}
		return fmt.Errorf("failed to create invitation: %w", err)
	}
	return nil
}

func (r *postgresInvitationRepository) GetByID(ctx context.Context, id string) (*models.TeamInvitation, error) {
	return r.findOne(ctx, `SELECT `+invitationColumns+` FROM team_invitations WHERE id = $1`, id)
}

func (r *postgresInvitationRepository) GetByIDForUpdate(ctx context.Context, id string) (*models.TeamInvitation, error) {
	return r.findOne(ctx, forUpdate(`SELECT `+invitationColumns+` FROM team_invitations WHERE id = $1`, true), id)
}

func (r *postgresInvitationRepository) FindPending(ctx context.Context, teamID, toUserID string) (*models.TeamInvitation, error) {
	query := `SELECT ` + invitationColumns + ` FROM team_invitations WHERE team_id = $1 AND to_user_id = $2 AND status = $3`
	return r.findOne(ctx, query, teamID, toUserID, models.InvitationPending)
}

func (r *postgresInvitationRepository) ListForUser(ctx context.Context, userID string, status *models.InvitationStatus) ([]models.TeamInvitation, error) {
	query := `SELECT ` + invitationColumns + ` FROM team_invitations WHERE to_user_id = $1`
	args := []interface{}{userID}
	if status != nil {
		query += ` AND status = $2`
		args = append(args, *status)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.exec.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list invitations: %w", err)
	}
	defer rows.Close()

	invitations := make([]models.TeamInvitation, 0)
	for rows.Next() {
		inv, err := scanInvitation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan invitation: %w", err)
		}
		invitations = append(invitations, *inv)
	}
	return invitations, rows.Err()
}

func (r *postgresInvitationRepository) UpdateStatus(ctx context.Context, id string, status models.InvitationStatus, respondedAt time.Time) error {
	result, err := r.exec.ExecContext(ctx,
		`UPDATE team_invitations SET status = $1, responded_at = $2 WHERE id = $3`, status, respondedAt, id)
	if err != nil {
		return fmt.Errorf("failed to update invitation status: %w", err)
	}
	return checkAffectedRows(result, ErrInvitationNotFound)
}

func (r *postgresInvitationRepository) findOne(ctx context.Context, query string, args ...interface{}) (*models.TeamInvitation, error) {
	inv, err := scanInvitation(r.exec.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInvitationNotFound
		}
		return nil, fmt.Errorf("failed to get invitation: %w", err)
	}
	return inv, nil
}

func scanInvitation(row rowScanner) (*models.TeamInvitation, error) {
	inv := &models.TeamInvitation{}
	err := row.Scan(&inv.ID, &inv.TeamID, &inv.TeamName, &inv.FromUserID, &inv.ToUserID, &inv.Status, &inv.CreatedAt, &inv.RespondedAt)
	if err != nil {
		return nil, err
	}
	return inv, nil
}
