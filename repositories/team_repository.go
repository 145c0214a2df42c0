package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/tournament-arena/models"
)

var (
	ErrTeamNotFound       = errors.New("team not found")
	ErrTeamNameConflict   = errors.New("team name already exists")
	ErrTeamMemberConflict = errors.New("user is already a team member")
	ErrTeamMemberNotFound = errors.New("team member not found")
)

type TeamRepository interface {
	Create(ctx context.Context, team *models.Team) error
	GetByID(ctx context.Context, id string) (*models.Team, error)
	GetByIDForUpdate(ctx context.Context, id string) (*models.Team, error)
	ListByMember(ctx context.Context, userID string) ([]models.Team, error)
	AddMember(ctx context.Context, teamID, userID, username string) error
	RemoveMember(ctx context.Context, teamID, userID string) error
	UpdateLogoKey(ctx context.Context, teamID string, key *string) error
}

type postgresTeamRepository struct {
	exec SQLExecutor
}

// Create вставляет команду вместе с начальным составом.
func (r *postgresTeamRepository) Create(ctx context.Context, team *models.Team) error {
	query := `INSERT INTO teams (id, name, owner_id) VALUES ($1, $2, $3) RETURNING created_at`
	err := r.exec.QueryRowContext(ctx, query, team.ID, team.Name, team.OwnerID).Scan(&team.CreatedAt)
	if err != nil {
		if isUniqueViolation(err, "teams_name_key") {
			return ErrTeamNameConflict
		}
		return fmt.Errorf("failed to create team: %w", err)
	}
	for _, memberID := range team.Members {
		if err := r.AddMember(ctx, team.ID, memberID, team.MemberNames[memberID]); err != nil {
			return err
		}
	}
	return nil
}

func (r *postgresTeamRepository) GetByID(ctx context.Context, id string) (*models.Team, error) {
	return r.get(ctx, id, false)
}

func (r *postgresTeamRepository) GetByIDForUpdate(ctx context.Context, id string) (*models.Team, error) {
	return r.get(ctx, id, true)
}

func (r *postgresTeamRepository) get(ctx context.Context, id string, lock bool) (*models.Team, error) {
	query := forUpdate(`SELECT id, name, owner_id, logo_key, created_at FROM teams WHERE id = $1`, lock)
	team := &models.Team{}
	err := r.exec.QueryRowContext(ctx, query, id).Scan(&team.ID, &team.Name, &team.OwnerID, &team.LogoKey, &team.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTeamNotFound
		}
		return nil, fmt.Errorf("failed to get team: %w", err)
	}
	if err := r.loadMembers(ctx, team); err != nil {
		return nil, err
	}
	return team, nil
}

func (r *postgresTeamRepository) loadMembers(ctx context.Context, team *models.Team) error {
	rows, err := r.exec.QueryContext(ctx,
		`SELECT user_id, username FROM team_members WHERE team_id = $1 ORDER BY joined_at ASC`, team.ID)
	if err != nil {
		return fmt.Errorf("failed to load team members: %w", err)
	}
	defer rows.Close()

	team.Members = make([]string, 0)
	team.MemberNames = make(map[string]string)
	for rows.Next() {
		var userID, username string
		if err := rows.Scan(&userID, &username); err != nil {
			return err
		}
		team.Members = append(team.Members, userID)
		team.MemberNames[userID] = username
	}
	return rows.Err()
}

func (r *postgresTeamRepository) ListByMember(ctx context.Context, userID string) ([]models.Team, error) {
	query := `
		SELECT t.id, t.name, t.owner_id, t.logo_key, t.created_at
		FROM teams t
		JOIN team_members m ON m.team_id = t.id
		WHERE m.user_id = $1
		ORDER BY t.name ASC`
	rows, err := r.exec.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list teams: %w", err)
	}

	teams := make([]models.Team, 0)
	for rows.Next() {
		var team models.Team
		if err := rows.Scan(&team.ID, &team.Name, &team.OwnerID, &team.LogoKey, &team.CreatedAt); err != nil {
			rows.Close()
			return nil, err
		}
		teams = append(teams, team)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// участников грузим после закрытия курсора: *sql.Tx не выполняет два запроса одновременно
	for i := range teams {
		if err := r.loadMembers(ctx, &teams[i]); err != nil {
			return nil, err
		}
	}
	return teams, nil
}

func (r *postgresTeamRepository) AddMember(ctx context.Context, teamID, userID, username string) error {
	query := `INSERT INTO team_members (team_id, user_id, username) VALUES ($1, $2, $3)`
	if _, err := r.exec.ExecContext(ctx, query, teamID, userID, username); err != nil {
		if isUniqueViolation(err, "") {
			return ErrTeamMemberConflict
		}
		if isForeignKeyViolation(err) {
			return ErrTeamNotFound
		}
		return fmt.Errorf("failed to add team member: %w", err)
	}
	return nil
}

func (r *postgresTeamRepository) RemoveMember(ctx context.Context, teamID, userID string) error {
	result, err := r.exec.ExecContext(ctx, `DELETE FROM team_members WHERE team_id = $1 AND user_id = $2`, teamID, userID)
	if err != nil {
		return fmt.Errorf("failed to remove team member: %w", err)
	}
	return checkAffectedRows(result, ErrTeamMemberNotFound)
}

func (r *postgresTeamRepository) UpdateLogoKey(ctx context.Context, teamID string, key *string) error {
	result, err := r.exec.ExecContext(ctx, `UPDATE teams SET logo_key = $1 WHERE id = $2`, key, teamID)
	if err != nil {
		return fmt.Errorf("failed to update team logo key: %w", err)
	}
	return checkAffectedRows(result, ErrTeamNotFound)
}
