package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/tournament-arena/models"
	"github.com/lib/pq"
)

var (
	ErrRegistrationNotFound = errors.New("registration not found")
	ErrRegistrationConflict = errors.New("user already registered for this tournament")
)

type RegistrationRepository interface {
	Create(ctx context.Context, reg *models.Registration) error
	Get(ctx context.Context, tournamentID, userID string) (*models.Registration, error)
	ListByTournament(ctx context.Context, tournamentID string) ([]models.Registration, error)
}

type postgresRegistrationRepository struct {
	exec SQLExecutor
}

const registrationColumns = `user_id, tournament_id, team_name, player_ids, slot_number, registration_date`

func (r *postgresRegistrationRepository) Create(ctx context.Context, reg *models.Registration) error {
	query := `
		INSERT INTO registrations (` + registrationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := r.exec.ExecContext(ctx, query,
		reg.UserID, reg.TournamentID, reg.TeamName, pq.Array(reg.PlayerIDs), reg.SlotNumber, reg.RegistrationDate,
	)
	if err != nil {
		if isUniqueViolation(err, "") {
			return ErrRegistrationConflict
		}
		return fmt.Errorf("failed to create registration: %w", err)
	}
	return nil
}

func (r *postgresRegistrationRepository) Get(ctx context.Context, tournamentID, userID string) (*models.Registration, error) {
	query := `SELECT ` + registrationColumns + ` FROM registrations WHERE tournament_id = $1 AND user_id = $2`
	reg, err := scanRegistration(r.exec.QueryRowContext(ctx, query, tournamentID, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRegistrationNotFound
		}
		return nil, fmt.Errorf("failed to get registration: %w", err)
	}
	return reg, nil
}

func (r *postgresRegistrationRepository) ListByTournament(ctx context.Context, tournamentID string) ([]models.Registration, error) {
	query := `SELECT ` + registrationColumns + ` FROM registrations WHERE tournament_id = $1 ORDER BY slot_number ASC`
	rows, err := r.exec.QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list registrations: %w", err)
	}
	defer rows.Close()

	regs := make([]models.Registration, 0)
	for rows.Next() {
		reg, err := scanRegistration(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan registration: %w", err)
		}
		regs = append(regs, *reg)
	}
	return regs, rows.Err()
}

func scanRegistration(row rowScanner) (*models.Registration, error) {
	reg := &models.Registration{}
	err := row.Scan(
		&reg.UserID, &reg.TournamentID, &reg.TeamName, pq.Array(&reg.PlayerIDs), &reg.SlotNumber, &reg.RegistrationDate,
	)
	if err != nil {
		return nil, err
	}
	return reg, nil
}
