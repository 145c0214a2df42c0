package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/Dosada05/tournament-arena/models"
)

var ErrWonRecordConflict = errors.New("won record already exists")

// UserTournamentRepository хранит проекции пользователя: активную запись об участии и
// итоговую запись о победе.
type UserTournamentRepository interface {
	CreateJoined(ctx context.Context, view *models.JoinedTournament) error
	// DeleteJoined ничего не делает, если записи нет.
	DeleteJoined(ctx context.Context, userID, tournamentID string) error
	ListJoined(ctx context.Context, userID string) ([]models.JoinedTournament, error)
	CreateWon(ctx context.Context, rec *models.WonTournament) error
	ListWon(ctx context.Context, userID string) ([]models.WonTournament, error)
}

type postgresUserTournamentRepository struct {
	exec SQLExecutor
}

func (r *postgresUserTournamentRepository) CreateJoined(ctx context.Context, v *models.JoinedTournament) error {
	query := `
		INSERT INTO joined_tournaments (user_id, tournament_id, name, category_id, start_date, entry_fee, slot_number, joined_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.exec.ExecContext(ctx, query,
		v.UserID, v.TournamentID, v.Name, v.CategoryID, v.StartDate, v.EntryFee, v.SlotNumber, v.JoinedAt,
	)
	if err != nil {
		if isUniqueViolation(err, "") {
			return ErrRegistrationConflict
		}
		return fmt.Errorf("failed to create joined tournament view: %w", err)
	}
	return nil
}

func (r *postgresUserTournamentRepository) DeleteJoined(ctx context.Context, userID, tournamentID string) error {
	_, err := r.exec.ExecContext(ctx, `DELETE FROM joined_tournaments WHERE user_id = $1 AND tournament_id = $2`, userID, tournamentID)
	if err != nil {
		return fmt.Errorf("failed to delete joined tournament view: %w", err)
	}
	return nil
}

func (r *postgresUserTournamentRepository) ListJoined(ctx context.Context, userID string) ([]models.JoinedTournament, error) {
	query := `
		SELECT user_id, tournament_id, name, category_id, start_date, entry_fee, slot_number, joined_at
		FROM joined_tournaments WHERE user_id = $1 ORDER BY start_date ASC`
	rows, err := r.exec.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list joined tournaments: %w", err)
	}
	defer rows.Close()

	views := make([]models.JoinedTournament, 0)
	for rows.Next() {
		var v models.JoinedTournament
		if err := rows.Scan(&v.UserID, &v.TournamentID, &v.Name, &v.CategoryID, &v.StartDate, &v.EntryFee, &v.SlotNumber, &v.JoinedAt); err != nil {
			return nil, err
		}
		views = append(views, v)
	}
	return views, rows.Err()
}

func (r *postgresUserTournamentRepository) CreateWon(ctx context.Context, rec *models.WonTournament) error {
	query := `
		INSERT INTO won_tournaments (user_id, tournament_id, name, prize_won, place, completion_date)
		VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := r.exec.ExecContext(ctx, query, rec.UserID, rec.TournamentID, rec.Name, rec.PrizeWon, rec.Place, rec.CompletionDate)
	if err != nil {
		if isUniqueViolation(err, "") {
			return ErrWonRecordConflict
		}
		return fmt.Errorf("failed to create won tournament record: %w", err)
	}
	return nil
}

func (r *postgresUserTournamentRepository) ListWon(ctx context.Context, userID string) ([]models.WonTournament, error) {
	query := `
		SELECT user_id, tournament_id, name, prize_won, place, completion_date
		FROM won_tournaments WHERE user_id = $1 ORDER BY completion_date DESC`
	rows, err := r.exec.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list won tournaments: %w", err)
	}
	defer rows.Close()

	records := make([]models.WonTournament, 0)
	for rows.Next() {
		var rec models.WonTournament
		if err := rows.Scan(&rec.UserID, &rec.TournamentID, &rec.Name, &rec.PrizeWon, &rec.Place, &rec.CompletionDate); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
