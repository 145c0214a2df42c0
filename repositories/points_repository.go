package repositories

import (
	"context"
	"fmt"

	"github.com/Dosada05/tournament-arena/models"
)

type PointsRepository interface {
	// Upsert вставляет или заменяет строку (TournamentID, Key). Новая строка получает следующий
	// порядковый номер, замененная сохраняет исходный. Сохраненная запись записывается
	// обратно в e.
	Upsert(ctx context.Context, e *models.PointsEntry) error
	ListByTournament(ctx context.Context, tournamentID string) ([]models.PointsEntry, error)
}

type postgresPointsRepository struct {
	exec SQLExecutor
}

func (r *postgresPointsRepository) Upsert(ctx context.Context, e *models.PointsEntry) error {
	query := `
		INSERT INTO points_entries (tournament_id, entry_key, user_id, player_name, wins, kills, total_points, seq, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7,
			(SELECT COALESCE(MAX(seq), 0) + 1 FROM points_entries WHERE tournament_id = $1), $8)
		ON CONFLICT (tournament_id, entry_key) DO UPDATE SET
			user_id = EXCLUDED.user_id,
			player_name = EXCLUDED.player_name,
			wins = EXCLUDED.wins,
			kills = EXCLUDED.kills,
			total_points = EXCLUDED.total_points,
			updated_at = EXCLUDED.updated_at
		RETURNING seq`

	err := r.exec.QueryRowContext(ctx, query,
		e.TournamentID, e.Key, e.UserID, e.PlayerName, e.Wins, e.Kills, e.TotalPoints, e.UpdatedAt,
	).Scan(&e.Seq)
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrTournamentNotFound
		}
		return fmt.Errorf("failed to upsert points entry: %w", err)
	}
	return nil
}

func (r *postgresPointsRepository) ListByTournament(ctx context.Context, tournamentID string) ([]models.PointsEntry, error) {
	query := `
		SELECT tournament_id, entry_key, user_id, player_name, wins, kills, total_points, seq, updated_at
		FROM points_entries WHERE tournament_id = $1 ORDER BY seq ASC`
	rows, err := r.exec.QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list points entries: %w", err)
	}
	defer rows.Close()

	entries := make([]models.PointsEntry, 0)
	for rows.Next() {
		var e models.PointsEntry
		if err := rows.Scan(&e.TournamentID, &e.Key, &e.UserID, &e.PlayerName, &e.Wins, &e.Kills, &e.TotalPoints, &e.Seq, &e.UpdatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
