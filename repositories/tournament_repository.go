package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Dosada05/tournament-arena/models"
	"github.com/lib/pq"
)

var (
	ErrTournamentNotFound        = errors.New("tournament not found")
	ErrTournamentInvalidCategory = errors.New("invalid category reference")

	// ErrTournamentCapacity возникает при нарушении проверки registered_count <= max_players.
	ErrTournamentCapacity = errors.New("tournament capacity exceeded")
)

type TournamentRepository interface {
	Create(ctx context.Context, t *models.Tournament) error
	GetByID(ctx context.Context, id string) (*models.Tournament, error)
	GetByIDForUpdate(ctx context.Context, id string) (*models.Tournament, error)
	List(ctx context.Context, filter models.TournamentFilter) ([]models.Tournament, error)
	UpdateDetails(ctx context.Context, t *models.Tournament) error
	UpdateStatus(ctx context.Context, id string, status models.TournamentStatus) error
	MarkLive(ctx context.Context, id, roomID, roomPassword string) error
	MarkCompleted(ctx context.Context, id string, winners []models.Winner) error
	IncrementRegisteredCount(ctx context.Context, id string) error
	UpdateBannerKey(ctx context.Context, id string, key *string) error
	// ListStaleUpcoming возвращает турниры в статусе upcoming с датой окончания раньше now.
	ListStaleUpcoming(ctx context.Context, now time.Time) ([]models.Tournament, error)
}

type postgresTournamentRepository struct {
	exec SQLExecutor
}

const tournamentColumns = `
	id, name, description, category_id, start_date, end_date, entry_fee, max_players,
	registered_count, prize_pool_first, prize_pool_second, prize_pool_third, status,
	room_id, room_password, winners, banner_key, created_by, created_at`

func (r *postgresTournamentRepository) Create(ctx context.Context, t *models.Tournament) error {
	query := `
		INSERT INTO tournaments (
			id, name, description, category_id, start_date, end_date, entry_fee, max_players,
			registered_count, prize_pool_first, prize_pool_second, prize_pool_third, status, created_by
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING created_at`

	err := r.exec.QueryRowContext(ctx, query,
		t.ID, t.Name, t.Description, t.CategoryID, t.StartDate, t.EndDate, t.EntryFee, t.MaxPlayers,
		t.RegisteredCount, t.PrizePoolFirst, t.PrizePoolSecond, t.PrizePoolThird, t.Status, t.CreatedBy,
	).Scan(&t.CreatedAt)
	return r.handleTournamentError(err)
}

func (r *postgresTournamentRepository) GetByID(ctx context.Context, id string) (*models.Tournament, error) {
	return r.findOne(ctx, `SELECT `+tournamentColumns+` FROM tournaments WHERE id = $1`, id)
}

func (r *postgresTournamentRepository) GetByIDForUpdate(ctx context.Context, id string) (*models.Tournament, error) {
	return r.findOne(ctx, forUpdate(`SELECT `+tournamentColumns+` FROM tournaments WHERE id = $1`, true), id)
}

func (r *postgresTournamentRepository) List(ctx context.Context, filter models.TournamentFilter) ([]models.Tournament, error) {
	query := `SELECT ` + tournamentColumns + ` FROM tournaments WHERE 1=1`
	args := []interface{}{}
	argID := 1

	if filter.Status != nil {
		query += fmt.Sprintf(" AND status = $%d", argID)
		args = append(args, *filter.Status)
		argID++
	}
	if filter.CategoryID != nil {
		query += fmt.Sprintf(" AND category_id = $%d", argID)
		args = append(args, *filter.CategoryID)
		argID++
	}

	query += " ORDER BY start_date DESC, created_at DESC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argID)
		args = append(args, filter.Limit)
		argID++
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argID)
		args = append(args, filter.Offset)
	}
	return r.list(ctx, query, args...)
}

func (r *postgresTournamentRepository) UpdateDetails(ctx context.Context, t *models.Tournament) error {
	query := `
		UPDATE tournaments SET
			name = $1,
			description = $2,
			category_id = $3,
			start_date = $4,
			end_date = $5,
			entry_fee = $6,
			max_players = $7,
			prize_pool_first = $8,
			prize_pool_second = $9,
			prize_pool_third = $10
		WHERE id = $11`

	result, err := r.exec.ExecContext(ctx, query,
		t.Name, t.Description, t.CategoryID, t.StartDate, t.EndDate, t.EntryFee, t.MaxPlayers,
		t.PrizePoolFirst, t.PrizePoolSecond, t.PrizePoolThird,
		t.ID,
	)
	if err != nil {
		return r.handleTournamentError(err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) UpdateStatus(ctx context.Context, id string, status models.TournamentStatus) error {
	result, err := r.exec.ExecContext(ctx, `UPDATE tournaments SET status = $1 WHERE id = $2`, status, id)
	if err != nil {
		return r.handleTournamentError(err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) MarkLive(ctx context.Context, id, roomID, roomPassword string) error {
	query := `UPDATE tournaments SET status = $1, room_id = $2, room_password = $3 WHERE id = $4`
	result, err := r.exec.ExecContext(ctx, query, models.StatusLive, roomID, roomPassword, id)
	if err != nil {
		return r.handleTournamentError(err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) MarkCompleted(ctx context.Context, id string, winners []models.Winner) error {
	raw, err := json.Marshal(winners)
	if err != nil {
		return fmt.Errorf("failed to encode winners: %w", err)
	}
	query := `UPDATE tournaments SET status = $1, winners = $2 WHERE id = $3`
	result, err := r.exec.ExecContext(ctx, query, models.StatusCompleted, raw, id)
	if err != nil {
		return r.handleTournamentError(err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) IncrementRegisteredCount(ctx context.Context, id string) error {
	// CHECK registered_count <= max_players страхует проверку в сервисе.
	query := `UPDATE tournaments SET registered_count = registered_count + 1 WHERE id = $1`
	result, err := r.exec.ExecContext(ctx, query, id)
	if err != nil {
		return r.handleTournamentError(err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) UpdateBannerKey(ctx context.Context, id string, key *string) error {
	result, err := r.exec.ExecContext(ctx, `UPDATE tournaments SET banner_key = $1 WHERE id = $2`, key, id)
	if err != nil {
		return fmt.Errorf("failed to update tournament banner key: %w", err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) ListStaleUpcoming(ctx context.Context, now time.Time) ([]models.Tournament, error) {
	query := `SELECT ` + tournamentColumns + ` FROM tournaments WHERE status = $1 AND end_date <= $2`
	return r.list(ctx, query, models.StatusUpcoming, now)
}

func (r *postgresTournamentRepository) list(ctx context.Context, query string, args ...interface{}) ([]models.Tournament, error) {
	rows, err := r.exec.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tournaments: %w", err)
	}
	defer rows.Close()

	tournaments := make([]models.Tournament, 0)
	for rows.Next() {
		t, err := scanTournament(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan tournament: %w", err)
		}
		tournaments = append(tournaments, *t)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return tournaments, nil
}

func (r *postgresTournamentRepository) findOne(ctx context.Context, query string, args ...interface{}) (*models.Tournament, error) {
	t, err := scanTournament(r.exec.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}
	return t, nil
}

func scanTournament(row rowScanner) (*models.Tournament, error) {
	t := &models.Tournament{}
	var winners []byte
	err := row.Scan(
		&t.ID, &t.Name, &t.Description, &t.CategoryID, &t.StartDate, &t.EndDate, &t.EntryFee, &t.MaxPlayers,
		&t.RegisteredCount, &t.PrizePoolFirst, &t.PrizePoolSecond, &t.PrizePoolThird, &t.Status,
		&t.RoomID, &t.RoomPassword, &winners, &t.BannerKey, &t.CreatedBy, &t.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(winners) > 0 {
		if err := json.Unmarshal(winners, &t.Winners); err != nil {
			return nil, fmt.Errorf("failed to decode winners of tournament %s: %w", t.ID, err)
		}
	}
	return t, nil
}

func (r *postgresTournamentRepository) handleTournamentError(err error) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := err.(*pq.Error); ok {
		switch pqErr.Code {
		case "23503":
			if pqErr.Constraint == "tournaments_category_id_fkey" {
				return ErrTournamentInvalidCategory
			}
		case "23514":
			if pqErr.Constraint == "tournaments_capacity_check" {
				return ErrTournamentCapacity
			}
		}
	}
	return err
}
