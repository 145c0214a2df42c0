package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/tournament-arena/models"
)

var ErrCoinRequestNotFound = errors.New("coin request not found")

// CoinRequestLedger хранит каждую заявку в двух проекциях: общем журнале для staff
// и зеркале владельца для игрока. Запись всегда идет в обе.
type CoinRequestLedger interface {
	Create(ctx context.Context, req *models.CoinRequest) error
	GetByID(ctx context.Context, id string) (*models.CoinRequest, error)
	GetByIDForUpdate(ctx context.Context, id string) (*models.CoinRequest, error)
	// RecordDecision сохраняет Status, DecisionDate и DecidedBy из req.
	RecordDecision(ctx context.Context, req *models.CoinRequest) error
	List(ctx context.Context, filter models.CoinRequestFilter) ([]models.CoinRequest, error)
	ListByUser(ctx context.Context, userID string, filter models.CoinRequestFilter) ([]models.CoinRequest, error)
}

type postgresCoinRequestLedger struct {
	exec SQLExecutor
}

const coinRequestColumns = `id, user_id, username, kind, amount_coins, supporting_detail, status, request_date, decision_date, decided_by`

var coinRequestProjections = [...]string{"coin_requests", "user_coin_requests"}

func (r *postgresCoinRequestLedger) Create(ctx context.Context, req *models.CoinRequest) error {
	for _, table := range coinRequestProjections {
		query := fmt.Sprintf(`
			INSERT INTO %s (`+coinRequestColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`, table)
		_, err := r.exec.ExecContext(ctx, query,
			req.ID, req.UserID, req.Username, req.Kind, req.AmountCoins, req.SupportingDetail,
			req.Status, req.RequestDate, req.DecisionDate, req.DecidedBy,
		)
		if err != nil {
			if isForeignKeyViolation(err) {
				return ErrUserNotFound
			}
			return fmt.Errorf("failed to write coin request to %s: %w", table, err)
		}
	}
	return nil
}

func (r *postgresCoinRequestLedger) GetByID(ctx context.Context, id string) (*models.CoinRequest, error) {
	return r.findOne(ctx, `SELECT `+coinRequestColumns+` FROM coin_requests WHERE id = $1`, id)
}

func (r *postgresCoinRequestLedger) GetByIDForUpdate(ctx context.Context, id string) (*models.CoinRequest, error) {
	return r.findOne(ctx, forUpdate(`SELECT `+coinRequestColumns+` FROM coin_requests WHERE id = $1`, true), id)
}

func (r *postgresCoinRequestLedger) RecordDecision(ctx context.Context, req *models.CoinRequest) error {
	for _, table := range coinRequestProjections {
		query := fmt.Sprintf(`UPDATE %s SET status = $1, decision_date = $2, decided_by = $3 WHERE id = $4`, table)
		result, err := r.exec.ExecContext(ctx, query, req.Status, req.DecisionDate, req.DecidedBy, req.ID)
		if err != nil {
			return fmt.Errorf("failed to record decision in %s: %w", table, err)
		}
		if err := checkAffectedRows(result, ErrCoinRequestNotFound); err != nil {
			return err
		}
	}
	return nil
}

func (r *postgresCoinRequestLedger) List(ctx context.Context, filter models.CoinRequestFilter) ([]models.CoinRequest, error) {
	return r.list(ctx, "coin_requests", nil, filter)
}

func (r *postgresCoinRequestLedger) ListByUser(ctx context.Context, userID string, filter models.CoinRequestFilter) ([]models.CoinRequest, error) {
	return r.list(ctx, "user_coin_requests", &userID, filter)
}

func (r *postgresCoinRequestLedger) list(ctx context.Context, table string, userID *string, filter models.CoinRequestFilter) ([]models.CoinRequest, error) {
	query := `SELECT ` + coinRequestColumns + ` FROM ` + table + ` WHERE 1=1`
	args := []interface{}{}
	argID := 1

	if userID != nil {
		query += fmt.Sprintf(" AND user_id = $%d", argID)
		args = append(args, *userID)
		argID++
	}
	if filter.Status != nil {
		query += fmt.Sprintf(" AND status = $%d", argID)
		args = append(args, *filter.Status)
		argID++
	}
	if filter.Kind != nil {
		query += fmt.Sprintf(" AND kind = $%d", argID)
		args = append(args, *filter.Kind)
		argID++
	}
	query += " ORDER BY request_date DESC"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argID)
		args = append(args, filter.Limit)
		argID++
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argID)
		args = append(args, filter.Offset)
	}

	rows, err := r.exec.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list coin requests: %w", err)
	}
	defer rows.Close()

	requests := make([]models.CoinRequest, 0)
	for rows.Next() {
		req, err := scanCoinRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan coin request: %w", err)
		}
		requests = append(requests, *req)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return requests, nil
}

func (r *postgresCoinRequestLedger) findOne(ctx context.Context, query string, args ...interface{}) (*models.CoinRequest, error) {
	req, err := scanCoinRequest(r.exec.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCoinRequestNotFound
		}
		return nil, fmt.Errorf("failed to find coin request: %w", err)
	}
	return req, nil
}

func scanCoinRequest(row rowScanner) (*models.CoinRequest, error) {
	req := &models.CoinRequest{}
	err := row.Scan(
		&req.ID, &req.UserID, &req.Username, &req.Kind, &req.AmountCoins, &req.SupportingDetail,
		&req.Status, &req.RequestDate, &req.DecisionDate, &req.DecidedBy,
	)
	if err != nil {
		return nil, err
	}
	return req, nil
}
