package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/Dosada05/tournament-arena/models"
	"golang.org/x/text/cases"
)

var (
	ErrUserNotFound         = errors.New("user not found")
	ErrUserEmailConflict    = errors.New("user email conflict")
	ErrUserUsernameConflict = errors.New("user username conflict")
)

type UserRepository interface {
	Create(ctx context.Context, user *models.UserAccount) error
	GetByID(ctx context.Context, id string) (*models.UserAccount, error)
	// GetByIDForUpdate блокирует строку до конца окружающей транзакции.
	GetByIDForUpdate(ctx context.Context, id string) (*models.UserAccount, error)
	GetByEmail(ctx context.Context, email string) (*models.UserAccount, error)
	GetByUsername(ctx context.Context, username string) (*models.UserAccount, error)
	UpdateUsername(ctx context.Context, id, username string) error
	UpdateStatus(ctx context.Context, id string, status models.AccountStatus) error
	UpdateCoinBalance(ctx context.Context, id string, balance int64) error
	List(ctx context.Context, filter models.UserFilter) ([]models.UserAccount, error)
}

// UsernameKey ключ уникальности username без учета регистра.
func UsernameKey(username string) string {
	return cases.Fold().String(strings.TrimSpace(username))
}

type postgresUserRepository struct {
	exec SQLExecutor
}

const userColumns = `id, username, email, role, coin_balance, status, password_hash, created_at`

func (r *postgresUserRepository) Create(ctx context.Context, user *models.UserAccount) error {
	query := `
		INSERT INTO users (id, username, username_key, email, role, coin_balance, status, password_hash)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at`

	err := r.exec.QueryRowContext(ctx, query,
		user.ID,
		user.Username,
		UsernameKey(user.Username),
		strings.ToLower(user.Email),
		user.Role,
		user.CoinBalance,
		user.Status,
		user.PasswordHash,
	).Scan(&user.CreatedAt)
	if err != nil {
		return r.handleUserError(err)
	}
	return nil
}

func (r *postgresUserRepository) GetByID(ctx context.Context, id string) (*models.UserAccount, error) {
	return r.scanUser(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (r *postgresUserRepository) GetByIDForUpdate(ctx context.Context, id string) (*models.UserAccount, error) {
	return r.scanUser(ctx, forUpdate(`SELECT `+userColumns+` FROM users WHERE id = $1`, true), id)
}

func (r *postgresUserRepository) GetByEmail(ctx context.Context, email string) (*models.UserAccount, error) {
	return r.scanUser(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, strings.ToLower(email))
}

func (r *postgresUserRepository) GetByUsername(ctx context.Context, username string) (*models.UserAccount, error) {
	return r.scanUser(ctx, `SELECT `+userColumns+` FROM users WHERE username_key = $1`, UsernameKey(username))
}

func (r *postgresUserRepository) UpdateUsername(ctx context.Context, id, username string) error {
	query := `UPDATE users SET username = $1, username_key = $2 WHERE id = $3`
	result, err := r.exec.ExecContext(ctx, query, username, UsernameKey(username), id)
	if err != nil {
		return r.handleUserError(err)
	}
	return checkAffectedRows(result, ErrUserNotFound)
}

func (r *postgresUserRepository) UpdateStatus(ctx context.Context, id string, status models.AccountStatus) error {
	result, err := r.exec.ExecContext(ctx, `UPDATE users SET status = $1 WHERE id = $2`, status, id)
	if err != nil {
		return fmt.Errorf("failed to update user status: %w", err)
	}
	return checkAffectedRows(result, ErrUserNotFound)
}

func (r *postgresUserRepository) UpdateCoinBalance(ctx context.Context, id string, balance int64) error {
	result, err := r.exec.ExecContext(ctx, `UPDATE users SET coin_balance = $1 WHERE id = $2`, balance, id)
	if err != nil {
		return fmt.Errorf("failed to update coin balance: %w", err)
	}
	return checkAffectedRows(result, ErrUserNotFound)
}

func (r *postgresUserRepository) List(ctx context.Context, filter models.UserFilter) ([]models.UserAccount, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE 1=1`
	args := []interface{}{}
	argID := 1

	if filter.Search != "" {
		query += fmt.Sprintf(" AND (username_key LIKE $%d OR email LIKE $%d)", argID, argID)
		args = append(args, "%"+UsernameKey(filter.Search)+"%")
		argID++
	}
	if filter.Role != nil {
		query += fmt.Sprintf(" AND role = $%d", argID)
		args = append(args, *filter.Role)
		argID++
	}
	if filter.Status != nil {
		query += fmt.Sprintf(" AND status = $%d", argID)
		args = append(args, *filter.Status)
		argID++
	}
	query += " ORDER BY created_at DESC"
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
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	users := make([]models.UserAccount, 0)
	for rows.Next() {
		user, err := scanUserRow(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *user)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

func (r *postgresUserRepository) scanUser(ctx context.Context, query string, args ...interface{}) (*models.UserAccount, error) {
	user, err := scanUserRow(r.exec.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

func scanUserRow(row rowScanner) (*models.UserAccount, error) {
	user := &models.UserAccount{}
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.Role,
		&user.CoinBalance,
		&user.Status,
		&user.PasswordHash,
		&user.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (r *postgresUserRepository) handleUserError(err error) error {
	switch {
	case isUniqueViolation(err, "users_email_key"):
		return ErrUserEmailConflict
	case isUniqueViolation(err, "users_username_key_key"):
		return ErrUserUsernameConflict
	}
	return err
}
