package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

// SQLExecutor реализуют и *sql.DB, и *sql.Tx, поэтому любой репозиторий работает
// как внутри транзакции, так и вне ее.
type SQLExecutor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// ErrTxConflict возвращается, когда база прервала транзакцию из-за ошибки сериализации
// или deadlock. Вызывающий может повторить один раз.
var ErrTxConflict = errors.New("transaction conflict")

// Repos объединяет все репозитории, привязанные к одному исполнителю.
type Repos interface {
	Users() UserRepository
	CoinRequests() CoinRequestLedger
	Categories() CategoryRepository
	Tournaments() TournamentRepository
	Registrations() RegistrationRepository
	UserTournaments() UserTournamentRepository
	Teams() TeamRepository
	Invitations() InvitationRepository
	Points() PointsRepository
}

// Store это хранилище с поддержкой транзакций. Repos самого Store работают в autocommit;
// WithTx передает в fn репозитории одной транзакции, которая коммитится, если fn вернула
// nil, и откатывается в остальных случаях.
type Store interface {
	Repos
	WithTx(ctx context.Context, fn func(tx Repos) error) error
}

type postgresRepos struct {
	exec SQLExecutor
}

func (r postgresRepos) Users() UserRepository { return &postgresUserRepository{exec: r.exec} }
func (r postgresRepos) CoinRequests() CoinRequestLedger {
	return &postgresCoinRequestLedger{exec: r.exec}
}
func (r postgresRepos) Categories() CategoryRepository {
	return &postgresCategoryRepository{exec: r.exec}
}
func (r postgresRepos) Tournaments() TournamentRepository {
	return &postgresTournamentRepository{exec: r.exec}
}
func (r postgresRepos) Registrations() RegistrationRepository {
	return &postgresRegistrationRepository{exec: r.exec}
}
func (r postgresRepos) UserTournaments() UserTournamentRepository {
	return &postgresUserTournamentRepository{exec: r.exec}
}
func (r postgresRepos) Teams() TeamRepository { return &postgresTeamRepository{exec: r.exec} }
func (r postgresRepos) Invitations() InvitationRepository {
	return &postgresInvitationRepository{exec: r.exec}
}
func (r postgresRepos) Points() PointsRepository { return &postgresPointsRepository{exec: r.exec} }

type postgresStore struct {
	postgresRepos
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) Store {
	return &postgresStore{postgresRepos: postgresRepos{exec: db}, db: db}
}

func (s *postgresStore) WithTx(ctx context.Context, fn func(tx Repos) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", translateTxError(err))
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		} else if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				err = fmt.Errorf("%w (rollback also failed: %v)", err, rbErr)
			}
		} else if cErr := tx.Commit(); cErr != nil {
			err = fmt.Errorf("failed to commit transaction: %w", translateTxError(cErr))
		}
	}()

	if fnErr := fn(postgresRepos{exec: tx}); fnErr != nil {
		return translateTxError(fnErr)
	}
	return nil
}

// translateTxError помечает ошибки сериализации и deadlock как ErrTxConflict,
// сохраняя исходную ошибку в цепочке.
func translateTxError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "40001", "40P01": // serialization_failure, deadlock_detected
			return fmt.Errorf("%w: %w", ErrTxConflict, err)
		}
	}
	return err
}

func checkAffectedRows(result sql.Result, notFoundError error) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}
	if rowsAffected == 0 {
		return notFoundError
	}
	return nil
}

func isUniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505" && (constraint == "" || pqErr.Constraint == constraint)
	}
	return false
}

func isForeignKeyViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23503"
	}
	return false
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func forUpdate(query string, lock bool) string {
	if lock {
		return query + " FOR UPDATE"
	}
	return query
}
