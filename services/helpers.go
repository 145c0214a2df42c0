package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/Dosada05/tournament-arena/models"
	"github.com/Dosada05/tournament-arena/repositories"
	"github.com/Dosada05/tournament-arena/storage"
)

// Notifier получает события турнира после коммита породившей их транзакции.
type Notifier interface {
	Publish(tournamentID, eventType string, payload interface{})
}

type nopNotifier struct{}

func (nopNotifier) Publish(string, string, interface{}) {}

// Clock внедряется, чтобы сервисы можно было тестировать на фиксированных датах.
type Clock func() time.Time

func (c Clock) now() time.Time {
	if c == nil {
		return time.Now().UTC()
	}
	return c().UTC()
}

// translateTxError помечает прерванные транзакции ErrTransactionConflict, остальные ошибки
// возвращаются как есть.
func translateTxError(err error) error {
	if errors.Is(err, repositories.ErrTxConflict) {
		return fmt.Errorf("%w: %w", ErrTransactionConflict, err)
	}
	return err
}

func requireStaff(actor models.Actor) error {
	if actor.UserID == "" {
		return ErrAuthenticationFailed
	}
	if !actor.Role.IsStaff() {
		return ErrForbiddenOperation
	}
	return nil
}

func requireAdmin(actor models.Actor) error {
	if actor.UserID == "" {
		return ErrAuthenticationFailed
	}
	if actor.Role != models.RoleAdmin {
		return ErrForbiddenOperation
	}
	return nil
}

func requireUser(actor models.Actor) error {
	if actor.UserID == "" {
		return ErrAuthenticationFailed
	}
	return nil
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func publicURL(uploader storage.FileUploader, key *string) *string {
	if uploader == nil || key == nil || *key == "" {
		return nil
	}
	if url := uploader.GetPublicURL(*key); url != "" {
		return &url
	}
	return nil
}

func normalizeLimit(limit, offset int) (int, int) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
