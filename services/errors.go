package services

import (
	"errors"
	"fmt"
)

// Общие ошибки, используемые в разных сервисах и маппинге HTTP.
var (
	ErrNotFound = errors.New("requested resource not found")

	// Ошибки валидации и бизнес-правил
	ErrValidationFailed                  = errors.New("validation failed")
	ErrPasswordTooShort                  = errors.New("password is too short")
	ErrInvalidRoleKey                    = errors.New("invalid role key")
	ErrTournamentInvalidStatusTransition = errors.New("invalid tournament status transition")
	ErrOwnerCannotLeave                  = errors.New("team owner cannot leave the team")
	ErrInvitationResolved                = errors.New("invitation has already been answered")
	ErrUploadsDisabled                   = errors.New("file uploads are not configured")

	// Ошибки конфликтов
	ErrUserEmailConflict    = errors.New("email address is already in use")
	ErrUserUsernameConflict = errors.New("username is already in use")
	ErrCategoryConflict     = errors.New("category already exists")
	ErrTeamNameConflict     = errors.New("team name is already in use")
	ErrAlreadyTeamMember    = errors.New("user is already a member of this team")
	ErrInvitationConflict   = errors.New("a pending invitation for this user already exists")

	// Ошибки аутентификации и авторизации
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrInvalidCredentials   = errors.New("invalid email or password")
	ErrAccountBlocked       = errors.New("account is blocked")
	ErrForbiddenOperation   = errors.New("operation not allowed for the current user")
	ErrNotTeamMember        = errors.New("user is not a member of this team")
	ErrOwnerActionForbidden = errors.New("only the team owner can perform this action")

	// Ошибки, специфичные для сущностей
	ErrUserNotFound        = errors.New("user not found")
	ErrCoinRequestNotFound = errors.New("coin request not found")
	ErrCategoryNotFound    = errors.New("category not found")
	ErrTournamentNotFound  = errors.New("tournament not found")
	ErrTeamNotFound        = errors.New("team not found")
	ErrInvitationNotFound  = errors.New("invitation not found")

	// Движок расчетов
	ErrAccountNotFound     = errors.New("account not found")
	ErrAlreadyDecided      = errors.New("coin request has already been decided")
	ErrInsufficientFunds   = errors.New("insufficient funds")
	ErrJoinRejected        = errors.New("join rejected")
	ErrDuplicateWinner     = errors.New("winner ids must be distinct")
	ErrAlreadyFinalized    = errors.New("tournament has already been finalized")
	ErrWinnerNotRegistered = errors.New("winner is not registered for the tournament")
	ErrTransactionConflict = errors.New("transaction conflict, retry the operation")
)

type JoinRejectReason string

const (
	JoinClosed            JoinRejectReason = "closed"
	JoinFull              JoinRejectReason = "full"
	JoinAlreadyJoined     JoinRejectReason = "already_joined"
	JoinInsufficientFunds JoinRejectReason = "insufficient_funds"
)

// JoinRejectedError хранит невыполненное условие вступления. errors.Is(err, ErrJoinRejected) истинно.
type JoinRejectedError struct {
	Reason JoinRejectReason
}

func (e *JoinRejectedError) Error() string {
	return fmt.Sprintf("%s: %s", ErrJoinRejected, e.Reason)
}

func (e *JoinRejectedError) Is(target error) bool {
	return target == ErrJoinRejected
}

func rejectJoin(reason JoinRejectReason) error {
	return &JoinRejectedError{Reason: reason}
}

// JoinRejectReasonOf достает причину отказа во вступлении, если err такой отказ.
func JoinRejectReasonOf(err error) (JoinRejectReason, bool) {
	var rejected *JoinRejectedError
	if errors.As(err, &rejected) {
		return rejected.Reason, true
	}
	return "", false
}

func validationError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidationFailed, fmt.Sprintf(format, args...))
}
