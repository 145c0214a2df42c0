package models

import "time"

type CoinRequestKind string

const (
	CoinRequestAdd      CoinRequestKind = "add"
	CoinRequestWithdraw CoinRequestKind = "withdraw"
)

type CoinRequestStatus string

const (
	CoinRequestPending  CoinRequestStatus = "pending"
	CoinRequestApproved CoinRequestStatus = "approved"
	CoinRequestDenied   CoinRequestStatus = "denied"
)

// Terminal сообщает, что дальнейшие переходы запрещены.
func (s CoinRequestStatus) Terminal() bool {
	return s == CoinRequestApproved || s == CoinRequestDenied
}

// CoinRequest заявка на пополнение или вывод. SupportingDetail хранит id платежной
// транзакции для пополнения и реквизиты выплаты для вывода.
type CoinRequest struct {
	ID               string            `json:"id" db:"id"`
	UserID           string            `json:"user_id" db:"user_id"`
	Username         string            `json:"username" db:"username"`
	Kind             CoinRequestKind   `json:"kind" db:"kind"`
	AmountCoins      int64             `json:"amount_coins" db:"amount_coins"`
	SupportingDetail string            `json:"supporting_detail" db:"supporting_detail"`
	Status           CoinRequestStatus `json:"status" db:"status"`
	RequestDate      time.Time         `json:"request_date" db:"request_date"`
	DecisionDate     *time.Time        `json:"decision_date,omitempty" db:"decision_date"`
	DecidedBy        *string           `json:"decided_by,omitempty" db:"decided_by"`
}

type CoinRequestFilter struct {
	Status *CoinRequestStatus
	Kind   *CoinRequestKind
	Limit  int
	Offset int
}
