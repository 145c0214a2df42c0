package models

import "time"

type UserRole string

const (
	RolePlayer UserRole = "player"
	RoleStaff  UserRole = "staff"
	RoleAdmin  UserRole = "admin"
)

// IsStaff сообщает, может ли роль выполнять операции staff (решения, финализация).
func (r UserRole) IsStaff() bool {
	return r == RoleStaff || r == RoleAdmin
}

func (r UserRole) Valid() bool {
	switch r {
	case RolePlayer, RoleStaff, RoleAdmin:
		return true
	}
	return false
}

type AccountStatus string

const (
	AccountActive  AccountStatus = "active"
	AccountBlocked AccountStatus = "blocked"
)

// UserAccount представляет учетную запись игрока/сотрудника.
type UserAccount struct {
	ID           string        `json:"id" db:"id"`
	Username     string        `json:"username" db:"username"`
	Email        string        `json:"email" db:"email"`
	Role         UserRole      `json:"role" db:"role"`
	CoinBalance  int64         `json:"coin_balance" db:"coin_balance"`
	Status       AccountStatus `json:"status" db:"status"`
	PasswordHash string        `json:"-" db:"password_hash"`
	CreatedAt    time.Time     `json:"created_at" db:"created_at"`
}

// Actor это определенная личность вызывающего. Сервисы никогда не берут его из окружения.
type Actor struct {
	UserID string
	Role   UserRole
}

type UserFilter struct {
	Search string
	Role   *UserRole
	Status *AccountStatus
	Limit  int
	Offset int
}
