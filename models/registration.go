package models

import "time"

// Registration это участие пользователя в турнире, ключ (tournament, user).
type Registration struct {
	UserID           string    `json:"user_id" db:"user_id"`
	TournamentID     string    `json:"tournament_id" db:"tournament_id"`
	TeamName         string    `json:"team_name" db:"team_name"`
	PlayerIDs        []string  `json:"player_ids" db:"player_ids"`
	SlotNumber       int       `json:"slot_number" db:"slot_number"`
	RegistrationDate time.Time `json:"registration_date" db:"registration_date"`
}

// JoinedTournament снимок, сохраняемый у пользователя при вступлении, чтобы "мои турниры"
// читались без запросов к другим таблицам.
type JoinedTournament struct {
	UserID       string    `json:"-" db:"user_id"`
	TournamentID string    `json:"tournament_id" db:"tournament_id"`
	Name         string    `json:"name" db:"name"`
	CategoryID   string    `json:"category_id" db:"category_id"`
	StartDate    time.Time `json:"start_date" db:"start_date"`
	EntryFee     int64     `json:"entry_fee" db:"entry_fee"`
	SlotNumber   int       `json:"slot_number" db:"slot_number"`
	JoinedAt     time.Time `json:"joined_at" db:"joined_at"`
}

// WonTournament запись о награде, создается один раз на победителя при финализации.
type WonTournament struct {
	UserID         string    `json:"-" db:"user_id"`
	TournamentID   string    `json:"tournament_id" db:"tournament_id"`
	Name           string    `json:"name" db:"name"`
	PrizeWon       int64     `json:"prize_won" db:"prize_won"`
	Place          Place     `json:"place" db:"place"`
	CompletionDate time.Time `json:"completion_date" db:"completion_date"`
}
