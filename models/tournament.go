package models

import "time"

// TournamentStatus представляет статусы турнира.
type TournamentStatus string

const (
	StatusUpcoming  TournamentStatus = "upcoming"
	StatusLive      TournamentStatus = "live"
	StatusCompleted TournamentStatus = "completed"
	StatusCancelled TournamentStatus = "cancelled"
)

func (s TournamentStatus) Valid() bool {
	switch s {
	case StatusUpcoming, StatusLive, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

type Place string

const (
	PlaceFirst  Place = "1st"
	PlaceSecond Place = "2nd"
	PlaceThird  Place = "3rd"
)

type Winner struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Place    Place  `json:"place"`
}

// Tournament представляет турнир.
type Tournament struct {
	ID              string           `json:"id" db:"id"`
	Name            string           `json:"name" db:"name"`
	Description     *string          `json:"description,omitempty" db:"description"`
	CategoryID      string           `json:"category_id" db:"category_id"`
	StartDate       time.Time        `json:"start_date" db:"start_date"`
	EndDate         time.Time        `json:"end_date" db:"end_date"`
	EntryFee        int64            `json:"entry_fee" db:"entry_fee"`
	MaxPlayers      int              `json:"max_players" db:"max_players"`
	RegisteredCount int              `json:"registered_count" db:"registered_count"`
	PrizePoolFirst  int64            `json:"prize_pool_first" db:"prize_pool_first"`
	PrizePoolSecond int64            `json:"prize_pool_second" db:"prize_pool_second"`
	PrizePoolThird  int64            `json:"prize_pool_third" db:"prize_pool_third"`
	Status          TournamentStatus `json:"status" db:"status"`
	RoomID          *string          `json:"room_id,omitempty" db:"room_id"`
	RoomPassword    *string          `json:"room_password,omitempty" db:"room_password"`
	Winners         []Winner         `json:"winners,omitempty" db:"winners"`
	BannerKey       *string          `json:"-" db:"banner_key"`
	BannerURL       *string          `json:"banner_url,omitempty" db:"-"`
	CreatedBy       string           `json:"created_by" db:"created_by"`
	CreatedAt       time.Time        `json:"created_at" db:"created_at"`
}

// Prize возвращает призовой фонд для указанного места.
func (t *Tournament) Prize(p Place) int64 {
	switch p {
	case PlaceFirst:
		return t.PrizePoolFirst
	case PlaceSecond:
		return t.PrizePoolSecond
	case PlaceThird:
		return t.PrizePoolThird
	}
	return 0
}

// Full сообщает, что свободных слотов нет.
func (t *Tournament) Full() bool {
	return t.RegisteredCount >= t.MaxPlayers
}

type TournamentFilter struct {
	Status     *TournamentStatus
	CategoryID *string
	Limit      int
	Offset     int
}
