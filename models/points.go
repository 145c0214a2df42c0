package models

import (
	"sort"
	"time"
)

// PointsEntry одна строка таблицы очков турнира. Key это id пользователя, если строка
// принадлежит зарегистрированному пользователю, иначе имя игрока. Seq порядок первой вставки.
type PointsEntry struct {
	TournamentID string    `json:"tournament_id" db:"tournament_id"`
	Key          string    `json:"-" db:"entry_key"`
	UserID       *string   `json:"user_id,omitempty" db:"user_id"`
	PlayerName   string    `json:"player_name" db:"player_name"`
	Wins         int       `json:"wins" db:"wins"`
	Kills        int       `json:"kills" db:"kills"`
	TotalPoints  int       `json:"total_points" db:"total_points"`
	Seq          int       `json:"-" db:"seq"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

type RankedPointsEntry struct {
	Rank int `json:"rank"`
	PointsEntry
}

// RankPoints сортирует записи по TotalPoints по убыванию. Равные сохраняют порядок Seq; другого
// ключа нет, поэтому сортировка должна быть стабильной.
func RankPoints(entries []PointsEntry) []RankedPointsEntry {
	sorted := make([]PointsEntry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Seq < sorted[j].Seq })
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].TotalPoints > sorted[j].TotalPoints })

	ranked := make([]RankedPointsEntry, len(sorted))
	for i, e := range sorted {
		ranked[i] = RankedPointsEntry{Rank: i + 1, PointsEntry: e}
	}
	return ranked
}
