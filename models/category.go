package models

// Category группирует турниры по игре/дисциплине. ID = slug от имени.
type Category struct {
	ID   string `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
}
