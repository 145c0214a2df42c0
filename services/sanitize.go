package services

import (
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

var strictPolicy = bluemonday.StrictPolicy()

// cleanText убирает разметку из пользовательского текста и обрезает пробелы по краям.
func cleanText(s string) string {
	return strings.TrimSpace(strictPolicy.Sanitize(s))
}

func cleanOptional(s *string) *string {
	if s == nil {
		return nil
	}
	v := cleanText(*s)
	if v == "" {
		return nil
	}
	return &v
}

// requireText очищает s и проверяет, что длина в рунах лежит в [min, max].
func requireText(field, s string, min, max int) (string, error) {
	v := cleanText(s)
	n := utf8.RuneCountInString(v)
	if n == 0 {
		return "", validationError("%s is required", field)
	}
	if n < min || n > max {
		return "", validationError("%s must be between %d and %d characters", field, min, max)
	}
	return v, nil
}
