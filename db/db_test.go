package db

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSchemaKeepsPointsSeqUnique(t *testing.T) {
	unique := regexp.MustCompile(`(?i)CREATE UNIQUE INDEX IF NOT EXISTS \w+ ON points_entries \(tournament_id, seq\)`)
	assert.Regexp(t, unique, schema)
}

func TestSchemaIsIdempotent(t *testing.T) {
	create := regexp.MustCompile(`(?im)^CREATE (UNIQUE )?(TABLE|INDEX) `)
	guarded := regexp.MustCompile(`(?im)^CREATE (UNIQUE )?(TABLE|INDEX) IF NOT EXISTS `)
	assert.Equal(t, len(create.FindAllString(schema, -1)), len(guarded.FindAllString(schema, -1)))
}
