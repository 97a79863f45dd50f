package route

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequiresWrite(t *testing.T) {
	tests := []struct {
		sql  string
		want bool
	}{
		{"SELECT * FROM routing_records", false},
		{"select 1", false},
		{"  \t\nSELECT now()", false},
		{"WITH recent AS (SELECT 1) SELECT * FROM recent", false},
		{"VALUES (1), (2)", false},
		{"SHOW server_version", false},
		{"EXPLAIN SELECT 1", false},
		{"INSERT INTO routing_records (data) VALUES ($1)", true},
		{"insert into t values (1)", true},
		{"UPDATE routing_records SET data = $1", true},
		{"DELETE FROM routing_records", true},
		{"TRUNCATE routing_records", true},
		{"CREATE TABLE t (id int)", true},
		{"ALTER TABLE t ADD COLUMN c int", true},
		{"DROP TABLE t", true},
		{"COPY t FROM STDIN", true},
	}

	for _, tt := range tests {
		assert.Equalf(t, tt.want, RequiresWrite(tt.sql, true), "sql: %q", tt.sql)
	}
}

func TestRequiresWriteUnclassified(t *testing.T) {
	// Statements without a known leading keyword fall back to the default.
	assert.True(t, RequiresWrite("DO $$ BEGIN END $$", true))
	assert.False(t, RequiresWrite("DO $$ BEGIN END $$", false))
	assert.True(t, RequiresWrite("", true))
}
