package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPostgresDialect(t *testing.T) {
	d := NewPostgresDialect()
	assert.Equal(t, "postgres", d.DriverName())
	assert.Equal(t,
		"INSERT INTO runs (id, status) VALUES (:id, :status) ON CONFLICT (id) DO UPDATE SET status = EXCLUDED.status",
		d.UpsertSQL("runs", []string{"id", "status"}, []string{"id"}, []string{"status"}))
	assert.Equal(t, "started_at TIMESTAMP NOT NULL", d.CreateTableSQL("started_at DATETIME NOT NULL"))
	assert.Equal(t, "CREATE INDEX IF NOT EXISTS idx ON runs (status)", d.CreateIndexSQL("idx", "runs", "status"))
	assert.False(t, d.IsDuplicateIndex(nil))
}
