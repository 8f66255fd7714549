package mysql

import (
	"errors"
	"testing"

	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
)

func TestMySQLDialect(t *testing.T) {
	d := NewMySQLDialect()
	assert.Equal(t, "u:p@tcp(localhost:3306)/db?parseTime=true", d.NormalizeDSN("u:p@tcp(localhost:3306)/db"))
	assert.Equal(t, "u:p@tcp(localhost:3306)/db?charset=utf8mb4&parseTime=true", d.NormalizeDSN("u:p@tcp(localhost:3306)/db?charset=utf8mb4"))
	assert.Equal(t, "/db?parseTime=true", d.NormalizeDSN("/db?parseTime=true"))

	assert.Equal(t,
		"INSERT INTO runs (id, status) VALUES (:id, :status) ON DUPLICATE KEY UPDATE status = VALUES(status)",
		d.UpsertSQL("runs", []string{"id", "status"}, []string{"id"}, []string{"status"}))
	assert.Equal(t, "CREATE INDEX idx ON runs (a, b)", d.CreateIndexSQL("idx", "runs", "a", "b"))

	assert.True(t, d.IsDuplicateIndex(&mysqldriver.MySQLError{Number: 1061}))
	assert.False(t, d.IsDuplicateIndex(&mysqldriver.MySQLError{Number: 1062}))
	assert.False(t, d.IsDuplicateIndex(errors.New("other")))
}
