package mysql

import (
	"errors"
	"fmt"
	"strings"

	mysqldriver "github.com/go-sql-driver/mysql"

	"github.com/LENAX/lazyflow/pkg/storage"
)

// errDupKeyName MySQL 重复索引名错误码
const errDupKeyName = 1061

// MySQLDialect MySQL方言实现（对外导出）
type MySQLDialect struct{}

// NewMySQLDialect 创建MySQL方言实例
func NewMySQLDialect() *MySQLDialect {
	return &MySQLDialect{}
}

// Name 返回方言名称
func (d *MySQLDialect) Name() string {
	return "mysql"
}

// DriverName 返回驱动名
func (d *MySQLDialect) DriverName() string {
	return "mysql"
}

// NormalizeDSN 确保DSN包含parseTime=true
func (d *MySQLDialect) NormalizeDSN(dsn string) string {
	if strings.Contains(dsn, "parseTime=true") {
		return dsn
	}
	if strings.Contains(dsn, "?") {
		return dsn + "&parseTime=true"
	}
	return dsn + "?parseTime=true"
}

// UpsertSQL 返回MySQL的UPSERT语句（ON DUPLICATE KEY UPDATE）
func (d *MySQLDialect) UpsertSQL(tableName string, columns []string, conflictColumns []string, updateColumns []string) string {
	namedPlaceholders := make([]string, len(columns))
	for i, col := range columns {
		namedPlaceholders[i] = ":" + col
	}
	updateParts := make([]string, len(updateColumns))
	for i, col := range updateColumns {
		updateParts[i] = fmt.Sprintf("%s = VALUES(%s)", col, col)
	}

	return fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s) ON DUPLICATE KEY UPDATE %s",
		tableName,
		strings.Join(columns, ", "),
		strings.Join(namedPlaceholders, ", "),
		strings.Join(updateParts, ", "),
	)
}

// CreateTableSQL 追加InnoDB引擎与utf8mb4字符集
func (d *MySQLDialect) CreateTableSQL(schema string) string {
	return strings.TrimSpace(schema) + " ENGINE=InnoDB DEFAULT CHARSET=utf8mb4"
}

// CreateIndexSQL MySQL不支持 CREATE INDEX IF NOT EXISTS，重复创建由 IsDuplicateIndex 识别
func (d *MySQLDialect) CreateIndexSQL(indexName, tableName string, columns ...string) string {
	return fmt.Sprintf("CREATE INDEX %s ON %s (%s)", indexName, tableName, strings.Join(columns, ", "))
}

// IsDuplicateIndex 判断是否为重复索引名错误
func (d *MySQLDialect) IsDuplicateIndex(err error) bool {
	var me *mysqldriver.MySQLError
	return errors.As(err, &me) && me.Number == errDupKeyName
}

// ConfigureDB MySQL无需额外配置，时区由驱动参数 loc 控制（默认UTC）
func (d *MySQLDialect) ConfigureDB() []string {
	return nil
}

// NewRunRepoFromDSN 通过DSN创建运行历史Repository（对外导出）
// dsn格式: user:password@tcp(host:port)/dbname?parseTime=true
func NewRunRepoFromDSN(dsn string) (*storage.SQLRunRepo, error) {
	return storage.OpenRunRepo(NewMySQLDialect(), dsn)
}

// 确保实现接口
var _ storage.Dialect = (*MySQLDialect)(nil)
