package storage

// Dialect SQL方言接口（对外导出）
// 运行历史表在 sqlite / mysql / postgres 上共用同一份DDL，由方言做差异转换
type Dialect interface {
	// Name 返回方言名称（如 "sqlite", "mysql", "postgres"）
	Name() string

	// DriverName 返回 database/sql 驱动名
	DriverName() string

	// NormalizeDSN 补全驱动需要的DSN参数（如 MySQL 的 parseTime=true）
	NormalizeDSN(dsn string) string

	// UpsertSQL 返回按主键插入或更新的SQL语句，使用 :name 命名参数
	// conflictColumns: 冲突判断列（通常是主键）
	// updateColumns: 冲突时需要更新的列（不含主键）
	UpsertSQL(tableName string, columns []string, conflictColumns []string, updateColumns []string) string

	// CreateTableSQL 把通用DDL转换为本方言的DDL
	CreateTableSQL(schema string) string

	// CreateIndexSQL 返回创建索引的语句
	CreateIndexSQL(indexName, tableName string, columns ...string) string

	// IsDuplicateIndex 判断建索引失败是否因为索引已存在
	IsDuplicateIndex(err error) bool

	// ConfigureDB 连接建立后需要执行的配置语句（如SQLite的PRAGMA）
	ConfigureDB() []string
}
