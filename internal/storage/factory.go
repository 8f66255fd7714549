package storage

import (
	"fmt"
	"time"

	"github.com/LENAX/lazyflow/pkg/storage"
	"github.com/LENAX/lazyflow/pkg/storage/mysql"
	"github.com/LENAX/lazyflow/pkg/storage/postgres"
	pkgsqlite "github.com/LENAX/lazyflow/pkg/storage/sqlite"
)

// PoolConfig 连接池配置（内部使用），零值字段不修改驱动默认值
type PoolConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// DatabaseFactory 数据库工厂接口（内部使用）
type DatabaseFactory interface {
	// RunRepository 运行历史Repository
	RunRepository() storage.RunRepository
	// Close 关闭数据库连接
	Close() error
}

// NewDatabaseFactory 创建数据库工厂（内部方法）
// dbType: 数据库类型（sqlite/mysql/postgres）
// dsn: 数据库连接字符串
func NewDatabaseFactory(dbType, dsn string, pool PoolConfig) (DatabaseFactory, error) {
	var (
		repo *storage.SQLRunRepo
		err  error
	)
	switch dbType {
	case "sqlite", "sqlite3":
		repo, err = pkgsqlite.NewRunRepoFromDSN(dsn)
	case "mysql":
		repo, err = mysql.NewRunRepoFromDSN(dsn)
	case "postgres", "postgresql":
		repo, err = postgres.NewRunRepoFromDSN(dsn)
	default:
		return nil, fmt.Errorf("unsupported database type: %s", dbType)
	}
	if err != nil {
		return nil, fmt.Errorf("create %s repository failed: %w", dbType, err)
	}

	db := repo.GetDB()
	if pool.MaxOpenConns > 0 {
		db.SetMaxOpenConns(pool.MaxOpenConns)
	}
	if pool.MaxIdleConns > 0 {
		db.SetMaxIdleConns(pool.MaxIdleConns)
	}
	if pool.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(pool.ConnMaxLifetime)
	}
	if pool.ConnMaxIdleTime > 0 {
		db.SetConnMaxIdleTime(pool.ConnMaxIdleTime)
	}
	return &sqlFactory{runRepo: repo}, nil
}

// sqlFactory 基于 SQLRunRepo 的工厂实现（内部实现）
type sqlFactory struct {
	runRepo *storage.SQLRunRepo
}

func (f *sqlFactory) RunRepository() storage.RunRepository {
	return f.runRepo
}

func (f *sqlFactory) Close() error {
	return f.runRepo.Close()
}
