package storage

import (
	"context"
	"errors"

	"github.com/LENAX/lazyflow/pkg/core/engine"
)

// ErrRunNotFound 运行记录不存在
var ErrRunNotFound = errors.New("run not found")

// RunFilter 运行记录查询条件，零值表示不限制
type RunFilter struct {
	Pipeline string
	Status   string
	Limit    int // <=0 时使用默认值 50
	Offset   int
}

// RunCRUDRepository 运行记录通用CRUD接口（对外导出）
type RunCRUDRepository interface {
	BaseRepository
	// Save 保存运行记录及其节点记录（创建或覆盖）
	Save(ctx context.Context, report *engine.RunReport) error
	// GetByID 根据RunID查询运行记录（含节点记录），不存在时返回 ErrRunNotFound
	GetByID(ctx context.Context, runID string) (*engine.RunReport, error)
	// Delete 删除运行记录及其节点记录
	Delete(ctx context.Context, runID string) error
}

// RunRepository 运行历史业务存储接口（对外导出）
type RunRepository interface {
	RunCRUDRepository

	// List 按开始时间倒序查询运行记录（不含节点记录）
	List(ctx context.Context, filter RunFilter) ([]*engine.RunReport, error)
	// Close 关闭底层连接
	Close() error
}
