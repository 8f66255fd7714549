package cache

import (
	"fmt"
	"sync"
)

// ResultStore 单次运行内的节点结果存储（对外导出）
// 每次运行新建，运行结束即丢弃，不跨运行缓存
type ResultStore interface {
	// Put 保存节点结果，同一节点只能保存一次
	Put(taskID string, result any) error

	// Get 获取节点结果
	// 返回: 结果数据和是否存在
	Get(taskID string) (any, bool)

	// Has 节点是否已有结果（结果本身可以是 nil，如写出节点）
	Has(taskID string) bool

	// Len 已保存结果的节点数量
	Len() int
}

// MemoryResultStore 内存结果存储实现（对外导出）
type MemoryResultStore struct {
	mu      sync.RWMutex
	results map[string]any
}

// NewMemoryResultStore 创建内存结果存储实例（对外导出）
func NewMemoryResultStore() *MemoryResultStore {
	return &MemoryResultStore{results: make(map[string]any)}
}

// Put 保存节点结果
func (s *MemoryResultStore) Put(taskID string, result any) error {
	if taskID == "" {
		return fmt.Errorf("taskID不能为空")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.results[taskID]; exists {
		return fmt.Errorf("task %s 的结果已存在", taskID)
	}
	s.results[taskID] = result
	return nil
}

// Get 获取节点结果
func (s *MemoryResultStore) Get(taskID string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.results[taskID]
	return v, ok
}

// Has 节点是否已有结果
func (s *MemoryResultStore) Has(taskID string) bool {
	_, ok := s.Get(taskID)
	return ok
}

// Len 已保存结果的节点数量
func (s *MemoryResultStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.results)
}

var _ ResultStore = (*MemoryResultStore)(nil)
