package engine

import (
	"fmt"
	"sort"
	"sync"
)

// Registry 按名称管理 Pipeline（对外导出）
type Registry struct {
	mu        sync.RWMutex
	pipelines map[string]*Pipeline
}

// NewRegistry 创建空的注册表
func NewRegistry() *Registry {
	return &Registry{pipelines: make(map[string]*Pipeline)}
}

// Register 注册 Pipeline，名称为空或重复时返回错误
func (r *Registry) Register(p *Pipeline) error {
	if p == nil || p.Name() == "" {
		return fmt.Errorf("Pipeline名称不能为空")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.pipelines[p.Name()]; exists {
		return fmt.Errorf("Pipeline %s 已注册", p.Name())
	}
	r.pipelines[p.Name()] = p
	return nil
}

// Get 按名称获取
func (r *Registry) Get(name string) (*Pipeline, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.pipelines[name]
	return p, ok
}

// List 按名称排序返回全部 Pipeline
func (r *Registry) List() []*Pipeline {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Pipeline, 0, len(r.pipelines))
	for _, p := range r.pipelines {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}
