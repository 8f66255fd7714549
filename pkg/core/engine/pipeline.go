package engine

import (
	"github.com/LENAX/lazyflow/pkg/core/dag"
	"github.com/LENAX/lazyflow/pkg/core/task"
)

// Pipeline 一个DAG加上运行能力（对外导出）
// 默认单线程同步执行；WithWorkers(n>1) 时独立分支在有界协程池中并行
type Pipeline struct {
	name      string
	dag       *dag.DAG
	workers   int
	debug     bool
	listeners []Listener
}

// Option Pipeline 选项
type Option func(*Pipeline)

// WithWorkers 设置并行度，n<=1 为顺序执行
func WithWorkers(n int) Option {
	return func(p *Pipeline) { p.workers = n }
}

// WithListener 注册运行事件监听器
func WithListener(l Listener) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.listeners = append(p.listeners, l)
		}
	}
}

// WithDebug 打印每次访问节点的日志
func WithDebug(debug bool) Option {
	return func(p *Pipeline) { p.debug = debug }
}

// NewPipeline 创建 Pipeline，d 为 nil 时新建空DAG
func NewPipeline(name string, d *dag.DAG, opts ...Option) *Pipeline {
	if d == nil {
		d = dag.NewDAG()
	}
	p := &Pipeline{name: name, dag: d, workers: 1}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name 名称
func (p *Pipeline) Name() string { return p.name }

// DAG 底层的图
func (p *Pipeline) DAG() *dag.DAG { return p.dag }

// Workers 并行度
func (p *Pipeline) Workers() int { return p.workers }

// AddNode 向底层DAG添加节点
func (p *Pipeline) AddNode(n *task.Node) error { return p.dag.AddNode(n) }

// AddEdge 向底层DAG添加边
func (p *Pipeline) AddEdge(parent, child *task.Node) error { return p.dag.AddEdge(parent, child) }
