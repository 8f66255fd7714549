package builder

import (
	"fmt"

	"github.com/LENAX/lazyflow/pkg/core/engine"
	"github.com/LENAX/lazyflow/pkg/core/task"
	"github.com/LENAX/lazyflow/pkg/frame"
)

// PipelineBuilder Pipeline构建器（对外导出）
// 链式调用中出现的第一个错误会被保留，并在 Build 时返回
type PipelineBuilder struct {
	name     string
	engine   *frame.Engine
	nodes    map[string]*task.Node
	steps    []step
	options  []engine.Option
	firstErr error
}

type step struct {
	node      *task.Node
	dependsOn []string
}

// NewPipelineBuilder 创建构建器（对外导出）
// fe: 数据帧引擎，为 nil 时使用内置格式
func NewPipelineBuilder(name string, fe *frame.Engine) *PipelineBuilder {
	if fe == nil {
		fe = frame.NewEngine(nil)
	}
	return &PipelineBuilder{
		name:   name,
		engine: fe,
		nodes:  make(map[string]*task.Node),
	}
}

// Add 添加已构造的节点，dependsOn 为父节点ID（按顺序成为该节点的输入）
func (b *PipelineBuilder) Add(n *task.Node, dependsOn ...string) *PipelineBuilder {
	if b.firstErr != nil {
		return b
	}
	if n == nil {
		b.firstErr = fmt.Errorf("节点不能为空")
		return b
	}
	if _, exists := b.nodes[n.ID]; exists {
		b.firstErr = fmt.Errorf("节点ID重复: %s", n.ID)
		return b
	}
	b.nodes[n.ID] = n
	b.steps = append(b.steps, step{node: n, dependsOn: dependsOn})
	return b
}

func (b *PipelineBuilder) add(n *task.Node, err error, dependsOn ...string) *PipelineBuilder {
	if b.firstErr != nil {
		return b
	}
	if err != nil {
		b.firstErr = err
		return b
	}
	return b.Add(n, dependsOn...)
}

// Read 添加读取节点（链式构建，对外导出）
func (b *PipelineBuilder) Read(id, source, format string, opts frame.Options) *PipelineBuilder {
	n, err := task.NewRead(b.engine, id, source, format, opts)
	return b.add(n, err)
}

// Transform 添加变换节点（链式构建，对外导出）
func (b *PipelineBuilder) Transform(id, op string, args []any, opts frame.Options, dependsOn string) *PipelineBuilder {
	n, err := task.NewTransform(b.engine, id, op, args, opts)
	return b.add(n, err, dependsOn)
}

// Merge 添加合并节点，left/right 分别为两个父节点（链式构建，对外导出）
func (b *PipelineBuilder) Merge(id string, opts frame.Options, left, right string) *PipelineBuilder {
	n, err := task.NewMerge(b.engine, id, opts)
	return b.add(n, err, left, right)
}

// Write 添加写出节点（链式构建，对外导出）
func (b *PipelineBuilder) Write(id, destination, format string, opts frame.Options, dependsOn string) *PipelineBuilder {
	n, err := task.NewWrite(b.engine, id, destination, format, opts)
	return b.add(n, err, dependsOn)
}

// WithOptions 追加 Pipeline 选项（并行度、监听器等）
func (b *PipelineBuilder) WithOptions(opts ...engine.Option) *PipelineBuilder {
	b.options = append(b.options, opts...)
	return b
}

// Build 按添加顺序插入节点和边，构建 Pipeline（对外导出）
// 依赖可以引用后添加的节点，但必须存在
func (b *PipelineBuilder) Build() (*engine.Pipeline, error) {
	if b.firstErr != nil {
		return nil, b.firstErr
	}
	p := engine.NewPipeline(b.name, nil, b.options...)
	for _, s := range b.steps {
		if err := p.AddNode(s.node); err != nil {
			return nil, err
		}
	}
	for _, s := range b.steps {
		for _, dep := range s.dependsOn {
			parent, ok := b.nodes[dep]
			if !ok {
				return nil, fmt.Errorf("节点 %s 依赖的节点 %s 不存在", s.node.ID, dep)
			}
			if err := p.AddEdge(parent, s.node); err != nil {
				return nil, err
			}
		}
	}
	return p, nil
}
