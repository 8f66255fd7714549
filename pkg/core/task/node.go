package task

import (
	"context"
	"log"
	"slices"
	"sync"

	"github.com/LENAX/lazyflow/pkg/core/types"
	"github.com/LENAX/lazyflow/pkg/frame"
)

// Config Task配置：有序的位置参数与命名参数，对图引擎不透明
type Config struct {
	Args    []any
	Options frame.Options
}

// Task 节点的执行能力（对外导出）
// inputs 按父节点插入顺序传入父节点的结果
type Task interface {
	Execute(ctx context.Context, inputs ...any) (any, error)
}

// Node DAG中的一个步骤（对外导出）
// Parents/Children 只保存ID，节点本身由 DAG 持有
type Node struct {
	ID       string
	Kind     types.Kind
	Config   Config
	Parents  []string
	Children []string

	task   Task
	optsMu *sync.RWMutex // 保护 Config.Options，合并节点执行时会原地改写
}

// NewNode 用任意 Task 实现创建节点（对外导出）
// 内置的四种变体请使用 NewRead / NewTransform / NewWrite / NewMerge
func NewNode(id string, kind types.Kind, cfg Config, t Task) *Node {
	if cfg.Options == nil {
		cfg.Options = frame.Options{}
	}
	return &Node{ID: id, Kind: kind, Config: cfg, task: t, optsMu: &sync.RWMutex{}}
}

// IsRoot 没有父节点
func (n *Node) IsRoot() bool { return len(n.Parents) == 0 }

// IsLeaf 没有子节点
func (n *Node) IsLeaf() bool { return len(n.Children) == 0 }

// IsFanIn 多于一个父节点
func (n *Node) IsFanIn() bool { return len(n.Parents) > 1 }

// IsFanOut 多于一个子节点
func (n *Node) IsFanOut() bool { return len(n.Children) > 1 }

// HasParent 判断 id 是否已是父节点
func (n *Node) HasParent(id string) bool { return slices.Contains(n.Parents, id) }

// Options 返回命名参数的快照，可与运行并发调用
func (n *Node) Options() frame.Options {
	if n.optsMu == nil {
		return n.Config.Options.Clone()
	}
	n.optsMu.RLock()
	defer n.optsMu.RUnlock()
	return n.Config.Options.Clone()
}

// Execute 执行节点，外部引擎的错误统一包装为 ExecutionError
func (n *Node) Execute(ctx context.Context, inputs ...any) (any, error) {
	if n.task == nil {
		return nil, &types.ExecutionError{TaskID: n.ID, Kind: n.Kind, Cause: errNoTask}
	}
	out, err := n.task.Execute(ctx, inputs...)
	if err != nil {
		log.Printf("❌ [%s] Task %s 执行失败: %v", n.Kind, n.ID, err)
		return nil, &types.ExecutionError{TaskID: n.ID, Kind: n.Kind, Cause: err}
	}
	return out, nil
}

func (n *Node) String() string {
	return string(n.Kind) + ":" + n.ID
}
