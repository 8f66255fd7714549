package engine

import (
	"context"
	"log"
	"slices"

	"github.com/google/uuid"

	"github.com/LENAX/lazyflow/pkg/core/cache"
	"github.com/LENAX/lazyflow/pkg/core/task"
	"github.com/LENAX/lazyflow/pkg/core/types"
)

// visitState 访问节点的结果
type visitState int

const (
	visitExecuted visitState = iota // 已执行，结果已保存
	visitDeferred                   // 父节点结果未全部就绪，稍后重访
	visitSkipped                    // 本次运行已执行过
	visitFailed                     // 执行失败，终止运行
)

// Run 执行整个DAG，每个可达节点恰好执行一次（对外导出）
// 有环时返回 CycleError，节点父节点数量不符时返回 StructuralError，均不会执行任何节点
func (p *Pipeline) Run(ctx context.Context) (*RunReport, error) {
	return p.run(ctx, "")
}

// RunTarget 只执行 target 及其全部祖先
func (p *Pipeline) RunTarget(ctx context.Context, target string) (*RunReport, error) {
	if target == "" {
		return nil, types.NewStructuralError("run", "", "目标节点ID不能为空")
	}
	return p.run(ctx, target)
}

func (p *Pipeline) run(ctx context.Context, target string) (*RunReport, error) {
	if !p.dag.Freeze() {
		return nil, types.NewStructuralError("run", "", "Pipeline %s 正在运行", p.name)
	}
	defer p.dag.Unfreeze()

	if n := p.dag.FindCycles(); n != nil {
		err := &types.CycleError{TaskID: n.ID, Path: p.dag.CyclePath()}
		log.Printf("❌ [Pipeline %s] %v", p.name, err)
		return nil, err
	}

	scope := p.dag.Nodes()
	if target != "" {
		var err error
		if scope, err = p.dag.Ancestors(target); err != nil {
			return nil, err
		}
	}
	for _, n := range scope {
		if want := n.Kind.Arity(); len(n.Parents) != want {
			return nil, types.NewStructuralError("run", n.ID,
				"%s 节点需要 %d 个父节点，实际 %d 个", n.Kind, want, len(n.Parents))
		}
	}

	mode := ModeSequential
	if p.workers > 1 {
		mode = ModeParallel
	}
	report := newRunReport(uuid.NewString(), p.name, mode, scope)
	report.Target = target
	log.Printf("🚀 [Pipeline %s] 开始运行: RunID=%s, Nodes=%d, Mode=%s", p.name, report.RunID, len(scope), mode)
	p.notify(func(l Listener) { l.OnRunStarted(report) })

	results := cache.NewMemoryResultStore()
	var err error
	if mode == ModeParallel {
		err = p.runParallel(ctx, scope, results, report)
	} else {
		err = p.runSequential(ctx, scope, results, report)
	}
	report.finish(err)
	p.notify(func(l Listener) { l.OnRunFinished(report) })

	if err != nil {
		log.Printf("❌ [Pipeline %s] 运行失败: RunID=%s, Error=%v", p.name, report.RunID, err)
		return report, err
	}
	log.Printf("✅ [Pipeline %s] 运行完成: RunID=%s, Executed=%d, Duration=%s", p.name, report.RunID, len(report.Order), report.Duration)
	return report, nil
}

// runSequential 显式工作栈的深度优先遍历
// 每个父节点完成后都会重新压入其子节点，汇合节点在最后一个父节点完成后必然被重访
func (p *Pipeline) runSequential(ctx context.Context, scope []*task.Node, results cache.ResultStore, report *RunReport) error {
	byID := make(map[string]*task.Node, len(scope))
	var stack []*task.Node
	for _, n := range scope {
		byID[n.ID] = n
		if n.IsRoot() {
			stack = append(stack, n)
		}
	}
	slices.Reverse(stack)

	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		state, err := p.visit(ctx, n, results, report)
		switch state {
		case visitFailed:
			return err
		case visitDeferred, visitSkipped:
			continue
		}
		// 逆序压栈，使第一个子节点最先被访问
		for i := len(n.Children) - 1; i >= 0; i-- {
			if child, ok := byID[n.Children[i]]; ok {
				stack = append(stack, child)
			}
		}
	}
	return nil
}

// visit 访问一个节点：已执行则跳过；父节点未全部就绪则推迟；否则执行并保存结果
func (p *Pipeline) visit(ctx context.Context, n *task.Node, results cache.ResultStore, report *RunReport) (visitState, error) {
	if results.Has(n.ID) {
		return visitSkipped, nil
	}
	inputs, ready := gatherInputs(n, results)
	if !ready {
		report.deferred(n.ID)
		if p.debug {
			log.Printf("[Pipeline %s] 推迟 %s：父节点未全部完成", p.name, n)
		}
		return visitDeferred, nil
	}
	if p.debug {
		log.Printf("[Pipeline %s] 执行 %s", p.name, n)
	}
	if err := p.execute(ctx, n, inputs, results, report); err != nil {
		return visitFailed, err
	}
	return visitExecuted, nil
}

// execute 执行节点并保存结果，两种运行模式共用
func (p *Pipeline) execute(ctx context.Context, n *task.Node, inputs []any, results cache.ResultStore, report *RunReport) error {
	report.started(n.ID)
	out, err := n.Execute(ctx, inputs...)
	if err == nil {
		err = results.Put(n.ID, out)
	}
	nr := report.finished(n.ID, err)
	p.notify(func(l Listener) { l.OnNodeFinished(report.RunID, nr) })
	return err
}

// gatherInputs 按父节点插入顺序收集父节点结果
func gatherInputs(n *task.Node, results cache.ResultStore) ([]any, bool) {
	inputs := make([]any, 0, len(n.Parents))
	for _, pid := range n.Parents {
		v, ok := results.Get(pid)
		if !ok {
			return nil, false
		}
		inputs = append(inputs, v)
	}
	return inputs, true
}
