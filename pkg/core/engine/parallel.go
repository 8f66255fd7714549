package engine

import (
	"context"
	"log"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/LENAX/lazyflow/pkg/core/cache"
	"github.com/LENAX/lazyflow/pkg/core/task"
)

// runParallel 依赖计数驱动的并行执行
// 节点的全部父节点发布结果后计数归零，才被提交到协程池；首个失败取消其余分支
func (p *Pipeline) runParallel(ctx context.Context, scope []*task.Node, results cache.ResultStore, report *RunReport) error {
	g, gctx := errgroup.WithContext(ctx)
	workerPool := make(chan struct{}, p.workers)

	byID := make(map[string]*task.Node, len(scope))
	pending := make(map[string]*atomic.Int32, len(scope))
	for _, n := range scope {
		byID[n.ID] = n
		c := &atomic.Int32{}
		c.Store(int32(len(n.Parents)))
		pending[n.ID] = c
	}

	var submit func(n *task.Node)
	submit = func(n *task.Node) {
		g.Go(func() error {
			select {
			case workerPool <- struct{}{}:
			case <-gctx.Done():
				return gctx.Err()
			}
			defer func() { <-workerPool }()
			if err := gctx.Err(); err != nil {
				return err
			}

			inputs, _ := gatherInputs(n, results)
			if p.debug {
				log.Printf("[Pipeline %s] 并行执行 %s", p.name, n)
			}
			if err := p.execute(gctx, n, inputs, results, report); err != nil {
				return err
			}
			for _, cid := range n.Children {
				child, ok := byID[cid]
				if !ok {
					continue
				}
				if pending[cid].Add(-1) == 0 {
					submit(child)
				}
			}
			return nil
		})
	}

	for _, n := range scope {
		if n.IsRoot() {
			submit(n)
		}
	}
	return g.Wait()
}
