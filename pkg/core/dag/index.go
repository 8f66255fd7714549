package dag

import (
	"fmt"

	godag "github.com/begmaroman/go-dag"

	"github.com/LENAX/lazyflow/pkg/core/task"
)

// vertex go-dag 顶点，只携带节点ID
type vertex struct {
	id string
}

// ID 实现 go-dag 的 Identifiable 接口
func (v *vertex) ID() string { return v.id }

// index 基于 go-dag 的只读索引，用于祖先查询
// go-dag 在 AddEdge 时会拒绝环，因此只能在无环图上构建
func (d *DAG) index() (*godag.DAG[*vertex], error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	g := godag.NewDAG[*vertex]()
	for _, id := range d.order {
		if _, err := g.AddVertex(&vertex{id: id}); err != nil {
			return nil, fmt.Errorf("添加顶点失败: %s, Error=%w", id, err)
		}
	}
	for _, id := range d.order {
		for _, child := range d.nodes[id].Children {
			if err := g.AddEdge(id, child); err != nil {
				return nil, fmt.Errorf("添加边失败: %s -> %s, Error=%w", id, child, err)
			}
		}
	}
	return g, nil
}

// Ancestors 返回 id 的全部祖先加上 id 本身，按插入顺序排列
func (d *DAG) Ancestors(id string) ([]*task.Node, error) {
	if _, err := d.Node(id); err != nil {
		return nil, err
	}
	g, err := d.index()
	if err != nil {
		return nil, err
	}

	keep := map[string]bool{id: true}
	queue := []string{id}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		parents, err := g.GetParents(cur)
		if err != nil {
			return nil, fmt.Errorf("查询父节点失败: %s, Error=%w", cur, err)
		}
		for pid := range parents {
			if !keep[pid] {
				keep[pid] = true
				queue = append(queue, pid)
			}
		}
	}
	return d.filter(func(n *task.Node) bool { return keep[n.ID] }), nil
}
