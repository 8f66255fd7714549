package dag

import (
	"fmt"
	"slices"
	"sync"

	"github.com/LENAX/lazyflow/pkg/core/task"
	"github.com/LENAX/lazyflow/pkg/core/types"
)

// DAG 任务节点的有向无环图（对外导出）
// 节点按ID存放在 arena 中，保留插入顺序；边通过节点ID记录在节点的 Parents/Children 中。
// 运行期间（Freeze 之后）拒绝任何结构修改。
type DAG struct {
	mu     sync.RWMutex
	nodes  map[string]*task.Node
	order  []string
	frozen bool
}

// NewDAG 创建空的DAG（对外导出）
func NewDAG() *DAG {
	return &DAG{nodes: make(map[string]*task.Node)}
}

// AddNode 添加节点
// 同一个节点重复添加是无操作；不同节点使用已存在的ID返回 StructuralError
func (d *DAG) AddNode(n *task.Node) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.addNodeLocked(n)
}

func (d *DAG) addNodeLocked(n *task.Node) error {
	if n == nil {
		return types.NewStructuralError("add_node", "", "节点不能为空")
	}
	if d.frozen {
		return types.NewStructuralError("add_node", n.ID, "DAG 正在运行，不能修改")
	}
	if n.ID == "" {
		return types.NewStructuralError("add_node", "", "节点ID不能为空")
	}
	if existing, ok := d.nodes[n.ID]; ok {
		if existing == n {
			return nil
		}
		return types.NewStructuralError("add_node", n.ID, "ID 已被另一个节点占用")
	}
	d.nodes[n.ID] = n
	d.order = append(d.order, n.ID)
	return nil
}

// AddEdge 添加 parent -> child 边，端点不存在时自动加入
// 拒绝自环、重复边以及超过子节点类型要求的父节点数量；不做环检测
func (d *DAG) AddEdge(parent, child *task.Node) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if parent == nil || child == nil {
		return types.NewStructuralError("add_edge", "", "边的端点不能为空")
	}
	if d.frozen {
		return types.NewStructuralError("add_edge", child.ID, "DAG 正在运行，不能修改")
	}
	if parent == child || parent.ID == child.ID {
		return types.NewStructuralError("add_edge", child.ID, "节点不能是自己的后继")
	}
	if child.HasParent(parent.ID) {
		return types.NewStructuralError("add_edge", child.ID, "边 %s -> %s 已存在", parent.ID, child.ID)
	}
	if arity := child.Kind.Arity(); len(child.Parents) >= arity {
		return types.NewStructuralError("add_edge", child.ID,
			"%s 节点最多 %d 个父节点，无法再添加 %s", child.Kind, arity, parent.ID)
	}
	// 端点校验全部通过后再插入，失败时不留下半条边
	for _, n := range []*task.Node{parent, child} {
		if existing, ok := d.nodes[n.ID]; ok && existing != n {
			return types.NewStructuralError("add_edge", n.ID, "ID 已被另一个节点占用")
		}
	}
	if err := d.addNodeLocked(parent); err != nil {
		return err
	}
	if err := d.addNodeLocked(child); err != nil {
		return err
	}
	parent.Children = append(parent.Children, child.ID)
	child.Parents = append(child.Parents, parent.ID)
	return nil
}

// Node 按ID查找节点
func (d *DAG) Node(id string) (*task.Node, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	n, ok := d.nodes[id]
	if !ok {
		return nil, types.NewStructuralError("lookup", id, "节点不存在")
	}
	return n, nil
}

// Nodes 按插入顺序返回所有节点
func (d *DAG) Nodes() []*task.Node {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]*task.Node, len(d.order))
	for i, id := range d.order {
		out[i] = d.nodes[id]
	}
	return out
}

// Len 节点数量
func (d *DAG) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.order)
}

// Roots 没有父节点的节点（插入顺序）
func (d *DAG) Roots() []*task.Node {
	return d.filter((*task.Node).IsRoot)
}

// Leaves 没有子节点的节点（插入顺序）
func (d *DAG) Leaves() []*task.Node {
	return d.filter((*task.Node).IsLeaf)
}

// FindOrphanNodes 既没有父节点也没有子节点的节点
func (d *DAG) FindOrphanNodes() []*task.Node {
	return d.filter(func(n *task.Node) bool { return n.IsRoot() && n.IsLeaf() })
}

func (d *DAG) filter(keep func(*task.Node) bool) []*task.Node {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var out []*task.Node
	for _, id := range d.order {
		if n := d.nodes[id]; keep(n) {
			out = append(out, n)
		}
	}
	return out
}

// Parents 父节点（按边插入顺序）
func (d *DAG) Parents(id string) ([]*task.Node, error) {
	n, err := d.Node(id)
	if err != nil {
		return nil, err
	}
	return d.lookup(n.Parents), nil
}

// Children 子节点（按边插入顺序）
func (d *DAG) Children(id string) ([]*task.Node, error) {
	n, err := d.Node(id)
	if err != nil {
		return nil, err
	}
	return d.lookup(n.Children), nil
}

func (d *DAG) lookup(ids []string) []*task.Node {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]*task.Node, 0, len(ids))
	for _, id := range ids {
		out = append(out, d.nodes[id])
	}
	return out
}

// Freeze 标记运行开始，之后的 AddNode/AddEdge 返回 StructuralError
// 已在运行时返回 false
func (d *DAG) Freeze() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.frozen {
		return false
	}
	d.frozen = true
	return true
}

// Unfreeze 运行结束后解除冻结
func (d *DAG) Unfreeze() {
	d.mu.Lock()
	d.frozen = false
	d.mu.Unlock()
}

// Validate 检查每个节点的父节点数量是否等于其类型要求
func (d *DAG) Validate() error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, id := range d.order {
		n := d.nodes[id]
		if want := n.Kind.Arity(); len(n.Parents) != want {
			return types.NewStructuralError("validate", id,
				"%s 节点需要 %d 个父节点，实际 %d 个", n.Kind, want, len(n.Parents))
		}
	}
	return nil
}

// Levels 按 Kahn 算法分层，同一层内的节点互不依赖（层内保持插入顺序）
// 存在环时返回 CycleError
func (d *DAG) Levels() ([][]*task.Node, error) {
	d.mu.RLock()
	inDegree := make(map[string]int, len(d.order))
	var queue []string
	for _, id := range d.order {
		inDegree[id] = len(d.nodes[id].Parents)
		if inDegree[id] == 0 {
			queue = append(queue, id)
		}
	}
	var levels [][]*task.Node
	seen := 0
	for len(queue) > 0 {
		level := make([]*task.Node, 0, len(queue))
		var next []string
		for _, id := range queue {
			n := d.nodes[id]
			level = append(level, n)
			for _, c := range n.Children {
				inDegree[c]--
				if inDegree[c] == 0 {
					next = append(next, c)
				}
			}
		}
		seen += len(level)
		levels = append(levels, level)
		queue = d.sortByInsertion(next)
	}
	total := len(d.order)
	d.mu.RUnlock()

	if seen != total {
		if n := d.FindCycles(); n != nil {
			return nil, &types.CycleError{TaskID: n.ID, Path: d.CyclePath()}
		}
		return nil, fmt.Errorf("拓扑排序失败：存在未处理的节点")
	}
	return levels, nil
}

func (d *DAG) sortByInsertion(ids []string) []string {
	if len(ids) < 2 {
		return ids
	}
	pos := make(map[string]int, len(d.order))
	for i, id := range d.order {
		pos[id] = i
	}
	slices.SortFunc(ids, func(a, b string) int { return pos[a] - pos[b] })
	return ids
}
