package dag

import "github.com/LENAX/lazyflow/pkg/core/task"

// 三色标记：白色未访问，灰色在当前DFS路径上，黑色已完成
const (
	white = iota
	gray
	black
)

// HasCycle 是否存在环
func (d *DAG) HasCycle() bool {
	return d.FindCycles() != nil
}

// FindCycles 按插入顺序做三色DFS，返回首次发现后向边时指向的灰色节点；无环返回 nil
func (d *DAG) FindCycles() *task.Node {
	d.mu.RLock()
	defer d.mu.RUnlock()
	target, _ := d.detectCycleDFS()
	if target == "" {
		return nil
	}
	return d.nodes[target]
}

// CyclePath 返回检测到的环上的节点ID，首尾相同；无环返回 nil
func (d *DAG) CyclePath() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, path := d.detectCycleDFS()
	return path
}

// detectCycleDFS 使用显式栈避免深链递归
func (d *DAG) detectCycleDFS() (string, []string) {
	color := make(map[string]int, len(d.order))
	parent := make(map[string]string, len(d.order))

	type frame struct {
		id   string
		next int
	}
	for _, start := range d.order {
		if color[start] != white {
			continue
		}
		color[start] = gray
		stack := []frame{{id: start}}
		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			children := d.nodes[top.id].Children
			if top.next >= len(children) {
				color[top.id] = black
				stack = stack[:len(stack)-1]
				continue
			}
			child := children[top.next]
			top.next++
			switch color[child] {
			case white:
				color[child] = gray
				parent[child] = top.id
				stack = append(stack, frame{id: child})
			case gray:
				// 后向边：沿 parent 回溯得到环
				path := []string{child}
				for cur := top.id; cur != child; cur = parent[cur] {
					path = append(path, cur)
				}
				path = append(path, child)
				for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
					path[i], path[j] = path[j], path[i]
				}
				return child, path
			}
		}
	}
	return "", nil
}
