package frame

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"
)

// LazyFrame 惰性计算计划（对外导出）
// 所有变换只追加计划节点，直到 Collect 才真正读取并计算数据；
// 计划节点不可变，同一个 LazyFrame 可被多个下游共享
type LazyFrame struct {
	root planNode
}

type planNode interface {
	collect(ctx context.Context) (*Table, error)
	describe() string
	inputs() []planNode
}

// Collect 执行计划并返回物化结果
func (lf *LazyFrame) Collect(ctx context.Context) (*Table, error) {
	if lf == nil || lf.root == nil {
		return nil, fmt.Errorf("空的 LazyFrame")
	}
	return lf.root.collect(ctx)
}

// Explain 返回计划的文本描述（自顶向下，缩进表示输入）
func (lf *LazyFrame) Explain() string {
	var b strings.Builder
	var walk func(n planNode, depth int)
	walk = func(n planNode, depth int) {
		b.WriteString(strings.Repeat("  ", depth))
		b.WriteString(n.describe())
		b.WriteByte('\n')
		for _, in := range n.inputs() {
			walk(in, depth+1)
		}
	}
	walk(lf.root, 0)
	return b.String()
}

// Filter 过滤行
func (lf *LazyFrame) Filter(expr Expr) *LazyFrame {
	return &LazyFrame{root: &filterNode{input: lf.root, expr: expr}}
}

// Select 选择列（按给定顺序）
func (lf *LazyFrame) Select(columns ...string) *LazyFrame {
	return &LazyFrame{root: &selectNode{input: lf.root, columns: slices.Clone(columns)}}
}

// SortKey 排序键
type SortKey struct {
	Column     string
	Descending bool
}

// Sort 稳定排序；nullsLast 为 false 时 null 排在最前
func (lf *LazyFrame) Sort(keys []SortKey, nullsLast bool) *LazyFrame {
	return &LazyFrame{root: &sortNode{input: lf.root, keys: slices.Clone(keys), nullsLast: nullsLast}}
}

// Limit 取前 n 行
func (lf *LazyFrame) Limit(n int) *LazyFrame {
	return &LazyFrame{root: &limitNode{input: lf.root, n: n}}
}

// WithRowIndex 在首列插入行号
func (lf *LazyFrame) WithRowIndex(name string, offset int) *LazyFrame {
	return &LazyFrame{root: &rowIndexNode{input: lf.root, name: name, offset: offset}}
}

// Join 与另一个 LazyFrame 按键连接
func (lf *LazyFrame) Join(other *LazyFrame, on []string, how JoinHow) *LazyFrame {
	return &LazyFrame{root: &joinNode{left: lf.root, right: other.root, on: slices.Clone(on), how: how}}
}

type tableNode struct {
	table *Table
}

func (n *tableNode) collect(ctx context.Context) (*Table, error) {
	return n.table.Clone(), nil
}

func (n *tableNode) describe() string {
	return fmt.Sprintf("TABLE [%d rows x %d cols]", n.table.Len(), len(n.table.Columns))
}

func (n *tableNode) inputs() []planNode { return nil }

type scanNode struct {
	format string
	source string
	opts   Options
	scan   ScanFunc
}

func (n *scanNode) collect(ctx context.Context) (*Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	t, err := n.scan(ctx, n.source, n.opts)
	if err != nil {
		return nil, fmt.Errorf("扫描 %s 数据源 %q 失败: %w", n.format, n.source, err)
	}
	return t, nil
}

func (n *scanNode) describe() string {
	return fmt.Sprintf("SCAN %s %q", strings.ToUpper(n.format), n.source)
}

func (n *scanNode) inputs() []planNode { return nil }

type filterNode struct {
	input planNode
	expr  Expr
}

func (n *filterNode) collect(ctx context.Context) (*Table, error) {
	t, err := n.input.collect(ctx)
	if err != nil {
		return nil, err
	}
	pred, err := n.expr.Bind(t.Columns)
	if err != nil {
		return nil, err
	}
	rows := make([][]any, 0, len(t.Rows))
	for _, row := range t.Rows {
		if pred(row) {
			rows = append(rows, row)
		}
	}
	return &Table{Columns: t.Columns, Rows: rows}, nil
}

func (n *filterNode) describe() string { return "FILTER " + n.expr.String() }

func (n *filterNode) inputs() []planNode { return []planNode{n.input} }

type selectNode struct {
	input   planNode
	columns []string
}

func (n *selectNode) collect(ctx context.Context) (*Table, error) {
	t, err := n.input.collect(ctx)
	if err != nil {
		return nil, err
	}
	if err := checkColumns(n.columns); err != nil {
		return nil, err
	}
	idx := make([]int, len(n.columns))
	for i, c := range n.columns {
		idx[i] = t.ColumnIndex(c)
		if idx[i] < 0 {
			return nil, columnNotFound(c, t.Columns)
		}
	}
	rows := make([][]any, len(t.Rows))
	for i, row := range t.Rows {
		out := make([]any, len(idx))
		for j, k := range idx {
			out[j] = row[k]
		}
		rows[i] = out
	}
	return &Table{Columns: slices.Clone(n.columns), Rows: rows}, nil
}

func (n *selectNode) describe() string { return fmt.Sprintf("SELECT %v", n.columns) }

func (n *selectNode) inputs() []planNode { return []planNode{n.input} }

type sortNode struct {
	input     planNode
	keys      []SortKey
	nullsLast bool
}

func (n *sortNode) collect(ctx context.Context) (*Table, error) {
	t, err := n.input.collect(ctx)
	if err != nil {
		return nil, err
	}
	idx := make([]int, len(n.keys))
	for i, k := range n.keys {
		idx[i] = t.ColumnIndex(k.Column)
		if idx[i] < 0 {
			return nil, columnNotFound(k.Column, t.Columns)
		}
	}
	rows := slices.Clone(t.Rows)
	sort.SliceStable(rows, func(a, b int) bool {
		for i, k := range n.keys {
			va, vb := rows[a][idx[i]], rows[b][idx[i]]
			if va == nil || vb == nil {
				if va == nil && vb == nil {
					continue
				}
				// null 的位置不受升降序影响
				return (va == nil) != n.nullsLast
			}
			c := Compare(va, vb)
			if c == 0 {
				continue
			}
			if k.Descending {
				return c > 0
			}
			return c < 0
		}
		return false
	})
	return &Table{Columns: t.Columns, Rows: rows}, nil
}

func (n *sortNode) describe() string { return fmt.Sprintf("SORT %v", n.keys) }

func (n *sortNode) inputs() []planNode { return []planNode{n.input} }

type limitNode struct {
	input planNode
	n     int
}

func (n *limitNode) collect(ctx context.Context) (*Table, error) {
	t, err := n.input.collect(ctx)
	if err != nil {
		return nil, err
	}
	if n.n < len(t.Rows) {
		return &Table{Columns: t.Columns, Rows: t.Rows[:n.n]}, nil
	}
	return t, nil
}

func (n *limitNode) describe() string { return fmt.Sprintf("LIMIT %d", n.n) }

func (n *limitNode) inputs() []planNode { return []planNode{n.input} }

type rowIndexNode struct {
	input  planNode
	name   string
	offset int
}

func (n *rowIndexNode) collect(ctx context.Context) (*Table, error) {
	t, err := n.input.collect(ctx)
	if err != nil {
		return nil, err
	}
	if t.ColumnIndex(n.name) >= 0 {
		return nil, fmt.Errorf("行号列 %q 与已有列重名", n.name)
	}
	columns := append([]string{n.name}, t.Columns...)
	rows := make([][]any, len(t.Rows))
	for i, row := range t.Rows {
		rows[i] = append([]any{int64(n.offset + i)}, row...)
	}
	return &Table{Columns: columns, Rows: rows}, nil
}

func (n *rowIndexNode) describe() string { return fmt.Sprintf("WITH_ROW_INDEX %q", n.name) }

func (n *rowIndexNode) inputs() []planNode { return []planNode{n.input} }
