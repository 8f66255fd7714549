package frame

import (
	"context"
	"fmt"
	"slices"
	"strings"
)

// JoinHow 连接方向（对外导出）
type JoinHow string

const (
	JoinLeft  JoinHow = "left"
	JoinRight JoinHow = "right"
	JoinInner JoinHow = "inner"
	JoinOuter JoinHow = "outer"
	JoinSemi  JoinHow = "semi"
	JoinAnti  JoinHow = "anti"
)

// rightSuffix 右表非键列与左表重名时追加的后缀
const rightSuffix = "_right"

// ParseJoinHow 解析连接方向，"full" 视为 outer
func ParseJoinHow(s string) (JoinHow, error) {
	switch h := JoinHow(strings.ToLower(s)); h {
	case JoinLeft, JoinRight, JoinInner, JoinOuter, JoinSemi, JoinAnti:
		return h, nil
	case "full":
		return JoinOuter, nil
	case "":
		return JoinLeft, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedJoin, s)
	}
}

type joinNode struct {
	left, right planNode
	on          []string
	how         JoinHow
}

func (n *joinNode) describe() string {
	return fmt.Sprintf("JOIN %s ON %v", strings.ToUpper(string(n.how)), n.on)
}

func (n *joinNode) inputs() []planNode { return []planNode{n.left, n.right} }

func (n *joinNode) collect(ctx context.Context) (*Table, error) {
	left, err := n.left.collect(ctx)
	if err != nil {
		return nil, err
	}
	right, err := n.right.collect(ctx)
	if err != nil {
		return nil, err
	}
	return joinTables(left, right, n.on, n.how)
}

// joinTables 哈希连接；null 键不参与匹配
func joinTables(left, right *Table, on []string, how JoinHow) (*Table, error) {
	if len(on) == 0 {
		return nil, fmt.Errorf("join 需要至少一个键列")
	}
	lk, err := keyIndexes(left, on)
	if err != nil {
		return nil, fmt.Errorf("左表: %w", err)
	}
	rk, err := keyIndexes(right, on)
	if err != nil {
		return nil, fmt.Errorf("右表: %w", err)
	}

	index := make(map[string][]int)
	for i, row := range right.Rows {
		if key, ok := keyOf(pick(row, rk)); ok {
			index[key] = append(index[key], i)
		}
	}

	if how == JoinSemi || how == JoinAnti {
		rows := make([][]any, 0, len(left.Rows))
		for _, row := range left.Rows {
			key, ok := keyOf(pick(row, lk))
			_, matched := index[key]
			if (ok && matched) == (how == JoinSemi) {
				rows = append(rows, row)
			}
		}
		return &Table{Columns: left.Columns, Rows: rows}, nil
	}

	// 右表非键列
	var rightCols []int
	for i, c := range right.Columns {
		if !slices.Contains(on, c) {
			rightCols = append(rightCols, i)
		}
	}
	columns := slices.Clone(left.Columns)
	for _, i := range rightCols {
		name := right.Columns[i]
		if slices.Contains(columns, name) {
			name += rightSuffix
		}
		columns = append(columns, name)
	}
	if err := checkColumns(columns); err != nil {
		return nil, err
	}

	width := len(columns)
	matchedRight := make([]bool, len(right.Rows))
	rows := make([][]any, 0, len(left.Rows))
	for _, lrow := range left.Rows {
		var matches []int
		if key, ok := keyOf(pick(lrow, lk)); ok {
			matches = index[key]
		}
		if len(matches) == 0 {
			if how == JoinLeft || how == JoinOuter {
				out := make([]any, width)
				copy(out, lrow)
				rows = append(rows, out)
			}
			continue
		}
		for _, ri := range matches {
			matchedRight[ri] = true
			out := make([]any, 0, width)
			out = append(out, lrow...)
			for _, c := range rightCols {
				out = append(out, right.Rows[ri][c])
			}
			rows = append(rows, out)
		}
	}

	if how == JoinOuter {
		// 未匹配的右表行：键列取右表值，其余左表列为 null
		for ri, rrow := range right.Rows {
			if matchedRight[ri] {
				continue
			}
			out := make([]any, width)
			for k, li := range lk {
				out[li] = rrow[rk[k]]
			}
			for j, c := range rightCols {
				out[len(left.Columns)+j] = rrow[c]
			}
			rows = append(rows, out)
		}
	}

	switch how {
	case JoinLeft, JoinInner, JoinOuter:
		return &Table{Columns: columns, Rows: rows}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedJoin, how)
	}
}

func keyIndexes(t *Table, on []string) ([]int, error) {
	idx := make([]int, len(on))
	for i, c := range on {
		idx[i] = t.ColumnIndex(c)
		if idx[i] < 0 {
			return nil, columnNotFound(c, t.Columns)
		}
	}
	return idx, nil
}

func pick(row []any, idx []int) []any {
	out := make([]any, len(idx))
	for i, k := range idx {
		out[i] = row[k]
	}
	return out
}
