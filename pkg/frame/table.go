package frame

import (
	"fmt"
	"slices"
)

// Table 已物化的数据表（对外导出）
// Columns 为列名（有序），Rows 中每行长度与 Columns 一致
type Table struct {
	Columns []string
	Rows    [][]any
}

// NewTable 创建数据表，行数据会被规范化并按列数对齐
func NewTable(columns []string, rows [][]any) (*Table, error) {
	if err := checkColumns(columns); err != nil {
		return nil, err
	}
	t := &Table{Columns: slices.Clone(columns), Rows: make([][]any, 0, len(rows))}
	for i, row := range rows {
		if len(row) != len(columns) {
			return nil, fmt.Errorf("第 %d 行有 %d 个字段，期望 %d 个", i, len(row), len(columns))
		}
		out := make([]any, len(row))
		for j, v := range row {
			out[j] = normalize(v)
		}
		t.Rows = append(t.Rows, out)
	}
	return t, nil
}

func checkColumns(columns []string) error {
	seen := make(map[string]struct{}, len(columns))
	for _, c := range columns {
		if _, dup := seen[c]; dup {
			return fmt.Errorf("重复的列名: %q", c)
		}
		seen[c] = struct{}{}
	}
	return nil
}

// Len 行数
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// ColumnIndex 返回列下标，不存在时返回 -1
func (t *Table) ColumnIndex(name string) int {
	return slices.Index(t.Columns, name)
}

// Column 返回一列的全部值
func (t *Table) Column(name string) ([]any, error) {
	idx := t.ColumnIndex(name)
	if idx < 0 {
		return nil, columnNotFound(name, t.Columns)
	}
	out := make([]any, len(t.Rows))
	for i, row := range t.Rows {
		out[i] = row[idx]
	}
	return out, nil
}

// Records 以 map 形式返回每一行（测试与API输出使用）
func (t *Table) Records() []map[string]any {
	out := make([]map[string]any, len(t.Rows))
	for i, row := range t.Rows {
		rec := make(map[string]any, len(t.Columns))
		for j, c := range t.Columns {
			rec[c] = row[j]
		}
		out[i] = rec
	}
	return out
}

// Clone 深拷贝行切片（单元格值本身不可变）
func (t *Table) Clone() *Table {
	rows := make([][]any, len(t.Rows))
	for i, row := range t.Rows {
		rows[i] = slices.Clone(row)
	}
	return &Table{Columns: slices.Clone(t.Columns), Rows: rows}
}

// Lazy 把已物化的表包装成 LazyFrame
func (t *Table) Lazy() *LazyFrame {
	return &LazyFrame{root: &tableNode{table: t}}
}

func columnNotFound(name string, columns []string) error {
	return fmt.Errorf("%w: %q（可用列: %v）", ErrColumnNotFound, name, columns)
}
