package output

import (
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/fatih/color"
)

// Table 简单表格输出
type Table struct {
	headers []string
	rows    [][]string
	widths  []int
	out     io.Writer
}

// NewTable 创建表格
func NewTable(headers []string) *Table {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = utf8.RuneCountInString(h)
	}
	return &Table{
		headers: headers,
		rows:    make([][]string, 0),
		widths:  widths,
		out:     os.Stdout,
	}
}

// SetOutput 修改输出目标，默认标准输出
func (t *Table) SetOutput(w io.Writer) *Table {
	t.out = w
	return t
}

// AddRow 添加行
func (t *Table) AddRow(row []string) {
	// 更新列宽
	for i, cell := range row {
		if n := utf8.RuneCountInString(cell); i < len(t.widths) && n > t.widths[i] {
			t.widths[i] = n
		}
	}
	t.rows = append(t.rows, row)
}

// Len 数据行数
func (t *Table) Len() int {
	return len(t.rows)
}

// Render 渲染表格
func (t *Table) Render() {
	// 打印表头
	headerColor := color.New(color.FgCyan, color.Bold)
	for i, h := range t.headers {
		headerColor.Fprint(t.out, pad(h, t.widths[i]))
	}
	fmt.Fprintln(t.out)

	// 打印分隔线
	for i := range t.headers {
		fmt.Fprint(t.out, strings.Repeat("-", t.widths[i]))
		fmt.Fprint(t.out, "  ")
	}
	fmt.Fprintln(t.out)

	// 打印数据行
	for _, row := range t.rows {
		for i, cell := range row {
			if i < len(t.widths) {
				fmt.Fprint(t.out, pad(cell, t.widths[i]))
			}
		}
		fmt.Fprintln(t.out)
	}
}

// pad 按字符数左对齐，%-*s 按字节计算宽度，中文会错位
func pad(s string, width int) string {
	if n := utf8.RuneCountInString(s); n < width {
		s += strings.Repeat(" ", width-n)
	}
	return s + "  "
}
