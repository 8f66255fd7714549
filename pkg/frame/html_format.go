package frame

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// HTMLFormat 从 HTML 页面抓取表格（只读）
// 参数: selector（默认 "table"）, index（第几个匹配的表格，默认 0）,
// has_header（默认 true，取第一行作为列名）, infer_schema（默认 true）
// source 可以是本地文件或 http(s) 地址
func HTMLFormat() Format {
	return Format{
		Name:       "html",
		Aliases:    []string{"htm"},
		Extensions: []string{"html", "htm"},
		Scan:       scanHTML,
	}
}

func openHTML(ctx context.Context, source string) (io.ReadCloser, error) {
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
		if err != nil {
			return nil, err
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, fmt.Errorf("请求 %s 返回状态码 %d", source, resp.StatusCode)
		}
		return resp.Body, nil
	}
	f, err := os.Open(source)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", ErrSourceNotFound, source)
	}
	return f, err
}

func scanHTML(ctx context.Context, source string, opts Options) (*Table, error) {
	selector := opts.String("selector", "table")
	index, err := opts.Int("index", 0)
	if err != nil {
		return nil, err
	}
	hasHeader, err := opts.Bool("has_header", true)
	if err != nil {
		return nil, err
	}
	infer, err := opts.Bool("infer_schema", true)
	if err != nil {
		return nil, err
	}

	body, err := openHTML(ctx, source)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, err
	}
	tables := doc.Find(selector)
	if index < 0 || index >= tables.Length() {
		return nil, fmt.Errorf("选择器 %q 只匹配到 %d 个表格，无法取第 %d 个", selector, tables.Length(), index)
	}

	var cells [][]string
	tables.Eq(index).Find("tr").Each(func(_ int, tr *goquery.Selection) {
		var record []string
		tr.Find("th, td").Each(func(_ int, td *goquery.Selection) {
			record = append(record, strings.TrimSpace(td.Text()))
		})
		if len(record) > 0 {
			cells = append(cells, record)
		}
	})

	var columns []string
	if hasHeader && len(cells) > 0 {
		columns, cells = cells[0], cells[1:]
	} else {
		width := 0
		for _, r := range cells {
			width = max(width, len(r))
		}
		columns = make([]string, width)
		for i := range columns {
			columns[i] = fmt.Sprintf("column_%d", i+1)
		}
	}
	if err := checkColumns(columns); err != nil {
		return nil, err
	}

	rows := make([][]any, len(cells))
	for i, record := range cells {
		row := make([]any, len(columns))
		for j := 0; j < len(columns) && j < len(record); j++ {
			switch {
			case record[j] == "":
			case infer:
				row[j] = inferValue(record[j])
			default:
				row[j] = record[j]
			}
		}
		rows[i] = row
	}
	return &Table{Columns: columns, Rows: rows}, nil
}
