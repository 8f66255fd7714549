package frame

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/goccy/go-json"
)

// JSONFormat 按行分隔的 JSON 对象（ndjson），也接受顶层对象数组
// 列顺序取首次出现的键顺序
func JSONFormat() Format {
	return Format{
		Name:       "json",
		Aliases:    []string{"ndjson", "jsonl"},
		Extensions: []string{"json", "ndjson", "jsonl"},
		Scan:       scanJSON,
		Sink:       sinkJSON,
		Local:      true,
	}
}

// rowCollector 按键首次出现顺序汇总列
type rowCollector struct {
	columns []string
	index   map[string]int
	records []map[string]any
}

func newRowCollector() *rowCollector {
	return &rowCollector{index: make(map[string]int)}
}

func (rc *rowCollector) add(keys []string, rec map[string]any) {
	for _, k := range keys {
		if _, ok := rc.index[k]; !ok {
			rc.index[k] = len(rc.columns)
			rc.columns = append(rc.columns, k)
		}
	}
	rc.records = append(rc.records, rec)
}

func (rc *rowCollector) table() *Table {
	rows := make([][]any, len(rc.records))
	for i, rec := range rc.records {
		row := make([]any, len(rc.columns))
		for k, v := range rec {
			row[rc.index[k]] = normalize(v)
		}
		rows[i] = row
	}
	return &Table{Columns: rc.columns, Rows: rows}
}

func scanJSON(ctx context.Context, source string, opts Options) (*Table, error) {
	f, err := os.Open(source)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec := json.NewDecoder(bufio.NewReader(f))
	dec.UseNumber()
	rc := newRowCollector()

	first := true
	array := false
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if array && !dec.More() {
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			break
		}
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if first {
			first = false
			if d, ok := tok.(json.Delim); ok && d == '[' {
				array = true
				continue
			}
		}
		d, ok := tok.(json.Delim)
		if !ok || d != '{' {
			return nil, fmt.Errorf("期望 JSON 对象，得到 %v", tok)
		}
		keys, rec, err := readObject(dec)
		if err != nil {
			return nil, err
		}
		rc.add(keys, rec)
	}
	return rc.table(), nil
}

// readObject 读取 '{' 之后的键值对，保留键顺序
func readObject(dec *json.Decoder) ([]string, map[string]any, error) {
	var keys []string
	rec := make(map[string]any)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, nil, fmt.Errorf("期望字符串键，得到 %v", tok)
		}
		var v any
		if err := dec.Decode(&v); err != nil {
			return nil, nil, err
		}
		if _, dup := rec[key]; !dup {
			keys = append(keys, key)
		}
		rec[key] = v
	}
	// 消费 '}'
	if _, err := dec.Token(); err != nil {
		return nil, nil, err
	}
	return keys, rec, nil
}

func sinkJSON(ctx context.Context, t *Table, dest string, opts Options) error {
	f, err := os.Create(dest)
	if err != nil {
		return err
	}
	bw := bufio.NewWriter(f)
	if err := writeNDJSON(ctx, bw, t); err != nil {
		f.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func writeNDJSON(ctx context.Context, w io.Writer, t *Table) error {
	keys := make([][]byte, len(t.Columns))
	for i, c := range t.Columns {
		k, err := json.Marshal(c)
		if err != nil {
			return err
		}
		keys[i] = k
	}
	var b strings.Builder
	for i, row := range t.Rows {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		b.Reset()
		b.WriteByte('{')
		for j, v := range row {
			if j > 0 {
				b.WriteByte(',')
			}
			b.Write(keys[j])
			b.WriteByte(':')
			data, err := json.Marshal(v)
			if err != nil {
				return fmt.Errorf("列 %q 的值无法编码: %w", t.Columns[j], err)
			}
			b.Write(data)
		}
		b.WriteString("}\n")
		if _, err := io.WriteString(w, b.String()); err != nil {
			return err
		}
	}
	return nil
}
