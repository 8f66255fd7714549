package frame

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"unicode/utf8"
)

// CSVFormat 逗号分隔文本
//
// 读取参数: separator, has_header, skip_rows, null_values, infer_schema,
// truncate_ragged_lines, comment_prefix
// 写入参数: include_header, separator, null_value, quote_style(necessary|always),
// line_terminator, float_precision
func CSVFormat() Format {
	return Format{
		Name:       "csv",
		Aliases:    []string{"tsv"},
		Extensions: []string{"csv", "tsv"},
		Scan:       scanCSV,
		Sink:       sinkCSV,
		Local:      true,
	}
}

func csvSeparator(opts Options, source string) (rune, error) {
	def := ","
	if strings.HasSuffix(strings.ToLower(source), ".tsv") {
		def = "\t"
	}
	sep := opts.String("separator", def)
	r, size := utf8.DecodeRuneInString(sep)
	if size == 0 || size != len(sep) {
		return 0, fmt.Errorf("separator 必须是单个字符: %q", sep)
	}
	return r, nil
}

func scanCSV(ctx context.Context, source string, opts Options) (*Table, error) {
	sep, err := csvSeparator(opts, source)
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
	ragged, err := opts.Bool("truncate_ragged_lines", false)
	if err != nil {
		return nil, err
	}
	skip, err := opts.Int("skip_rows", 0)
	if err != nil {
		return nil, err
	}
	nullValues, err := opts.Strings("null_values")
	if err != nil {
		return nil, err
	}

	f, err := os.Open(source)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	br := bufio.NewReader(f)
	for i := 0; i < skip; i++ {
		if _, err := br.ReadString('\n'); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, err
		}
	}

	r := csv.NewReader(br)
	r.Comma = sep
	r.FieldsPerRecord = -1
	if prefix := opts.String("comment_prefix", ""); prefix != "" {
		c, _ := utf8.DecodeRuneInString(prefix)
		r.Comment = c
	}

	var columns []string
	var rows [][]any
	for line := 0; ; line++ {
		if line%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if columns == nil {
			if hasHeader {
				columns = slices.Clone(record)
				continue
			}
			columns = make([]string, len(record))
			for i := range record {
				columns[i] = fmt.Sprintf("column_%d", i+1)
			}
		}
		switch {
		case len(record) == len(columns):
		case !ragged:
			return nil, fmt.Errorf("第 %d 行有 %d 个字段，期望 %d 个", line+1, len(record), len(columns))
		case len(record) > len(columns):
			record = record[:len(columns)]
		default:
			record = append(record, make([]string, len(columns)-len(record))...)
		}
		row := make([]any, len(record))
		for i, field := range record {
			switch {
			case field == "" || slices.Contains(nullValues, field):
				row[i] = nil
			case infer:
				row[i] = inferValue(field)
			default:
				row[i] = field
			}
		}
		rows = append(rows, row)
	}
	if err := checkColumns(columns); err != nil {
		return nil, err
	}
	return &Table{Columns: columns, Rows: rows}, nil
}

func sinkCSV(ctx context.Context, t *Table, dest string, opts Options) error {
	sep, err := csvSeparator(opts, dest)
	if err != nil {
		return err
	}
	header, err := opts.Bool("include_header", true)
	if err != nil {
		return err
	}
	precision, err := opts.Int("float_precision", -1)
	if err != nil {
		return err
	}
	quote := strings.ToLower(opts.String("quote_style", "necessary"))
	if quote != "necessary" && quote != "always" {
		return fmt.Errorf("不支持的 quote_style: %q", quote)
	}
	nullValue := opts.String("null_value", "")
	terminator := opts.String("line_terminator", "\n")

	f, err := os.Create(dest)
	if err != nil {
		return err
	}
	bw := bufio.NewWriter(f)
	w := &csvWriter{w: bw, sep: sep, always: quote == "always", eol: terminator}

	if header {
		w.write(t.Columns)
	}
	record := make([]string, len(t.Columns))
	for i, row := range t.Rows {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				f.Close()
				return err
			}
		}
		for j, v := range row {
			if v == nil {
				record[j] = nullValue
			} else {
				record[j] = formatValue(v, precision)
			}
		}
		w.write(record)
	}
	if w.err == nil {
		w.err = bw.Flush()
	}
	if cerr := f.Close(); w.err == nil {
		w.err = cerr
	}
	return w.err
}

// csvWriter encoding/csv.Writer 不支持强制加引号，这里手写最小实现
type csvWriter struct {
	w      *bufio.Writer
	sep    rune
	always bool
	eol    string
	err    error
}

func (cw *csvWriter) write(record []string) {
	if cw.err != nil {
		return
	}
	var b strings.Builder
	for i, field := range record {
		if i > 0 {
			b.WriteRune(cw.sep)
		}
		if cw.always || cw.needsQuote(field) {
			b.WriteByte('"')
			b.WriteString(strings.ReplaceAll(field, `"`, `""`))
			b.WriteByte('"')
		} else {
			b.WriteString(field)
		}
	}
	b.WriteString(cw.eol)
	_, cw.err = cw.w.WriteString(b.String())
}

func (cw *csvWriter) needsQuote(field string) bool {
	if field == "" {
		return false
	}
	return strings.ContainsRune(field, cw.sep) ||
		strings.ContainsAny(field, "\"\r\n") ||
		field[0] == ' ' || field[len(field)-1] == ' '
}
