package frame

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestCSV_ReadOptions(t *testing.T) {
	ctx := context.Background()
	path := writeFile(t, "in.csv", "# generated\n1;NA;x\n2;3.5;\n")

	tbl, err := scanCSV(ctx, path, Options{
		"separator":      ";",
		"has_header":     false,
		"skip_rows":      1,
		"null_values":    []any{"NA"},
		"comment_prefix": "#",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"column_1", "column_2", "column_3"}, tbl.Columns)
	assert.Equal(t, []any{int64(1), nil, "x"}, tbl.Rows[0])
	assert.Equal(t, []any{int64(2), 3.5, nil}, tbl.Rows[1])
}

func TestCSV_NoInference(t *testing.T) {
	path := writeFile(t, "in.csv", "a,b\n01,true\n")
	tbl, err := scanCSV(context.Background(), path, Options{"infer_schema": false})
	require.NoError(t, err)
	assert.Equal(t, []any{"01", "true"}, tbl.Rows[0])
}

func TestCSV_RaggedLines(t *testing.T) {
	path := writeFile(t, "in.csv", "a,b\n1,2,3\n4\n")
	_, err := scanCSV(context.Background(), path, nil)
	assert.Error(t, err)

	tbl, err := scanCSV(context.Background(), path, Options{"truncate_ragged_lines": true})
	require.NoError(t, err)
	assert.Equal(t, []any{int64(1), int64(2)}, tbl.Rows[0])
	assert.Equal(t, []any{int64(4), nil}, tbl.Rows[1])
}

func TestCSV_WriteOptions(t *testing.T) {
	tbl := mustTable(t, []string{"name", "value"},
		[]any{"a,b", 1.25},
		[]any{`say "hi"`, nil},
	)
	dest := filepath.Join(t.TempDir(), "out.csv")
	err := sinkCSV(context.Background(), tbl, dest, Options{
		"include_header":  false,
		"separator":       "|",
		"null_value":      "NULL",
		"float_precision": 1,
	})
	require.NoError(t, err)
	data, _ := os.ReadFile(dest)
	assert.Equal(t, "a,b|1.2\n\"say \"\"hi\"\"\"|NULL\n", string(data))

	err = sinkCSV(context.Background(), tbl, dest, Options{"quote_style": "always"})
	require.NoError(t, err)
	data, _ = os.ReadFile(dest)
	assert.Equal(t, "\"name\",\"value\"\n\"a,b\",\"1.25\"\n\"say \"\"hi\"\"\",\"\"\n", string(data))

	assert.Error(t, sinkCSV(context.Background(), tbl, dest, Options{"quote_style": "never"}))
}

func TestJSON_RoundTripKeepsColumnOrder(t *testing.T) {
	ctx := context.Background()
	path := writeFile(t, "in.ndjson", "{\"z\":1,\"a\":\"x\"}\n{\"a\":\"y\",\"m\":2.5,\"z\":null}\n")

	tbl, err := scanJSON(ctx, path, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"z", "a", "m"}, tbl.Columns)
	assert.Equal(t, []any{int64(1), "x", nil}, tbl.Rows[0])
	assert.Equal(t, []any{nil, "y", 2.5}, tbl.Rows[1])

	dest := filepath.Join(t.TempDir(), "out.json")
	require.NoError(t, sinkJSON(ctx, tbl, dest, nil))
	data, _ := os.ReadFile(dest)
	assert.Equal(t, "{\"z\":1,\"a\":\"x\",\"m\":null}\n{\"z\":null,\"a\":\"y\",\"m\":2.5}\n", string(data))
}

func TestJSON_TopLevelArray(t *testing.T) {
	path := writeFile(t, "in.json", `[{"a":1},{"a":2,"b":"c"}]`)
	tbl, err := scanJSON(context.Background(), path, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, tbl.Columns)
	assert.Equal(t, 2, tbl.Len())
}

func TestYAML_RoundTrip(t *testing.T) {
	ctx := context.Background()
	tbl := mustTable(t, []string{"name", "n", "ok"},
		[]any{"a", 1, true},
		[]any{"b", nil, false},
	)
	dest := filepath.Join(t.TempDir(), "out.yaml")
	require.NoError(t, sinkYAML(ctx, tbl, dest, nil))

	back, err := scanYAML(ctx, dest, nil)
	require.NoError(t, err)
	assert.Equal(t, tbl.Columns, back.Columns)
	assert.Equal(t, tbl.Rows, back.Rows)
}

func TestHTML_ScanTable(t *testing.T) {
	page := `<html><body>
<table id="first"><tr><td>skip</td></tr></table>
<table class="data">
  <tr><th>Country</th><th>Count</th></tr>
  <tr><td> Cyprus </td><td>10</td></tr>
  <tr><td>Malta</td><td></td></tr>
</table></body></html>`
	path := writeFile(t, "page.html", page)

	tbl, err := scanHTML(context.Background(), path, Options{"selector": "table.data"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Country", "Count"}, tbl.Columns)
	assert.Equal(t, []any{"Cyprus", int64(10)}, tbl.Rows[0])
	assert.Equal(t, []any{"Malta", nil}, tbl.Rows[1])

	_, err = scanHTML(context.Background(), path, Options{"index": 5})
	assert.Error(t, err)
}

func TestSQLite_RoundTrip(t *testing.T) {
	ctx := context.Background()
	e := NewEngine(nil)
	tbl := mustTable(t, []string{"id", "name", "score"},
		[]any{1, "a", 1.5},
		[]any{2, nil, 2.5},
	)
	dest := filepath.Join(t.TempDir(), "out.db")

	require.Error(t, e.Write(ctx, tbl.Lazy(), dest, "", nil), "缺少 table 参数应失败")
	require.NoError(t, e.Write(ctx, tbl.Lazy(), dest, "", Options{"table": "scores"}))
	// 默认 replace，重复写入不会累加
	require.NoError(t, e.Write(ctx, tbl.Lazy(), dest, "", Options{"table": "scores"}))

	lf, err := e.Read(ctx, dest, "", Options{"table": "scores"})
	require.NoError(t, err)
	back, err := lf.Collect(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "name", "score"}, back.Columns)
	assert.Equal(t, tbl.Rows, back.Rows)

	require.NoError(t, e.Write(ctx, tbl.Lazy(), dest, "", Options{"table": "scores", "if_exists": "append"}))
	lf, err = e.Read(ctx, dest, "sqlite", Options{"query": "SELECT COUNT(*) AS n FROM scores"})
	require.NoError(t, err)
	back, err = lf.Collect(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(4), back.Rows[0][0])

	assert.Error(t, e.Write(ctx, tbl.Lazy(), dest, "", Options{"table": "scores", "if_exists": "fail"}))
}
