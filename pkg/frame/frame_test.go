package frame

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const customersCSV = "testdata/customers.csv"

func mustTable(t *testing.T, columns []string, rows ...[]any) *Table {
	t.Helper()
	tbl, err := NewTable(columns, rows)
	require.NoError(t, err)
	return tbl
}

func TestEngine_ReadFilterLimitCollect(t *testing.T) {
	ctx := context.Background()
	e := NewEngine(nil)

	lf, err := e.Read(ctx, customersCSV, "", nil)
	require.NoError(t, err)

	all, err := lf.Collect(ctx)
	require.NoError(t, err)
	assert.Equal(t, 50, all.Len())
	assert.Equal(t, "Index", all.Columns[0])
	assert.Equal(t, int64(1), all.Rows[0][0])

	cyprus, err := e.Transform(lf, FilterOp{Predicate: Col("Country").Eq("Cyprus")})
	require.NoError(t, err)
	limited, err := e.Transform(cyprus, LimitOp{N: 3})
	require.NoError(t, err)

	out, err := limited.Collect(ctx)
	require.NoError(t, err)
	require.Equal(t, 3, out.Len())
	country, err := out.Column("Country")
	require.NoError(t, err)
	for _, v := range country {
		assert.Equal(t, "Cyprus", v)
	}

	// 原计划不受下游变换影响
	again, err := lf.Collect(ctx)
	require.NoError(t, err)
	assert.Equal(t, 50, again.Len())
}

func TestEngine_ReadMissingSource(t *testing.T) {
	e := NewEngine(nil)
	_, err := e.Read(context.Background(), filepath.Join(t.TempDir(), "nope.csv"), "", nil)
	assert.ErrorIs(t, err, ErrSourceNotFound)
}

func TestEngine_ReadUnsupportedFormat(t *testing.T) {
	e := NewEngine(nil)
	_, err := e.Read(context.Background(), "data.xlsx", "", nil)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = e.Read(context.Background(), customersCSV, "parquet", nil)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestEngine_ReadRowsAndRowIndex(t *testing.T) {
	ctx := context.Background()
	e := NewEngine(nil)
	lf, err := e.Read(ctx, customersCSV, "csv", Options{"n_rows": 5, "row_index_name": "row_nr", "row_index_offset": 10})
	require.NoError(t, err)

	out, err := lf.Collect(ctx)
	require.NoError(t, err)
	require.Equal(t, 5, out.Len())
	assert.Equal(t, "row_nr", out.Columns[0])
	assert.Equal(t, int64(10), out.Rows[0][0])
	assert.Equal(t, int64(14), out.Rows[4][0])
}

func TestEngine_WriteCreatesDirectories(t *testing.T) {
	ctx := context.Background()
	e := NewEngine(nil)
	tbl := mustTable(t, []string{"id", "name"}, []any{1, "a"}, []any{2, nil})

	dest := filepath.Join(t.TempDir(), "nested", "dir", "out.csv")
	require.NoError(t, e.Write(ctx, tbl.Lazy(), dest, "", nil))

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "id,name\n1,a\n2,\n", string(data))
}

func TestEngine_WriteReadOnlyFormat(t *testing.T) {
	e := NewEngine(nil)
	tbl := mustTable(t, []string{"id"}, []any{1})
	err := e.Write(context.Background(), tbl.Lazy(), filepath.Join(t.TempDir(), "out.html"), "", nil)
	assert.ErrorIs(t, err, ErrReadOnlyFormat)
}

func TestLazyFrame_SelectSort(t *testing.T) {
	ctx := context.Background()
	tbl := mustTable(t, []string{"name", "score", "city"},
		[]any{"a", 3, "x"},
		[]any{"b", nil, "y"},
		[]any{"c", 1, "z"},
		[]any{"d", 3, "w"},
	)

	out, err := tbl.Lazy().
		Sort([]SortKey{{Column: "score", Descending: true}}, true).
		Select("name", "score").
		Collect(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"name", "score"}, out.Columns)

	names, _ := out.Column("name")
	// 稳定排序：同分保持原顺序，null 排最后
	assert.Equal(t, []any{"a", "d", "c", "b"}, names)

	out, err = tbl.Lazy().Sort([]SortKey{{Column: "score"}}, false).Collect(ctx)
	require.NoError(t, err)
	names, _ = out.Column("name")
	assert.Equal(t, []any{"b", "c", "a", "d"}, names)
}

func TestLazyFrame_MissingColumn(t *testing.T) {
	ctx := context.Background()
	tbl := mustTable(t, []string{"a"}, []any{1})

	_, err := tbl.Lazy().Select("b").Collect(ctx)
	assert.ErrorIs(t, err, ErrColumnNotFound)

	_, err = tbl.Lazy().Filter(Col("b").Eq(1)).Collect(ctx)
	assert.ErrorIs(t, err, ErrColumnNotFound)
}

func TestLazyFrame_Explain(t *testing.T) {
	tbl := mustTable(t, []string{"a"}, []any{1})
	plan := tbl.Lazy().Filter(Col("a").Gt(0)).Limit(1).Explain()
	assert.Contains(t, plan, "LIMIT 1")
	assert.Contains(t, plan, "FILTER")
	assert.Contains(t, plan, "TABLE")
}

func TestOps_Validation(t *testing.T) {
	e := NewEngine(nil)
	lf := mustTable(t, []string{"a"}, []any{1}).Lazy()

	_, err := e.Transform(lf, LimitOp{N: -1})
	assert.Error(t, err)
	_, err = e.Transform(lf, SelectOp{})
	assert.Error(t, err)
	_, err = e.Transform(lf, SortOp{})
	assert.Error(t, err)
	_, err = e.Transform(lf, FilterOp{})
	assert.ErrorIs(t, err, ErrInvalidExpression)
	_, err = e.Transform(nil, LimitOp{N: 1})
	assert.Error(t, err)
}

func TestNewFormats_Duplicate(t *testing.T) {
	_, err := NewFormats(CSVFormat(), CSVFormat())
	assert.Error(t, err)

	fs, err := NewFormats(CSVFormat(), JSONFormat())
	require.NoError(t, err)
	assert.Equal(t, []string{"csv", "json"}, fs.Names())

	f, err := fs.Resolve("x.JSONL", "")
	require.NoError(t, err)
	assert.Equal(t, "json", f.Name)
	_, err = fs.Resolve("x.yaml", "")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestCompareAndEqual(t *testing.T) {
	assert.Equal(t, 0, Compare(1, 1.0))
	assert.Equal(t, -1, Compare(nil, 0))
	assert.Equal(t, 1, Compare("b", "a"))
	assert.True(t, Equal(int32(5), int64(5)))
	assert.False(t, Equal(nil, 0))
	assert.True(t, Equal(nil, nil))
}
