package frame

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func joinFixtures(t *testing.T) (*Table, *Table) {
	left := mustTable(t, []string{"id", "name"},
		[]any{1, "alice"},
		[]any{2, "bob"},
		[]any{nil, "ghost"},
		[]any{3, "carol"},
	)
	right := mustTable(t, []string{"id", "name", "score"},
		[]any{2, "B", 20},
		[]any{3, "C", 30},
		[]any{3, "C2", 31},
		[]any{4, "D", 40},
		[]any{nil, "N", 0},
	)
	return left, right
}

func TestJoin_Left(t *testing.T) {
	left, right := joinFixtures(t)
	out, err := left.Lazy().Join(right.Lazy(), []string{"id"}, JoinLeft).Collect(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"id", "name", "name_right", "score"}, out.Columns)
	require.Equal(t, 5, out.Len())
	assert.Equal(t, []any{int64(1), "alice", nil, nil}, out.Rows[0])
	assert.Equal(t, []any{int64(2), "bob", "B", int64(20)}, out.Rows[1])
	// null 键不匹配任何行
	assert.Equal(t, []any{nil, "ghost", nil, nil}, out.Rows[2])
	assert.Equal(t, "C", out.Rows[3][2])
	assert.Equal(t, "C2", out.Rows[4][2])
}

func TestJoin_Inner(t *testing.T) {
	left, right := joinFixtures(t)
	out, err := left.Lazy().Join(right.Lazy(), []string{"id"}, JoinInner).Collect(context.Background())
	require.NoError(t, err)
	ids, _ := out.Column("id")
	assert.Equal(t, []any{int64(2), int64(3), int64(3)}, ids)
}

func TestJoin_Outer(t *testing.T) {
	left, right := joinFixtures(t)
	out, err := left.Lazy().Join(right.Lazy(), []string{"id"}, JoinOuter).Collect(context.Background())
	require.NoError(t, err)
	require.Equal(t, 7, out.Len())
	// 右表未匹配行：键列合并，左表其余列为 null
	assert.Equal(t, []any{int64(4), nil, "D", int64(40)}, out.Rows[5])
	assert.Equal(t, []any{nil, nil, "N", int64(0)}, out.Rows[6])
}

func TestJoin_SemiAnti(t *testing.T) {
	left, right := joinFixtures(t)
	ctx := context.Background()

	semi, err := left.Lazy().Join(right.Lazy(), []string{"id"}, JoinSemi).Collect(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "name"}, semi.Columns)
	names, _ := semi.Column("name")
	assert.Equal(t, []any{"bob", "carol"}, names)

	anti, err := left.Lazy().Join(right.Lazy(), []string{"id"}, JoinAnti).Collect(ctx)
	require.NoError(t, err)
	names, _ = anti.Column("name")
	assert.Equal(t, []any{"alice", "ghost"}, names)
}

func TestJoin_RightRejectedByEngine(t *testing.T) {
	left, right := joinFixtures(t)
	e := NewEngine(nil)
	_, err := e.Join(left.Lazy(), right.Lazy(), []string{"id"}, JoinRight)
	assert.ErrorIs(t, err, ErrUnsupportedJoin)

	_, err = e.Join(left.Lazy(), right.Lazy(), nil, JoinLeft)
	assert.Error(t, err)
}

func TestJoin_MissingKey(t *testing.T) {
	left, right := joinFixtures(t)
	_, err := left.Lazy().Join(right.Lazy(), []string{"score"}, JoinLeft).Collect(context.Background())
	assert.ErrorIs(t, err, ErrColumnNotFound)
}

func TestJoin_NumericKeysAcrossTypes(t *testing.T) {
	left := mustTable(t, []string{"k", "a"}, []any{1.0, "x"})
	right := mustTable(t, []string{"k", "b"}, []any{int64(1), "y"})
	out, err := left.Lazy().Join(right.Lazy(), []string{"k"}, JoinInner).Collect(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, out.Len())
	assert.Equal(t, "y", out.Rows[0][2])
}

func TestParseJoinHow(t *testing.T) {
	h, err := ParseJoinHow("")
	require.NoError(t, err)
	assert.Equal(t, JoinLeft, h)

	h, err = ParseJoinHow("FULL")
	require.NoError(t, err)
	assert.Equal(t, JoinOuter, h)

	_, err = ParseJoinHow("cross")
	assert.ErrorIs(t, err, ErrUnsupportedJoin)
}
