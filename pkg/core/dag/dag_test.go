package dag

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LENAX/lazyflow/pkg/core/task"
	"github.com/LENAX/lazyflow/pkg/core/types"
)

func node(id string, kind types.Kind) *task.Node {
	return task.NewNode(id, kind, task.Config{}, nil)
}

func ids(nodes []*task.Node) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.ID
	}
	return out
}

func TestAddNode_Idempotent(t *testing.T) {
	d := NewDAG()
	a := node("a", types.KindRead)
	require.NoError(t, d.AddNode(a))
	require.NoError(t, d.AddNode(a))
	assert.Equal(t, 1, d.Len())

	err := d.AddNode(node("a", types.KindRead))
	assert.ErrorIs(t, err, types.ErrStructural)
	assert.Equal(t, 1, d.Len())

	assert.ErrorIs(t, d.AddNode(nil), types.ErrStructural)
}

func TestAddEdge_InsertsEndpointsAndLinks(t *testing.T) {
	d := NewDAG()
	r := node("r", types.KindRead)
	f := node("f", types.KindTransform)
	require.NoError(t, d.AddEdge(r, f))

	assert.Equal(t, 2, d.Len())
	assert.Equal(t, []string{"f"}, r.Children)
	assert.Equal(t, []string{"r"}, f.Parents)

	children, err := d.Children("r")
	require.NoError(t, err)
	assert.Equal(t, []string{"f"}, ids(children))
}

func TestAddEdge_SelfSuccessorRejected(t *testing.T) {
	d := NewDAG()
	f := node("f", types.KindTransform)
	err := d.AddEdge(f, f)
	assert.ErrorIs(t, err, types.ErrStructural)
	assert.Empty(t, f.Parents)
	assert.Empty(t, f.Children)
	assert.Equal(t, 0, d.Len())
}

func TestAddEdge_DuplicateAndArity(t *testing.T) {
	d := NewDAG()
	r1 := node("r1", types.KindRead)
	r2 := node("r2", types.KindRead)
	r3 := node("r3", types.KindRead)
	f := node("f", types.KindTransform)
	m := node("m", types.KindMerge)

	require.NoError(t, d.AddEdge(r1, f))
	assert.ErrorIs(t, d.AddEdge(r1, f), types.ErrStructural, "重复边")
	assert.ErrorIs(t, d.AddEdge(r2, f), types.ErrStructural, "transform 只能有一个父节点")
	assert.ErrorIs(t, d.AddEdge(f, r3), types.ErrStructural, "read 不能有父节点")

	require.NoError(t, d.AddEdge(f, m))
	require.NoError(t, d.AddEdge(r2, m))
	assert.ErrorIs(t, d.AddEdge(r3, m), types.ErrStructural, "merge 最多两个父节点")
	assert.Equal(t, []string{"f", "r2"}, m.Parents)
}

func TestAddEdge_ConflictingIDLeavesNoHalfEdge(t *testing.T) {
	d := NewDAG()
	r := node("r", types.KindRead)
	require.NoError(t, d.AddNode(r))

	impostor := node("r", types.KindRead)
	f := node("f", types.KindTransform)
	assert.ErrorIs(t, d.AddEdge(impostor, f), types.ErrStructural)
	assert.Empty(t, f.Parents)
	assert.Equal(t, 1, d.Len())
}

func TestFindCycles(t *testing.T) {
	d := NewDAG()
	a := node("a", types.KindTransform)
	b := node("b", types.KindTransform)
	c := node("c", types.KindTransform)
	require.NoError(t, d.AddEdge(a, b))
	require.NoError(t, d.AddEdge(b, c))
	assert.False(t, d.HasCycle())
	assert.Nil(t, d.FindCycles())

	require.NoError(t, d.AddEdge(c, a))
	assert.True(t, d.HasCycle())
	require.NotNil(t, d.FindCycles())
	assert.Equal(t, "a", d.FindCycles().ID)
	assert.Equal(t, []string{"a", "b", "c", "a"}, d.CyclePath())

	_, err := d.Levels()
	assert.ErrorIs(t, err, types.ErrCycle)
	_, err = d.Ancestors("c")
	assert.Error(t, err)
}

func TestRootsLeavesOrphans(t *testing.T) {
	d := NewDAG()
	r := node("r", types.KindRead)
	w := node("w", types.KindWrite)
	lonely := node("lonely", types.KindRead)
	require.NoError(t, d.AddNode(lonely))
	require.NoError(t, d.AddEdge(r, w))

	assert.Equal(t, []string{"lonely", "r"}, ids(d.Roots()))
	assert.Equal(t, []string{"lonely", "w"}, ids(d.Leaves()))
	assert.Equal(t, []string{"lonely"}, ids(d.FindOrphanNodes()))
}

func diamond(t *testing.T) *DAG {
	t.Helper()
	d := NewDAG()
	r1 := node("r1", types.KindRead)
	r2 := node("r2", types.KindRead)
	f := node("f", types.KindTransform)
	m := node("m", types.KindMerge)
	w := node("w", types.KindWrite)
	require.NoError(t, d.AddEdge(r1, f))
	require.NoError(t, d.AddEdge(f, m))
	require.NoError(t, d.AddEdge(r2, m))
	require.NoError(t, d.AddEdge(m, w))
	return d
}

func TestLevels(t *testing.T) {
	d := diamond(t)
	levels, err := d.Levels()
	require.NoError(t, err)
	require.Len(t, levels, 4)
	assert.Equal(t, []string{"r1", "r2"}, ids(levels[0]))
	assert.Equal(t, []string{"f"}, ids(levels[1]))
	assert.Equal(t, []string{"m"}, ids(levels[2]))
	assert.Equal(t, []string{"w"}, ids(levels[3]))
}

func TestAncestors(t *testing.T) {
	d := diamond(t)
	anc, err := d.Ancestors("m")
	require.NoError(t, err)
	assert.Equal(t, []string{"r1", "f", "m", "r2"}, ids(anc))

	anc, err = d.Ancestors("r2")
	require.NoError(t, err)
	assert.Equal(t, []string{"r2"}, ids(anc))

	_, err = d.Ancestors("missing")
	assert.ErrorIs(t, err, types.ErrStructural)
}

func TestValidateAndFreeze(t *testing.T) {
	d := NewDAG()
	m := node("m", types.KindMerge)
	require.NoError(t, d.AddEdge(node("r", types.KindRead), m))
	assert.ErrorIs(t, d.Validate(), types.ErrStructural)

	require.True(t, d.Freeze())
	assert.False(t, d.Freeze())
	assert.ErrorIs(t, d.AddNode(node("x", types.KindRead)), types.ErrStructural)
	assert.ErrorIs(t, d.AddEdge(node("y", types.KindRead), m), types.ErrStructural)
	d.Unfreeze()
	require.NoError(t, d.AddEdge(node("r2", types.KindRead), m))
	assert.NoError(t, d.Validate())
}
