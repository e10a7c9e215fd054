package dag

import (
	"errors"
	"testing"

	"github.com/leapstack-labs/leapmetrics/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mapResolver resolves "view.field" or hint-relative names against fields.
type mapResolver map[string]*core.Field

func (m mapResolver) ResolveField(name, viewHint string) (core.Selection, error) {
	view, field := core.SplitReference(name)
	if view == "" {
		view = viewHint
	}
	for _, f := range m {
		if f.View() != view {
			continue
		}
		if f.Name() == field {
			return f.Select(), nil
		}
		if sel, ok := f.Member(field); ok {
			return sel, nil
		}
	}
	return core.Selection{}, &core.ResolutionError{Reference: name, View: view, Reason: "field not found"}
}

func buildFields(t *testing.T, view string, defs ...core.FieldDef) ([]*core.Field, mapResolver) {
	t.Helper()
	r := mapResolver{}
	fields := make([]*core.Field, 0, len(defs))
	for _, def := range defs {
		f, err := core.NewField(view, def)
		require.NoError(t, err)
		fields = append(fields, f)
		r[f.Key()] = f
	}
	return fields, r
}

func dim(name, sql string) core.FieldDef {
	return core.FieldDef{Name: name, FieldType: "dimension", SQL: sql}
}

func chain(t *testing.T) *Graph {
	t.Helper()
	g := NewGraph()
	for _, id := range []string{"a", "b", "c", "d"} {
		g.AddNode(id, nil)
	}
	// b references a, c references b, d references a and c
	require.NoError(t, g.AddEdge("a", "b"))
	require.NoError(t, g.AddEdge("b", "c"))
	require.NoError(t, g.AddEdge("a", "d"))
	require.NoError(t, g.AddEdge("c", "d"))
	return g
}

func TestGraph_AddNodeAndEdge(t *testing.T) {
	g := chain(t)
	assert.Equal(t, 4, g.NodeCount())
	assert.Equal(t, 4, g.EdgeCount())

	require.NoError(t, g.AddEdge("a", "b"))
	assert.Equal(t, 4, g.EdgeCount(), "duplicate edge is ignored")

	assert.Equal(t, []string{"a", "c"}, g.GetParents("d"))
	assert.Equal(t, []string{"b", "d"}, g.GetChildren("a"))
}

func TestGraph_AddEdgeErrors(t *testing.T) {
	g := NewGraph()
	g.AddNode("a", nil)

	assert.Error(t, g.AddEdge("a", "missing"))
	assert.Error(t, g.AddEdge("missing", "a"))

	var cycleErr *core.CycleError
	require.True(t, errors.As(g.AddEdge("a", "a"), &cycleErr))
	assert.Equal(t, []string{"a", "a"}, cycleErr.Path)
}

func TestGraph_HasCycle(t *testing.T) {
	g := chain(t)
	has, path := g.HasCycle()
	assert.False(t, has)
	assert.Nil(t, path)

	require.NoError(t, g.AddEdge("d", "b"))
	has, path = g.HasCycle()
	require.True(t, has)
	assert.Equal(t, []string{"b", "c", "d", "b"}, path)
}

func TestGraph_TopologicalSort(t *testing.T) {
	g := chain(t)
	nodes, err := g.TopologicalSort()
	require.NoError(t, err)

	ids := make([]string, 0, len(nodes))
	for _, n := range nodes {
		ids = append(ids, n.ID)
	}
	assert.Equal(t, []string{"a", "b", "c", "d"}, ids)

	require.NoError(t, g.AddEdge("d", "a"))
	_, err = g.TopologicalSort()
	var cycleErr *core.CycleError
	assert.True(t, errors.As(err, &cycleErr))
}

func TestGraph_UpstreamAndAffected(t *testing.T) {
	g := chain(t)
	assert.Equal(t, []string{"a", "b", "c"}, g.GetUpstreamNodes("d"))
	assert.Empty(t, g.GetUpstreamNodes("a"))
	assert.Equal(t, []string{"b", "c", "d"}, g.GetAffectedNodes([]string{"b", "missing"}))
	assert.Equal(t, []string{"a"}, g.GetRoots())
}

func TestGraph_Cycles(t *testing.T) {
	g := NewGraph()
	for _, id := range []string{"a", "b", "c", "x", "y", "z"} {
		g.AddNode(id, nil)
	}
	require.NoError(t, g.AddEdge("a", "b"))
	require.NoError(t, g.AddEdge("b", "c"))
	require.NoError(t, g.AddEdge("c", "a"))
	require.NoError(t, g.AddEdge("y", "x"))
	require.NoError(t, g.AddEdge("x", "y"))
	require.NoError(t, g.AddEdge("c", "z"))

	cycles := g.Cycles()
	require.Len(t, cycles, 2)
	assert.Equal(t, []string{"a", "b", "c", "a"}, cycles[0].Path)
	assert.Equal(t, []string{"x", "y", "x"}, cycles[1].Path)
}

func TestBuild(t *testing.T) {
	fields, r := buildFields(t, "orders",
		core.FieldDef{Name: "id", FieldType: "dimension", Type: "number", SQL: "${TABLE}.id", PrimaryKey: "yes"},
		dim("net", "${gross} - ${tax}"),
		dim("gross", "${TABLE}.gross"),
		dim("tax", "${TABLE}.tax"),
		core.FieldDef{Name: "created", FieldType: "dimension_group", Type: "time", SQL: "${TABLE}.created_at", Timeframes: []string{"date"}},
		core.FieldDef{Name: "waiting", FieldType: "dimension_group", Type: "duration", SQLStart: "${created_date}", SQLEnd: "${TABLE}.shipped_at"},
		core.FieldDef{Name: "total_net", FieldType: "measure", Type: "sum", SQL: "${net}"},
	)

	g, err := Build(fields, r)
	require.NoError(t, err)
	assert.Equal(t, 7, g.NodeCount())
	assert.Equal(t, []string{"orders.gross", "orders.tax"}, g.GetParents("orders.net"))
	assert.Equal(t, []string{"orders.created"}, g.GetParents("orders.waiting"))
	assert.Equal(t, []string{"orders.gross", "orders.net", "orders.tax"}, g.GetUpstreamNodes("orders.total_net"))

	n, ok := g.GetNode("orders.net")
	require.True(t, ok)
	assert.Equal(t, "net", n.Field.Name())
}

func TestBuild_Errors(t *testing.T) {
	fields, r := buildFields(t, "loop",
		dim("a", "${b} + 1"),
		dim("b", "${a} + 1"),
		dim("self", "${self}"),
		dim("broken", "${nowhere.field}"),
	)

	g, err := Build(fields, r)
	require.Error(t, err)

	var resolveErr *core.ResolutionError
	assert.True(t, errors.As(err, &resolveErr))
	var fieldErr *FieldError
	require.True(t, errors.As(err, &fieldErr))
	assert.Equal(t, "loop.broken", fieldErr.Field)

	var cycleErr *core.CycleError
	require.True(t, errors.As(err, &cycleErr))
	assert.Equal(t, []string{"loop.self", "loop.self"}, cycleErr.Path)

	cycles := g.Cycles()
	require.Len(t, cycles, 1)
	assert.Equal(t, []string{"loop.a", "loop.b", "loop.a"}, cycles[0].Path)
}
