package compiler

import (
	"testing"

	"github.com/leapstack-labs/leapmetrics/pkg/core"
	"github.com/leapstack-labs/leapmetrics/pkg/dialects/bigquery"
	"github.com/leapstack-labs/leapmetrics/pkg/dialects/snowflake"
	"github.com/stretchr/testify/require"
)

var _ Registry = (*testRegistry)(nil)

// testRegistry is a map-backed Registry for compiler tests.
type testRegistry struct {
	views map[string][]*core.Field
	weeks map[string]core.Weekday
}

func newTestRegistry(t *testing.T, views map[string][]core.FieldDef) *testRegistry {
	t.Helper()
	r := &testRegistry{views: make(map[string][]*core.Field), weeks: make(map[string]core.Weekday)}
	for view, defs := range views {
		for _, def := range defs {
			f, err := core.NewField(view, def)
			require.NoError(t, err, "field %s.%s", view, def.Name)
			r.views[view] = append(r.views[view], f)
		}
	}
	return r
}

func (r *testRegistry) ResolveField(name, viewHint string) (core.Selection, error) {
	view, field := core.SplitReference(name)
	if view == "" {
		view = viewHint
	}
	for _, f := range r.views[view] {
		if f.Name() == field {
			return f.Select(), nil
		}
		if m, ok := f.Member(field); ok {
			return m, nil
		}
	}
	return core.Selection{}, &core.ResolutionError{Reference: name, View: view, Reason: "field not found"}
}

func (r *testRegistry) PrimaryKeyOf(view string) (*core.Field, bool) {
	for _, f := range r.views[view] {
		if f.IsPrimaryKey() {
			return f, true
		}
	}
	return nil, false
}

func (r *testRegistry) WeekStartDayOf(view string) core.Weekday {
	if d, ok := r.weeks[view]; ok {
		return d
	}
	return core.Monday
}

// sel resolves key ("view.alias") or fails the test.
func (r *testRegistry) sel(t *testing.T, key string) core.Selection {
	t.Helper()
	s, err := r.ResolveField(key, "")
	require.NoError(t, err)
	return s
}

func pk(name string) core.FieldDef {
	return core.FieldDef{Name: name, FieldType: "dimension", Type: "number", SQL: "${TABLE}." + name, PrimaryKey: "yes"}
}

func dim(name, sql string) core.FieldDef {
	return core.FieldDef{Name: name, FieldType: "dimension", SQL: sql}
}

func measure(name, typ, sql string) core.FieldDef {
	return core.FieldDef{Name: name, FieldType: "measure", Type: typ, SQL: sql}
}

var (
	sf = snowflake.Snowflake
	bq = bigquery.BigQuery
)

// fanOut reaches view through a one_to_many join from orders.
func fanOut(view string) core.JoinContext {
	return core.JoinContext{BaseView: "orders", Joins: []core.Join{{View: view, Relationship: core.OneToMany}}}
}
