package core

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewField_Templates(t *testing.T) {
	tests := []struct {
		name string
		def  FieldDef
		want string
	}{
		{
			name: "plain sql lowercases references",
			def:  FieldDef{Name: "Total", FieldType: "dimension", Type: "number", SQL: "${TABLE}.total + ${Orders.Tax}"},
			want: "${TABLE}.total + ${orders.tax}",
		},
		{
			name: "tier",
			def:  FieldDef{Name: "order_tier", FieldType: "dimension", Type: "tier", SQL: "${TABLE}.total", Tiers: []float64{0, 100, 200}},
			want: "CASE WHEN ${TABLE}.total < 0 THEN 'Below 0' WHEN ${TABLE}.total >= 0 AND ${TABLE}.total < 100 THEN '[0,100)' WHEN ${TABLE}.total >= 100 AND ${TABLE}.total < 200 THEN '[100,200)' WHEN ${TABLE}.total >= 200 THEN '[200,inf)' ELSE 'Unknown' END",
		},
		{
			name: "case without sql",
			def: FieldDef{Name: "segment", FieldType: "dimension", Case: &CaseDef{
				Whens: []CaseWhenDef{{SQL: `${Channel} = "web"`, Label: "Online"}},
				Else:  "Offline",
			}},
			want: "CASE WHEN ${channel} = 'web' THEN 'Online' ELSE 'Offline' END",
		},
		{
			name: "filtered measure",
			def: FieldDef{Name: "web_revenue", FieldType: "measure", Type: "sum", SQL: "${TABLE}.revenue",
				Filters: []FilterDef{{Field: "channel", Value: "web"}}},
			want: "CASE WHEN ${channel} = 'web' THEN ${TABLE}.revenue END",
		},
		{
			name: "count without sql",
			def:  FieldDef{Name: "number_of_orders", FieldType: "measure", Type: "count"},
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := NewField("orders", tt.def)
			require.NoError(t, err)
			assert.Equal(t, tt.want, f.Template())
		})
	}
}

func TestNewField_Defaults(t *testing.T) {
	f, err := NewField("orders", FieldDef{Name: "Status", FieldType: "Dimension", SQL: "${TABLE}.status"})
	require.NoError(t, err)
	assert.Equal(t, "status", f.Name())
	assert.Equal(t, "orders.status", f.Key())
	assert.Equal(t, KindDimension, f.Kind())
	assert.Equal(t, TypeString, f.Type())
	assert.False(t, f.IsPrimaryKey())
	assert.False(t, f.IsHidden())

	c, err := NewField("orders", FieldDef{Name: "n", FieldType: "measure", Type: "count"})
	require.NoError(t, err)
	assert.True(t, c.IsPrimaryKeyCount())

	done := &CaseDef{Whens: []CaseWhenDef{{SQL: "${TABLE}.status = 'done'", Label: "done"}}}
	for _, typ := range []string{"count", "sum"} {
		cased, err := NewField("orders", FieldDef{Name: "done_" + typ, FieldType: "measure", Type: typ, Case: done})
		require.NoError(t, err, typ)
		assert.False(t, cased.IsPrimaryKeyCount(), typ)
		assert.Equal(t, "CASE WHEN ${TABLE}.status = 'done' THEN 'done' END", cased.Template(), typ)
	}

	d, err := NewField("orders", FieldDef{Name: "waiting", FieldType: "dimension_group", Type: "duration",
		SQLStart: "${TABLE}.created_at", SQLEnd: "${TABLE}.shipped_at"})
	require.NoError(t, err)
	assert.Equal(t, AllUnits, d.Intervals())
}

func TestNewField_Errors(t *testing.T) {
	tests := []struct {
		name     string
		def      FieldDef
		wantAttr string
	}{
		{"missing name", FieldDef{FieldType: "dimension", SQL: "x"}, "name"},
		{"missing field_type", FieldDef{Name: "a", SQL: "x"}, "field_type"},
		{"unknown field_type", FieldDef{Name: "a", FieldType: "metric", SQL: "x"}, "field_type"},
		{"bad primary_key", FieldDef{Name: "a", FieldType: "dimension", SQL: "x", PrimaryKey: "maybe"}, "primary_key"},
		{"measure needs aggregate", FieldDef{Name: "a", FieldType: "measure", Type: "string", SQL: "x"}, "type"},
		{"sum needs sql", FieldDef{Name: "a", FieldType: "measure", Type: "sum"}, "sql"},
		{"dimension needs sql", FieldDef{Name: "a", FieldType: "dimension"}, "sql"},
		{"time group needs sql", FieldDef{Name: "a", FieldType: "dimension_group", Type: "time"}, "sql"},
		{"unknown timeframe", FieldDef{Name: "a", FieldType: "dimension_group", Type: "time", SQL: "x", Timeframes: []string{"decade"}}, "timeframes"},
		{"group type", FieldDef{Name: "a", FieldType: "dimension_group", Type: "string", SQL: "x"}, "type"},
		{"sql and range", FieldDef{Name: "a", FieldType: "dimension_group", Type: "duration", SQL: "x", SQLStart: "s", SQLEnd: "e"}, "sql"},
		{"unsorted tiers", FieldDef{Name: "a", FieldType: "dimension", Type: "tier", SQL: "x", Tiers: []float64{10, 5}}, "tiers"},
		{"duplicate tiers", FieldDef{Name: "a", FieldType: "dimension", Type: "tier", SQL: "x", Tiers: []float64{1, 1}}, "tiers"},
		{"empty tiers", FieldDef{Name: "a", FieldType: "dimension", Type: "tier", SQL: "x"}, "tiers"},
		{"filter without field", FieldDef{Name: "a", FieldType: "measure", Type: "sum", SQL: "x", Filters: []FilterDef{{Value: "v"}}}, "filters"},
		{"case when without label", FieldDef{Name: "a", FieldType: "dimension", Case: &CaseDef{Whens: []CaseWhenDef{{SQL: "x"}}}}, "case"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewField("orders", tt.def)
			var defErr *DefinitionError
			require.True(t, errors.As(err, &defErr), "expected DefinitionError, got %v", err)
			assert.Equal(t, tt.wantAttr, defErr.Attribute)
		})
	}
}

func TestNewField_DurationNeedsBothEnds(t *testing.T) {
	_, err := NewField("orders", FieldDef{Name: "waiting", FieldType: "dimension_group", Type: "duration", SQLStart: "${TABLE}.a"})
	var shapeErr *ShapeError
	require.True(t, errors.As(err, &shapeErr))
	assert.Equal(t, "waiting", shapeErr.Field)
}

func TestSelection_AliasAndLabel(t *testing.T) {
	created, err := NewField("orders", FieldDef{Name: "created", FieldType: "dimension_group", Type: "time",
		SQL: "${TABLE}.created_at", Timeframes: []string{"date", "week", "hour_of_day"}})
	require.NoError(t, err)

	members := created.Members()
	require.Len(t, members, 3)
	assert.Equal(t, "created_date", members[0].Alias())
	assert.Equal(t, "orders.created_week", members[1].Key())
	assert.Equal(t, "Created Hour Of Day", members[2].Label())

	waiting, err := NewField("orders", FieldDef{Name: "waiting", FieldType: "dimension_group", Type: "duration",
		SQLStart: "${TABLE}.a", SQLEnd: "${TABLE}.b", Intervals: []string{"day", "week"}})
	require.NoError(t, err)

	m, ok := waiting.Member("days_waiting")
	require.True(t, ok)
	assert.Equal(t, UnitDays, m.Unit)
	assert.Equal(t, "Days Waiting", m.Label())

	_, ok = waiting.Member("hours_waiting")
	assert.False(t, ok)

	labelled, err := NewField("orders", FieldDef{Name: "total", FieldType: "dimension", SQL: "x", Label: "Order Total ($)"})
	require.NoError(t, err)
	assert.Equal(t, "Order Total ($)", labelled.Select().Label())
	assert.Equal(t, "total", labelled.Select().Alias())
	assert.Nil(t, labelled.Members())
}
