// Package testutil provides test utilities for CLI testing.
package testutil

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/leapstack-labs/leapmetrics/internal/cli/output"
	"github.com/leapstack-labs/leapmetrics/internal/testutil"
)

// OrdersView is a view with a primary key, a time group, a duration group
// and measures.
const OrdersView = `name: orders
sql_table_name: analytics.orders
week_start_day: sunday
fields:
  - name: id
    field_type: dimension
    type: number
    sql: ${TABLE}.id
    primary_key: yes
  - name: customer_id
    field_type: dimension
    type: number
    sql: ${TABLE}.customer_id
    hidden: true
  - name: created
    field_type: dimension_group
    type: time
    sql: ${TABLE}.created_at
    timeframes: [date, week]
  - name: waiting
    field_type: dimension_group
    type: duration
    sql_start: ${TABLE}.created_at
    sql_end: ${TABLE}.shipped_at
    intervals: [day]
  - name: total_revenue
    field_type: measure
    type: sum
    sql: ${TABLE}.revenue
  - name: number_of_orders
    field_type: measure
    type: count
  - name: revenue_per_order
    field_type: measure
    type: number
    sql: ${total_revenue} / NULLIF(${number_of_orders}, 0)
`

// CustomersView is a view that references orders.
const CustomersView = `name: customers
fields:
  - name: id
    field_type: dimension
    type: number
    sql: ${TABLE}.id
    primary_key: yes
  - name: region
    field_type: dimension
    sql: ${TABLE}.region
  - name: region_label
    field_type: dimension
    sql: UPPER(${region})
`

// SetupTestProject creates a temporary project with a leapmetrics.yaml and
// the orders and customers views. Extra files (relative path to content)
// are written on top.
func SetupTestProject(t *testing.T, extra map[string]string) string {
	t.Helper()

	dir := t.TempDir()
	files := map[string]string{
		"leapmetrics.yaml":          "views_dir: views\ndialect: snowflake\n",
		"views/orders.view.yml":     OrdersView,
		"views/sales/customers.yml": CustomersView,
	}
	for k, v := range extra {
		files[k] = v
	}
	testutil.WriteFiles(t, dir, files)
	return dir
}

// ViewsDir returns the views directory of a project made by SetupTestProject.
func ViewsDir(projectDir string) string {
	return filepath.Join(projectDir, "views")
}

// TestRenderer wraps a Renderer for testing with captured output buffers.
type TestRenderer struct {
	*output.Renderer
	Out    *bytes.Buffer
	ErrOut *bytes.Buffer
}

// NewTestRenderer creates a new test renderer with the specified mode.
// Output is captured in buffers for inspection.
func NewTestRenderer(mode output.Mode) *TestRenderer {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	return &TestRenderer{
		Renderer: output.NewRenderer(out, errOut, mode),
		Out:      out,
		ErrOut:   errOut,
	}
}

// Output returns the stdout output as a string.
func (tr *TestRenderer) Output() string {
	return tr.Out.String()
}

// ErrorOutput returns the stderr output as a string.
func (tr *TestRenderer) ErrorOutput() string {
	return tr.ErrOut.String()
}

// Reset clears both output buffers.
func (tr *TestRenderer) Reset() {
	tr.Out.Reset()
	tr.ErrOut.Reset()
}
