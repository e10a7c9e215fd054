package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	clitestutil "github.com/leapstack-labs/leapmetrics/internal/cli/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append([]string{"--config", filepath.Join(dir, "leapmetrics.yaml")}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestRootCommand(t *testing.T) {
	dir := clitestutil.SetupTestProject(t, nil)

	tests := []struct {
		name     string
		args     []string
		contains []string
		excludes []string
	}{
		{
			name:     "compile measure",
			args:     []string{"compile", "orders.total_revenue"},
			contains: []string{"-- orders.total_revenue (snowflake)", "SUM(orders.revenue)"},
		},
		{
			name:     "compile week with sunday start",
			args:     []string{"compile", "orders.created_week"},
			contains: []string{"DATE_TRUNC('WEEK', orders.created_at + 1) - 1"},
		},
		{
			name:     "compile number measure",
			args:     []string{"compile", "orders.revenue_per_order"},
			contains: []string{"SUM(orders.revenue) / NULLIF(COUNT(orders.id), 0)"},
		},
		{
			name:     "compile fan-out for bigquery",
			args:     []string{"compile", "orders.total_revenue", "--dialect", "bigquery", "--base-view", "customers"},
			contains: []string{"(bigquery)", "FARM_FINGERPRINT(orders.id)"},
		},
		{
			name:     "list skips hidden",
			args:     []string{"list"},
			contains: []string{"orders.created_week", "customers.region_label"},
			excludes: []string{"orders.customer_id"},
		},
		{
			name:     "list shows hidden",
			args:     []string{"list", "--view", "orders", "--show-hidden"},
			contains: []string{"orders.customer_id"},
			excludes: []string{"customers.region"},
		},
		{
			name:     "views",
			args:     []string{"views"},
			contains: []string{"orders", "customers", "sunday"},
		},
		{
			name:     "validate",
			args:     []string{"validate"},
			contains: []string{"All fields compile"},
		},
		{
			name:     "dialects",
			args:     []string{"dialects"},
			contains: []string{"snowflake (configured)", "bigquery"},
		},
		{
			name:     "version",
			args:     []string{"version"},
			contains: []string{"leapmetrics v" + Version, "commit: " + GitCommit, "dialects: bigquery, snowflake"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := run(t, dir, tt.args...)
			require.NoError(t, err)
			for _, s := range tt.contains {
				assert.Contains(t, out, s)
			}
			for _, s := range tt.excludes {
				assert.NotContains(t, out, s)
			}
		})
	}
}

func TestRootCommand_JSON(t *testing.T) {
	dir := clitestutil.SetupTestProject(t, nil)

	out, err := run(t, dir, "compile", "orders.days_waiting", "--output", "json")
	require.NoError(t, err)

	var records []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &records))
	require.Len(t, records, 1)
	assert.Equal(t, "days_waiting", records[0]["alias"])
	assert.Equal(t, "DATEDIFF('DAY', orders.created_at, orders.shipped_at)", records[0]["sql"])
	assert.Equal(t, []any{"orders"}, records[0]["required_views"])
}

func TestRootCommand_Errors(t *testing.T) {
	dir := clitestutil.SetupTestProject(t, map[string]string{
		"views/broken.yml": "name: broken\nfields:\n  - name: loop\n    field_type: dimension\n    sql: ${loop} + 1\n",
	})

	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"unknown field", []string{"compile", "orders.nope"}, "field not found"},
		{"no fields", []string{"compile"}, "requires at least one field"},
		{"bad join", []string{"compile", "orders.total_revenue", "--join", "orders"}, "expected view:relationship"},
		{"unknown dialect", []string{"compile", "orders.id", "--dialect", "redshift"}, "redshift"},
		{"validation failure", []string{"validate"}, "validation failed: 1 problem(s)"},
		{"unknown view", []string{"list", "--view", "nope"}, "view not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, dir, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	newLogger(&buf, false).Info("hidden")
	assert.Empty(t, buf.String())

	newLogger(&buf, true).Debug("shown")
	assert.Contains(t, buf.String(), "shown")
}
