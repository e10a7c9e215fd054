package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/leapstack-labs/leapmetrics/internal/cli/config"
)

// generateSchemaDocs generates the configuration and view file reference.
func generateSchemaDocs(outDir string) error {
	log.Printf("Generating schema docs to %s", outDir)

	if err := os.MkdirAll(outDir, 0750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if err := generateConfigurationDoc(outDir); err != nil {
		return fmt.Errorf("failed to generate configuration.md: %w", err)
	}
	log.Printf("  Generated configuration.md")

	if err := generateViewsDoc(outDir); err != nil {
		return fmt.Errorf("failed to generate views.md: %w", err)
	}
	log.Printf("  Generated views.md")

	return nil
}

// ConfigField represents a configuration field definition.
type ConfigField struct {
	Name        string
	Type        string
	Default     string
	Description string
}

// getConfigSchema returns the configuration schema definition.
// This is based on internal/cli/config/types.go Config.
func getConfigSchema() []ConfigField {
	d := config.Default()
	return []ConfigField{
		{Name: "views_dir", Type: "string", Default: d.ViewsDir, Description: "Path to the views directory"},
		{Name: "dialect", Type: "string", Default: d.Dialect, Description: "SQL dialect: snowflake or bigquery"},
		{Name: "week_start_day", Type: "string", Default: d.WeekStartDay, Description: "First day of the week for views that do not set one"},
		{Name: "output", Type: "string", Default: d.OutputFormat, Description: "Output format: text or json"},
		{Name: "verbose", Type: "bool", Default: "false", Description: "Enable debug logging"},
		{Name: "max_depth", Type: "int", Default: fmt.Sprint(d.MaxDepth), Description: "Maximum reference nesting depth"},
		{Name: "concurrency", Type: "int", Default: fmt.Sprint(d.Concurrency), Description: "Fields compiled in parallel"},
	}
}

// generateConfigurationDoc generates the configuration reference page.
func generateConfigurationDoc(outDir string) error {
	w := NewMarkdownWriter()

	w.Frontmatter("Configuration", "leapmetrics configuration reference")
	w.GeneratedMarker()

	w.Header(1, "Configuration")
	w.Paragraph(fmt.Sprintf("leapmetrics is configured via %s in your project root. "+
		"The file is searched for in the current directory and its parents.", InlineCode(config.ConfigFileName)))

	var rows [][]string
	for _, f := range getConfigSchema() {
		rows = append(rows, []string{InlineCode(f.Name), f.Type, InlineCode(f.Default), f.Description})
	}
	w.Table([]string{"Field", "Type", "Default", "Description"}, rows)

	w.Header(2, "Example")
	w.CodeBlock("yaml", `views_dir: views
dialect: bigquery
week_start_day: sunday
concurrency: 8`)

	return os.WriteFile(filepath.Join(outDir, "configuration.md"), w.Bytes(), 0600)
}

// viewAttribute documents one attribute of a view or field definition.
type viewAttribute struct {
	Name, Applies, Description string
}

var viewAttributes = []viewAttribute{
	{"name", "view, field", "Identifier, case-insensitive"},
	{"sql_table_name", "view", "Warehouse table the view reads from"},
	{"week_start_day", "view", "First day of the week for week truncation"},
	{"field_type", "field", "dimension, dimension_group or measure"},
	{"type", "field", "Value type, group kind (time, duration) or aggregate"},
	{"sql", "field", "SQL template with ${TABLE} and ${view.field} placeholders"},
	{"sql_start, sql_end", "duration group", "Start and end of the measured interval"},
	{"timeframes", "time group", "Grains to generate, such as date, week, month"},
	{"intervals", "duration group", "Units to generate, such as day, hour"},
	{"primary_key", "dimension", "Marks the view's key, used by symmetric aggregates"},
	{"hidden", "field", "Excluded from listings unless requested"},
	{"tiers", "tier dimension", "Ascending bucket boundaries"},
	{"filters", "measure", "Conditions applied inside the aggregate"},
	{"case", "dimension", "Ordered when/label pairs rendered as a CASE expression"},
	{"label, description, group_label", "field", "Display metadata"},
}

// generateViewsDoc generates the view file reference page.
func generateViewsDoc(outDir string) error {
	w := NewMarkdownWriter()

	w.Frontmatter("Views", "View file reference")
	w.GeneratedMarker()

	w.Header(1, "Views")
	w.Paragraph("A view is a YAML or JSON file declaring the fields defined over one table.")

	var rows [][]string
	for _, a := range viewAttributes {
		rows = append(rows, []string{InlineCode(a.Name), a.Applies, a.Description})
	}
	w.Table([]string{"Attribute", "Applies to", "Description"}, rows)

	w.Header(2, "Example")
	w.CodeBlock("yaml", `name: orders
sql_table_name: analytics.orders
fields:
  - name: id
    field_type: dimension
    type: number
    sql: ${TABLE}.id
    primary_key: yes
  - name: created
    field_type: dimension_group
    type: time
    sql: ${TABLE}.created_at
    timeframes: [date, week, month]
  - name: total_revenue
    field_type: measure
    type: sum
    sql: ${TABLE}.revenue`)

	return os.WriteFile(filepath.Join(outDir, "views.md"), w.Bytes(), 0600)
}
