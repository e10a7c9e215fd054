package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/leapstack-labs/leapmetrics/pkg/core"
	"github.com/leapstack-labs/leapmetrics/pkg/dialect"

	_ "github.com/leapstack-labs/leapmetrics/pkg/dialects/bigquery"
	_ "github.com/leapstack-labs/leapmetrics/pkg/dialects/snowflake"
)

// generateDialectDocs writes one page listing the SQL every registered
// dialect emits for each timeframe and interval.
func generateDialectDocs(outDir string) error {
	log.Printf("Generating dialect docs to %s", outDir)

	if err := os.MkdirAll(outDir, 0750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	var dialects []*dialect.Dialect
	headers := []string{"Timeframe"}
	for _, name := range dialect.List() {
		d, _ := dialect.Get(name)
		dialects = append(dialects, d)
		headers = append(headers, d.Name)
	}

	w := NewMarkdownWriter()
	w.Frontmatter("Dialects", "SQL emitted per dialect")
	w.GeneratedMarker()
	w.Header(1, "Dialects")
	w.Paragraph("The expressions below are rendered for a column named " + InlineCode("x") + ".")

	w.Header(2, "Timeframes")
	var rows [][]string
	for _, g := range core.AllGrains {
		row := []string{InlineCode(string(g))}
		for _, d := range dialects {
			row = append(row, cell(d.Grain("x", g)))
		}
		rows = append(rows, row)
	}
	w.Table(headers, rows)

	w.Header(2, "Intervals")
	headers[0] = "Interval"
	rows = nil
	for _, u := range core.AllUnits {
		row := []string{InlineCode(string(u))}
		for _, d := range dialects {
			row = append(row, cell(d.Diff("start_at", "end_at", u)))
		}
		rows = append(rows, row)
	}
	w.Table(headers, rows)

	w.Header(2, "Symmetric sums")
	w.Paragraph("Sums reached through a fan-out join are rewritten so each primary key contributes once.")
	for _, d := range dialects {
		w.Header(3, d.Name)
		w.CodeBlock("sql", d.SymmetricSum("x", "pk", 1_000_000))
	}

	return os.WriteFile(filepath.Join(outDir, "index.md"), w.Bytes(), 0600)
}

func cell(sql string, err error) string {
	if err != nil {
		return "unsupported"
	}
	return InlineCode(sql)
}
