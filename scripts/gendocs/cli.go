package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/leapstack-labs/leapmetrics/internal/cli"
	"github.com/leapstack-labs/leapmetrics/internal/cli/config"
	"github.com/leapstack-labs/leapmetrics/pkg/core"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// documented returns the user-facing subcommands of root.
func documented(root *cobra.Command) []*cobra.Command {
	var out []*cobra.Command
	for _, cmd := range root.Commands() {
		if cmd.Hidden || cmd.Name() == "help" || cmd.Name() == "completion" {
			continue
		}
		out = append(out, cmd)
	}
	return out
}

// generateCLIDocs writes an overview page and one page per command.
func generateCLIDocs(outDir string) error {
	log.Printf("Generating CLI docs to %s", outDir)

	if err := os.MkdirAll(outDir, 0750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	root := cli.NewRootCmd()
	if err := os.WriteFile(filepath.Join(outDir, "index.md"), cliIndex(root), 0600); err != nil {
		return fmt.Errorf("failed to generate index: %w", err)
	}
	log.Printf("  Generated index.md")

	for _, cmd := range documented(root) {
		if err := os.WriteFile(filepath.Join(outDir, cmd.Name()+".md"), commandPage(cmd), 0600); err != nil {
			return fmt.Errorf("failed to generate page for %s: %w", cmd.Name(), err)
		}
		log.Printf("  Generated %s.md", cmd.Name())
	}
	return nil
}

func cliIndex(root *cobra.Command) []byte {
	w := NewMarkdownWriter()
	w.Frontmatter("CLI Reference", "Compile semantic-layer fields from the command line")
	w.GeneratedMarker()

	w.Header(1, "CLI Reference")
	w.Paragraph(root.Long)

	w.Header(2, "Workflow")
	w.CodeBlock("bash", `# Check every view compiles for the configured dialect
leapmetrics validate

# Compile a measure as seen from a fan-out join
leapmetrics compile orders.total_revenue --base-view order_lines --join orders:many_to_one

# Recompile while editing a view
leapmetrics watch orders.total_revenue`)

	w.Header(2, "Commands")
	var rows [][]string
	for _, cmd := range documented(root) {
		rows = append(rows, []string{fmt.Sprintf("[%s](%s.md)", InlineCode(cmd.Name()), cmd.Name()), cleanDescription(cmd.Short)})
	}
	w.Table([]string{"Command", "Description"}, rows)

	w.Header(2, "Field names")
	w.Paragraph("Commands take fields as " + InlineCode("view.field") + ". " +
		"Dimension groups are addressed through their generated members:")
	w.Table([]string{"Definition", "Members"}, memberRows())

	w.Header(2, "Global options")
	writeFlagsTable(w, root.PersistentFlags())

	w.Header(2, "Settings resolution")
	w.Paragraph(fmt.Sprintf("Each setting is read from built-in defaults, then %s, then the environment, "+
		"then flags given on the command line. Later sources win.", InlineCode(config.ConfigFileName)))
	var envRows [][]string
	for _, f := range getConfigSchema() {
		flag := "-"
		if name := strings.ReplaceAll(f.Name, "_", "-"); root.PersistentFlags().Lookup(name) != nil {
			flag = InlineCode("--" + name)
		}
		envRows = append(envRows, []string{InlineCode(f.Name), InlineCode(config.EnvPrefix + strings.ToUpper(f.Name)), flag})
	}
	w.Table([]string{"Key", "Environment", "Flag"}, envRows)

	w.Header(2, "Exit codes")
	w.Table([]string{"Code", "Meaning"}, [][]string{
		{InlineCode("0"), "Success"},
		{InlineCode("1"), "Invalid configuration, unresolvable field, or validation problems"},
	})

	return w.Bytes()
}

// memberRows lists the members generated for sample dimension groups.
func memberRows() [][]string {
	defs := []core.FieldDef{
		{Name: "created", FieldType: "dimension_group", Type: "time", SQL: "${TABLE}.created_at",
			Timeframes: []string{"date", "week", "month"}},
		{Name: "waiting", FieldType: "dimension_group", Type: "duration",
			SQLStart: "${TABLE}.created_at", SQLEnd: "${TABLE}.shipped_at", Intervals: []string{"day", "hour"}},
	}
	var rows [][]string
	for _, def := range defs {
		f, err := core.NewField("orders", def)
		if err != nil {
			log.Fatalf("sample field %s: %v", def.Name, err)
		}
		var members []string
		for _, m := range f.Members() {
			members = append(members, InlineCode(m.Key()))
		}
		rows = append(rows, []string{fmt.Sprintf("%s group %s", f.Type(), InlineCode(f.Name())), strings.Join(members, ", ")})
	}
	return rows
}

func commandPage(cmd *cobra.Command) []byte {
	w := NewMarkdownWriter()
	w.Frontmatter(cmd.Name(), cmd.Short)
	w.GeneratedMarker()

	w.Header(1, cmd.Name())
	if cmd.Long != "" {
		w.Paragraph(cmd.Long)
	} else {
		w.Paragraph(cmd.Short)
	}

	w.Header(2, "Usage")
	w.CodeBlock("bash", "leapmetrics "+cmd.Use)

	if cmd.HasLocalFlags() {
		w.Header(2, "Options")
		writeFlagsTable(w, cmd.LocalFlags())
	}
	if cmd.Example != "" {
		w.Header(2, "Examples")
		w.CodeBlock("bash", dedent(cmd.Example))
	}
	w.Paragraph("Global options are listed in the [CLI reference](index.md#global-options).")
	return w.Bytes()
}

// writeFlagsTable writes one row per visible flag.
func writeFlagsTable(w *MarkdownWriter, flags *pflag.FlagSet) {
	var rows [][]string
	flags.VisitAll(func(f *pflag.Flag) {
		if f.Hidden || f.Name == "help" {
			return
		}
		short := ""
		if f.Shorthand != "" {
			short = "-" + f.Shorthand
		}
		def := f.DefValue
		switch def {
		case "", "false", "0", "[]":
			def = ""
		default:
			def = InlineCode(def)
		}
		rows = append(rows, []string{InlineCode("--" + f.Name), short, def, cleanDescription(f.Usage)})
	})
	w.Table([]string{"Option", "Short", "Default", "Description"}, rows)
}

// dedent strips the two-space indent commands use in their examples.
func dedent(example string) string {
	lines := strings.Split(example, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimPrefix(line, "  ")
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
