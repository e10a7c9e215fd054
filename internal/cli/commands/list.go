package commands

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/leapstack-labs/leapmetrics/internal/cli/output"
	"github.com/leapstack-labs/leapmetrics/pkg/core"
	"github.com/spf13/cobra"
)

type listOptions struct {
	view       string
	showHidden bool
}

// NewListCommand creates the list command.
func NewListCommand() *cobra.Command {
	opts := &listOptions{}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List queryable fields",
		Long: `List every queryable field, with dimension groups expanded into one
entry per timeframe or interval. Hidden fields are skipped unless
--show-hidden is given.`,
		Example: `  # List all fields
  leapmetrics list

  # List the fields of one view, hidden ones included, as JSON
  leapmetrics list --view orders --show-hidden --output json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runList(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.view, "view", "", "Only list fields of this view")
	cmd.Flags().BoolVar(&opts.showHidden, "show-hidden", false, "Include hidden fields")

	return cmd
}

func runList(cmd *cobra.Command, opts *listOptions) error {
	cc, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}

	var sels []core.Selection
	if opts.view != "" {
		v, ok := cc.Project.View(opts.view)
		if !ok {
			return &core.ResolutionError{Reference: opts.view, View: opts.view, Reason: "view not found"}
		}
		sels = v.Selections(opts.showHidden)
	} else {
		sels = cc.Project.Selections(opts.showHidden)
	}

	r := cc.Renderer
	if r.Mode() == output.ModeJSON {
		records, err := CompileAll(cmd.Context(), cc.Compiler, cc.Dialect, core.JoinContext{}, sels, cc.Cfg.Concurrency)
		if err != nil {
			return err
		}
		return r.JSON(records)
	}

	r.Header(1, fmt.Sprintf("Fields (%d total)", len(sels)))
	renderFieldTable(r, sels)
	return nil
}

func renderFieldTable(r *output.Renderer, sels []core.Selection) {
	t := table.NewWriter()
	t.SetOutputMirror(r.Writer())
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Field", "Label", "Field Type", "Type", "Flags"})

	for _, sel := range sels {
		f := sel.Field
		typ := string(f.Type())
		switch {
		case sel.Grain != "":
			typ += " (" + string(sel.Grain) + ")"
		case sel.Unit != "":
			typ += " (" + string(sel.Unit) + ")"
		}
		t.AppendRow(table.Row{sel.Key(), sel.Label(), string(f.Kind()), typ, fieldFlags(f)})
	}
	t.Render()
}

func fieldFlags(f *core.Field) string {
	var flags []string
	if f.IsPrimaryKey() {
		flags = append(flags, "pk")
	}
	if f.IsHidden() {
		flags = append(flags, "hidden")
	}
	return strings.Join(flags, ",")
}
