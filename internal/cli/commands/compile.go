package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/leapstack-labs/leapmetrics/internal/cli/output"
	"github.com/leapstack-labs/leapmetrics/pkg/compiler"
	"github.com/leapstack-labs/leapmetrics/pkg/core"
	"github.com/leapstack-labs/leapmetrics/pkg/dialect"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

type compileOptions struct {
	baseView string
	joins    []string
	all      bool
}

// NewCompileCommand creates the compile command.
func NewCompileCommand() *cobra.Command {
	opts := &compileOptions{}

	cmd := &cobra.Command{
		Use:   "compile [field...]",
		Short: "Compile fields to SQL",
		Long: `Compile one or more fields to SQL for the configured dialect.

Fields are named view.field, or by a dimension group member alias such as
orders.created_week. Measures reached through a fan-out join compile to
symmetric aggregates; describe the join path with --base-view and --join.`,
		Example: `  # Compile a measure for Snowflake
  leapmetrics compile orders.total_revenue

  # Compile for BigQuery as seen from order_lines through a fan-out join
  leapmetrics compile orders.total_revenue --dialect bigquery \
    --base-view order_lines --join orders:many_to_one

  # Compile every field as JSON
  leapmetrics compile --all --output json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !opts.all && len(args) == 0 {
				return fmt.Errorf("requires at least one field, or --all")
			}
			return runCompile(cmd, args, opts)
		},
	}

	cmd.Flags().StringVar(&opts.baseView, "base-view", "", "View the query is rooted at")
	cmd.Flags().StringArrayVar(&opts.joins, "join", nil, "Join on the path to the field, as view:relationship (repeatable)")
	cmd.Flags().BoolVar(&opts.all, "all", false, "Compile every field in the project")

	return cmd
}

// ParseJoin parses "view:relationship".
func ParseJoin(s string) (core.Join, error) {
	view, rel, ok := strings.Cut(s, ":")
	if !ok || strings.TrimSpace(view) == "" {
		return core.Join{}, fmt.Errorf("invalid join %q: expected view:relationship", s)
	}
	r, err := core.ParseRelationship(rel)
	if err != nil {
		return core.Join{}, fmt.Errorf("invalid join %q: %w", s, err)
	}
	return core.Join{View: strings.ToLower(strings.TrimSpace(view)), Relationship: r}, nil
}

func (o *compileOptions) joinContext() (core.JoinContext, error) {
	jc := core.JoinContext{BaseView: strings.ToLower(o.baseView)}
	for _, s := range o.joins {
		j, err := ParseJoin(s)
		if err != nil {
			return core.JoinContext{}, err
		}
		jc.Joins = append(jc.Joins, j)
	}
	return jc, nil
}

func runCompile(cmd *cobra.Command, args []string, opts *compileOptions) error {
	cc, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	jc, err := opts.joinContext()
	if err != nil {
		return err
	}

	var sels []core.Selection
	if opts.all {
		sels = cc.Project.Selections(true)
	} else {
		for _, name := range args {
			sel, err := cc.Project.ResolveField(name, "")
			if err != nil {
				return err
			}
			sels = append(sels, sel)
		}
	}

	records, err := CompileAll(cmd.Context(), cc.Compiler, cc.Dialect, jc, sels, cc.Cfg.Concurrency)
	if err != nil {
		return err
	}

	r := cc.Renderer
	if r.Mode() == output.ModeJSON {
		return r.JSON(records)
	}
	for i, rec := range records {
		if i > 0 {
			r.Println()
		}
		r.Println(r.Muted("-- " + rec.View + "." + rec.Alias + " (" + cc.Dialect.Name + ")"))
		if rec.SQL == "" {
			r.Println(r.Muted("-- no SQL: template needs evaluation"))
			continue
		}
		r.Println(r.Styles().SQL.Render(rec.SQL))
	}
	return nil
}

// CompileAll exports sels concurrently, at most limit at a time, and
// returns the records in input order. A non-empty join context replaces
// each record's SQL with the compilation under that context.
func CompileAll(ctx context.Context, c *compiler.Compiler, d *dialect.Dialect, jc core.JoinContext,
	sels []core.Selection, limit int) ([]compiler.Record, error) {
	records := make([]compiler.Record, len(sels))
	withJoins := jc.BaseView != "" || len(jc.Joins) > 0

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(limit, 1))
	for i, sel := range sels {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			rec, err := c.ToSerializable(sel, d)
			if err != nil {
				return fmt.Errorf("%s: %w", sel.Key(), err)
			}
			if withJoins && rec.SQL != "" && !isBareGroup(sel) {
				if rec.SQL, err = c.Compile(sel, d, jc); err != nil {
					return fmt.Errorf("%s: %w", sel.Key(), err)
				}
			}
			records[i] = rec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return records, nil
}

// isBareGroup reports a dimension group selected without a grain or unit.
func isBareGroup(sel core.Selection) bool {
	return sel.Field.Kind() == core.KindDimensionGroup && sel.Grain == "" && sel.Unit == ""
}
