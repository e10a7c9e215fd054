package commands

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/leapstack-labs/leapmetrics/internal/cli/output"
	"github.com/leapstack-labs/leapmetrics/internal/dag"
	"github.com/leapstack-labs/leapmetrics/internal/registry"
	"github.com/leapstack-labs/leapmetrics/pkg/compiler"
	"github.com/leapstack-labs/leapmetrics/pkg/core"
	"github.com/leapstack-labs/leapmetrics/pkg/dialect"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// Problem is one validation failure.
type Problem struct {
	Field string `json:"field,omitempty"`
	View  string `json:"view,omitempty"`
	Error string `json:"error"`
}

// ValidationReport summarises a validate run.
type ValidationReport struct {
	Dialect  string    `json:"dialect"`
	Views    int       `json:"views"`
	Fields   int       `json:"fields"`
	Problems []Problem `json:"problems"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check every view and field",
		Long: `Load every view file, check the field dependency graph for unknown
references and cycles, then compile every field for the configured dialect.
Exits non-zero when any problem is found.`,
		Example: `  # Validate for the configured dialect
  leapmetrics validate

  # Validate for BigQuery as JSON
  leapmetrics validate --dialect bigquery --output json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runValidate(cmd)
		},
	}
}

func runValidate(cmd *cobra.Command) error {
	cc, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}

	report, err := Validate(cmd.Context(), cc.Project, cc.Compiler, cc.Dialect, cc.Cfg.Concurrency)
	if err != nil {
		return err
	}
	cc.Logger.Debug("validated project", "views", report.Views, "fields", report.Fields, "problems", len(report.Problems))

	r := cc.Renderer
	if r.Mode() == output.ModeJSON {
		if err := r.JSON(report); err != nil {
			return err
		}
	} else {
		renderReport(r, cc.Project, report)
	}

	if len(report.Problems) > 0 {
		return fmt.Errorf("validation failed: %d problem(s)", len(report.Problems))
	}
	return nil
}

// Validate checks the dependency graph of project and compiles every
// selection in d. Problems are sorted by field key.
func Validate(ctx context.Context, project *registry.Project, c *compiler.Compiler, d *dialect.Dialect, limit int) (*ValidationReport, error) {
	sels := project.Selections(true)
	report := &ValidationReport{Dialect: d.Name, Views: project.Count(), Fields: len(sels), Problems: []Problem{}}

	graph, err := dag.Build(project.Fields(), project)
	report.Problems = append(report.Problems, graphProblems(err)...)
	for _, cycle := range graph.Cycles() {
		report.Problems = append(report.Problems, Problem{Field: cycle.Path[0], View: viewOf(cycle.Path[0]), Error: cycle.Error()})
	}

	// Fields that depend on a broken one fail to compile with the same error;
	// report only the root cause.
	blocked := make(map[string]bool)
	var roots []string
	for _, p := range report.Problems {
		roots = append(roots, p.Field)
	}
	for _, id := range graph.GetAffectedNodes(roots) {
		blocked[id] = true
	}

	var mu sync.Mutex
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(limit, 1))
	for _, sel := range sels {
		if blocked[sel.Field.Key()] {
			continue
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			_, err := c.ToSerializable(sel, d)
			if err == nil {
				return nil
			}
			mu.Lock()
			defer mu.Unlock()
			report.Problems = append(report.Problems, Problem{Field: sel.Key(), View: sel.Field.View(), Error: err.Error()})
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	slices.SortStableFunc(report.Problems, func(a, b Problem) int {
		return cmp.Compare(a.Field, b.Field)
	})
	return report, nil
}

// graphProblems splits the joined error from dag.Build into problems.
func graphProblems(err error) []Problem {
	if err == nil {
		return nil
	}
	var errs []error
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		errs = joined.Unwrap()
	} else {
		errs = []error{err}
	}

	out := make([]Problem, 0, len(errs))
	for _, e := range errs {
		p := Problem{Error: e.Error()}
		var cycleErr *core.CycleError
		var fieldErr *dag.FieldError
		switch {
		case errors.As(e, &cycleErr):
			p.Field = cycleErr.Path[0]
		case errors.As(e, &fieldErr):
			p.Field = fieldErr.Field
		}
		p.View = viewOf(p.Field)
		out = append(out, p)
	}
	return out
}

func viewOf(key string) string {
	view, _ := core.SplitReference(key)
	return view
}

func renderReport(r *output.Renderer, project *registry.Project, report *ValidationReport) {
	byView := make(map[string][]Problem)
	for _, p := range report.Problems {
		byView[p.View] = append(byView[p.View], p)
	}

	r.Header(1, fmt.Sprintf("Validating %d views, %d fields (%s)", report.Views, report.Fields, report.Dialect))
	for _, v := range project.Views() {
		problems := byView[v.Name]
		if len(problems) == 0 {
			r.StatusLine(v.Name, "success", fmt.Sprintf("%d fields", len(v.Selections(true))))
			continue
		}
		r.StatusLine(v.Name, "error", fmt.Sprintf("%d problem(s)", len(problems)))
		for _, p := range problems {
			r.Printf("    %s  %s\n", r.Styles().Field.Render(p.Field), p.Error)
		}
	}
	r.Println()
	if len(report.Problems) == 0 {
		r.Success("All fields compile")
	}
}
