package commands

import (
	"strings"

	"github.com/leapstack-labs/leapmetrics/internal/cli/output"
	"github.com/leapstack-labs/leapmetrics/pkg/dialect"
	"github.com/spf13/cobra"
)

// DialectSummary lists what a dialect supports.
type DialectSummary struct {
	Name       string   `json:"name"`
	Timeframes []string `json:"timeframes"`
	Intervals  []string `json:"intervals"`
}

// NewDialectsCommand creates the dialects command.
func NewDialectsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "dialects",
		Short: "List supported SQL dialects",
		Long:  `List every registered dialect with the timeframes and intervals it can compile.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDialects(cmd)
		},
	}
}

// Dialects summarises every registered dialect, sorted by name.
func Dialects() []DialectSummary {
	names := dialect.List()
	out := make([]DialectSummary, 0, len(names))
	for _, name := range names {
		d, ok := dialect.Get(name)
		if !ok {
			continue
		}
		s := DialectSummary{Name: d.Name}
		for _, g := range d.Grains() {
			s.Timeframes = append(s.Timeframes, string(g))
		}
		for _, u := range d.Units() {
			s.Intervals = append(s.Intervals, string(u))
		}
		out = append(out, s)
	}
	return out
}

func runDialects(cmd *cobra.Command) error {
	cc, err := NewCommandContextWithoutProject(cmd)
	if err != nil {
		return err
	}

	summaries := Dialects()
	r := cc.Renderer
	if r.Mode() == output.ModeJSON {
		return r.JSON(summaries)
	}

	r.Header(1, "Dialects")
	for _, s := range summaries {
		name := s.Name
		if s.Name == cc.Dialect.Name {
			name += " (configured)"
		}
		r.Println(r.Styles().Bold.Render(name))
		r.Printf("  timeframes: %s\n", strings.Join(s.Timeframes, ", "))
		r.Printf("  intervals:  %s\n", strings.Join(s.Intervals, ", "))
	}
	return nil
}
