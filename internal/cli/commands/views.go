package commands

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/leapstack-labs/leapmetrics/internal/cli/output"
	"github.com/spf13/cobra"
)

// ViewSummary describes one loaded view.
type ViewSummary struct {
	Name         string `json:"name"`
	SQLTableName string `json:"sql_table_name,omitempty"`
	PrimaryKey   string `json:"primary_key,omitempty"`
	WeekStartDay string `json:"week_start_day"`
	Fields       int    `json:"fields"`
	Path         string `json:"path,omitempty"`
}

// NewViewsCommand creates the views command.
func NewViewsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "views",
		Short: "List loaded views",
		Long:  `List every view in the views directory with its table, primary key and field count.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runViews(cmd)
		},
	}
}

func runViews(cmd *cobra.Command) error {
	cc, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}

	views := cc.Project.Views()
	summaries := make([]ViewSummary, 0, len(views))
	for _, v := range views {
		s := ViewSummary{
			Name:         v.Name,
			SQLTableName: v.SQLTableName,
			WeekStartDay: string(cc.Project.WeekStartDayOf(v.Name)),
			Fields:       len(v.Fields()),
			Path:         v.Path,
		}
		if pk := v.PrimaryKey(); pk != nil {
			s.PrimaryKey = pk.Name()
		}
		summaries = append(summaries, s)
	}

	r := cc.Renderer
	if r.Mode() == output.ModeJSON {
		return r.JSON(summaries)
	}

	r.Header(1, fmt.Sprintf("Views (%d total)", len(summaries)))
	t := table.NewWriter()
	t.SetOutputMirror(r.Writer())
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"View", "Table", "Primary Key", "Week Start", "Fields"})
	for _, s := range summaries {
		t.AppendRow(table.Row{s.Name, s.SQLTableName, s.PrimaryKey, s.WeekStartDay, s.Fields})
	}
	t.Render()
	return nil
}
