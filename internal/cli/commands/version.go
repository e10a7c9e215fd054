package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// BuildInfo identifies a leapmetrics binary.
type BuildInfo struct {
	Version   string
	BuildDate string
	GitCommit string
}

// NewVersionCommand creates the version command.
func NewVersionCommand(info BuildInfo) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  `Display the leapmetrics version, the commit and date it was built from, and the SQL dialects compiled in.`,
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "leapmetrics v%s\n", info.Version)
			_, _ = fmt.Fprintf(out, "commit: %s\n", info.GitCommit)
			_, _ = fmt.Fprintf(out, "built:  %s\n", info.BuildDate)

			names := make([]string, 0)
			for _, d := range Dialects() {
				names = append(names, d.Name)
			}
			_, _ = fmt.Fprintf(out, "dialects: %s\n", strings.Join(names, ", "))
		},
	}
}
