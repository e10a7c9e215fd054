package commands

import (
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/leapmetrics/internal/cli/config"
	"github.com/leapstack-labs/leapmetrics/internal/cli/output"
	"github.com/leapstack-labs/leapmetrics/internal/loader"
	"github.com/leapstack-labs/leapmetrics/internal/registry"
	"github.com/leapstack-labs/leapmetrics/pkg/compiler"
	"github.com/leapstack-labs/leapmetrics/pkg/dialect"
	"github.com/spf13/cobra"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Renderer *output.Renderer
	Dialect  *dialect.Dialect
	Project  *registry.Project
	Compiler *compiler.Compiler
}

// NewCommandContext loads the views directory and builds the project and
// compiler for the configured dialect.
func NewCommandContext(cmd *cobra.Command) (*CommandContext, error) {
	cc, err := NewCommandContextWithoutProject(cmd)
	if err != nil {
		return nil, err
	}
	project, err := LoadProject(cc.Cfg, cc.Logger)
	if err != nil {
		return nil, err
	}
	cc.Project = project
	cc.Compiler = NewCompiler(project, cc.Cfg, cc.Logger)
	return cc, nil
}

// NewCommandContextWithoutProject creates a CommandContext without loading
// any views. Useful for commands that only inspect dialects or config.
func NewCommandContextWithoutProject(cmd *cobra.Command) (*CommandContext, error) {
	cfg := config.GetConfig(cmd.Context())
	logger := config.GetLogger(cmd.Context())

	d, err := dialect.Lookup(cfg.Dialect)
	if err != nil {
		return nil, err
	}

	return &CommandContext{
		Cfg:      cfg,
		Logger:   logger,
		Renderer: output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.OutputFormat)),
		Dialect:  d,
	}, nil
}

// LoadProject reads every view file under cfg.ViewsDir into a project.
func LoadProject(cfg *config.Config, logger *slog.Logger) (*registry.Project, error) {
	if err := cfg.ValidateDirectories(); err != nil {
		return nil, err
	}
	defs, err := loader.LoadDir(cfg.ViewsDir)
	if err != nil {
		return nil, err
	}
	project, err := registry.FromDefinitions(defs, cfg.WeekStart())
	if err != nil {
		return nil, fmt.Errorf("invalid view definitions: %w", err)
	}
	logger.Debug("loaded views", "dir", cfg.ViewsDir, "views", project.Count())
	return project, nil
}

// NewCompiler creates a compiler over project using the configured depth limit.
func NewCompiler(project *registry.Project, cfg *config.Config, logger *slog.Logger) *compiler.Compiler {
	return compiler.New(project, compiler.Config{Logger: logger, MaxDepth: cfg.MaxDepth})
}
