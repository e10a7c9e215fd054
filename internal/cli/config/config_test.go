package config

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/leapstack-labs/leapmetrics/internal/testutil"
	"github.com/leapstack-labs/leapmetrics/pkg/core"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	// Register dialects via init()
	_ "github.com/leapstack-labs/leapmetrics/pkg/dialects/bigquery"
	_ "github.com/leapstack-labs/leapmetrics/pkg/dialects/snowflake"
)

func testFlags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("views-dir", "", "")
	fs.String("dialect", "", "")
	fs.String("output", "", "")
	fs.Bool("verbose", false, "")
	return fs
}

func TestLoad_Defaults(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, "snowflake", cfg.Dialect)
	assert.Equal(t, "monday", cfg.WeekStartDay)
	assert.Equal(t, OutputText, cfg.OutputFormat)
	assert.Equal(t, DefaultMaxDepth, cfg.MaxDepth)
	assert.Equal(t, DefaultConcurrency, cfg.Concurrency)
	assert.Empty(t, cfg.ConfigFile)

	wd, err := filepath.EvalSymlinks(dir)
	require.NoError(t, err)
	got, err := filepath.EvalSymlinks(cfg.ProjectRoot)
	require.NoError(t, err)
	assert.Equal(t, wd, got)
	assert.Equal(t, filepath.Join(cfg.ProjectRoot, "views"), cfg.ViewsDir)
}

func TestLoad_Precedence(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteFiles(t, dir, map[string]string{
		ConfigFileName: "views_dir: semantic\ndialect: bigquery\nweek_start_day: sunday\nmax_depth: 10\noutput: json\n",
	})
	t.Chdir(dir)

	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, "bigquery", cfg.Dialect)
	assert.Equal(t, core.Sunday, cfg.WeekStart())
	assert.Equal(t, 10, cfg.MaxDepth)
	assert.Equal(t, OutputJSON, cfg.OutputFormat)
	assert.Equal(t, filepath.Join(cfg.ProjectRoot, "semantic"), cfg.ViewsDir)
	assert.Equal(t, ConfigFileName, filepath.Base(cfg.ConfigFile))

	t.Setenv("LEAPMETRICS_DIALECT", "snowflake")
	t.Setenv("LEAPMETRICS_CONCURRENCY", "8")
	cfg, err = Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, "snowflake", cfg.Dialect, "env overrides file")
	assert.Equal(t, 8, cfg.Concurrency)

	fs := testFlags()
	require.NoError(t, fs.Parse([]string{"--dialect", "bigquery", "--output", "text"}))
	cfg, err = Load("", fs)
	require.NoError(t, err)
	assert.Equal(t, "bigquery", cfg.Dialect, "flag overrides env")
	assert.Equal(t, OutputText, cfg.OutputFormat)
	assert.Equal(t, 10, cfg.MaxDepth, "unset flags keep file values")
}

func TestLoad_ExplicitFileAndFlagPaths(t *testing.T) {
	projDir := t.TempDir()
	testutil.WriteFiles(t, projDir, map[string]string{
		"custom.yml": "views_dir: defs\n",
	})
	workDir := t.TempDir()
	t.Chdir(workDir)

	cfg, err := Load(filepath.Join(projDir, "custom.yml"), nil)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(projDir, "defs"), cfg.ViewsDir)

	fs := testFlags()
	require.NoError(t, fs.Parse([]string{"--views-dir", "local"}))
	cfg, err = Load(filepath.Join(projDir, "custom.yml"), fs)
	require.NoError(t, err)
	abs, err := filepath.Abs("local")
	require.NoError(t, err)
	assert.Equal(t, abs, cfg.ViewsDir, "flag paths resolve against the working directory")
}

func TestLoad_Errors(t *testing.T) {
	t.Chdir(t.TempDir())

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading config file")

	t.Setenv("LEAPMETRICS_DIALECT", "oracle")
	_, err = Load("", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown dialect "oracle"`)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		errSubstr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"empty views dir", func(c *Config) { c.ViewsDir = "" }, "views_dir is required"},
		{"empty dialect", func(c *Config) { c.Dialect = "" }, "dialect is required"},
		{"unknown dialect", func(c *Config) { c.Dialect = "mysql" }, "unknown dialect"},
		{"uppercase dialect", func(c *Config) { c.Dialect = "BigQuery" }, ""},
		{"bad week start", func(c *Config) { c.WeekStartDay = "someday" }, "week_start_day"},
		{"bad output", func(c *Config) { c.OutputFormat = "markdown" }, "output must be"},
		{"negative depth", func(c *Config) { c.MaxDepth = -1 }, "max_depth"},
		{"zero concurrency", func(c *Config) { c.Concurrency = 0 }, "concurrency"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.errSubstr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errSubstr)
		})
	}
}

func TestConfig_ValidateDirectories(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteFiles(t, dir, map[string]string{"file.txt": "x"})

	cfg := Default()
	cfg.ViewsDir = dir
	assert.NoError(t, cfg.ValidateDirectories())

	cfg.ViewsDir = filepath.Join(dir, "missing")
	assert.ErrorContains(t, cfg.ValidateDirectories(), "does not exist")

	cfg.ViewsDir = filepath.Join(dir, "file.txt")
	assert.ErrorContains(t, cfg.ValidateDirectories(), "not a directory")
}

func TestContextValues(t *testing.T) {
	ctx := context.Background()
	assert.NotNil(t, GetLogger(ctx))
	assert.Equal(t, Default(), GetConfig(ctx))

	logger := slog.New(slog.DiscardHandler)
	cfg := &Config{Dialect: "bigquery"}
	ctx = WithConfig(WithLogger(ctx, logger), cfg)
	assert.Same(t, logger, GetLogger(ctx))
	assert.Same(t, cfg, GetConfig(ctx))
}
