// Package config provides configuration management for the leapmetrics CLI.
package config

// Config holds all CLI configuration options.
type Config struct {
	ViewsDir     string `koanf:"views_dir"`
	Dialect      string `koanf:"dialect"`
	WeekStartDay string `koanf:"week_start_day"`
	OutputFormat string `koanf:"output"`
	Verbose      bool   `koanf:"verbose"`
	MaxDepth     int    `koanf:"max_depth"`
	Concurrency  int    `koanf:"concurrency"`

	// ProjectRoot is the directory relative paths are resolved against.
	ProjectRoot string `koanf:"-"`
	// ConfigFile is the config file that was loaded, if any.
	ConfigFile string `koanf:"-"`
}

// Default configuration values.
const (
	DefaultViewsDir     = "views"
	DefaultDialect      = "snowflake"
	DefaultWeekStartDay = "monday"
	DefaultOutput       = OutputText
	DefaultMaxDepth     = 64
	DefaultConcurrency  = 4
)

// Output formats.
const (
	OutputText = "text"
	OutputJSON = "json"
)

// Config file names, in lookup order.
const (
	ConfigFileName    = "leapmetrics.yaml"
	ConfigFileNameAlt = "leapmetrics.yml"
)

// EnvPrefix prefixes environment overrides, e.g. LEAPMETRICS_VIEWS_DIR.
const EnvPrefix = "LEAPMETRICS_"

// Default returns a Config with every default applied.
func Default() *Config {
	return &Config{
		ViewsDir:     DefaultViewsDir,
		Dialect:      DefaultDialect,
		WeekStartDay: DefaultWeekStartDay,
		OutputFormat: DefaultOutput,
		MaxDepth:     DefaultMaxDepth,
		Concurrency:  DefaultConcurrency,
	}
}
