package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/leapstack-labs/leapmetrics/pkg/core"
	"github.com/leapstack-labs/leapmetrics/pkg/dialect"
)

// Validate checks if the configuration is valid. Dialect names are checked
// against the dialect registry, so dialect packages must be imported first.
func (c *Config) Validate() error {
	var errs []error
	if c.ViewsDir == "" {
		errs = append(errs, errors.New("views_dir is required"))
	}
	if _, err := dialect.Lookup(c.Dialect); err != nil {
		errs = append(errs, fmt.Errorf("dialect: %w", err))
	}
	if _, err := core.ParseWeekday(c.WeekStartDay); err != nil {
		errs = append(errs, err)
	}
	if c.OutputFormat != OutputText && c.OutputFormat != OutputJSON {
		errs = append(errs, fmt.Errorf("output must be %q or %q, got %q", OutputText, OutputJSON, c.OutputFormat))
	}
	if c.MaxDepth < 0 {
		errs = append(errs, fmt.Errorf("max_depth must not be negative, got %d", c.MaxDepth))
	}
	if c.Concurrency < 1 {
		errs = append(errs, fmt.Errorf("concurrency must be at least 1, got %d", c.Concurrency))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// ValidateDirectories checks if the views directory exists.
func (c *Config) ValidateDirectories() error {
	info, err := os.Stat(c.ViewsDir)
	if os.IsNotExist(err) {
		return fmt.Errorf("views directory does not exist: %s\nHint: Create the directory or use --views-dir to specify a different path", c.ViewsDir)
	}
	if err != nil {
		return fmt.Errorf("views directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("views path is not a directory: %s", c.ViewsDir)
	}
	return nil
}

// WeekStart returns the parsed project week start day.
func (c *Config) WeekStart() core.Weekday {
	d, err := core.ParseWeekday(c.WeekStartDay)
	if err != nil {
		return core.Monday
	}
	return d
}
