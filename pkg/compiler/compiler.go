// Package compiler turns semantic-layer fields into dialect SQL.
//
// Compilation resolves ${...} references against a read-only Registry,
// wraps dimension groups in dialect time or duration syntax, and wraps
// measures in their aggregate, switching to symmetric aggregates when the
// join context fans out. A Compiler holds no per-call state and is safe for
// concurrent use as long as the Registry is not mutated during compilation.
package compiler

import (
	"log/slog"

	"github.com/leapstack-labs/leapmetrics/pkg/core"
	"github.com/leapstack-labs/leapmetrics/pkg/dialect"
)

// SymmetricFactor scales measures before flooring in symmetric sums. It fixes
// the precision of fan-out safe sums at six decimal places.
const SymmetricFactor int64 = 1_000_000

// DefaultMaxDepth bounds reference expansion when Config.MaxDepth is unset.
const DefaultMaxDepth = 64

// Registry is the read-only field lookup the compiler resolves against.
type Registry interface {
	// ResolveField looks up a reference ("field", "view.field" or
	// "explore.view.field"). Unqualified names resolve in viewHint.
	ResolveField(name, viewHint string) (core.Selection, error)
	// PrimaryKeyOf returns the primary key field of view.
	PrimaryKeyOf(view string) (*core.Field, bool)
	// WeekStartDayOf returns the first day of the week configured for view.
	WeekStartDayOf(view string) core.Weekday
}

// Config holds compiler configuration.
type Config struct {
	// Logger is the structured logger (optional, uses discard if nil)
	Logger *slog.Logger
	// MaxDepth bounds nested reference expansion (optional, DefaultMaxDepth if <= 0)
	MaxDepth int
}

// Compiler compiles field selections to SQL.
type Compiler struct {
	reg      Registry
	logger   *slog.Logger
	maxDepth int
}

// New creates a compiler over reg.
func New(reg Registry, cfg Config) *Compiler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	depth := cfg.MaxDepth
	if depth <= 0 {
		depth = DefaultMaxDepth
	}
	return &Compiler{reg: reg, logger: logger, maxDepth: depth}
}

// Compile returns the SQL for sel in dialect d. Measures compile to their
// aggregate; everything else compiles to a scalar expression. The join
// context decides whether measures need symmetric aggregation.
func (c *Compiler) Compile(sel core.Selection, d *dialect.Dialect, jc core.JoinContext) (string, error) {
	if d == nil {
		return "", dialect.ErrDialectRequired
	}
	r := c.newResolution(d, jc)

	var (
		sql string
		err error
	)
	if sel.Field.Kind() == core.KindMeasure {
		sql, err = r.aggregate(sel.Field)
	} else {
		sql, err = r.expression(sel)
	}
	if err != nil {
		return "", err
	}
	sql = core.NormalizeWhitespace(sql)

	c.logger.Debug("compiled field",
		"field", sel.Key(),
		"dialect", d.Name,
		"symmetric", sel.Field.Kind() == core.KindMeasure && jc.NeedsSymmetricAggregate(sel.Field.View()))
	return sql, nil
}

// Scalar returns the unaggregated SQL for sel. For measures this is the
// argument their aggregate is applied to.
func (c *Compiler) Scalar(sel core.Selection, d *dialect.Dialect) (string, error) {
	if d == nil {
		return "", dialect.ErrDialectRequired
	}
	r := c.newResolution(d, core.JoinContext{})
	sql, err := r.expression(sel)
	if err != nil {
		return "", err
	}
	return core.NormalizeWhitespace(sql), nil
}
