// Package dialect provides the per-warehouse SQL rule tables used by the compiler.
//
// This package contains the public contract for dialect definitions: time-grain
// truncation, duration differences and the symmetric-sum formula. Concrete
// dialect implementations are registered from pkg/dialects/*/ packages.
package dialect

import (
	"fmt"
	"slices"

	"github.com/leapstack-labs/leapmetrics/pkg/core"
)

// GrainFunc renders a time-grain expression over sql.
type GrainFunc func(sql string) string

// DiffFunc renders a date difference between start and end.
type DiffFunc func(start, end string) string

// SymmetricSum holds the dialect-specific pieces of the symmetric-sum formula.
// The shape of the formula is shared; the hash and cast types are not.
type SymmetricSum struct {
	// AdjustedType is the cast applied to the scaled, floored measure.
	AdjustedType string
	// HashPrimaryKey renders a deterministic numeric hash of the primary key,
	// wide enough to dominate the adjusted measure.
	HashPrimaryKey func(pk string) string
	// ResultType is the floating point type of the final division.
	ResultType string
}

// Dialect is a validated rule table for one SQL dialect.
type Dialect struct {
	Name string

	grains    map[core.Grain]GrainFunc
	units     map[core.Unit]DiffFunc
	symmetric SymmetricSum
}

// Grain renders sql truncated or extracted at grain g.
func (d *Dialect) Grain(sql string, g core.Grain) (string, error) {
	fn, ok := d.grains[g]
	if !ok {
		return "", &core.DialectUnsupportedError{Dialect: d.Name, Kind: "timeframe", Key: string(g)}
	}
	return fn(sql), nil
}

// Diff renders the difference between start and end in unit u.
func (d *Dialect) Diff(start, end string, u core.Unit) (string, error) {
	fn, ok := d.units[u]
	if !ok {
		return "", &core.DialectUnsupportedError{Dialect: d.Name, Kind: "interval", Key: string(u)}
	}
	return fn(start, end), nil
}

// SupportsGrain reports whether the dialect has a rule for g.
func (d *Dialect) SupportsGrain(g core.Grain) bool {
	_, ok := d.grains[g]
	return ok
}

// SupportsUnit reports whether the dialect has a rule for u.
func (d *Dialect) SupportsUnit(u core.Unit) bool {
	_, ok := d.units[u]
	return ok
}

// Grains returns the supported grains in vocabulary order.
func (d *Dialect) Grains() []core.Grain {
	out := make([]core.Grain, 0, len(d.grains))
	for _, g := range core.AllGrains {
		if d.SupportsGrain(g) {
			out = append(out, g)
		}
	}
	return out
}

// Units returns the supported units in vocabulary order.
func (d *Dialect) Units() []core.Unit {
	out := make([]core.Unit, 0, len(d.units))
	for _, u := range core.AllUnits {
		if d.SupportsUnit(u) {
			out = append(out, u)
		}
	}
	return out
}

// SymmetricSum renders the fan-out safe sum of sql, keyed by the primary key pk.
//
//  1. scale by factor and floor, treating NULL as 0
//  2. add a per-key hash so that each entity contributes one distinct value
//  3. SUM(DISTINCT adjusted + hash) - SUM(DISTINCT hash)
//  4. divide by factor and coalesce to 0
func (d *Dialect) SymmetricSum(sql, pk string, factor int64) string {
	s := d.symmetric
	adjusted := fmt.Sprintf("(CAST(FLOOR(COALESCE(%s, 0) * (%d * 1.0)) AS %s))", sql, factor, s.AdjustedType)
	hash := s.HashPrimaryKey(pk)
	sum := fmt.Sprintf("SUM(DISTINCT %s + %s) - SUM(DISTINCT %s)", adjusted, hash, hash)
	return fmt.Sprintf("COALESCE(CAST((%s) AS %s) / CAST((%d*1.0) AS %s), 0)", sum, s.ResultType, factor, s.ResultType)
}

// Builder provides a fluent API for constructing dialects.
type Builder struct {
	dialect *Dialect
}

// New creates a new dialect builder with the given name.
func New(name string) *Builder {
	return &Builder{
		dialect: &Dialect{
			Name:   name,
			grains: make(map[core.Grain]GrainFunc),
			units:  make(map[core.Unit]DiffFunc),
		},
	}
}

// Grain sets the rule for one time grain.
func (b *Builder) Grain(g core.Grain, fn GrainFunc) *Builder {
	b.dialect.grains[g] = fn
	return b
}

// Grains sets rules for several time grains.
func (b *Builder) Grains(rules map[core.Grain]GrainFunc) *Builder {
	for g, fn := range rules {
		b.Grain(g, fn)
	}
	return b
}

// Duration sets the rule for one duration unit.
func (b *Builder) Duration(u core.Unit, fn DiffFunc) *Builder {
	b.dialect.units[u] = fn
	return b
}

// Durations sets rules for several duration units.
func (b *Builder) Durations(rules map[core.Unit]DiffFunc) *Builder {
	for u, fn := range rules {
		b.Duration(u, fn)
	}
	return b
}

// Symmetric sets the symmetric-sum pieces.
func (b *Builder) Symmetric(s SymmetricSum) *Builder {
	b.dialect.symmetric = s
	return b
}

// Validate checks the rule table for completeness.
func (b *Builder) Validate() error {
	d := b.dialect
	if d.Name == "" {
		return fmt.Errorf("dialect name is required")
	}
	for g, fn := range d.grains {
		if !slices.Contains(core.AllGrains, g) {
			return fmt.Errorf("dialect %q: unknown timeframe %q", d.Name, g)
		}
		if fn == nil {
			return fmt.Errorf("dialect %q: nil rule for timeframe %q", d.Name, g)
		}
	}
	for u, fn := range d.units {
		if !slices.Contains(core.AllUnits, u) {
			return fmt.Errorf("dialect %q: unknown interval %q", d.Name, u)
		}
		if fn == nil {
			return fmt.Errorf("dialect %q: nil rule for interval %q", d.Name, u)
		}
	}
	s := d.symmetric
	if s.AdjustedType == "" || s.ResultType == "" || s.HashPrimaryKey == nil {
		return fmt.Errorf("dialect %q: symmetric sum rule is incomplete", d.Name)
	}
	return nil
}

// Build validates and returns the dialect. Dialects are built from package
// init, so an incomplete table panics at startup rather than at first use.
func (b *Builder) Build() *Dialect {
	if err := b.Validate(); err != nil {
		panic(err)
	}
	return b.dialect
}
