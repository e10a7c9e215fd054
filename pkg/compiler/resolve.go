package compiler

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/leapstack-labs/leapmetrics/pkg/core"
	"github.com/leapstack-labs/leapmetrics/pkg/dialect"
)

// resolution is the state of one top-level compile call: the target dialect,
// the join context, and the stack of fields currently being expanded.
type resolution struct {
	c      *Compiler
	d      *dialect.Dialect
	jc     core.JoinContext
	active map[string]bool
	path   []string
}

func (c *Compiler) newResolution(d *dialect.Dialect, jc core.JoinContext) *resolution {
	return &resolution{c: c, d: d, jc: jc, active: make(map[string]bool)}
}

// enter pushes f onto the expansion stack. Re-entering a field that is still
// being expanded is a cycle.
func (r *resolution) enter(f *core.Field) error {
	key := f.Key()
	if r.active[key] {
		start := slices.Index(r.path, key)
		return &core.CycleError{Path: append(slices.Clone(r.path[start:]), key)}
	}
	if len(r.path) >= r.c.maxDepth {
		return fmt.Errorf("expanding %s: %w (limit %d)", key, core.ErrMaxDepth, r.c.maxDepth)
	}
	r.active[key] = true
	r.path = append(r.path, key)
	return nil
}

func (r *resolution) leave() {
	key := r.path[len(r.path)-1]
	r.path = r.path[:len(r.path)-1]
	delete(r.active, key)
}

// expand substitutes every placeholder in template, which belongs to owner.
// The table marker becomes the owner's view name and unqualified references
// resolve in the owner's view, whatever field the compile started from.
func (r *resolution) expand(owner *core.Field, template string) (string, error) {
	if strings.TrimSpace(template) == "" || core.HasTemplateLogic(template) {
		return "", &core.ShapeError{View: owner.View(), Field: owner.Name(), Reason: "template cannot be resolved", Err: core.ErrNoSQL}
	}
	out := template
	for _, name := range core.ReferencedNames(template) {
		var sub string
		if name == core.TableMarker {
			sub = owner.View()
		} else {
			sel, err := r.c.reg.ResolveField(name, owner.View())
			if err != nil {
				return "", err
			}
			if sub, err = r.expression(sel); err != nil {
				return "", err
			}
		}
		out = strings.ReplaceAll(out, core.Placeholder(name), sub)
	}
	return strings.TrimSpace(out), nil
}

// expression compiles sel as a referenced value. Dimension group members get
// their grain or unit applied; number measures expand to their aggregate
// formula; other measures yield their aggregate argument.
func (r *resolution) expression(sel core.Selection) (string, error) {
	f := sel.Field
	if err := r.enter(f); err != nil {
		return "", err
	}
	defer r.leave()

	switch {
	case f.Kind() == core.KindMeasure && f.Type() == core.TypeNumber:
		return r.number(f)
	case f.Kind() == core.KindMeasure:
		return r.argument(f)
	case f.IsTimeGroup():
		base, err := r.expand(f, f.Template())
		if err != nil || sel.Grain == "" {
			return base, err
		}
		sql, err := CompileTimeGrain(r.d, base, sel.Grain, r.c.reg.WeekStartDayOf(f.View()))
		return sql, withField(err, f)
	case f.IsDurationGroup():
		if sel.Unit == "" {
			return "", &core.ShapeError{View: f.View(), Field: f.Name(), Reason: "duration dimension group must be referenced through an interval"}
		}
		start, err := r.expand(f, f.SQLStart())
		if err != nil {
			return "", err
		}
		end, err := r.expand(f, f.SQLEnd())
		if err != nil {
			return "", err
		}
		sql, err := CompileDuration(r.d, start, end, sel.Unit)
		return sql, withField(err, f)
	default:
		return r.expand(f, f.Template())
	}
}

// argument returns the scalar SQL a measure aggregates over. A count without
// sql counts its view's primary key, or every row when there is none.
func (r *resolution) argument(f *core.Field) (string, error) {
	if !f.IsPrimaryKeyCount() {
		return r.expand(f, f.Template())
	}
	pk, ok := r.c.reg.PrimaryKeyOf(f.View())
	if !ok {
		return "*", nil
	}
	return r.expression(pk.Select())
}

// primaryKeySQL returns the compiled primary key of view. Symmetric
// aggregates cannot be built without one.
func (r *resolution) primaryKeySQL(f *core.Field) (string, error) {
	pk, ok := r.c.reg.PrimaryKeyOf(f.View())
	if !ok {
		return "", &core.ResolutionError{
			Reference: f.Key(),
			View:      f.View(),
			Reason:    "symmetric aggregate requires a primary key on the view",
		}
	}
	return r.expression(pk.Select())
}

// withField attaches the field key to dialect errors.
func withField(err error, f *core.Field) error {
	var unsupported *core.DialectUnsupportedError
	if errors.As(err, &unsupported) && unsupported.Field == "" {
		unsupported.Field = f.Key()
	}
	return err
}
