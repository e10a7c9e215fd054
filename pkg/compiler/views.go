package compiler

import (
	"slices"

	"github.com/leapstack-labs/leapmetrics/pkg/core"
)

// RequiredViews returns the sorted names of every view touched while
// resolving sel, its own view included. Callers use it to decide which joins
// a query needs.
func (c *Compiler) RequiredViews(sel core.Selection) ([]string, error) {
	r := c.newResolution(nil, core.JoinContext{})
	views := make(map[string]struct{})
	done := make(map[string]bool)
	if err := r.walk(sel.Field, done, func(f *core.Field) { views[f.View()] = struct{}{} }); err != nil {
		return nil, err
	}
	out := make([]string, 0, len(views))
	for v := range views {
		out = append(out, v)
	}
	slices.Sort(out)
	return out, nil
}

// ReferencedFields returns the sorted keys of the fields a number measure is
// built from. References to other number measures are flattened into the
// fields those are built from. Other fields return nil.
func (c *Compiler) ReferencedFields(sel core.Selection) ([]string, error) {
	f := sel.Field
	if f.Kind() != core.KindMeasure || f.Type() != core.TypeNumber {
		return nil, nil
	}
	r := c.newResolution(nil, core.JoinContext{})
	seen := make(map[string]struct{})
	if err := r.leaves(f, seen); err != nil {
		return nil, err
	}
	out := make([]string, 0, len(seen))
	for k := range seen {
		out = append(out, k)
	}
	slices.Sort(out)
	return out, nil
}

func (r *resolution) leaves(f *core.Field, seen map[string]struct{}) error {
	if err := r.enter(f); err != nil {
		return err
	}
	defer r.leave()

	for _, name := range core.ReferencedNames(f.Template()) {
		if name == core.TableMarker {
			continue
		}
		sel, err := r.c.reg.ResolveField(name, f.View())
		if err != nil {
			return err
		}
		if sel.Field.Kind() == core.KindMeasure && sel.Field.Type() == core.TypeNumber {
			if err := r.leaves(sel.Field, seen); err != nil {
				return err
			}
			continue
		}
		seen[sel.Key()] = struct{}{}
	}
	return nil
}

// walk calls visit for f and every field reachable from its templates.
// Fields in done are skipped; cycles are reported as on compile.
func (r *resolution) walk(f *core.Field, done map[string]bool, visit func(*core.Field)) error {
	if done[f.Key()] {
		return nil
	}
	if err := r.enter(f); err != nil {
		return err
	}
	defer r.leave()

	visit(f)
	for _, template := range []string{f.Template(), f.SQLStart(), f.SQLEnd()} {
		for _, name := range core.ReferencedNames(template) {
			if name == core.TableMarker {
				continue
			}
			sel, err := r.c.reg.ResolveField(name, f.View())
			if err != nil {
				return err
			}
			if err := r.walk(sel.Field, done, visit); err != nil {
				return err
			}
		}
	}
	done[f.Key()] = true
	return nil
}
