package compiler

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/leapmetrics/pkg/core"
)

// aggregate compiles measure f into its aggregate expression.
func (r *resolution) aggregate(f *core.Field) (string, error) {
	if err := r.enter(f); err != nil {
		return "", err
	}
	defer r.leave()

	if f.Type() == core.TypeNumber {
		return r.number(f)
	}

	x, err := r.argument(f)
	if err != nil {
		return "", err
	}
	fanOut := r.jc.NeedsSymmetricAggregate(f.View())

	switch f.Type() {
	case core.TypeCountDistinct:
		return countDistinct(x), nil
	case core.TypeSum:
		if !fanOut {
			return "SUM(" + x + ")", nil
		}
		return r.symmetricSum(f, x)
	case core.TypeCount:
		if !fanOut {
			return "COUNT(" + x + ")", nil
		}
		// Counting the key itself is already exact under DISTINCT.
		if f.IsPrimaryKeyCount() {
			return countDistinct(x), nil
		}
		return r.symmetricCount(f, x)
	case core.TypeAverage:
		if !fanOut {
			return "AVG(" + x + ")", nil
		}
		sum, err := r.symmetricSum(f, x)
		if err != nil {
			return "", err
		}
		count, err := r.symmetricCount(f, x)
		if err != nil {
			return "", err
		}
		return "(" + sum + " / " + count + ")", nil
	default:
		return "", &core.DefinitionError{View: f.View(), Field: f.Name(), Attribute: "type", Reason: fmt.Sprintf("unsupported aggregate %q", f.Type())}
	}
}

func countDistinct(x string) string {
	return "COUNT(DISTINCT(" + x + "))"
}

func (r *resolution) symmetricSum(f *core.Field, x string) (string, error) {
	pk, err := r.primaryKeySQL(f)
	if err != nil {
		return "", err
	}
	return r.d.SymmetricSum(x, pk, SymmetricFactor), nil
}

// symmetricCount counts distinct primary keys of rows where x is not NULL.
// The same formula serves every dialect.
func (r *resolution) symmetricCount(f *core.Field, x string) (string, error) {
	pk, err := r.primaryKeySQL(f)
	if err != nil {
		return "", err
	}
	return "NULLIF(COUNT(DISTINCT CASE WHEN (" + x + ") IS NOT NULL THEN " + pk + " ELSE NULL END), 0)", nil
}

// number expands a computed measure: each referenced measure is replaced by
// its own aggregate under the same dialect and join context.
func (r *resolution) number(f *core.Field) (string, error) {
	template := f.Template()
	if strings.TrimSpace(template) == "" || core.HasTemplateLogic(template) {
		return "", &core.ShapeError{View: f.View(), Field: f.Name(), Reason: "number measure has no composable sql", Err: core.ErrNoSQL}
	}
	out := template
	for _, name := range core.ReferencedNames(template) {
		var sub string
		if name == core.TableMarker {
			sub = f.View()
		} else {
			sel, err := r.c.reg.ResolveField(name, f.View())
			if err != nil {
				return "", err
			}
			if sel.Field.Kind() != core.KindMeasure {
				return "", &core.ShapeError{
					View:   f.View(),
					Field:  f.Name(),
					Reason: fmt.Sprintf("number measure references %s %q, only measures can be composed", sel.Field.Kind(), name),
				}
			}
			if sub, err = r.aggregate(sel.Field); err != nil {
				return "", err
			}
		}
		out = strings.ReplaceAll(out, core.Placeholder(name), sub)
	}
	return out, nil
}
