package core

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNoSQL is returned when a template cannot be resolved to SQL: it is empty
// or contains templating logic ("{%") that the compiler does not evaluate.
var ErrNoSQL = errors.New("no resolvable sql")

// ErrMaxDepth is returned when reference expansion exceeds the configured depth.
var ErrMaxDepth = errors.New("maximum reference depth exceeded")

// DefinitionError reports an invalid or incomplete field definition.
type DefinitionError struct {
	View      string
	Field     string
	Attribute string
	Reason    string
}

func (e *DefinitionError) Error() string {
	var b strings.Builder
	b.WriteString("invalid definition")
	if e.Field != "" {
		fmt.Fprintf(&b, " for field %q", qualify(e.View, e.Field))
	} else if e.View != "" {
		fmt.Fprintf(&b, " for view %q", e.View)
	}
	if e.Attribute != "" {
		fmt.Fprintf(&b, ": attribute %q", e.Attribute)
	}
	if e.Reason != "" {
		b.WriteString(": ")
		b.WriteString(e.Reason)
	}
	return b.String()
}

// ResolutionError reports a reference that the registry could not resolve.
type ResolutionError struct {
	Reference string // reference as written, e.g. "orders.total"
	View      string // view the lookup ran against
	Reason    string
}

func (e *ResolutionError) Error() string {
	if e.View != "" {
		return fmt.Sprintf("cannot resolve %q in view %q: %s", e.Reference, e.View, e.Reason)
	}
	return fmt.Sprintf("cannot resolve %q: %s", e.Reference, e.Reason)
}

// DialectUnsupportedError reports a grain or unit the dialect has no rule for.
type DialectUnsupportedError struct {
	Dialect string
	Kind    string // "timeframe" or "interval"
	Key     string
	Field   string
}

func (e *DialectUnsupportedError) Error() string {
	msg := fmt.Sprintf("dialect %q does not support %s %q", e.Dialect, e.Kind, e.Key)
	if e.Field != "" {
		msg += fmt.Sprintf(" (field %q)", e.Field)
	}
	return msg
}

// ShapeError reports a field whose SQL cannot be composed as declared.
type ShapeError struct {
	View   string
	Field  string
	Reason string
	Err    error
}

func (e *ShapeError) Error() string {
	msg := fmt.Sprintf("field %q: %s", qualify(e.View, e.Field), e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ShapeError) Unwrap() error { return e.Err }

// CycleError reports a field that references itself, directly or transitively.
type CycleError struct {
	Path []string // view.field keys, first and last are the same field
}

func (e *CycleError) Error() string {
	return "reference cycle detected: " + strings.Join(e.Path, " -> ")
}

func qualify(view, field string) string {
	if view == "" {
		return field
	}
	return view + "." + field
}
