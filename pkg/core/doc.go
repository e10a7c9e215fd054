// Package core defines the shared language of the leapmetrics semantic layer.
//
// This package contains:
//   - Field definitions and their immutable compiled form (FieldDef, Field, Selection)
//   - Closed vocabularies (FieldKind, ValueType, Grain, Unit, Relationship, Weekday)
//   - Join context passed into compilation
//   - Placeholder parsing and the declarative case/filter/tier translators
//   - The error taxonomy shared by the compiler, registry and loaders
//
// The Golden Rule: pkg/core imports ONLY stdlib and golang.org/x/text.
// All other packages depend on core, not the reverse.
package core
