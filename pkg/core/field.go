package core

import (
	"fmt"
	"slices"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// FieldDef is the raw field record produced by definition loaders.
// Boolean attributes use the "yes"/"no" vocabulary; loaders normalize
// true/false before construction.
type FieldDef struct {
	Name            string      `mapstructure:"name" json:"name"`
	FieldType       string      `mapstructure:"field_type" json:"field_type"`
	Type            string      `mapstructure:"type" json:"type,omitempty"`
	SQL             string      `mapstructure:"sql" json:"sql,omitempty"`
	SQLStart        string      `mapstructure:"sql_start" json:"sql_start,omitempty"`
	SQLEnd          string      `mapstructure:"sql_end" json:"sql_end,omitempty"`
	Filters         []FilterDef `mapstructure:"filters" json:"filters,omitempty"`
	Tiers           []float64   `mapstructure:"tiers" json:"tiers,omitempty"`
	Case            *CaseDef    `mapstructure:"case" json:"case,omitempty"`
	Timeframes      []string    `mapstructure:"timeframes" json:"timeframes,omitempty"`
	Intervals       []string    `mapstructure:"intervals" json:"intervals,omitempty"`
	PrimaryKey      string      `mapstructure:"primary_key" json:"primary_key,omitempty"`
	Hidden          string      `mapstructure:"hidden" json:"hidden,omitempty"`
	Label           string      `mapstructure:"label" json:"label,omitempty"`
	Description     string      `mapstructure:"description" json:"description,omitempty"`
	GroupLabel      string      `mapstructure:"group_label" json:"group_label,omitempty"`
	ValueFormatName string      `mapstructure:"value_format_name" json:"value_format_name,omitempty"`
}

// FilterDef is one equality condition of a filtered measure.
type FilterDef struct {
	Field string `mapstructure:"field" json:"field"`
	Value string `mapstructure:"value" json:"value"`
}

// CaseDef is a declarative CASE expression.
type CaseDef struct {
	Whens []CaseWhenDef `mapstructure:"whens" json:"whens"`
	Else  string        `mapstructure:"else" json:"else,omitempty"`
}

// CaseWhenDef is one branch of a CaseDef.
type CaseWhenDef struct {
	SQL   string `mapstructure:"sql" json:"sql"`
	Label string `mapstructure:"label" json:"label"`
}

// Filter is a validated equality filter.
type Filter struct {
	Field string
	Value string
}

// Case is a validated case definition.
type Case struct {
	Whens []CaseWhen
	Else  string
}

// CaseWhen is one branch of a Case.
type CaseWhen struct {
	SQL   string
	Label string
}

// Field is an immutable, validated field owned by a view.
type Field struct {
	view        string
	name        string
	kind        FieldKind
	typ         ValueType
	sql         string
	sqlStart    string
	sqlEnd      string
	template    string
	filters     []Filter
	tiers       []float64
	caseSpec    *Case
	timeframes  []Grain
	intervals   []Unit
	primaryKey  bool
	hidden      bool
	pkCount     bool
	label       string
	description string
	groupLabel  string
	valueFormat string
}

// NewField validates def and builds the field owned by view.
func NewField(view string, def FieldDef) (*Field, error) {
	name := strings.ToLower(strings.TrimSpace(def.Name))
	if name == "" {
		return nil, &DefinitionError{View: view, Attribute: "name", Reason: "missing required attribute"}
	}
	defErr := func(attr, format string, args ...any) error {
		return &DefinitionError{View: view, Field: name, Attribute: attr, Reason: fmt.Sprintf(format, args...)}
	}
	if strings.TrimSpace(def.FieldType) == "" {
		return nil, defErr("field_type", "missing required attribute")
	}
	kind, err := ParseFieldKind(def.FieldType)
	if err != nil {
		return nil, defErr("field_type", "%v", err)
	}

	typ := ValueType(strings.ToLower(strings.TrimSpace(def.Type)))
	if typ == "" {
		typ = TypeString
	}

	f := &Field{
		view:        view,
		name:        name,
		kind:        kind,
		typ:         typ,
		sql:         def.SQL,
		sqlStart:    def.SQLStart,
		sqlEnd:      def.SQLEnd,
		label:       def.Label,
		description: def.Description,
		groupLabel:  def.GroupLabel,
		valueFormat: def.ValueFormatName,
	}

	if f.primaryKey, err = parseYesNo(def.PrimaryKey); err != nil {
		return nil, defErr("primary_key", "%v", err)
	}
	if f.hidden, err = parseYesNo(def.Hidden); err != nil {
		return nil, defErr("hidden", "%v", err)
	}

	hasSQL := strings.TrimSpace(def.SQL) != ""
	hasRange := def.SQLStart != "" || def.SQLEnd != ""
	if hasSQL && hasRange {
		return nil, defErr("sql", "sql cannot be combined with sql_start/sql_end")
	}

	switch kind {
	case KindMeasure:
		if !typ.IsAggregate() {
			return nil, defErr("type", "unsupported measure type %q", typ)
		}
		if !hasSQL && def.Case == nil {
			if typ != TypeCount {
				return nil, defErr("sql", "measure of type %q requires sql or case", typ)
			}
			f.pkCount = true
		}
	case KindDimensionGroup:
		switch typ {
		case TypeTime:
			if !hasSQL {
				return nil, defErr("sql", "time dimension group requires sql")
			}
			for _, tf := range def.Timeframes {
				g, err := ParseGrain(tf)
				if err != nil {
					return nil, defErr("timeframes", "%v", err)
				}
				f.timeframes = append(f.timeframes, g)
			}
		case TypeDuration:
			if def.SQLStart == "" || def.SQLEnd == "" {
				return nil, &ShapeError{View: view, Field: name, Reason: "duration dimension group requires both sql_start and sql_end"}
			}
			if len(def.Intervals) == 0 {
				f.intervals = slices.Clone(AllUnits)
			}
			for _, iv := range def.Intervals {
				u, err := ParseUnit(iv)
				if err != nil {
					return nil, defErr("intervals", "%v", err)
				}
				f.intervals = append(f.intervals, u)
			}
		default:
			return nil, defErr("type", "dimension group type must be time or duration, got %q", typ)
		}
	default:
		if hasRange {
			return nil, defErr("sql_start", "only duration dimension groups take sql_start/sql_end")
		}
		if !hasSQL && def.Case == nil {
			return nil, defErr("sql", "dimension requires sql or case")
		}
	}

	if def.Case != nil {
		if len(def.Case.Whens) == 0 {
			return nil, defErr("case", "case requires at least one when")
		}
		c := &Case{Else: def.Case.Else}
		for i, w := range def.Case.Whens {
			if w.SQL == "" || w.Label == "" {
				return nil, defErr("case", "when %d requires sql and label", i)
			}
			c.Whens = append(c.Whens, CaseWhen(w))
		}
		f.caseSpec = c
	}

	if len(def.Filters) > 0 {
		if !hasSQL && f.caseSpec == nil {
			return nil, defErr("filters", "filters require sql")
		}
		for i, fd := range def.Filters {
			if fd.Field == "" {
				return nil, defErr("filters", "filter %d requires field", i)
			}
			f.filters = append(f.filters, Filter(fd))
		}
	}

	if typ == TypeTier {
		if !hasSQL {
			return nil, defErr("sql", "tier requires sql")
		}
		if len(def.Tiers) == 0 {
			return nil, defErr("tiers", "tier requires at least one cut point")
		}
		for i := 1; i < len(def.Tiers); i++ {
			if def.Tiers[i] <= def.Tiers[i-1] {
				return nil, defErr("tiers", "tiers must be strictly ascending, %s follows %s",
					formatTier(def.Tiers[i]), formatTier(def.Tiers[i-1]))
			}
		}
		f.tiers = slices.Clone(def.Tiers)
	}

	f.template = f.buildTemplate()
	return f, nil
}

// buildTemplate applies the declarative translators in order: case, then
// filters, then tiers.
func (f *Field) buildTemplate() string {
	sql := f.sql
	if strings.TrimSpace(sql) == "" && f.caseSpec != nil {
		sql = CaseSQL(f.caseSpec)
	}
	if sql != "" && len(f.filters) > 0 {
		sql = FilterSQL(sql, f.filters)
	}
	if sql != "" && f.typ == TypeTier {
		sql = TierSQL(sql, f.tiers)
	}
	return lowercaseReferences(sql)
}

func parseYesNo(v string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "no":
		return false, nil
	case "yes":
		return true, nil
	default:
		return false, fmt.Errorf("expected yes or no, got %q", v)
	}
}

// View returns the name of the owning view.
func (f *Field) View() string { return f.view }

// Name returns the lowercased field name.
func (f *Field) Name() string { return f.name }

// Key returns the "view.field" identifier of the field.
func (f *Field) Key() string { return f.view + "." + f.name }

// Kind returns the field kind.
func (f *Field) Kind() FieldKind { return f.kind }

// Type returns the value type.
func (f *Field) Type() ValueType { return f.typ }

// Template returns the SQL template after the declarative translators ran.
// It is empty for duration groups and for counts without sql.
func (f *Field) Template() string { return f.template }

// RawSQL returns the sql attribute as defined.
func (f *Field) RawSQL() string { return f.sql }

// SQLStart returns the start template of a duration group.
func (f *Field) SQLStart() string { return lowercaseReferences(f.sqlStart) }

// SQLEnd returns the end template of a duration group.
func (f *Field) SQLEnd() string { return lowercaseReferences(f.sqlEnd) }

// IsPrimaryKey reports whether the field is its view's primary key.
func (f *Field) IsPrimaryKey() bool { return f.primaryKey }

// IsHidden reports whether the field is hidden from listings.
func (f *Field) IsHidden() bool { return f.hidden }

// IsPrimaryKeyCount reports whether the field is a count measure without sql,
// which counts the view's primary key.
func (f *Field) IsPrimaryKeyCount() bool { return f.pkCount }

// Filters returns a copy of the field's filters.
func (f *Field) Filters() []Filter { return slices.Clone(f.filters) }

// Tiers returns a copy of the tier cut points.
func (f *Field) Tiers() []float64 { return slices.Clone(f.tiers) }

// Timeframes returns the grains of a time dimension group.
func (f *Field) Timeframes() []Grain { return slices.Clone(f.timeframes) }

// Intervals returns the units of a duration dimension group.
func (f *Field) Intervals() []Unit { return slices.Clone(f.intervals) }

// Description returns the field description.
func (f *Field) Description() string { return f.description }

// GroupLabel returns the group label.
func (f *Field) GroupLabel() string { return f.groupLabel }

// ValueFormatName returns the value format name.
func (f *Field) ValueFormatName() string { return f.valueFormat }

// IsTimeGroup reports whether f is a time dimension group.
func (f *Field) IsTimeGroup() bool { return f.kind == KindDimensionGroup && f.typ == TypeTime }

// IsDurationGroup reports whether f is a duration dimension group.
func (f *Field) IsDurationGroup() bool { return f.kind == KindDimensionGroup && f.typ == TypeDuration }

// Select returns the selection of the field itself, with no grain or unit.
func (f *Field) Select() Selection { return Selection{Field: f} }

// Members returns one selection per generated alias of a dimension group.
// Other fields return nil.
func (f *Field) Members() []Selection {
	switch {
	case f.IsTimeGroup():
		out := make([]Selection, len(f.timeframes))
		for i, g := range f.timeframes {
			out[i] = Selection{Field: f, Grain: g}
		}
		return out
	case f.IsDurationGroup():
		out := make([]Selection, len(f.intervals))
		for i, u := range f.intervals {
			out[i] = Selection{Field: f, Unit: u}
		}
		return out
	}
	return nil
}

// Member returns the dimension group member whose alias is name.
func (f *Field) Member(name string) (Selection, bool) {
	for _, m := range f.Members() {
		if m.Alias() == name {
			return m, true
		}
	}
	return Selection{}, false
}

// Selection is a field as referenced by a query: the field itself, or one
// grain/unit member of a dimension group.
type Selection struct {
	Field *Field
	Grain Grain
	Unit  Unit
}

// Alias returns the name the selection is queried by.
func (s Selection) Alias() string {
	switch {
	case s.Grain != "":
		return s.Field.name + "_" + string(s.Grain)
	case s.Unit != "":
		return string(s.Unit) + "_" + s.Field.name
	}
	return s.Field.name
}

// Key returns "view.alias".
func (s Selection) Key() string { return s.Field.view + "." + s.Alias() }

// Label returns the explicit label, or the alias title-cased with
// underscores replaced by spaces.
func (s Selection) Label() string {
	if s.Field.label != "" {
		return s.Field.label
	}
	// Casers are stateful, so each call gets its own.
	return cases.Title(language.English).String(strings.ReplaceAll(s.Alias(), "_", " "))
}
