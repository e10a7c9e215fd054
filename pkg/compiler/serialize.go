package compiler

import (
	"errors"

	"github.com/leapstack-labs/leapmetrics/pkg/core"
	"github.com/leapstack-labs/leapmetrics/pkg/dialect"
)

// Record is the export form of a selection used by listing and
// introspection tooling.
type Record struct {
	View             string   `json:"view"`
	Name             string   `json:"name"`
	Alias            string   `json:"alias"`
	Label            string   `json:"label"`
	FieldType        string   `json:"field_type"`
	Type             string   `json:"type"`
	Timeframe        string   `json:"timeframe,omitempty"`
	Interval         string   `json:"interval,omitempty"`
	PrimaryKey       bool     `json:"primary_key"`
	Hidden           bool     `json:"hidden"`
	Description      string   `json:"description,omitempty"`
	GroupLabel       string   `json:"group_label,omitempty"`
	ValueFormatName  string   `json:"value_format_name,omitempty"`
	SQLRaw           string   `json:"sql_raw,omitempty"`
	SQLStart         string   `json:"sql_start,omitempty"`
	SQLEnd           string   `json:"sql_end,omitempty"`
	SQL              string   `json:"sql"`
	ReferencedFields []string `json:"referenced_fields,omitempty"`
	RequiredViews    []string `json:"required_views"`
}

// ToSerializable exports sel with its definition, raw template and compiled
// SQL in dialect d. Templates with unevaluated logic export with empty SQL.
// A dimension group exported without a member carries its raw template.
func (c *Compiler) ToSerializable(sel core.Selection, d *dialect.Dialect) (Record, error) {
	f := sel.Field
	rec := Record{
		View:            f.View(),
		Name:            f.Name(),
		Alias:           sel.Alias(),
		Label:           sel.Label(),
		FieldType:       string(f.Kind()),
		Type:            string(f.Type()),
		Timeframe:       string(sel.Grain),
		Interval:        string(sel.Unit),
		PrimaryKey:      f.IsPrimaryKey(),
		Hidden:          f.IsHidden(),
		Description:     f.Description(),
		GroupLabel:      f.GroupLabel(),
		ValueFormatName: f.ValueFormatName(),
		SQLRaw:          c.rawTemplate(f),
		SQLStart:        f.SQLStart(),
		SQLEnd:          f.SQLEnd(),
	}

	var err error
	if rec.RequiredViews, err = c.RequiredViews(sel); err != nil {
		return Record{}, err
	}
	if rec.ReferencedFields, err = c.ReferencedFields(sel); err != nil {
		return Record{}, err
	}

	if f.Kind() == core.KindDimensionGroup && sel.Grain == "" && sel.Unit == "" {
		rec.SQL = f.Template()
		return rec, nil
	}
	rec.SQL, err = c.Compile(sel, d, core.JoinContext{})
	if errors.Is(err, core.ErrNoSQL) {
		return rec, nil
	}
	if err != nil {
		return Record{}, err
	}
	return rec, nil
}

// rawTemplate returns the template a field compiles from. A primary-key
// count compiles from its view's key, or from * when the view has none.
func (c *Compiler) rawTemplate(f *core.Field) string {
	if !f.IsPrimaryKeyCount() {
		return f.Template()
	}
	if pk, ok := c.reg.PrimaryKeyOf(f.View()); ok {
		return pk.Template()
	}
	return "*"
}
