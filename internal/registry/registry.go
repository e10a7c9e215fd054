// Package registry provides the in-memory project of views that field
// references resolve against. It implements compiler.Registry.
package registry

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/leapstack-labs/leapmetrics/internal/loader"
	"github.com/leapstack-labs/leapmetrics/pkg/core"
)

// View owns a set of fields and at most one primary key.
type View struct {
	Name         string
	SQLTableName string
	Description  string
	Path         string
	// WeekStartDay is empty when the view defers to the project default.
	WeekStartDay core.Weekday

	fields     []*core.Field
	byName     map[string]*core.Field
	byAlias    map[string]core.Selection
	primaryKey *core.Field
}

// NewView validates fields and builds the view. Field names must be unique,
// at most one field may be the primary key, and no dimension group member
// alias may collide with another field or member.
func NewView(name string, fields []*core.Field) (*View, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return nil, &core.DefinitionError{Attribute: "name", Reason: "view name is required"}
	}
	v := &View{
		Name:    name,
		byName:  make(map[string]*core.Field, len(fields)),
		byAlias: make(map[string]core.Selection),
	}

	for _, f := range fields {
		if _, ok := v.byName[f.Name()]; ok {
			return nil, &core.DefinitionError{View: name, Field: f.Name(), Attribute: "name", Reason: "duplicate field name"}
		}
		v.byName[f.Name()] = f
		v.fields = append(v.fields, f)

		if f.IsPrimaryKey() {
			if v.primaryKey != nil {
				return nil, &core.DefinitionError{View: name, Field: f.Name(), Attribute: "primary_key",
					Reason: fmt.Sprintf("view already has primary key %q", v.primaryKey.Name())}
			}
			v.primaryKey = f
		}
	}

	for _, f := range v.fields {
		for _, m := range f.Members() {
			alias := m.Alias()
			if other, ok := v.byName[alias]; ok {
				return nil, &core.DefinitionError{View: name, Field: f.Name(), Attribute: "name",
					Reason: fmt.Sprintf("member %q collides with field %q", alias, other.Name())}
			}
			if other, ok := v.byAlias[alias]; ok {
				return nil, &core.DefinitionError{View: name, Field: f.Name(), Attribute: "name",
					Reason: fmt.Sprintf("member %q collides with a member of %q", alias, other.Field.Name())}
			}
			v.byAlias[alias] = m
		}
	}
	return v, nil
}

// Lookup returns the selection named name: a field, or a dimension group member.
func (v *View) Lookup(name string) (core.Selection, bool) {
	if f, ok := v.byName[name]; ok {
		return f.Select(), true
	}
	sel, ok := v.byAlias[name]
	return sel, ok
}

// Fields returns the view's fields in definition order.
func (v *View) Fields() []*core.Field {
	return append([]*core.Field(nil), v.fields...)
}

// PrimaryKey returns the primary key field, or nil.
func (v *View) PrimaryKey() *core.Field { return v.primaryKey }

// Selections returns one selection per queryable name in definition order:
// fields, with dimension groups expanded into their members.
func (v *View) Selections(includeHidden bool) []core.Selection {
	var out []core.Selection
	for _, f := range v.fields {
		if f.IsHidden() && !includeHidden {
			continue
		}
		if members := f.Members(); len(members) > 0 {
			out = append(out, members...)
			continue
		}
		out = append(out, f.Select())
	}
	return out
}

// Project is a set of views. It is safe for concurrent reads; the compiler
// expects no AddView calls while a compile is running.
type Project struct {
	mu sync.RWMutex

	views        map[string]*View
	weekStartDay core.Weekday
}

// NewProject creates an empty project whose views default to weekStart.
func NewProject(weekStart core.Weekday) *Project {
	if weekStart == "" {
		weekStart = core.Monday
	}
	return &Project{views: make(map[string]*View), weekStartDay: weekStart}
}

// AddView adds v. View names must be unique.
func (p *Project) AddView(v *View) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.views[v.Name]; ok {
		return &core.DefinitionError{View: v.Name, Attribute: "name", Reason: "duplicate view name"}
	}
	p.views[v.Name] = v
	return nil
}

// View returns the view named name.
func (p *Project) View(name string) (*View, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	v, ok := p.views[strings.ToLower(name)]
	return v, ok
}

// Views returns all views sorted by name.
func (p *Project) Views() []*View {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]*View, 0, len(p.views))
	for _, v := range p.views {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Count returns the number of views.
func (p *Project) Count() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.views)
}

// Fields returns every field of every view, ordered by view name then
// definition order.
func (p *Project) Fields() []*core.Field {
	var out []*core.Field
	for _, v := range p.Views() {
		out = append(out, v.fields...)
	}
	return out
}

// Selections returns every queryable selection, ordered by view name then
// definition order.
func (p *Project) Selections(includeHidden bool) []core.Selection {
	var out []core.Selection
	for _, v := range p.Views() {
		out = append(out, v.Selections(includeHidden)...)
	}
	return out
}

// ResolveField resolves "field", "view.field" or "explore.view.field".
// Unqualified names resolve in viewHint. Member aliases such as
// "created_week" resolve to their dimension group with the grain set.
func (p *Project) ResolveField(name, viewHint string) (core.Selection, error) {
	viewName, fieldName := core.SplitReference(strings.ToLower(name))
	if viewName == "" {
		viewName = strings.ToLower(viewHint)
	}
	if viewName == "" {
		return core.Selection{}, &core.ResolutionError{Reference: name, Reason: "unqualified reference needs a view"}
	}
	v, ok := p.View(viewName)
	if !ok {
		return core.Selection{}, &core.ResolutionError{Reference: name, View: viewName, Reason: "view not found"}
	}
	sel, ok := v.Lookup(fieldName)
	if !ok {
		return core.Selection{}, &core.ResolutionError{Reference: name, View: viewName, Reason: "field not found"}
	}
	return sel, nil
}

// PrimaryKeyOf returns the primary key of view.
func (p *Project) PrimaryKeyOf(view string) (*core.Field, bool) {
	v, ok := p.View(view)
	if !ok || v.primaryKey == nil {
		return nil, false
	}
	return v.primaryKey, true
}

// WeekStartDayOf returns the view's week start day, or the project default.
func (p *Project) WeekStartDayOf(view string) core.Weekday {
	if v, ok := p.View(view); ok && v.WeekStartDay != "" {
		return v.WeekStartDay
	}
	return p.weekStartDay
}

// FromDefinitions builds a project from loaded view files. Every invalid
// field and view is reported, joined into one error.
func FromDefinitions(defs []loader.ViewDef, weekStart core.Weekday) (*Project, error) {
	p := NewProject(weekStart)
	var errs []error

	for _, def := range defs {
		v, err := buildView(def)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if err := p.AddView(v); err != nil {
			errs = append(errs, withPath(def.Path, err))
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return p, nil
}

func buildView(def loader.ViewDef) (*View, error) {
	viewName := strings.ToLower(strings.TrimSpace(def.Name))
	var (
		fields []*core.Field
		errs   []error
	)
	for _, fd := range def.Fields {
		f, err := core.NewField(viewName, fd)
		if err != nil {
			errs = append(errs, withPath(def.Path, err))
			continue
		}
		fields = append(fields, f)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	v, err := NewView(viewName, fields)
	if err != nil {
		return nil, withPath(def.Path, err)
	}
	if def.WeekStartDay != "" {
		wd, err := core.ParseWeekday(def.WeekStartDay)
		if err != nil {
			return nil, withPath(def.Path, &core.DefinitionError{View: viewName, Attribute: "week_start_day", Reason: err.Error()})
		}
		v.WeekStartDay = wd
	}
	v.SQLTableName = def.SQLTableName
	v.Description = def.Description
	v.Path = def.Path
	return v, nil
}

func withPath(path string, err error) error {
	if path == "" {
		return err
	}
	return fmt.Errorf("%s: %w", path, err)
}
