// Package loader reads view definition files into field definitions.
package loader

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/leapstack-labs/leapmetrics/pkg/core"
	"gopkg.in/yaml.v3"
)

// ViewDef is one decoded view file.
// Unknown keys cause decode errors.
type ViewDef struct {
	Version      int             `mapstructure:"version"`
	Type         string          `mapstructure:"type"` // must be "view" when set
	Name         string          `mapstructure:"name"`
	SQLTableName string          `mapstructure:"sql_table_name"`
	WeekStartDay string          `mapstructure:"week_start_day"`
	Description  string          `mapstructure:"description"`
	Fields       []core.FieldDef `mapstructure:"fields"`

	// Path is the file the view was read from, empty for in-memory input.
	Path string `mapstructure:"-"`
}

// yesNoHook turns booleans into the "yes"/"no" vocabulary wherever a
// string is expected, so primary_key: true and primary_key: yes agree.
func yesNoHook(from, to reflect.Kind, data any) (any, error) {
	if from != reflect.Bool || to != reflect.String {
		return data, nil
	}
	if data.(bool) {
		return "yes", nil
	}
	return "no", nil
}

func decode(raw map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.DecodeHookFuncKind(yesNoHook),
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return dec.Decode(raw)
}

// DecodeView decodes a generic record into a ViewDef. Fields are decoded one
// by one through DecodeField and every failing field is reported.
func DecodeView(raw map[string]any) (ViewDef, error) {
	top := maps.Clone(raw)
	rawFields, hasFields := top["fields"]
	delete(top, "fields")

	var v ViewDef
	if err := decode(top, &v); err != nil {
		return ViewDef{}, err
	}
	if v.Type != "" && !strings.EqualFold(v.Type, "view") {
		return ViewDef{}, fmt.Errorf("unsupported definition type %q, expected view", v.Type)
	}
	if !hasFields || rawFields == nil {
		return v, nil
	}

	list, ok := rawFields.([]any)
	if !ok {
		return ViewDef{}, fmt.Errorf("fields: expected a list, got %T", rawFields)
	}
	var errs []error
	v.Fields = make([]core.FieldDef, 0, len(list))
	for i, item := range list {
		rec, ok := item.(map[string]any)
		if !ok {
			errs = append(errs, fmt.Errorf("fields[%d]: expected a mapping, got %T", i, item))
			continue
		}
		fd, err := DecodeField(rec)
		if err != nil {
			errs = append(errs, &FieldDecodeError{Index: i, Name: fmt.Sprint(rec["name"]), Err: err})
			continue
		}
		v.Fields = append(v.Fields, fd)
	}
	if len(errs) > 0 {
		return ViewDef{}, errors.Join(errs...)
	}
	return v, nil
}

// FieldDecodeError reports a field record that could not be decoded.
type FieldDecodeError struct {
	Index int
	Name  string
	Err   error
}

func (e *FieldDecodeError) Error() string {
	return fmt.Sprintf("fields[%d] (%s): %v", e.Index, e.Name, e.Err)
}

func (e *FieldDecodeError) Unwrap() error { return e.Err }

// DecodeField decodes a generic field record into a core.FieldDef.
func DecodeField(raw map[string]any) (core.FieldDef, error) {
	var f core.FieldDef
	if err := decode(raw, &f); err != nil {
		return core.FieldDef{}, err
	}
	return f, nil
}

// ParseView parses YAML or JSON content. format is the file extension
// without the dot.
func ParseView(content []byte, format string) (ViewDef, error) {
	var raw map[string]any
	switch strings.ToLower(format) {
	case "yml", "yaml":
		if err := yaml.Unmarshal(content, &raw); err != nil {
			return ViewDef{}, fmt.Errorf("invalid YAML: %w", err)
		}
	case "json":
		if err := json.Unmarshal(content, &raw); err != nil {
			return ViewDef{}, fmt.Errorf("invalid JSON: %w", err)
		}
	default:
		return ViewDef{}, fmt.Errorf("unsupported view format %q", format)
	}
	if raw == nil {
		return ViewDef{}, fmt.Errorf("empty view definition")
	}
	return DecodeView(raw)
}

// LoadFile reads one view file. A view without a name takes it from the file
// name, minus the extension and an optional ".view" suffix.
func LoadFile(path string) (ViewDef, error) {
	content, err := os.ReadFile(path) //nolint:gosec // path comes from the configured views directory
	if err != nil {
		return ViewDef{}, err
	}
	v, err := ParseView(content, strings.TrimPrefix(filepath.Ext(path), "."))
	if err != nil {
		return ViewDef{}, &ParseError{File: path, Err: err}
	}
	v.Path = path
	v.ApplyDefaults()
	return v, nil
}

// ApplyDefaults fills the name from the file path.
func (v *ViewDef) ApplyDefaults() {
	if v.Name != "" || v.Path == "" {
		return
	}
	base := filepath.Base(v.Path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	v.Name = strings.TrimSuffix(base, ".view")
}

// ParseError wraps a decode failure with the file it came from.
type ParseError struct {
	File string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %v", e.File, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }
