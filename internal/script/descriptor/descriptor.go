// Package descriptor holds the description of a script submitted for compilation
// and the rules for separating it from caller-supplied bindings.
package descriptor

import (
	"fmt"
	"maps"

	"github.com/atlanticdynamic/scriptgate/internal/script/fault"
)

// Field names recognized as part of a descriptor. Everything else in a request
// body is a binding.
const (
	FieldName       = "name"
	FieldRevision   = "revision"
	FieldSource     = "source"
	FieldType       = "type"
	FieldVisibility = "visibility"
	FieldAutoDetect = "auto-detect"
	FieldFile       = "file"
	FieldGlobals    = "globals"
)

var fields = map[string]struct{}{
	FieldName:       {},
	FieldRevision:   {},
	FieldSource:     {},
	FieldType:       {},
	FieldVisibility: {},
	FieldAutoDetect: {},
	FieldFile:       {},
	FieldGlobals:    {},
}

// IsField reports whether key names a descriptor field.
func IsField(key string) bool {
	_, ok := fields[key]
	return ok
}

// Descriptor describes a script to compile. Globals are never handed to an
// engine; they are bound onto the compiled unit afterwards.
type Descriptor struct {
	Name       string         `toml:"name"`
	Revision   string         `toml:"revision"`
	Source     string         `toml:"source"`
	Type       string         `toml:"type"`
	File       string         `toml:"file"`
	Visibility string         `toml:"visibility"`
	AutoDetect bool           `toml:"auto_detect"`
	Globals    map[string]any `toml:"globals"`
}

// IsEmpty reports whether the descriptor carries nothing to identify a script.
func (d Descriptor) IsEmpty() bool {
	return d.Name == "" && d.File == "" && d.Source == ""
}

// WithoutGlobals returns a copy with Globals removed.
func (d Descriptor) WithoutGlobals() Descriptor {
	d.Globals = nil
	return d
}

// Clone returns a copy that does not share the Globals map.
func (d Descriptor) Clone() Descriptor {
	if d.Globals != nil {
		d.Globals = maps.Clone(d.Globals)
	}
	return d
}

// FromMap builds a Descriptor from the descriptor fields of m, ignoring every
// other key. Wrongly typed fields are a client input fault.
func FromMap(m map[string]any) (Descriptor, error) {
	var d Descriptor
	var err error

	if d.Name, err = stringField(m, FieldName); err != nil {
		return Descriptor{}, err
	}
	if d.Revision, err = stringField(m, FieldRevision); err != nil {
		return Descriptor{}, err
	}
	if d.Source, err = stringField(m, FieldSource); err != nil {
		return Descriptor{}, err
	}
	if d.Type, err = stringField(m, FieldType); err != nil {
		return Descriptor{}, err
	}
	if d.File, err = stringField(m, FieldFile); err != nil {
		return Descriptor{}, err
	}
	if d.Visibility, err = stringField(m, FieldVisibility); err != nil {
		return Descriptor{}, err
	}

	switch v := m[FieldAutoDetect].(type) {
	case nil:
	case bool:
		d.AutoDetect = v
	default:
		return Descriptor{}, fault.ClientInput("descriptor field %q must be a boolean", FieldAutoDetect)
	}

	switch v := m[FieldGlobals].(type) {
	case nil:
	case map[string]any:
		d.Globals = maps.Clone(v)
	default:
		return Descriptor{}, fault.ClientInput("descriptor field %q must be an object", FieldGlobals)
	}

	return d, nil
}

// Map is the inverse of FromMap. Empty fields are omitted.
func (d Descriptor) Map() map[string]any {
	m := map[string]any{}
	for key, value := range map[string]string{
		FieldName:       d.Name,
		FieldRevision:   d.Revision,
		FieldSource:     d.Source,
		FieldType:       d.Type,
		FieldFile:       d.File,
		FieldVisibility: d.Visibility,
	} {
		if value != "" {
			m[key] = value
		}
	}
	if d.AutoDetect {
		m[FieldAutoDetect] = true
	}
	if len(d.Globals) > 0 {
		m[FieldGlobals] = maps.Clone(d.Globals)
	}
	return m
}

// Partition splits request content into a descriptor and the remaining
// bindings. The returned bindings map is always non-nil.
func Partition(content map[string]any) (Descriptor, map[string]any, error) {
	d, err := FromMap(content)
	if err != nil {
		return Descriptor{}, nil, err
	}

	bindings := make(map[string]any, len(content))
	for k, v := range content {
		if !IsField(k) {
			bindings[k] = v
		}
	}
	return d, bindings, nil
}

func stringField(m map[string]any, key string) (string, error) {
	switch v := m[key].(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case fmt.Stringer:
		return v.String(), nil
	default:
		return "", fault.ClientInput("descriptor field %q must be a string", key)
	}
}
