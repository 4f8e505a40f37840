package interpolation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
)

const tagName = "env_interpolation"

// InterpolateStruct expands fields tagged `env_interpolation:"yes"` in place.
// Tagged fields may be strings, string maps, string slices or map[string]any.
// Nested structs, struct pointers and struct slices are always visited.
func InterpolateStruct(v any) error {
	if v == nil {
		return nil
	}

	val := reflect.ValueOf(v)
	if val.Kind() == reflect.Pointer {
		if val.IsNil() {
			return nil
		}
		val = val.Elem()
	}
	if val.Kind() != reflect.Struct {
		return fmt.Errorf("expected struct or pointer to struct, got %T", v)
	}

	typ := val.Type()
	var errs []error
	for i := range val.NumField() {
		field := val.Field(i)
		meta := typ.Field(i)
		if !field.CanSet() {
			continue
		}
		tagged := strings.EqualFold(meta.Tag.Get(tagName), "yes")
		if err := interpolateField(field, tagged); err != nil {
			errs = append(errs, fmt.Errorf("field %s: %w", meta.Name, err))
		}
	}
	return errors.Join(errs...)
}

func interpolateField(field reflect.Value, tagged bool) error {
	switch field.Kind() {
	case reflect.String:
		if !tagged || field.String() == "" {
			return nil
		}
		out, err := ExpandEnvVars(field.String())
		if err != nil {
			return err
		}
		field.SetString(out)

	case reflect.Map:
		if !tagged || field.IsNil() || field.Type().Key().Kind() != reflect.String {
			return nil
		}
		var errs []error
		for _, key := range field.MapKeys() {
			expanded, err := ExpandValue(field.MapIndex(key).Interface())
			if err != nil {
				errs = append(errs, fmt.Errorf("[%s]: %w", key.String(), err))
				continue
			}
			ev := reflect.ValueOf(expanded)
			if !ev.IsValid() {
				ev = reflect.Zero(field.Type().Elem())
			}
			if !ev.Type().AssignableTo(field.Type().Elem()) {
				continue
			}
			field.SetMapIndex(key, ev)
		}
		return errors.Join(errs...)

	case reflect.Slice:
		var errs []error
		for j := range field.Len() {
			elem := field.Index(j)
			switch elem.Kind() {
			case reflect.String:
				if !tagged || elem.String() == "" {
					continue
				}
				out, err := ExpandEnvVars(elem.String())
				if err != nil {
					errs = append(errs, fmt.Errorf("[%d]: %w", j, err))
					continue
				}
				elem.SetString(out)
			case reflect.Struct:
				if err := InterpolateStruct(elem.Addr().Interface()); err != nil {
					errs = append(errs, fmt.Errorf("[%d]: %w", j, err))
				}
			case reflect.Pointer:
				if err := InterpolateStruct(elem.Interface()); err != nil {
					errs = append(errs, fmt.Errorf("[%d]: %w", j, err))
				}
			}
		}
		return errors.Join(errs...)

	case reflect.Struct:
		return InterpolateStruct(field.Addr().Interface())

	case reflect.Pointer:
		if field.Type().Elem().Kind() == reflect.Struct {
			return InterpolateStruct(field.Interface())
		}
	}
	return nil
}
