package runner

import (
	"errors"
	"fmt"
	"os"
	"reflect"
)

// ExpandTemplates expands ${VAR} references in place in the struct (or slice)
// pointed to by in. String, *string and []string fields are expanded only
// when they carry a `template` tag other than `template:"-"`.
// map[string]string values are always expanded. Nested structs, pointers to
// structs and slices of either are walked. Unexported fields are skipped.
func ExpandTemplates[T any](in *T, variables map[string]string) error {
	if in == nil {
		return nil
	}
	v := reflect.ValueOf(in).Elem()
	switch v.Kind() {
	case reflect.Struct, reflect.Slice:
		return expandValue(v, true, variables)
	default:
		return fmt.Errorf("ExpandTemplates expects *struct or *[]T; got *%s", v.Type())
	}
}

func expandValue(v reflect.Value, tagged bool, variables map[string]string) error {
	switch v.Kind() {
	case reflect.String:
		if !tagged {
			return nil
		}
		expanded, err := Expand(v.String(), variables)
		if err != nil {
			return err
		}
		v.SetString(expanded)

	case reflect.Ptr:
		if v.IsNil() {
			return nil
		}
		switch v.Elem().Kind() {
		case reflect.String:
			if !tagged {
				return nil
			}
			// Replace the pointer so shared strings are never mutated.
			fresh := reflect.New(v.Elem().Type())
			fresh.Elem().Set(v.Elem())
			if err := expandValue(fresh.Elem(), true, variables); err != nil {
				return err
			}
			v.Set(fresh)
		case reflect.Struct:
			return expandValue(v.Elem(), tagged, variables)
		}

	case reflect.Struct:
		typ := v.Type()
		for i := range typ.NumField() {
			sf := typ.Field(i)
			if !sf.IsExported() {
				continue
			}
			tag, ok := sf.Tag.Lookup("template")
			if err := expandValue(v.Field(i), ok && tag != "-", variables); err != nil {
				return fmt.Errorf("%s: %w", sf.Name, err)
			}
		}

	case reflect.Map:
		if v.IsNil() || v.Type().Key().Kind() != reflect.String || v.Type().Elem().Kind() != reflect.String {
			return nil
		}
		expanded, err := ExpandMap(v.Convert(reflect.TypeFor[map[string]string]()).Interface().(map[string]string), variables)
		if err != nil {
			return err
		}
		v.Set(reflect.ValueOf(expanded).Convert(v.Type()))

	case reflect.Slice:
		if v.IsNil() {
			return nil
		}
		if v.Type().Elem().Kind() == reflect.String && !tagged {
			return nil
		}
		for i := range v.Len() {
			if err := expandValue(v.Index(i), tagged, variables); err != nil {
				return fmt.Errorf("[%d]: %w", i, err)
			}
		}
	}
	return nil
}

// Expand replaces ${VAR} references in value using variables. Every
// reference to a variable that is not in the map is reported.
func Expand(value string, variables map[string]string) (string, error) {
	var errs error

	result := os.Expand(value, func(key string) string {
		if val, ok := variables[key]; ok {
			return val
		}
		errs = errors.Join(errs, fmt.Errorf("environment variable %q is not in the allowed list", key))
		return ""
	})

	if errs != nil {
		return "", errs
	}

	return result, nil
}

// ExpandMap expands all values in a map[string]string into a new map.
func ExpandMap(values map[string]string, variables map[string]string) (map[string]string, error) {
	if values == nil {
		return nil, nil
	}

	result := make(map[string]string, len(values))
	var errs error

	for k, v := range values {
		expanded, err := Expand(v, variables)
		if err != nil {
			errs = errors.Join(errs, fmt.Errorf("%s: %w", k, err))
			continue
		}
		result[k] = expanded
	}

	if errs != nil {
		return nil, errs
	}

	return result, nil
}
