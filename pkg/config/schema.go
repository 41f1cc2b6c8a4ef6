package config

import (
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"
)

// schemaFields maps yaml keys to the struct fields of TrainingConfig, using
// the same tag reflection kaito-style schema checks rely on.
func schemaFields() map[string]reflect.StructField {
	t := reflect.TypeOf(TrainingConfig{})
	fields := make(map[string]reflect.StructField, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag := field.Tag.Get("yaml")
		if tag == "" {
			continue
		}
		name := strings.Split(tag, ",")[0]
		fields[name] = field
	}
	return fields
}

// per-key outcome of the decode pass, so validation can tell an absent field
// from one that was set, or set to an uncoercible value.
type fieldStatus int

const (
	fieldSet fieldStatus = iota
	fieldFailed
)

// decodeInto coerces every recognized key of the raw document onto cfg.
// Unknown keys become warnings, never errors, so documents written for newer
// trainer versions still load. Coercion failures are collected, not fatal on
// first hit.
func decodeInto(cfg *TrainingConfig, raw map[string]interface{}) ([]string, map[string]fieldStatus, []error) {
	fields := schemaFields()
	v := reflect.ValueOf(cfg).Elem()

	keys := make([]string, 0, len(raw))
	for key := range raw {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var warnings []string
	var errs []error
	status := make(map[string]fieldStatus)
	for _, key := range keys {
		field, ok := fields[key]
		if !ok {
			warnings = append(warnings, fmt.Sprintf("unknown field %q ignored", key))
			continue
		}
		if raw[key] == nil {
			// explicit yaml null counts as absent
			continue
		}
		if err := setField(v.FieldByIndex(field.Index), key, raw[key]); err != nil {
			errs = append(errs, err)
			status[key] = fieldFailed
			continue
		}
		status[key] = fieldSet
	}
	return warnings, status, errs
}

// setField coerces one raw scalar onto a typed field. Pointer fields are only
// allocated once coercion succeeds, so a failed value never leaves a zero
// behind.
func setField(fv reflect.Value, key string, value interface{}) error {
	target := fv
	isPtr := fv.Kind() == reflect.Ptr
	if isPtr {
		target = reflect.New(fv.Type().Elem()).Elem()
	}

	switch target.Kind() {
	case reflect.Bool:
		b, ok := coerceBool(value)
		if !ok {
			return &TypeMismatchError{Field: key, Value: value, Want: "bool"}
		}
		target.SetBool(b)
	case reflect.Int:
		n, ok := coerceInt(value)
		if !ok {
			return &TypeMismatchError{Field: key, Value: value, Want: "int"}
		}
		target.SetInt(n)
	case reflect.Float64:
		f, ok := coerceFloat(value)
		if !ok {
			return &TypeMismatchError{Field: key, Value: value, Want: "float"}
		}
		target.SetFloat(f)
	case reflect.String:
		s, ok := coerceString(value)
		if !ok {
			return &TypeMismatchError{Field: key, Value: value, Want: "string"}
		}
		target.SetString(s)
	default:
		return &TypeMismatchError{Field: key, Value: value, Want: target.Kind().String()}
	}

	if isPtr {
		p := reflect.New(fv.Type().Elem())
		p.Elem().Set(target)
		fv.Set(p)
	}
	return nil
}

// Accepted literal forms per type. Yaml already types unquoted scalars; the
// string forms cover documents that quote them ("True", "1e-4", "512").

func coerceBool(value interface{}) (bool, bool) {
	switch v := value.(type) {
	case bool:
		return v, true
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true":
			return true, true
		case "false":
			return false, true
		}
	}
	return false, false
}

func coerceInt(value interface{}) (int64, bool) {
	switch v := value.(type) {
	case int:
		return int64(v), true
	case int64:
		return v, true
	case uint64:
		if v <= math.MaxInt64 {
			return int64(v), true
		}
	case float64:
		if v == math.Trunc(v) && !math.IsInf(v, 0) {
			return int64(v), true
		}
	case string:
		if n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil {
			return n, true
		}
		// scientific notation like "1e3" still names an integer
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil && f == math.Trunc(f) {
			return int64(f), true
		}
	}
	return 0, false
}

func coerceFloat(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			return f, true
		}
	}
	return 0, false
}

func coerceString(value interface{}) (string, bool) {
	switch v := value.(type) {
	case string:
		return v, true
	case int:
		// bare numeric enum literals like `precision: 32`
		return strconv.Itoa(v), true
	case int64:
		return strconv.FormatInt(v, 10), true
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64), true
	}
	return "", false
}
