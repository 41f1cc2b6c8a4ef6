package config

import (
	"fmt"
	"strings"
)

// TypeMismatchError reports a raw document value that cannot be coerced to the
// declared type of its field.
type TypeMismatchError struct {
	Field string
	Value interface{}
	Want  string
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("field %s: cannot coerce %v (%T) to %s", e.Field, e.Value, e.Value, e.Want)
}

// ConfigError reports a single violated semantic rule: a missing dependent
// field, a missing required field, or an out-of-range value.
type ConfigError struct {
	Field  string
	Value  interface{}
	Reason string
}

func (e *ConfigError) Error() string {
	if e.Value == nil {
		return fmt.Sprintf("field %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("field %s: %s (got %v)", e.Field, e.Reason, e.Value)
}

// ValidationError aggregates every violation found in one validation pass so
// the caller sees the complete list of problems at once.
type ValidationError struct {
	Errors []error
}

func (e *ValidationError) Error() string {
	msgs := e.Messages()
	return fmt.Sprintf("%d config violation(s): %s", len(msgs), strings.Join(msgs, "; "))
}

func (e *ValidationError) Messages() []string {
	msgs := make([]string, 0, len(e.Errors))
	for _, err := range e.Errors {
		msgs = append(msgs, err.Error())
	}
	return msgs
}

func missingRequired(field string) *ConfigError {
	return &ConfigError{Field: field, Reason: "missing required field: " + field}
}
