// Package validator accumulates field-level validation errors before any
// network call is made.
package validator

import (
	"errors"
	"regexp"
	"sort"
	"strings"
)

// EmailRX is a loose email shape check: something@something.something.
var EmailRX = regexp.MustCompile(`^\S+@\S+\.\S+$`)

// Validator holds field names mapped to their first failure message.
type Validator struct {
	Errors map[string]string
}

// New returns an empty Validator.
func New() *Validator {
	return &Validator{Errors: make(map[string]string)}
}

// Valid reports whether no errors were recorded.
func (v *Validator) Valid() bool {
	return len(v.Errors) == 0
}

// AddError records message for key unless key already failed.
func (v *Validator) AddError(key, message string) {
	if _, exists := v.Errors[key]; !exists {
		v.Errors[key] = message
	}
}

// Check records message for key when ok is false.
func (v *Validator) Check(ok bool, key, message string) {
	if !ok {
		v.AddError(key, message)
	}
}

// Err returns nil when valid, else an *Error carrying a copy of the fields.
func (v *Validator) Err() error {
	if v.Valid() {
		return nil
	}
	fields := make(map[string]string, len(v.Errors))
	for k, msg := range v.Errors {
		fields[k] = msg
	}
	return &Error{Fields: fields}
}

// NotBlank reports whether value has non-space content.
func NotBlank(value string) bool {
	return strings.TrimSpace(value) != ""
}

// In reports whether value is one of list.
func In(value string, list ...string) bool {
	for _, item := range list {
		if value == item {
			return true
		}
	}
	return false
}

// Matches reports whether value matches rx.
func Matches(value string, rx *regexp.Regexp) bool {
	return rx.MatchString(value)
}

// Error is a set of failed fields.
type Error struct {
	Fields map[string]string
}

func (e *Error) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ": " + e.Fields[k]
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// IsValidation reports whether err carries field errors.
func IsValidation(err error) bool {
	var vErr *Error
	return errors.As(err, &vErr)
}
