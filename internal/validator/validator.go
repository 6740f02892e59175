// Package validator accumulates field-level validation errors for request
// input and reports them as a map keyed by field name.
package validator

import (
	"strings"
	"unicode/utf8"
)

// Validator holds the first error message recorded for each field.
// A Validator with no errors is valid.
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

// AddError records message for key unless key already has one.
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

// NotBlank reports whether s has a non-space character.
func NotBlank(s string) bool {
	return strings.TrimSpace(s) != ""
}

// MaxChars reports whether s has at most n runes.
func MaxChars(s string, n int) bool {
	return utf8.RuneCountInString(s) <= n
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
