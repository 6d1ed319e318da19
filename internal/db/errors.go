package db

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is returned by lookups that match no row.
	ErrNotFound = errors.New("not found")
	// ErrRequired is wrapped by every ValidationError.
	ErrRequired = errors.New("required field missing")
	// ErrPairArity is returned when a paired coordinate is set from anything
	// other than exactly two values.
	ErrPairArity = errors.New("paired value needs exactly two elements")
	// ErrNotNumeric is returned when a stored value cannot be read as a number.
	ErrNotNumeric = errors.New("value is not numeric")
)

// ValidationError names the required field a record is missing.
type ValidationError struct {
	Entity string
	Field  string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s is required", e.Entity, e.Field)
}

func (e *ValidationError) Unwrap() error { return ErrRequired }

func required(entity, field, value string) error {
	if strings.TrimSpace(value) == "" {
		return &ValidationError{Entity: entity, Field: field}
	}
	return nil
}

// present fails when a required non-string value was never set.
func present[T any](entity, field string, value *T) error {
	if value == nil {
		return &ValidationError{Entity: entity, Field: field}
	}
	return nil
}

// optional rejects a set but blank string; absent values are stored as NULL.
func optional(entity, field string, value *string) error {
	if value != nil && strings.TrimSpace(*value) == "" {
		return &ValidationError{Entity: entity, Field: field}
	}
	return nil
}

func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

func notFound(entity string, key interface{}) error {
	return fmt.Errorf("%s %v: %w", entity, key, ErrNotFound)
}
