package model

import "fmt"

// InvalidDataError reports a value that fails a model invariant. Field names
// the offending field, Reason is human-readable.
type InvalidDataError struct {
	Field  string
	Reason string
}

func (e *InvalidDataError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func invalid(field, format string, args ...any) *InvalidDataError {
	return &InvalidDataError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// nested prefixes a child entity's validation error with the parent field.
func nested(field string, err error) error {
	if err == nil {
		return nil
	}
	if ide, ok := err.(*InvalidDataError); ok {
		return &InvalidDataError{Field: field + "." + ide.Field, Reason: ide.Reason}
	}
	return err
}
