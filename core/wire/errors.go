package wire

import "fmt"

// DecodeError reports a payload that cannot be mapped onto the model:
// unknown field, number mismatch, malformed timestamp, or a validation
// failure surfaced by a strict decode.
type DecodeError struct {
	Field  string
	Reason string
}

func (e *DecodeError) Error() string {
	if e.Field == "" {
		return "decode: " + e.Reason
	}
	return fmt.Sprintf("decode %s: %s", e.Field, e.Reason)
}

func decodeErr(field, format string, args ...any) *DecodeError {
	return &DecodeError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
