package contracts

import (
	"errors"
	"fmt"
)

// ErrUnknownReport is returned for a report id no definition exists for
var ErrUnknownReport = errors.New("unknown report")

// SchemaError reports a row that violates the expected table shape
type SchemaError struct {
	Field  string
	Row    int // -1 when the whole table lacks the column
	Reason string
}

func (e *SchemaError) Error() string {
	reason := e.Reason
	if reason == "" {
		reason = "missing"
	}
	if e.Row < 0 {
		return fmt.Sprintf("schema: field %q: %s", e.Field, reason)
	}
	return fmt.Sprintf("schema: field %q at row %d: %s", e.Field, e.Row, reason)
}

// IsSchemaError reports whether err wraps a SchemaError
func IsSchemaError(err error) bool {
	var se *SchemaError
	return errors.As(err, &se)
}
