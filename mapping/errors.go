package mapping

import (
	"errors"
	"fmt"
)

// ErrMapping is the sentinel matched by every MappingError.
var ErrMapping = errors.New("mapping error")

// MappingError reports a result row that cannot be mapped: an unmapped or
// ambiguous set of labels, or a property value the field cannot hold.
type MappingError struct {
	Row    int
	Class  string
	Field  string
	Value  any
	Reason string
}

func (e *MappingError) Error() string {
	msg := fmt.Sprintf("%s in row %d", ErrMapping, e.Row)
	if e.Class != "" {
		msg += ": " + e.Class
		if e.Field != "" {
			msg += "." + e.Field
		}
	}
	msg += ": " + e.Reason
	if e.Value != nil {
		msg += fmt.Sprintf(" (value %#v)", e.Value)
	}
	return msg
}

func (e *MappingError) Unwrap() error { return ErrMapping }
