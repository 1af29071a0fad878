package cypher

import (
	"errors"
	"fmt"
)

// ErrStructural is the sentinel matched by every StructuralError.
var ErrStructural = errors.New("structural error")

// StructuralError reports an object graph whose shape violates the declared
// mapping. It fails the whole save before any statement is produced.
type StructuralError struct {
	Class  string
	Field  string
	Reason string
}

func (e *StructuralError) Error() string {
	switch {
	case e.Class != "" && e.Field != "":
		return fmt.Sprintf("%s: %s.%s: %s", ErrStructural, e.Class, e.Field, e.Reason)
	case e.Class != "":
		return fmt.Sprintf("%s: %s: %s", ErrStructural, e.Class, e.Reason)
	default:
		return fmt.Sprintf("%s: %s", ErrStructural, e.Reason)
	}
}

func (e *StructuralError) Unwrap() error { return ErrStructural }

func structuralErrorf(class, field, format string, args ...any) error {
	return &StructuralError{Class: class, Field: field, Reason: fmt.Sprintf(format, args...)}
}
