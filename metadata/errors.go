package metadata

import (
	"errors"
	"fmt"
)

// ErrConfiguration is the sentinel matched by every ConfigurationError.
var ErrConfiguration = errors.New("mapping configuration error")

// ConfigurationError reports malformed or cyclic metadata. It is raised while
// the model is built and is never recovered from.
type ConfigurationError struct {
	Class  string
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	switch {
	case e.Class != "" && e.Field != "":
		return fmt.Sprintf("%s: %s.%s: %s", ErrConfiguration, e.Class, e.Field, e.Reason)
	case e.Class != "":
		return fmt.Sprintf("%s: %s: %s", ErrConfiguration, e.Class, e.Reason)
	default:
		return fmt.Sprintf("%s: %s", ErrConfiguration, e.Reason)
	}
}

func (e *ConfigurationError) Unwrap() error { return ErrConfiguration }

func configErrorf(class, field, format string, args ...any) error {
	return &ConfigurationError{Class: class, Field: field, Reason: fmt.Sprintf(format, args...)}
}
