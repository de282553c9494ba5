package terrain

import (
	"errors"
	"fmt"
)

var (
	// ErrFormat matches every *FormatError.
	ErrFormat = errors.New("malformed elevation grid")
	// ErrConfig matches every *ConfigError.
	ErrConfig = errors.New("invalid grid configuration")
)

// FormatError reports malformed or truncated grid input. Line is 1-based;
// zero means the error is not tied to a specific line.
type FormatError struct {
	Line int
	Msg  string
}

func (e *FormatError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s: line %d: %s", ErrFormat, e.Line, e.Msg)
	}
	return fmt.Sprintf("%s: %s", ErrFormat, e.Msg)
}

func (e *FormatError) Is(target error) bool { return target == ErrFormat }

// ConfigError reports dimensions or bounds that would make projection
// undefined (for example a single-row grid divides by zero).
type ConfigError struct {
	Field string
	Msg   string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: %s %s", ErrConfig, e.Field, e.Msg)
}

func (e *ConfigError) Is(target error) bool { return target == ErrConfig }

func formatErrorf(line int, format string, args ...interface{}) error {
	return &FormatError{Line: line, Msg: fmt.Sprintf(format, args...)}
}
