package engine

import (
	"errors"
	"fmt"
)

var (
	// ErrLoadFailure marks a dataset that could not be read or parsed.
	ErrLoadFailure = errors.New("dataset load failure")

	// ErrOutOfRange is returned when a province lookup yields no rows.
	ErrOutOfRange = errors.New("province out of range")
)

// LoadError describes a LoadFailure. Line is 0 when the failure is not tied to a row.
type LoadError struct {
	Path string
	Line int
	Err  error
}

func (e *LoadError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s: %s:%d: %v", ErrLoadFailure, e.Path, e.Line, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", ErrLoadFailure, e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

func (e *LoadError) Is(target error) bool { return target == ErrLoadFailure }
