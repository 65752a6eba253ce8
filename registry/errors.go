package registry

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// ErrRelease matches every *ReleaseError via errors.Is.
var ErrRelease = errors.New("release failed")

// ReleaseError is returned when the native close operation of a registered
// resource fails. Err holds the underlying failure.
type ReleaseError struct {
	Category Category
	Op       string
	Err      error
}

// Error implements the error interface
func (e *ReleaseError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap implements the unwrap interface for error chaining
func (e *ReleaseError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrRelease or a *ReleaseError of the same category.
func (e *ReleaseError) Is(target error) bool {
	if target == ErrRelease {
		return true
	}
	if t, ok := target.(*ReleaseError); ok {
		return e.Category == t.Category
	}
	return false
}

func newReleaseError(category Category, op string, cause error) *ReleaseError {
	return &ReleaseError{
		Category: category,
		Op:       op,
		Err:      errors.WithStackDepth(cause, 1),
	}
}

// IsReleaseError checks whether err is, or wraps, a release failure.
func IsReleaseError(err error) bool {
	return errors.Is(err, ErrRelease)
}

// AsReleaseError extracts the outermost *ReleaseError from err.
func AsReleaseError(err error) (*ReleaseError, bool) {
	var re *ReleaseError
	if errors.As(err, &re) {
		return re, true
	}
	return nil, false
}
