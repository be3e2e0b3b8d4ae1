package fixture

import (
	"errors"
	"fmt"
)

// ErrMalformedFixture is matched by every error returned from LoadProfile.
var ErrMalformedFixture = errors.New("malformed fixture")

// FixtureError describes which profile file could not be loaded.
type FixtureError struct {
	Profile string
	File    string
	Err     error
}

// Error implements the error interface.
func (e *FixtureError) Error() string {
	if e.File == "" {
		return fmt.Sprintf("profile %q: %v", e.Profile, e.Err)
	}
	return fmt.Sprintf("profile %q: %s: %v", e.Profile, e.File, e.Err)
}

// Unwrap exposes both ErrMalformedFixture and the underlying cause to
// errors.Is and errors.As.
func (e *FixtureError) Unwrap() []error {
	return []error{ErrMalformedFixture, e.Err}
}
