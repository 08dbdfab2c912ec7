package domain

import (
	"fmt"
	"strings"
)

// MaxAccountLength bounds account identifiers.
const MaxAccountLength = 128

// ValidateAccount checks that id is usable as an account key: non-empty,
// no surrounding whitespace, no path separators, and not too long.
func ValidateAccount(id string) error {
	switch {
	case id == "":
		return fmt.Errorf("%w: empty", ErrInvalidAccount)
	case strings.TrimSpace(id) != id:
		return fmt.Errorf("%w: %q has surrounding whitespace", ErrInvalidAccount, id)
	case strings.ContainsAny(id, "/\\"):
		return fmt.Errorf("%w: %q contains a path separator", ErrInvalidAccount, id)
	case len(id) > MaxAccountLength:
		return fmt.Errorf("%w: longer than %d bytes", ErrInvalidAccount, MaxAccountLength)
	}
	return nil
}
