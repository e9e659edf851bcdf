package gedcom

import "github.com/google/uuid"

// NewUID returns a random identifier suitable for a UID payload.
func NewUID() string {
	return uuid.NewString()
}

// IsUID reports whether s parses as a UUID.
func IsUID(s string) bool {
	return uuid.Validate(s) == nil
}
