// Package uuid generates and validates queue item identifiers.
// Item ids double as idempotency keys on the remote side, so they are
// UUIDs the server can parse; v7 keeps them roughly creation-ordered.
package uuid

import (
	"fmt"
	"regexp"

	"github.com/google/uuid"
)

// Accepts v4 and v7 in canonical dashed form with RFC 4122 variant bits.
var itemIDRegex = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[47][0-9a-fA-F]{3}-[89abAB][0-9a-fA-F]{3}-[0-9a-fA-F]{12}$`)

// New generates a new time-ordered UUID v7, falling back to v4 if the
// clock-based generator fails.
func New() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}

// Parse parses an item id. Only versions 4 and 7 are accepted.
func Parse(s string) (uuid.UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid UUID: %w", err)
	}
	if v := id.Version(); v != 4 && v != 7 {
		return uuid.Nil, fmt.Errorf("expected UUID v4 or v7, got v%d", v)
	}
	return id, nil
}

// IsValid checks if a string is a well-formed item id.
func IsValid(s string) bool {
	return itemIDRegex.MatchString(s)
}

// Validate returns an error if the string is not a well-formed item id.
func Validate(s string) error {
	if !IsValid(s) {
		return fmt.Errorf("invalid item id format: %q", s)
	}
	return nil
}
