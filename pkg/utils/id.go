// Package utils holds small helpers shared across layers.
package utils

import "github.com/google/uuid"

// GenerateID returns a fresh UUID string. Every table keys on UUIDs so
// inserts never coordinate on a database sequence.
func GenerateID() string {
	id, err := uuid.NewRandom()
	if err != nil {
		// crypto/rand is exhausted; an empty key fails the insert loudly
		return ""
	}
	return id.String()
}

// IsValidUUID reports whether s parses as a UUID
func IsValidUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
