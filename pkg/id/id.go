// Package id generates identifiers for the loan event log.
package id

import (
	"encoding/hex"

	"github.com/google/uuid"
)

// Event returns 32 lowercase hex characters of a v7 uuid. Ids from one
// process sort in creation order, so the event log can be ordered by id alone.
func Event() string {
	u := uuid.Must(uuid.NewV7())
	return hex.EncodeToString(u[:])
}

// Valid reports whether s looks like an id produced by Event.
func Valid(s string) bool {
	if len(s) != 32 {
		return false
	}
	b, err := hex.DecodeString(s)
	if err != nil || hex.EncodeToString(b) != s {
		return false
	}
	var u uuid.UUID
	copy(u[:], b)
	return u.Version() == 7 && u.Variant() == uuid.RFC4122
}
