package models

import "github.com/google/uuid"

// ensureID assigns a fresh UUID when the caller did not set one. Postgres also
// defaults ids, but generating them here keeps every driver consistent.
func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}
