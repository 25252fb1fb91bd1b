package model

import (
	"time"

	"github.com/google/uuid"
)

// SchemaVersion is written into every new project document.
const SchemaVersion = "1.0.0"

// NewID returns a fresh entity id.
func NewID() string {
	return uuid.New().String()
}

// Now returns the current UTC time at second precision, which is the
// granularity persisted entity timestamps carry.
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Second)
}
