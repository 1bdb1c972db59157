// Package domain contains core domain types shared across gatehouse modules.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// ClientID identifies a waiting client. It is stable for the duration of the
// client's session on the proxy.
type ClientID = uuid.UUID

// ParseClientID parses a client ID from its canonical string form.
func ParseClientID(s string) (ClientID, error) {
	return uuid.Parse(s)
}

// QueueEntry describes a client's membership in the waiting queue.
type QueueEntry struct {
	ID       ClientID
	Tier     Tier
	JoinedAt time.Time
}
