package queue

import (
	"context"

	"github.com/sevler/gatehouse/internal/domain"
)

// Connector requests a client's connection be moved to a target. The request
// is fire-and-forget: no delivery confirmation reaches the scheduler, and a
// failed handoff re-enters through the normal arrival path.
type Connector interface {
	Connect(ctx context.Context, id domain.ClientID, target string) error
}

// Messenger sends a textual notice to a client, best-effort.
type Messenger interface {
	Notify(ctx context.Context, id domain.ClientID, text string) error
}

// Locator reports which server a client is currently on. An empty name means
// the client is not connected.
type Locator interface {
	Locate(ctx context.Context, id domain.ClientID) (string, error)
}

// Gateway bundles the proxy-side capabilities the scheduler depends on.
type Gateway interface {
	Prober
	Connector
	Messenger
	Locator
}

// Classifier answers group-membership questions for tier classification.
// Implementations must be cheap to call and must report "not a member" on
// backend failure instead of raising.
type Classifier interface {
	IsEnabled() bool
	IsInGroup(ctx context.Context, id domain.ClientID, group string) bool
}
