package skiptoken

import (
	"context"
	"time"

	"github.com/sevler/gatehouse/internal/domain"
)

// Repository defines the interface for skip token data operations.
type Repository interface {
	Create(ctx context.Context, token *domain.SkipToken) error
	Get(ctx context.Context, code string) (*domain.SkipToken, error)

	// Consume atomically marks the token consumed by the given client.
	// Returns ErrTokenNotFound, ErrTokenConsumed or ErrTokenExpired when
	// the token cannot be used.
	Consume(ctx context.Context, code string, clientID domain.ClientID, now time.Time) (*domain.SkipToken, error)

	// DeleteExpired removes tokens whose expiry is before the given time
	// and returns the number of rows removed.
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}
