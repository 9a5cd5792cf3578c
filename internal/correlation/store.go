// Package correlation owns the mapping from correlation token to recipient
// that carries state between session creation and the decision callback.
package correlation

import (
	"context"
	"time"

	"kycbridge/internal/correlation/models"
)

// Store is implemented by the memory, redis and postgres backends. All
// implementations are safe for concurrent use.
type Store interface {
	// Put records rec with the given retention. An existing record for the
	// same token is replaced.
	Put(ctx context.Context, rec *models.Record, ttl time.Duration) error
	// AttachSession stores the provider session id on an existing record.
	AttachSession(ctx context.Context, token, sessionID string) error
	// Resolve returns the live record for token or sentinel.ErrNotFound.
	Resolve(ctx context.Context, token string) (*models.Record, error)
	// MarkHandled claims key. It returns false when key was already claimed.
	MarkHandled(ctx context.Context, key models.HandledKey, ttl time.Duration) (bool, error)
	// ReleaseHandled drops a claim so a redelivery of the same decision can
	// be processed again. Releasing an unclaimed key is not an error.
	ReleaseHandled(ctx context.Context, key models.HandledKey) error
	// Purge evicts records and marks expired at now.
	Purge(ctx context.Context, now time.Time) (int, error)
	// Health reports backend availability.
	Health(ctx context.Context) error
}
