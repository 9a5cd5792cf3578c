// Package ports declares what the decision module needs from other modules.
package ports

import (
	"context"
	"time"

	corrModels "kycbridge/internal/correlation/models"
	"kycbridge/internal/notify"
)

// CorrelationStore resolves callbacks back to recipients and claims each
// decision once.
type CorrelationStore interface {
	Resolve(ctx context.Context, token string) (*corrModels.Record, error)
	MarkHandled(ctx context.Context, key corrModels.HandledKey, ttl time.Duration) (bool, error)
	ReleaseHandled(ctx context.Context, key corrModels.HandledKey) error
}

// Notifications schedules outbound delivery without blocking.
type Notifications interface {
	Enqueue(ctx context.Context, msg notify.Message) error
}
