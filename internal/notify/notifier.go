// Package notify delivers outbound messages to the person behind a
// verification session.
package notify

import (
	"context"
	"errors"
)

// ErrNotConfigured is returned by notifiers that lack credentials. Delivery
// is skipped and never retried.
var ErrNotConfigured = errors.New("messaging channel is not configured")

// Message is one outbound text.
type Message struct {
	RecipientHandle string
	Body            string
	// CorrelationHash identifies the verification in logs and audit.
	CorrelationHash string
}

// Notifier sends a single message synchronously.
type Notifier interface {
	Send(ctx context.Context, msg Message) error
}
