package audit

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// Publisher accepts audit events. Implementations must not block the request
// path for long and callers ignore failures beyond logging them.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Emit stamps and publishes event on p, logging failures. A nil publisher is
// a no-op.
func Emit(ctx context.Context, p Publisher, logger *slog.Logger, event Event) {
	if p == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if err := p.Publish(ctx, event); err != nil && logger != nil {
		logger.WarnContext(ctx, "failed to publish audit event",
			"action", event.Action,
			"error", err,
		)
	}
}

// LogPublisher writes events to a structured logger.
type LogPublisher struct {
	logger *slog.Logger
}

func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(ctx context.Context, e Event) error {
	p.logger.InfoContext(ctx, "audit",
		"action", e.Action,
		"correlation_hash", e.CorrelationHash,
		"session_id", e.SessionID,
		"decision", e.Decision,
		"outcome", e.Outcome,
		"reason", e.Reason,
		"request_id", e.RequestID,
		"timestamp", e.Timestamp,
	)
	return nil
}

// Fanout publishes to every sink and joins their errors.
type Fanout []Publisher

func (f Fanout) Publish(ctx context.Context, e Event) error {
	var errs []error
	for _, p := range f {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
