package audit

import (
	"context"
	"errors"
	"log/slog"
)

// ErrBufferFull is returned when the async buffer cannot take another event.
var ErrBufferFull = errors.New("audit buffer full")

// Worker decouples slow sinks such as Kafka from the request path. Publish
// enqueues; Run drains the queue into the wrapped sink.
type Worker struct {
	sink   Publisher
	inbox  chan Event
	logger *slog.Logger
}

func NewWorker(sink Publisher, buffer int, logger *slog.Logger) *Worker {
	if buffer <= 0 {
		buffer = 1
	}
	return &Worker{sink: sink, inbox: make(chan Event, buffer), logger: logger}
}

// Publish never blocks.
func (w *Worker) Publish(_ context.Context, e Event) error {
	select {
	case w.inbox <- e:
		return nil
	default:
		return ErrBufferFull
	}
}

// Run forwards events until ctx is done, then flushes what is buffered.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.flush()
			return nil
		case e := <-w.inbox:
			w.forward(ctx, e)
		}
	}
}

func (w *Worker) flush() {
	for {
		select {
		case e := <-w.inbox:
			w.forward(context.Background(), e)
		default:
			return
		}
	}
}

func (w *Worker) forward(ctx context.Context, e Event) {
	if err := w.sink.Publish(ctx, e); err != nil && w.logger != nil {
		w.logger.WarnContext(ctx, "audit sink publish failed",
			"action", e.Action,
			"error", err,
		)
	}
}
