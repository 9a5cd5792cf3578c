package notify

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"kycbridge/internal/notify/metrics"
	"kycbridge/internal/platform/logger"
	"kycbridge/pkg/platform/circuit"
)

const (
	defaultWorkers        = 4
	defaultQueueSize      = 256
	defaultMaxAttempts    = 3
	defaultInitialBackoff = 500 * time.Millisecond
	defaultMaxBackoff     = 5 * time.Second
	defaultSendTimeout    = 15 * time.Second
)

// ErrQueueFull is returned by Enqueue when the buffer is saturated.
var ErrQueueFull = errors.New("notification queue full")

// ErrClosed is returned by Enqueue after Close.
var ErrClosed = errors.New("notification dispatcher closed")

// Dispatcher delivers messages in the background with bounded retries.
// Enqueue never blocks the caller.
type Dispatcher struct {
	notifier       Notifier
	queue          chan Message
	workers        int
	maxAttempts    int
	initialBackoff time.Duration
	maxBackoff     time.Duration
	sendTimeout    time.Duration
	breaker        *circuit.Breaker
	logger         *slog.Logger
	metrics        *metrics.Metrics
	sleep          func(ctx context.Context, d time.Duration) error

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

type DispatcherOption func(*Dispatcher)

func WithWorkers(n int) DispatcherOption {
	return func(d *Dispatcher) {
		if n > 0 {
			d.workers = n
		}
	}
}

func WithQueueSize(n int) DispatcherOption {
	return func(d *Dispatcher) {
		if n > 0 {
			d.queue = make(chan Message, n)
		}
	}
}

// WithMaxAttempts bounds deliveries per message, first attempt included.
func WithMaxAttempts(n int) DispatcherOption {
	return func(d *Dispatcher) {
		if n > 0 {
			d.maxAttempts = n
		}
	}
}

func WithBackoff(initial, max time.Duration) DispatcherOption {
	return func(d *Dispatcher) {
		if initial > 0 {
			d.initialBackoff = initial
		}
		if max > 0 {
			d.maxBackoff = max
		}
	}
}

func WithSendTimeout(t time.Duration) DispatcherOption {
	return func(d *Dispatcher) {
		if t > 0 {
			d.sendTimeout = t
		}
	}
}

func WithBreaker(b *circuit.Breaker) DispatcherOption {
	return func(d *Dispatcher) {
		if b != nil {
			d.breaker = b
		}
	}
}

func WithDispatcherLogger(l *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		if l != nil {
			d.logger = l
		}
	}
}

func WithDispatcherMetrics(m *metrics.Metrics) DispatcherOption {
	return func(d *Dispatcher) { d.metrics = m }
}

func NewDispatcher(notifier Notifier, opts ...DispatcherOption) (*Dispatcher, error) {
	if notifier == nil {
		return nil, errors.New("notifier is required")
	}
	d := &Dispatcher{
		notifier:       notifier,
		queue:          make(chan Message, defaultQueueSize),
		workers:        defaultWorkers,
		maxAttempts:    defaultMaxAttempts,
		initialBackoff: defaultInitialBackoff,
		maxBackoff:     defaultMaxBackoff,
		sendTimeout:    defaultSendTimeout,
		breaker:        circuit.New("notify", circuit.WithSuccessThreshold(1)),
		logger:         slog.Default(),
		sleep:          sleepContext,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Enqueue schedules msg for delivery. Dropped messages are logged and counted.
func (d *Dispatcher) Enqueue(ctx context.Context, msg Message) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.metrics.IncrementResult("dropped")
		return ErrClosed
	}
	select {
	case d.queue <- msg:
		d.metrics.SetQueueDepth(len(d.queue))
		return nil
	default:
		d.metrics.IncrementResult("dropped")
		d.logger.WarnContext(ctx, "notification dropped, queue full",
			"recipient", logger.MaskHandle(msg.RecipientHandle),
			"correlation_hash", msg.CorrelationHash,
		)
		return ErrQueueFull
	}
}

// Run starts the workers and blocks until ctx is cancelled or Close drains
// the queue. Queued messages are still attempted once ctx is cancelled, but
// without retries.
func (d *Dispatcher) Run(ctx context.Context) error {
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			d.work(ctx)
		}()
	}
	<-ctx.Done()
	d.Close()
	d.wg.Wait()
	return nil
}

// Close stops accepting messages. Workers exit once the queue is drained.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	d.closed = true
	close(d.queue)
}

func (d *Dispatcher) work(ctx context.Context) {
	for msg := range d.queue {
		d.metrics.SetQueueDepth(len(d.queue))
		d.deliver(ctx, msg)
	}
}

// deliver runs the retry loop for one message. Errors end here.
func (d *Dispatcher) deliver(ctx context.Context, msg Message) {
	backoff := d.initialBackoff
	for attempt := 1; attempt <= d.maxAttempts; attempt++ {
		if !d.breaker.Allow() {
			d.metrics.IncrementResult("breaker_open")
			d.logger.WarnContext(ctx, "notification skipped, messaging circuit open",
				"correlation_hash", msg.CorrelationHash,
			)
			return
		}

		d.metrics.IncrementAttempt()
		err := d.send(ctx, msg)
		if err == nil {
			if _, change := d.breaker.RecordSuccess(); change.Closed {
				d.logger.InfoContext(ctx, "messaging circuit closed")
			}
			d.metrics.IncrementResult("sent")
			d.logger.InfoContext(ctx, "notification sent",
				"recipient", logger.MaskHandle(msg.RecipientHandle),
				"correlation_hash", msg.CorrelationHash,
				"attempt", attempt,
			)
			return
		}
		if errors.Is(err, ErrNotConfigured) {
			d.metrics.IncrementResult("skipped")
			d.logger.WarnContext(ctx, "messaging channel not configured, notification skipped",
				"correlation_hash", msg.CorrelationHash,
			)
			return
		}

		if _, change := d.breaker.RecordFailure(); change.Opened {
			d.logger.WarnContext(ctx, "messaging circuit opened")
		}
		d.logger.WarnContext(ctx, "notification attempt failed",
			"recipient", logger.MaskHandle(msg.RecipientHandle),
			"correlation_hash", msg.CorrelationHash,
			"attempt", attempt,
			"error", err,
		)
		if attempt == d.maxAttempts || ctx.Err() != nil {
			break
		}
		if err := d.sleep(ctx, backoff); err != nil {
			break
		}
		backoff = min(backoff*2, d.maxBackoff)
	}
	d.metrics.IncrementResult("failed")
	d.logger.ErrorContext(ctx, "notification delivery failed",
		"recipient", logger.MaskHandle(msg.RecipientHandle),
		"correlation_hash", msg.CorrelationHash,
	)
}

// send isolates each attempt from the parent's cancellation so queued work
// can finish during shutdown.
func (d *Dispatcher) send(ctx context.Context, msg Message) error {
	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.sendTimeout)
	defer cancel()
	return d.notifier.Send(sendCtx, msg)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
