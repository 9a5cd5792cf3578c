package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"

	"kycbridge/internal/correlation/models"
	"kycbridge/pkg/platform/sentinel"
)

var resolveDurationMs = promauto.NewHistogram(prometheus.HistogramOpts{
	Name:    "kycbridge_correlation_redis_resolve_duration_ms",
	Help:    "Latency of correlation token lookups in milliseconds",
	Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25},
})

const (
	recordKeyPrefix  = "corr:tok:"
	handledKeyPrefix = "corr:done:"
)

// RedisStore shares correlation state across instances. Retention is
// delegated to Redis key expiry.
type RedisStore struct {
	client *redis.Client
	clock  func() time.Time
}

type Option func(*RedisStore)

// WithClock sets the clock function for testability.
func WithClock(clock func() time.Time) Option {
	return func(s *RedisStore) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// NewRedis constructs a Redis-backed correlation store.
func NewRedis(client *redis.Client, opts ...Option) *RedisStore {
	s := &RedisStore{client: client, clock: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func (s *RedisStore) Put(ctx context.Context, rec *models.Record, ttl time.Duration) error {
	if rec == nil || rec.Token == "" {
		return fmt.Errorf("token is required: %w", sentinel.ErrInvalidState)
	}
	if ttl <= 0 {
		return fmt.Errorf("ttl must be positive: %w", sentinel.ErrInvalidState)
	}
	stored := *rec
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = s.clock()
	}
	stored.ExpiresAt = stored.CreatedAt.Add(ttl)
	raw, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("marshal correlation record: %w", err)
	}
	if err := s.client.Set(ctx, recordKeyPrefix+stored.Token, raw, ttl).Err(); err != nil {
		return fmt.Errorf("store correlation record: %w", err)
	}
	return nil
}

// AttachSession updates the record under WATCH so a concurrent Put is not
// overwritten with stale data. The key keeps its remaining TTL.
func (s *RedisStore) AttachSession(ctx context.Context, token, sessionID string) error {
	key := recordKeyPrefix + token
	return s.client.Watch(ctx, func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return sentinel.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("load correlation record: %w", err)
		}
		var rec models.Record
		if err := json.Unmarshal(raw, &rec); err != nil {
			return fmt.Errorf("decode correlation record: %w", err)
		}
		rec.SessionID = sessionID
		updated, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("marshal correlation record: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.SetArgs(ctx, key, updated, redis.SetArgs{KeepTTL: true})
			return nil
		})
		return err
	}, key)
}

func (s *RedisStore) Resolve(ctx context.Context, token string) (*models.Record, error) {
	start := time.Now()
	defer func() {
		resolveDurationMs.Observe(float64(time.Since(start).Microseconds()) / 1000.0)
	}()

	raw, err := s.client.Get(ctx, recordKeyPrefix+token).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("resolve correlation token: %w", err)
	}
	var rec models.Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("decode correlation record: %w", err)
	}
	if rec.Expired(s.clock()) {
		return nil, sentinel.ErrNotFound
	}
	return &rec, nil
}

// MarkHandled uses SET NX so exactly one caller wins across instances.
func (s *RedisStore) MarkHandled(ctx context.Context, key models.HandledKey, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		return false, fmt.Errorf("ttl must be positive: %w", sentinel.ErrInvalidState)
	}
	ok, err := s.client.SetNX(ctx, handledKeyPrefix+key.String(), "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("mark decision handled: %w", err)
	}
	return ok, nil
}

func (s *RedisStore) ReleaseHandled(ctx context.Context, key models.HandledKey) error {
	if err := s.client.Del(ctx, handledKeyPrefix+key.String()).Err(); err != nil {
		return fmt.Errorf("release decision mark: %w", err)
	}
	return nil
}

// Purge is a no-op; Redis expires keys itself.
func (s *RedisStore) Purge(context.Context, time.Time) (int, error) {
	return 0, nil
}

func (s *RedisStore) Health(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
