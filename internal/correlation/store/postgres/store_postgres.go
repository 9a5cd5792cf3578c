package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"kycbridge/internal/correlation/models"
	"kycbridge/pkg/platform/sentinel"
)

//go:embed schema.sql
var schema string

// PostgresStore persists correlation state in PostgreSQL.
type PostgresStore struct {
	db    *sql.DB
	clock func() time.Time
}

type Option func(*PostgresStore)

// WithClock sets the clock function for testability.
func WithClock(clock func() time.Time) Option {
	return func(s *PostgresStore) {
		if clock != nil {
			s.clock = clock
		}
	}
}

func NewPostgres(db *sql.DB, opts ...Option) *PostgresStore {
	s := &PostgresStore{db: db, clock: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// EnsureSchema creates the tables when missing.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply correlation schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Put(ctx context.Context, rec *models.Record, ttl time.Duration) error {
	if rec == nil || rec.Token == "" {
		return fmt.Errorf("token is required: %w", sentinel.ErrInvalidState)
	}
	if ttl <= 0 {
		return fmt.Errorf("ttl must be positive: %w", sentinel.ErrInvalidState)
	}
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = s.clock()
	}
	query := `
		INSERT INTO correlation_records (token, recipient_handle, session_id, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (token) DO UPDATE SET
			recipient_handle = EXCLUDED.recipient_handle,
			session_id = EXCLUDED.session_id,
			created_at = EXCLUDED.created_at,
			expires_at = EXCLUDED.expires_at
	`
	_, err := s.db.ExecContext(ctx, query, rec.Token, rec.RecipientHandle, rec.SessionID, createdAt, createdAt.Add(ttl))
	if err != nil {
		return fmt.Errorf("store correlation record: %w", err)
	}
	return nil
}

func (s *PostgresStore) AttachSession(ctx context.Context, token, sessionID string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE correlation_records SET session_id = $2 WHERE token = $1 AND expires_at > $3`,
		token, sessionID, s.clock())
	if err != nil {
		return fmt.Errorf("attach session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("attach session: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Resolve(ctx context.Context, token string) (*models.Record, error) {
	var rec models.Record
	err := s.db.QueryRowContext(ctx, `
		SELECT token, recipient_handle, session_id, created_at, expires_at
		FROM correlation_records
		WHERE token = $1`, token).
		Scan(&rec.Token, &rec.RecipientHandle, &rec.SessionID, &rec.CreatedAt, &rec.ExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("resolve correlation token: %w", err)
	}
	if rec.Expired(s.clock()) {
		return nil, sentinel.ErrNotFound
	}
	return &rec, nil
}

// MarkHandled relies on the primary key: the insert that lands first wins.
// An expired mark is replaced in the same statement.
func (s *PostgresStore) MarkHandled(ctx context.Context, key models.HandledKey, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		return false, fmt.Errorf("ttl must be positive: %w", sentinel.ErrInvalidState)
	}
	now := s.clock()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO handled_decisions (decision_key, handled_at, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (decision_key) DO UPDATE SET
			handled_at = EXCLUDED.handled_at,
			expires_at = EXCLUDED.expires_at
		WHERE handled_decisions.expires_at <= EXCLUDED.handled_at`,
		key.String(), now, now.Add(ttl))
	if err != nil {
		return false, fmt.Errorf("mark decision handled: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark decision handled: %w", err)
	}
	return n == 1, nil
}

func (s *PostgresStore) ReleaseHandled(ctx context.Context, key models.HandledKey) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM handled_decisions WHERE decision_key = $1`, key.String())
	if err != nil {
		return fmt.Errorf("release decision mark: %w", err)
	}
	return nil
}

func (s *PostgresStore) Purge(ctx context.Context, now time.Time) (int, error) {
	var total int64
	for _, q := range []string{
		`DELETE FROM correlation_records WHERE expires_at <= $1`,
		`DELETE FROM handled_decisions WHERE expires_at <= $1`,
	} {
		res, err := s.db.ExecContext(ctx, q, now)
		if err != nil {
			return int(total), fmt.Errorf("purge correlation state: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return int(total), fmt.Errorf("purge correlation state: %w", err)
		}
		total += n
	}
	return int(total), nil
}

func (s *PostgresStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
