// Package service starts verification sessions with the provider and records
// the correlation needed to route the provider's decision back.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"kycbridge/internal/audit"
	"kycbridge/internal/correlation"
	corrModels "kycbridge/internal/correlation/models"
	"kycbridge/internal/platform/logger"
	"kycbridge/internal/verification/metrics"
	"kycbridge/internal/verification/models"
	"kycbridge/internal/verification/provider"
	dErrors "kycbridge/pkg/domain-errors"
	"kycbridge/pkg/requestcontext"
)

const (
	defaultRetention    = 30 * 24 * time.Hour
	defaultDocumentType = "ID_CARD"

	msgNotConfigured = "verification provider is not configured"
	msgProviderError = "failed to communicate with verification provider"
)

// SessionClient is the provider surface the service depends on.
type SessionClient interface {
	Configured() bool
	CreateSession(ctx context.Context, body []byte) (*provider.SessionResponse, error)
}

// Service creates verification sessions.
type Service struct {
	client       SessionClient
	store        correlation.Store
	tokens       correlation.TokenIssuer
	logger       *slog.Logger
	metrics      *metrics.Metrics
	auditor      audit.Publisher
	retention    time.Duration
	callbackURL  string
	documentType string
}

// Option configures a Service.
type Option func(*Service)

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithAuditPublisher(p audit.Publisher) Option {
	return func(s *Service) { s.auditor = p }
}

func WithTokenIssuer(t correlation.TokenIssuer) Option {
	return func(s *Service) {
		if t != nil {
			s.tokens = t
		}
	}
}

// WithRetention sets how long correlation records are kept.
func WithRetention(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.retention = d
		}
	}
}

func WithCallbackURL(u string) Option {
	return func(s *Service) { s.callbackURL = u }
}

func WithDocumentType(t string) Option {
	return func(s *Service) {
		if t != "" {
			s.documentType = t
		}
	}
}

func New(client SessionClient, store correlation.Store, opts ...Option) (*Service, error) {
	if client == nil {
		return nil, errors.New("session client is required")
	}
	if store == nil {
		return nil, errors.New("correlation store is required")
	}
	s := &Service{
		client:       client,
		store:        store,
		tokens:       correlation.HandleTokens{},
		logger:       slog.Default(),
		retention:    defaultRetention,
		documentType: defaultDocumentType,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// CreateSession asks the provider for a hosted verification session for req.
func (s *Service) CreateSession(ctx context.Context, req *models.VerificationRequest) (*models.SessionResult, error) {
	if req == nil {
		return nil, dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	requestID := requestcontext.RequestID(ctx)

	if !s.client.Configured() {
		s.metrics.IncrementSession("not_configured")
		s.logger.ErrorContext(ctx, "verification provider credentials missing",
			"request_id", requestID,
		)
		return nil, dErrors.New(dErrors.CodeConfiguration, msgNotConfigured)
	}

	token, err := s.tokens.Issue(req.RecipientHandle)
	if err != nil {
		s.metrics.IncrementSession("internal")
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "issue correlation token")
	}

	now := requestcontext.Now(ctx)
	record := &corrModels.Record{
		Token:           token,
		RecipientHandle: req.RecipientHandle,
		CreatedAt:       now,
		ExpiresAt:       now.Add(s.retention),
	}
	if err := s.store.Put(ctx, record, s.retention); err != nil {
		if s.tokens.Opaque() {
			s.metrics.IncrementSession("store_error")
			s.logger.ErrorContext(ctx, "failed to record correlation",
				"request_id", requestID,
				"error", err,
			)
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "record correlation")
		}
		s.logger.WarnContext(ctx, "failed to record correlation, continuing with handle token",
			"request_id", requestID,
			"recipient", logger.MaskHandle(req.RecipientHandle),
			"error", err,
		)
	}

	body, err := json.Marshal(s.buildPayload(req, token))
	if err != nil {
		s.metrics.IncrementSession("internal")
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "encode session payload")
	}

	start := time.Now()
	resp, err := s.client.CreateSession(ctx, body)
	if err != nil {
		return nil, s.providerFailure(ctx, requestID, token, time.Since(start), err)
	}
	s.metrics.ObserveProviderLatency("success", time.Since(start))

	sessionID := resp.Verification.ID
	if sessionID != "" {
		if err := s.store.AttachSession(ctx, token, sessionID); err != nil {
			s.logger.WarnContext(ctx, "failed to attach provider session to correlation",
				"request_id", requestID,
				"session_id", sessionID,
				"error", err,
			)
		}
	}

	s.metrics.IncrementSession("created")
	audit.Emit(ctx, s.auditor, s.logger, audit.Event{
		Action:          audit.ActionSessionCreated,
		CorrelationHash: audit.HashHandle(token),
		SessionID:       sessionID,
		Outcome:         "created",
		RequestID:       requestID,
	})

	return &models.SessionResult{
		VerificationURL:  resp.Verification.URL,
		SessionID:        sessionID,
		CorrelationToken: token,
	}, nil
}

func (s *Service) buildPayload(req *models.VerificationRequest, token string) models.SessionPayload {
	return models.SessionPayload{
		Verification: models.SessionVerification{
			Callback: s.callbackURL,
			Person: models.Person{
				FirstName: req.FirstName,
				LastName:  req.LastName,
			},
			Document:   models.Document{Type: s.documentType},
			VendorData: token,
		},
	}
}

// providerFailure logs the provider detail server-side and returns a generic
// coded error.
func (s *Service) providerFailure(ctx context.Context, requestID, token string, elapsed time.Duration, err error) error {
	category := provider.GetCategory(err)
	attrs := []any{
		"request_id", requestID,
		"category", category,
		"duration_ms", elapsed.Milliseconds(),
		"error", err,
	}
	var pe *provider.ProviderError
	if errors.As(err, &pe) {
		attrs = append(attrs, "status_code", pe.StatusCode, "provider_body", pe.Detail)
	}
	s.logger.ErrorContext(ctx, "verification provider request failed", attrs...)

	code, outcome := dErrors.CodeProviderRejected, "rejected"
	switch category {
	case provider.ErrorTimeout, provider.ErrorUnreachable:
		code, outcome = dErrors.CodeProviderUnavailable, "unavailable"
	case provider.ErrorNotConfigured:
		code, outcome = dErrors.CodeConfiguration, "not_configured"
	}
	s.metrics.ObserveProviderLatency(outcome, elapsed)
	s.metrics.IncrementSession(outcome)
	audit.Emit(ctx, s.auditor, s.logger, audit.Event{
		Action:          audit.ActionSessionFailed,
		CorrelationHash: audit.HashHandle(token),
		Outcome:         outcome,
		Reason:          string(category),
		RequestID:       requestID,
	})

	if code == dErrors.CodeConfiguration {
		return dErrors.Wrap(err, code, msgNotConfigured)
	}
	return dErrors.Wrap(err, code, msgProviderError)
}
