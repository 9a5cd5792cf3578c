// Package service turns provider decision callbacks into notifications.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"kycbridge/internal/audit"
	corrModels "kycbridge/internal/correlation/models"
	"kycbridge/internal/decision/metrics"
	"kycbridge/internal/decision/models"
	"kycbridge/internal/decision/ports"
	"kycbridge/internal/notify"
	"kycbridge/internal/platform/logger"
	"kycbridge/internal/signing"
	dErrors "kycbridge/pkg/domain-errors"
	"kycbridge/pkg/platform/sentinel"
	"kycbridge/pkg/requestcontext"
)

const defaultHandledTTL = 30 * 24 * time.Hour

// ErrUnauthenticated marks callbacks that failed signature verification.
var ErrUnauthenticated = dErrors.New(dErrors.CodeUnauthorized, "callback signature verification failed")

// Service handles decision callbacks.
type Service struct {
	store            ports.CorrelationStore
	notifications    ports.Notifications
	signer           *signing.Signer
	requireSignature bool
	dedupe           bool
	opaqueTokens     bool
	handledTTL       time.Duration
	messages         models.Messages
	logger           *slog.Logger
	metrics          *metrics.Metrics
	auditor          audit.Publisher
}

type Option func(*Service)

// WithSignatureVerification enables callback authentication with secret.
// An empty secret with required verification rejects every callback.
func WithSignatureVerification(secret string, required bool) Option {
	return func(s *Service) {
		s.signer = signing.NewSigner(secret)
		s.requireSignature = required
	}
}

// WithDedupe toggles at-most-once delivery per token, session and status.
func WithDedupe(enabled bool) Option {
	return func(s *Service) { s.dedupe = enabled }
}

// WithOpaqueTokens disables the fallback of treating an unknown token as the
// recipient handle.
func WithOpaqueTokens(opaque bool) Option {
	return func(s *Service) { s.opaqueTokens = opaque }
}

func WithHandledTTL(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.handledTTL = d
		}
	}
}

func WithMessages(m models.Messages) Option {
	return func(s *Service) { s.messages = m }
}

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

func New(store ports.CorrelationStore, notifications ports.Notifications, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("correlation store is required")
	}
	if notifications == nil {
		return nil, errors.New("notifications are required")
	}
	s := &Service{
		store:            store,
		notifications:    notifications,
		requireSignature: true,
		dedupe:           true,
		handledTTL:       defaultHandledTTL,
		messages:         models.DefaultMessages(),
		logger:           slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// HandleDecision authenticates, parses and dispatches one callback. The only
// error it returns is ErrUnauthenticated; every other failure is reported in
// the result.
func (s *Service) HandleDecision(ctx context.Context, raw []byte, signature string) (*models.ProcessingResult, error) {
	start := time.Now()
	defer func() { s.metrics.ObserveHandleLatency(time.Since(start)) }()
	requestID := requestcontext.RequestID(ctx)

	if err := s.authenticate(raw, signature); err != nil {
		s.metrics.IncrementSignatureFailure()
		s.metrics.IncrementOutcome(string(models.StatusUnknown), string(models.OutcomeRejected))
		s.logger.WarnContext(ctx, "decision callback rejected",
			"request_id", requestID,
			"error", err,
		)
		audit.Emit(ctx, s.auditor, s.logger, audit.Event{
			Action:    audit.ActionDecisionDenied,
			Outcome:   string(models.OutcomeRejected),
			Reason:    err.Error(),
			RequestID: requestID,
		})
		return &models.ProcessingResult{Status: models.OutcomeRejected}, ErrUnauthenticated
	}

	cb, err := parseCallback(raw)
	if err != nil {
		s.logger.WarnContext(ctx, "malformed decision callback",
			"request_id", requestID,
			"error", err,
		)
		return s.finish(ctx, "", "", models.StatusUnknown, &models.ProcessingResult{
			Status: models.OutcomeError,
			Reason: models.ReasonMalformed,
		}), nil
	}

	v := cb.Verification
	status := models.ParseStatus(v.Status)
	token := strings.TrimSpace(v.VendorData)
	if token == "" {
		return s.finish(ctx, "", v.ID, status, &models.ProcessingResult{
			Status:   models.OutcomeIgnored,
			Decision: string(status),
			Reason:   models.ReasonMissingCorrelation,
		}), nil
	}

	if !status.Notifies() {
		s.logger.InfoContext(ctx, "decision status has no notification",
			"request_id", requestID,
			"session_id", v.ID,
			"status", status,
		)
		return s.finish(ctx, token, v.ID, status, &models.ProcessingResult{
			Status:   models.OutcomeProcessed,
			Decision: string(status),
		}), nil
	}

	recipient, result := s.resolveRecipient(ctx, token, status)
	if result != nil {
		return s.finish(ctx, token, v.ID, status, result), nil
	}

	key := corrModels.HandledKey{Token: token, SessionID: v.ID, Status: string(status)}
	if s.dedupe {
		first, err := s.store.MarkHandled(ctx, key, s.handledTTL)
		if err != nil {
			s.logger.ErrorContext(ctx, "failed to mark decision handled",
				"request_id", requestID,
				"session_id", v.ID,
				"error", err,
			)
			return s.finish(ctx, token, v.ID, status, &models.ProcessingResult{
				Status:   models.OutcomeError,
				Decision: string(status),
				Reason:   models.ReasonStoreUnavailable,
			}), nil
		}
		if !first {
			s.logger.InfoContext(ctx, "duplicate decision callback",
				"request_id", requestID,
				"session_id", v.ID,
				"status", status,
			)
			return s.finish(ctx, token, v.ID, status, &models.ProcessingResult{
				Status:   models.OutcomeDuplicate,
				Decision: string(status),
			}), nil
		}
	}

	body, _ := s.messages.Render(status, strings.TrimSpace(v.Reason))
	notified := true
	err = s.notifications.Enqueue(ctx, notify.Message{
		RecipientHandle: recipient,
		Body:            body,
		CorrelationHash: audit.HashHandle(token),
	})
	if err != nil {
		notified = false
		s.logger.WarnContext(ctx, "failed to schedule decision notification",
			"request_id", requestID,
			"recipient", logger.MaskHandle(recipient),
			"error", err,
		)
		if s.dedupe {
			s.releaseHandled(ctx, key)
		}
	}
	return s.finish(ctx, token, v.ID, status, &models.ProcessingResult{
		Status:   models.OutcomeProcessed,
		Decision: string(status),
		Notified: notified,
	}), nil
}

// releaseHandled undoes a claim whose notification never reached the queue,
// so the provider's redelivery is not mistaken for a duplicate.
func (s *Service) releaseHandled(ctx context.Context, key corrModels.HandledKey) {
	if err := s.store.ReleaseHandled(context.WithoutCancel(ctx), key); err != nil {
		s.logger.ErrorContext(ctx, "failed to release decision mark",
			"request_id", requestcontext.RequestID(ctx),
			"session_id", key.SessionID,
			"error", err,
		)
	}
}

func (s *Service) authenticate(raw []byte, signature string) error {
	if !s.requireSignature {
		return nil
	}
	return s.signer.Verify(raw, signature)
}

// resolveRecipient returns the handle to notify, or a final result when the
// callback cannot be routed.
func (s *Service) resolveRecipient(ctx context.Context, token string, status models.Status) (string, *models.ProcessingResult) {
	rec, err := s.store.Resolve(ctx, token)
	if err == nil {
		return rec.RecipientHandle, nil
	}
	notFound := errors.Is(err, sentinel.ErrNotFound)
	if !notFound {
		s.logger.WarnContext(ctx, "correlation lookup failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
	}
	if !s.opaqueTokens {
		return token, nil
	}
	if notFound {
		return "", &models.ProcessingResult{
			Status:   models.OutcomeIgnored,
			Decision: string(status),
			Reason:   models.ReasonUnknownCorrelation,
		}
	}
	return "", &models.ProcessingResult{
		Status:   models.OutcomeError,
		Decision: string(status),
		Reason:   models.ReasonStoreUnavailable,
	}
}

func (s *Service) finish(ctx context.Context, token, sessionID string, status models.Status, result *models.ProcessingResult) *models.ProcessingResult {
	s.metrics.IncrementOutcome(status.MetricLabel(), string(result.Status))
	action := audit.ActionDecisionHandled
	if result.Status != models.OutcomeProcessed {
		action = audit.ActionDecisionIgnored
	}
	audit.Emit(ctx, s.auditor, s.logger, audit.Event{
		Action:          action,
		CorrelationHash: audit.HashHandle(token),
		SessionID:       sessionID,
		Decision:        result.Decision,
		Outcome:         string(result.Status),
		Reason:          result.Reason,
		RequestID:       requestcontext.RequestID(ctx),
	})
	return result
}

var errMissingVerification = errors.New("callback has no verification object")

func parseCallback(raw []byte) (*models.Callback, error) {
	var cb models.Callback
	if err := json.Unmarshal(raw, &cb); err != nil {
		return nil, err
	}
	if cb.Verification == nil {
		return nil, errMissingVerification
	}
	return &cb, nil
}
