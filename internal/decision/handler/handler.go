package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"kycbridge/internal/decision/models"
	"kycbridge/internal/signing"
	dErrors "kycbridge/pkg/domain-errors"
	"kycbridge/pkg/platform/httputil"
	"kycbridge/pkg/requestcontext"
)

// Service defines the callback processing dependency.
type Service interface {
	HandleDecision(ctx context.Context, raw []byte, signature string) (*models.ProcessingResult, error)
}

// Handler receives provider decision callbacks. It answers 200 for anything
// but an authentication failure so the provider does not retry.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the webhook on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/webhook/decision", h.HandleDecision)
}

// HandleDecision handles POST /webhook/decision requests.
func (h *Handler) HandleDecision(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, httputil.MaxBodyBytes))
	if err != nil {
		h.logger.WarnContext(ctx, "failed to read decision callback",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteJSON(w, http.StatusOK, &DecisionResponse{Status: string(models.OutcomeError), Reason: models.ReasonMalformed})
		return
	}

	result, err := h.service.HandleDecision(ctx, raw, r.Header.Get(signing.SignatureHeader))
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeUnauthorized) {
			httputil.WriteJSON(w, http.StatusUnauthorized, &DecisionResponse{Status: string(models.OutcomeRejected)})
			return
		}
		h.logger.ErrorContext(ctx, "decision callback failed",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteJSON(w, http.StatusOK, &DecisionResponse{Status: string(models.OutcomeError)})
		return
	}

	h.logger.InfoContext(ctx, "decision callback handled",
		"request_id", requestID,
		"outcome", result.Status,
		"decision", result.Decision,
		"notified", result.Notified,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, FromResult(result))
}
