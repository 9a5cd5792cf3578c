package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"kycbridge/internal/platform/logger"
	"kycbridge/internal/verification/models"
	"kycbridge/pkg/platform/httputil"
	"kycbridge/pkg/requestcontext"
)

// Service defines the session creation dependency.
type Service interface {
	CreateSession(ctx context.Context, req *models.VerificationRequest) (*models.SessionResult, error)
}

// Handler wires session endpoints to the verification service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts session endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/create-session", h.HandleCreateSession)
}

// HandleCreateSession handles POST /create-session requests.
func (h *Handler) HandleCreateSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	req, ok := httputil.DecodeAndPrepare[CreateSessionRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	result, err := h.service.CreateSession(ctx, req.Parsed())
	if err != nil {
		h.logger.ErrorContext(ctx, "session creation failed",
			"request_id", requestID,
			"recipient", logger.MaskHandle(req.Parsed().RecipientHandle),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "session created",
		"request_id", requestID,
		"recipient", logger.MaskHandle(req.Parsed().RecipientHandle),
		"session_id", result.SessionID,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, FromResult(result))
}
