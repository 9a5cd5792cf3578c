package handler

import "kycbridge/internal/decision/models"

// DecisionResponse is the HTTP response for POST /webhook/decision.
type DecisionResponse struct {
	Status   string `json:"status"`
	Decision string `json:"decision,omitempty"`
	Reason   string `json:"reason,omitempty"`
	Notified bool   `json:"notified"`
}

func FromResult(result *models.ProcessingResult) *DecisionResponse {
	return &DecisionResponse{
		Status:   string(result.Status),
		Decision: result.Decision,
		Reason:   result.Reason,
		Notified: result.Notified,
	}
}
