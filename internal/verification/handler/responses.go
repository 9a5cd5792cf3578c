package handler

import "kycbridge/internal/verification/models"

// CreateSessionResponse is the HTTP response for POST /create-session.
type CreateSessionResponse struct {
	Status          string `json:"status"`
	VerificationURL string `json:"verificationUrl"`
}

func FromResult(result *models.SessionResult) *CreateSessionResponse {
	return &CreateSessionResponse{
		Status:          "success",
		VerificationURL: result.VerificationURL,
	}
}
