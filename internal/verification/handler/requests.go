package handler

import (
	"kycbridge/internal/verification/models"
	dErrors "kycbridge/pkg/domain-errors"
)

// CreateSessionRequest is the HTTP request body for POST /create-session.
// The snake_case names are accepted for older bot flows.
type CreateSessionRequest struct {
	FirstName      string `json:"firstName"`
	LastName       string `json:"lastName"`
	FirstNameSnake string `json:"first_name"`
	LastNameSnake  string `json:"last_name"`
	Phone          string `json:"phone"`

	parsed *models.VerificationRequest
}

// Validate implements httputil.Validatable.
func (r *CreateSessionRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	first := r.FirstName
	if first == "" {
		first = r.FirstNameSnake
	}
	last := r.LastName
	if last == "" {
		last = r.LastNameSnake
	}
	parsed, err := models.NewVerificationRequest(first, last, r.Phone)
	if err != nil {
		return err
	}
	r.parsed = parsed
	return nil
}

// Parsed returns the validated domain request. Only valid after Validate.
func (r *CreateSessionRequest) Parsed() *models.VerificationRequest {
	return r.parsed
}
