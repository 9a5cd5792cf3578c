package models

import (
	"regexp"
	"strings"

	dErrors "kycbridge/pkg/domain-errors"
)

const (
	maxNameLength   = 100
	maxHandleLength = 64
)

// handlePattern accepts E.164-like numbers. Digits only keeps the handle safe
// to round trip through the provider's vendorData field unmodified.
var handlePattern = regexp.MustCompile(`^\+?[0-9]{6,20}$`)

var handleSeparators = strings.NewReplacer(" ", "", "-", "", "(", "", ")", "", ".", "")

// VerificationRequest is the person a verification session is started for.
type VerificationRequest struct {
	FirstName       string
	LastName        string
	RecipientHandle string
}

// NewVerificationRequest validates and normalizes the inbound fields.
func NewVerificationRequest(firstName, lastName, handle string) (*VerificationRequest, error) {
	firstName = strings.TrimSpace(firstName)
	lastName = strings.TrimSpace(lastName)
	handle = strings.TrimSpace(handle)

	if firstName == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "firstName is required")
	}
	if lastName == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "lastName is required")
	}
	if len(firstName) > maxNameLength || len(lastName) > maxNameLength {
		return nil, dErrors.New(dErrors.CodeValidation, "names must be at most 100 characters")
	}
	if handle == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "phone is required")
	}
	if len(handle) > maxHandleLength {
		return nil, dErrors.New(dErrors.CodeValidation, "phone must be at most 64 characters")
	}
	handle = handleSeparators.Replace(handle)
	if !handlePattern.MatchString(handle) {
		return nil, dErrors.New(dErrors.CodeValidation, "phone must contain 6 to 20 digits with an optional leading +")
	}
	return &VerificationRequest{FirstName: firstName, LastName: lastName, RecipientHandle: handle}, nil
}

// SessionResult is what the caller gets back once the provider accepted the
// session.
type SessionResult struct {
	VerificationURL  string
	SessionID        string
	CorrelationToken string
}

// SessionPayload is the provider's session creation body.
type SessionPayload struct {
	Verification SessionVerification `json:"verification"`
}

type SessionVerification struct {
	Callback   string   `json:"callback,omitempty"`
	Person     Person   `json:"person"`
	Document   Document `json:"document"`
	VendorData string   `json:"vendorData"`
}

type Person struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

type Document struct {
	Type string `json:"type"`
}
