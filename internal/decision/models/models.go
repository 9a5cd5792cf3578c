package models

import "strings"

// Status is the provider's verification decision.
type Status string

const (
	StatusApproved              Status = "approved"
	StatusDeclined              Status = "declined"
	StatusResubmissionRequested Status = "resubmission_requested"
	StatusExpired               Status = "expired"
	StatusAbandoned             Status = "abandoned"
	StatusUnknown               Status = "unknown"
)

// ParseStatus normalizes the provider value. Unrecognized values are
// returned lowercased as-is so they can be echoed back.
func ParseStatus(raw string) Status {
	s := strings.ToLower(strings.TrimSpace(raw))
	switch s {
	case "":
		return StatusUnknown
	case "resubmissionrequested", "resubmission-requested":
		return StatusResubmissionRequested
	default:
		return Status(s)
	}
}

// Notifies reports whether the status results in a message to the person.
func (s Status) Notifies() bool {
	switch s {
	case StatusApproved, StatusDeclined, StatusResubmissionRequested, StatusExpired, StatusAbandoned:
		return true
	default:
		return false
	}
}

// MetricLabel bounds label cardinality for unrecognized statuses.
func (s Status) MetricLabel() string {
	if s.Notifies() || s == StatusUnknown {
		return string(s)
	}
	return "other"
}

// Callback is the provider's decision webhook body. The decision lives in
// verification.status; other top-level fields are ignored.
type Callback struct {
	Verification *CallbackVerification `json:"verification"`
}

type CallbackVerification struct {
	ID         string `json:"id"`
	Status     string `json:"status"`
	Reason     string `json:"reason"`
	VendorData string `json:"vendorData"`
}

// Outcome is the processing result reported to the provider.
type Outcome string

const (
	OutcomeProcessed Outcome = "processed"
	OutcomeIgnored   Outcome = "ignored"
	OutcomeError     Outcome = "error"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeRejected  Outcome = "rejected"
)

// Ignore and error reasons.
const (
	ReasonMissingCorrelation = "missing_correlation"
	ReasonUnknownCorrelation = "unknown_correlation"
	ReasonMalformed          = "malformed_callback"
	ReasonStoreUnavailable   = "store_unavailable"
)

// ProcessingResult summarizes what happened to one callback.
type ProcessingResult struct {
	Status   Outcome
	Decision string
	Reason   string
	Notified bool
}
