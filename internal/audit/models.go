package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Action names the step of the verification flow an event records.
type Action string

const (
	ActionSessionCreated  Action = "session_created"
	ActionSessionFailed   Action = "session_failed"
	ActionDecisionHandled Action = "decision_handled"
	ActionDecisionIgnored Action = "decision_ignored"
	ActionDecisionDenied  Action = "decision_rejected"
)

// Event is an operational trail entry. It never carries a raw recipient
// handle; CorrelationHash is derived with HashHandle.
type Event struct {
	Timestamp       time.Time `json:"timestamp"`
	Action          Action    `json:"action"`
	CorrelationHash string    `json:"correlation_hash,omitempty"`
	SessionID       string    `json:"session_id,omitempty"`
	Decision        string    `json:"decision,omitempty"`
	Outcome         string    `json:"outcome,omitempty"`
	Reason          string    `json:"reason,omitempty"`
	RequestID       string    `json:"request_id,omitempty"`
}

const hashPrefixLen = 16

// HashHandle returns a stable, non-reversible prefix of the SHA-256 of v.
func HashHandle(v string) string {
	if v == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(v))
	return hex.EncodeToString(sum[:])[:hashPrefixLen]
}
