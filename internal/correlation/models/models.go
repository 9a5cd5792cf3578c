package models

import (
	"strings"
	"time"
)

// Record ties a correlation token to the person who started the session.
type Record struct {
	Token           string    `json:"token"`
	RecipientHandle string    `json:"recipient_handle"`
	SessionID       string    `json:"session_id,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	ExpiresAt       time.Time `json:"expires_at"`
}

// Expired reports whether the record is past its retention at now.
func (r *Record) Expired(now time.Time) bool {
	return !r.ExpiresAt.IsZero() && !now.Before(r.ExpiresAt)
}

// HandledKey identifies one decision for at-most-once delivery. SessionID is
// optional; when the provider omits it the key degrades to token and status.
type HandledKey struct {
	Token     string
	SessionID string
	Status    string
}

func (k HandledKey) String() string {
	return strings.Join([]string{k.Token, k.SessionID, strings.ToLower(k.Status)}, "|")
}
