// Package signing computes and verifies the HMAC-SHA256 signatures exchanged
// with the verification provider. Signatures always cover the exact bytes on
// the wire; callers must not re-serialize between signing and sending.
package signing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
)

// SignatureHeader carries the hex signature on requests in both directions.
const SignatureHeader = "X-HMAC-SIGNATURE"

var (
	ErrEmptySecret        = errors.New("signing secret is not configured")
	ErrMissingSignature   = errors.New("signature is required")
	ErrMalformedSignature = errors.New("signature is not valid hex")
	ErrSignatureMismatch  = errors.New("signature verification failed")
)

// Sign returns the lowercase hex HMAC-SHA256 of body keyed by secret.
func Sign(body, secret []byte) (string, error) {
	if len(secret) == 0 {
		return "", ErrEmptySecret
	}
	mac := hmac.New(sha256.New, secret)
	_, _ = mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil)), nil
}

// Verify checks signature against body in constant time. The header value may
// be upper or lower case hex and may carry a "sha256=" prefix.
func Verify(body, secret []byte, signature string) error {
	if len(secret) == 0 {
		return ErrEmptySecret
	}
	signature = strings.ToLower(strings.TrimSpace(signature))
	signature = strings.TrimPrefix(signature, "sha256=")
	if signature == "" {
		return ErrMissingSignature
	}
	provided, err := hex.DecodeString(signature)
	if err != nil {
		return ErrMalformedSignature
	}
	mac := hmac.New(sha256.New, secret)
	_, _ = mac.Write(body)
	if !hmac.Equal(provided, mac.Sum(nil)) {
		return ErrSignatureMismatch
	}
	return nil
}

// Signer binds Sign and Verify to one shared secret.
type Signer struct {
	secret []byte
}

func NewSigner(secret string) *Signer {
	return &Signer{secret: []byte(secret)}
}

// Configured reports whether a secret is present.
func (s *Signer) Configured() bool {
	return s != nil && len(s.secret) > 0
}

func (s *Signer) Sign(body []byte) (string, error) {
	if s == nil {
		return "", ErrEmptySecret
	}
	return Sign(body, s.secret)
}

func (s *Signer) Verify(body []byte, signature string) error {
	if s == nil {
		return ErrEmptySecret
	}
	return Verify(body, s.secret, signature)
}
