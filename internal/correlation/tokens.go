package correlation

import (
	"fmt"

	"github.com/google/uuid"
)

// TokenIssuer produces the correlation token that travels through the
// provider's vendorData field.
type TokenIssuer interface {
	Issue(recipientHandle string) (string, error)
	// Opaque reports whether the token is meaningless without the store.
	Opaque() bool
}

// HandleTokens uses the recipient handle itself as the token. The callback
// can be resolved even when the store has lost the record.
type HandleTokens struct{}

func (HandleTokens) Issue(recipientHandle string) (string, error) {
	if recipientHandle == "" {
		return "", fmt.Errorf("recipient handle is required")
	}
	return recipientHandle, nil
}

func (HandleTokens) Opaque() bool { return false }

// OpaqueTokens issues random UUIDs so no personal data reaches the provider.
type OpaqueTokens struct{}

func (OpaqueTokens) Issue(string) (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("generate correlation token: %w", err)
	}
	return id.String(), nil
}

func (OpaqueTokens) Opaque() bool { return true }

// IssuerFor returns the issuer for a configured mode name.
func IssuerFor(mode string) (TokenIssuer, error) {
	switch mode {
	case "", "handle":
		return HandleTokens{}, nil
	case "opaque":
		return OpaqueTokens{}, nil
	default:
		return nil, fmt.Errorf("unknown correlation mode %q", mode)
	}
}
