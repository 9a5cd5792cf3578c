// Package provider talks to the identity-verification provider's session API.
package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"kycbridge/internal/signing"
)

const (
	HeaderAuthClient    = "X-AUTH-CLIENT"
	HeaderHMACSignature = signing.SignatureHeader

	defaultTimeout = 10 * time.Second
	maxDetailBytes = 512
	maxBodyBytes   = 1 << 20
)

var tracer = otel.Tracer("kycbridge/verification/provider")

// SessionResponse is the subset of the provider's reply we rely on.
type SessionResponse struct {
	Status       string `json:"status"`
	Verification struct {
		ID           string `json:"id"`
		URL          string `json:"url"`
		VendorData   string `json:"vendorData"`
		SessionToken string `json:"sessionToken"`
	} `json:"verification"`
}

// Client creates verification sessions. Requests are signed over the exact
// bytes sent.
type Client struct {
	sessionsURL string
	clientKey   string
	signer      *signing.Signer
	httpClient  *http.Client
}

type Option func(*Client)

// WithHTTPClient replaces the default client. A client without a timeout
// gets the default one.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

func NewClient(sessionsURL, clientKey, sharedSecret string, opts ...Option) *Client {
	c := &Client{
		sessionsURL: sessionsURL,
		clientKey:   clientKey,
		signer:      signing.NewSigner(sharedSecret),
		httpClient:  &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient.Timeout <= 0 {
		c.httpClient.Timeout = defaultTimeout
	}
	return c
}

// Configured reports whether both client key and shared secret are set.
func (c *Client) Configured() bool {
	return c.clientKey != "" && c.signer.Configured()
}

// CreateSession posts body as-is. body must be the final serialization.
func (c *Client) CreateSession(ctx context.Context, body []byte) (*SessionResponse, error) {
	if !c.Configured() {
		return nil, NewProviderError(ErrorNotConfigured, "client key or shared secret missing", nil)
	}
	ctx, span := tracer.Start(ctx, "provider.create_session", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	resp, err := c.createSession(ctx, body)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(GetCategory(err)))
		return nil, err
	}
	span.SetAttributes(attribute.String("verification.session_id", resp.Verification.ID))
	return resp, nil
}

func (c *Client) createSession(ctx context.Context, body []byte) (*SessionResponse, error) {
	signature, err := c.signer.Sign(body)
	if err != nil {
		return nil, NewProviderError(ErrorNotConfigured, "sign request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.sessionsURL, bytes.NewReader(body))
	if err != nil {
		return nil, NewProviderError(ErrorUnreachable, "build request", err)
	}
	req.Header.Set(HeaderAuthClient, c.clientKey)
	req.Header.Set(HeaderHMACSignature, signature)
	req.Header.Set("Content-Type", "application/json")

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			return nil, NewProviderError(ErrorTimeout, "request timed out", err)
		}
		return nil, NewProviderError(ErrorUnreachable, "request failed", err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(httpResp.Body, maxBodyBytes))
	if err != nil {
		if isTimeout(err) {
			return nil, NewProviderError(ErrorTimeout, "reading response timed out", err)
		}
		return nil, NewProviderError(ErrorUnreachable, "read response", err)
	}
	return parseSessionResponse(httpResp.StatusCode, respBody)
}

func parseSessionResponse(status int, body []byte) (*SessionResponse, error) {
	if status < 200 || status > 299 {
		pe := NewProviderError(categoryForStatus(status), "non-success status", nil)
		pe.StatusCode = status
		pe.Detail = truncate(body, maxDetailBytes)
		return nil, pe
	}
	var resp SessionResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		pe := NewProviderError(ErrorBadData, "decode response", err)
		pe.StatusCode = status
		pe.Detail = truncate(body, maxDetailBytes)
		return nil, pe
	}
	if resp.Verification.URL == "" {
		pe := NewProviderError(ErrorBadData, "response has no verification url", nil)
		pe.StatusCode = status
		pe.Detail = truncate(body, maxDetailBytes)
		return nil, pe
	}
	return &resp, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return fmt.Sprintf("%s...(%d bytes)", b[:n], len(b))
}
