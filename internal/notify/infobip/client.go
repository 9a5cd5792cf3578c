// Package infobip sends WhatsApp text messages through the Infobip API.
package infobip

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"kycbridge/internal/notify"
)

const (
	textPath       = "/whatsapp/1/message/text"
	defaultTimeout = 10 * time.Second
	maxDetailBytes = 512
)

var tracer = otel.Tracer("kycbridge/notify/infobip")

// StatusError is returned for non-2xx responses.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("infobip responded with status %d", e.StatusCode)
}

type textMessage struct {
	From    string      `json:"from"`
	To      string      `json:"to"`
	Content textContent `json:"content"`
}

type textContent struct {
	Text string `json:"text"`
}

// Client posts text messages. Zero value is unconfigured.
type Client struct {
	baseURL    string
	apiKey     string
	sender     string
	httpClient *http.Client
}

type Option func(*Client)

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

func New(baseURL, apiKey, sender string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		sender:     sender,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient.Timeout <= 0 {
		c.httpClient.Timeout = defaultTimeout
	}
	return c
}

// Configured reports whether base URL, API key and sender are all set.
func (c *Client) Configured() bool {
	return c.baseURL != "" && c.apiKey != "" && c.sender != ""
}

// Send delivers msg. A missing configuration returns notify.ErrNotConfigured
// without any network call.
func (c *Client) Send(ctx context.Context, msg notify.Message) error {
	if !c.Configured() {
		return notify.ErrNotConfigured
	}
	ctx, span := tracer.Start(ctx, "infobip.send_text", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(attribute.String("notify.correlation_hash", msg.CorrelationHash))

	if err := c.send(ctx, msg); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "send failed")
		return err
	}
	return nil
}

func (c *Client) send(ctx context.Context, msg notify.Message) error {
	payload, err := json.Marshal(textMessage{
		From:    c.sender,
		To:      NormalizeRecipient(msg.RecipientHandle),
		Content: textContent{Text: msg.Body},
	})
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+textPath, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "App "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxDetailBytes))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	return nil
}

// NormalizeRecipient strips the leading plus; Infobip expects digits only.
func NormalizeRecipient(handle string) string {
	return strings.TrimPrefix(strings.TrimSpace(handle), "+")
}
