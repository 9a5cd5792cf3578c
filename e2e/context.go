package e2e

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// TestContext carries HTTP state between steps of one scenario.
type TestContext struct {
	BaseURL       string
	WebhookSecret string
	Stubs         *Stubs

	client       *http.Client
	lastStatus   int
	lastBody     []byte
	lastResponse map[string]any
}

func NewTestContext(baseURL, webhookSecret string, stubs *Stubs) *TestContext {
	return &TestContext{
		BaseURL:       strings.TrimRight(baseURL, "/"),
		WebhookSecret: webhookSecret,
		Stubs:         stubs,
		client:        &http.Client{Timeout: 10 * time.Second},
	}
}

// Reset clears response state and stub recordings before a scenario.
func (tc *TestContext) Reset() {
	tc.lastStatus = 0
	tc.lastBody = nil
	tc.lastResponse = nil
	if tc.Stubs != nil {
		tc.Stubs.Reset()
	}
}

func (tc *TestContext) POST(path string, body any) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}
	return tc.do(http.MethodPost, path, raw, nil)
}

// POSTRaw sends body verbatim, signing it when sign is true.
func (tc *TestContext) POSTRaw(path, body string, sign bool) error {
	headers := map[string]string{}
	if sign {
		headers["X-HMAC-SIGNATURE"] = tc.Sign([]byte(body))
	}
	return tc.do(http.MethodPost, path, []byte(body), headers)
}

func (tc *TestContext) GET(path string, headers map[string]string) error {
	return tc.do(http.MethodGet, path, nil, headers)
}

// Sign computes the provider-style hex signature with the webhook secret.
func (tc *TestContext) Sign(body []byte) string {
	mac := hmac.New(sha256.New, []byte(tc.WebhookSecret))
	_, _ = mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func (tc *TestContext) do(method, path string, body []byte, headers map[string]string) error {
	req, err := http.NewRequest(method, tc.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := tc.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	tc.lastStatus = resp.StatusCode
	tc.lastBody, err = io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	tc.lastResponse = nil
	_ = json.Unmarshal(tc.lastBody, &tc.lastResponse)
	return nil
}

func (tc *TestContext) GetLastStatusCode() int {
	return tc.lastStatus
}

func (tc *TestContext) GetResponseField(field string) (any, error) {
	if tc.lastResponse == nil {
		return nil, fmt.Errorf("response is not a JSON object: %s", tc.lastBody)
	}
	v, ok := tc.lastResponse[field]
	if !ok {
		return nil, fmt.Errorf("field %q not in response: %s", field, tc.lastBody)
	}
	return v, nil
}

func (tc *TestContext) ResponseContains(field string) bool {
	_, err := tc.GetResponseField(field)
	return err == nil
}

func (tc *TestContext) ProviderPayloads() [][]byte {
	return tc.Stubs.ProviderPayloads()
}

func (tc *TestContext) SentMessages() []map[string]any {
	return tc.Stubs.Messages()
}
