package session

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	POST(path string, body any) error
	ProviderPayloads() [][]byte
}

// RegisterSteps registers session creation step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &sessionSteps{tc: tc}

	ctx.Step(`^I create a session for "([^"]*)" "([^"]*)" with phone "([^"]*)"$`, steps.createSession)
	ctx.Step(`^the provider should have received vendorData "([^"]*)"$`, steps.providerReceivedVendorData)
	ctx.Step(`^the provider should have received (\d+) session requests?$`, steps.providerReceivedCount)
}

type sessionSteps struct {
	tc TestContext
}

func (s *sessionSteps) createSession(ctx context.Context, first, last, phone string) error {
	return s.tc.POST("/create-session", map[string]string{
		"firstName": first,
		"lastName":  last,
		"phone":     phone,
	})
}

func (s *sessionSteps) providerReceivedVendorData(ctx context.Context, want string) error {
	payloads := s.tc.ProviderPayloads()
	if len(payloads) == 0 {
		return fmt.Errorf("provider received no session request")
	}
	var p struct {
		Verification struct {
			VendorData string `json:"vendorData"`
		} `json:"verification"`
	}
	if err := json.Unmarshal(payloads[len(payloads)-1], &p); err != nil {
		return err
	}
	if p.Verification.VendorData != want {
		return fmt.Errorf("expected vendorData %q, got %q", want, p.Verification.VendorData)
	}
	return nil
}

func (s *sessionSteps) providerReceivedCount(ctx context.Context, n int) error {
	if got := len(s.tc.ProviderPayloads()); got != n {
		return fmt.Errorf("expected %d provider requests, got %d", n, got)
	}
	return nil
}
