package decision

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	POSTRaw(path, body string, sign bool) error
	SentMessages() []map[string]any
}

const deliveryWait = 5 * time.Second

// RegisterSteps registers decision callback step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &decisionSteps{tc: tc}

	ctx.Step(`^the provider sends a signed "([^"]*)" decision for "([^"]*)"$`, steps.signedDecision)
	ctx.Step(`^the provider sends a signed "([^"]*)" decision for "([^"]*)" with reason "([^"]*)"$`, steps.signedDecisionWithReason)
	ctx.Step(`^an unsigned "([^"]*)" decision for "([^"]*)" is sent$`, steps.unsignedDecision)
	ctx.Step(`^the provider sends the same decision again$`, steps.resendLast)
	ctx.Step(`^a signed malformed decision is sent$`, steps.malformedDecision)
	ctx.Step(`^(\d+) messages? should be delivered to "([^"]*)"$`, steps.messagesDelivered)
	ctx.Step(`^the delivered message should contain "([^"]*)"$`, steps.messageContains)
	ctx.Step(`^no message should be delivered$`, steps.noMessage)
}

type decisionSteps struct {
	tc       TestContext
	lastBody string
}

// decisionBody uses a fresh session id so scenarios never collide in the
// server's handled-decision store.
func (s *decisionSteps) decisionBody(status, vendorData, reason string) string {
	s.lastBody = fmt.Sprintf(`{"status":"success","verification":{"id":"e2e-%d","status":%q,"vendorData":%q,"reason":%q}}`,
		time.Now().UnixNano(), status, vendorData, reason)
	return s.lastBody
}

func (s *decisionSteps) signedDecision(ctx context.Context, status, vendorData string) error {
	return s.tc.POSTRaw("/webhook/decision", s.decisionBody(status, vendorData, ""), true)
}

func (s *decisionSteps) signedDecisionWithReason(ctx context.Context, status, vendorData, reason string) error {
	return s.tc.POSTRaw("/webhook/decision", s.decisionBody(status, vendorData, reason), true)
}

func (s *decisionSteps) unsignedDecision(ctx context.Context, status, vendorData string) error {
	return s.tc.POSTRaw("/webhook/decision", s.decisionBody(status, vendorData, ""), false)
}

func (s *decisionSteps) resendLast(ctx context.Context) error {
	if s.lastBody == "" {
		return fmt.Errorf("no decision sent yet")
	}
	return s.tc.POSTRaw("/webhook/decision", s.lastBody, true)
}

func (s *decisionSteps) malformedDecision(ctx context.Context) error {
	return s.tc.POSTRaw("/webhook/decision", `{"verification":`, true)
}

// messagesDelivered polls because delivery is asynchronous; it then waits a
// little longer to catch extra deliveries.
func (s *decisionSteps) messagesDelivered(ctx context.Context, n int, to string) error {
	deadline := time.Now().Add(deliveryWait)
	for time.Now().Before(deadline) && s.countTo(to) < n {
		time.Sleep(50 * time.Millisecond)
	}
	time.Sleep(200 * time.Millisecond)
	if got := s.countTo(to); got != n {
		return fmt.Errorf("expected %d messages to %s, got %d", n, to, got)
	}
	return nil
}

func (s *decisionSteps) countTo(to string) int {
	n := 0
	for _, m := range s.tc.SentMessages() {
		if m["to"] == strings.TrimPrefix(to, "+") {
			n++
		}
	}
	return n
}

func (s *decisionSteps) messageContains(ctx context.Context, want string) error {
	msgs := s.tc.SentMessages()
	if len(msgs) == 0 {
		return fmt.Errorf("no message delivered")
	}
	content, _ := msgs[len(msgs)-1]["content"].(map[string]any)
	text, _ := content["text"].(string)
	if !strings.Contains(text, want) {
		return fmt.Errorf("expected message to contain %q, got %q", want, text)
	}
	return nil
}

func (s *decisionSteps) noMessage(ctx context.Context) error {
	time.Sleep(300 * time.Millisecond)
	if n := len(s.tc.SentMessages()); n != 0 {
		return fmt.Errorf("expected no messages, got %d", n)
	}
	return nil
}
