package e2e

import (
	"github.com/cucumber/godog"

	"kycbridge/e2e/steps/common"
	"kycbridge/e2e/steps/decision"
	"kycbridge/e2e/steps/session"
)

// RegisterSteps registers all step definitions from modular packages
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	// Register common steps (generic requests, assertions)
	common.RegisterSteps(ctx, tc)

	// Register session creation steps
	session.RegisterSteps(ctx, tc)

	// Register decision callback steps
	decision.RegisterSteps(ctx, tc)
}
