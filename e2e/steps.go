package e2e

import (
	"github.com/cucumber/godog"

	"regengine/e2e/steps/common"
	"regengine/e2e/steps/deadlines"
	"regengine/e2e/steps/runs"
)

// RegisterSteps registers all step definitions from modular packages
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	// Register common steps (generic requests, assertions)
	common.RegisterSteps(ctx, tc)

	// Register automation run steps
	runs.RegisterSteps(ctx, tc)

	// Register deadline steps
	deadlines.RegisterSteps(ctx, tc)
}
