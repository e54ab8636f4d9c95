package runs

import (
	"context"
	"fmt"
	"time"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	POST(path string, body any) error
	GET(path string) error
	GetRunID() string
	GetResponseField(path string) (any, error)
}

// RegisterSteps registers automation run step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &runSteps{tc: tc, clock: time.Now().UTC().Add(-time.Hour)}

	ctx.Step(`^a "([^"]*)" step "([^"]*)" is recorded as "([^"]*)"$`, steps.recordStep)
	ctx.Step(`^a "([^"]*)" step "([^"]*)" is recorded as "([^"]*)" with "([^"]*)" confidence citing "([^"]*)" "([^"]*)"$`, steps.recordCitedStep)
	ctx.Step(`^a "([^"]*)" step "([^"]*)" is recorded as "([^"]*)" requiring human review$`, steps.recordReviewStep)
	ctx.Step(`^I close the run$`, steps.closeRun)
	ctx.Step(`^I fetch the trail$`, steps.fetchTrail)
	ctx.Step(`^I fetch the run summary$`, steps.fetchSummary)
	ctx.Step(`^I verify the trail$`, steps.verifyTrail)
	ctx.Step(`^the trail should have (\d+) steps$`, steps.trailShouldHaveSteps)
}

type runSteps struct {
	tc    TestContext
	clock time.Time
}

// next hands out strictly increasing timestamps within a scenario.
func (s *runSteps) next() time.Time {
	s.clock = s.clock.Add(time.Second)
	return s.clock
}

func (s *runSteps) path(suffix string) string {
	return "/runs/" + s.tc.GetRunID() + suffix
}

func (s *runSteps) recordStep(_ context.Context, actor, name, status string) error {
	return s.tc.POST(s.path("/steps"), map[string]any{
		"name":      name,
		"actor":     actor,
		"status":    status,
		"timestamp": s.next(),
	})
}

func (s *runSteps) recordCitedStep(_ context.Context, actor, name, status, confidence, citationType, reference string) error {
	return s.tc.POST(s.path("/steps"), map[string]any{
		"name":       name,
		"actor":      actor,
		"status":     status,
		"confidence": confidence,
		"timestamp":  s.next(),
		"sources":    []map[string]string{{"type": citationType, "reference": reference}},
	})
}

func (s *runSteps) recordReviewStep(_ context.Context, actor, name, status string) error {
	body := map[string]any{
		"name":                  name,
		"actor":                 actor,
		"status":                status,
		"timestamp":             s.next(),
		"human_review_required": true,
	}
	if actor == "ai" && status == "completed" {
		body["confidence"] = "high"
	}
	return s.tc.POST(s.path("/steps"), body)
}

func (s *runSteps) closeRun(context.Context) error {
	return s.tc.POST(s.path("/close"), map[string]any{})
}

func (s *runSteps) fetchTrail(context.Context) error {
	return s.tc.GET(s.path("/trail"))
}

func (s *runSteps) fetchSummary(context.Context) error {
	return s.tc.GET(s.path("/summary"))
}

func (s *runSteps) verifyTrail(context.Context) error {
	return s.tc.GET(s.path("/verify"))
}

func (s *runSteps) trailShouldHaveSteps(_ context.Context, n int) error {
	steps, err := s.tc.GetResponseField("steps")
	if err != nil {
		return err
	}
	list, ok := steps.([]any)
	if !ok {
		return fmt.Errorf("steps is not a list: %v", steps)
	}
	if len(list) != n {
		return fmt.Errorf("expected %d steps, got %d", n, len(list))
	}
	return nil
}
