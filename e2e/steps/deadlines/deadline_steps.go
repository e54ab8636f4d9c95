package deadlines

import (
	"context"
	"time"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	POST(path string, body any) error
	GET(path string) error
	GetRunID() string
}

// RegisterSteps registers deadline step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &deadlineSteps{tc: tc}

	ctx.Step(`^a "([^"]*)" deadline due in (-?\d+) hours$`, steps.deadlineDueIn)
	ctx.Step(`^I classify the deadline$`, steps.classify)
	ctx.Step(`^I extend the deadline by (\d+) days because "([^"]*)"$`, steps.extend)
	ctx.Step(`^I extend the deadline by (\d+) days on the run because "([^"]*)"$`, steps.extendOnRun)
	ctx.Step(`^I ask which actions a "([^"]*)" deadline allows$`, steps.actions)
}

type deadlineSteps struct {
	tc    TestContext
	typ   string
	dueAt time.Time
}

func (s *deadlineSteps) deadlineDueIn(_ context.Context, typ string, hours int) error {
	s.typ = typ
	s.dueAt = time.Now().UTC().Add(time.Duration(hours) * time.Hour)
	return nil
}

func (s *deadlineSteps) classify(context.Context) error {
	return s.tc.POST("/deadlines/classify", map[string]any{
		"type":   s.typ,
		"due_at": s.dueAt,
	})
}

func (s *deadlineSteps) extend(_ context.Context, days int, reason string) error {
	return s.tc.POST("/deadlines/extend", s.extendBody(days, reason, ""))
}

func (s *deadlineSteps) extendOnRun(_ context.Context, days int, reason string) error {
	return s.tc.POST("/deadlines/extend", s.extendBody(days, reason, s.tc.GetRunID()))
}

func (s *deadlineSteps) extendBody(days int, reason, runID string) map[string]any {
	body := map[string]any{
		"type":       s.typ,
		"due_at":     s.dueAt,
		"new_due_at": s.dueAt.Add(time.Duration(days) * 24 * time.Hour),
		"reason":     reason,
	}
	if runID != "" {
		body["run_id"] = runID
	}
	return body
}

func (s *deadlineSteps) actions(_ context.Context, status string) error {
	return s.tc.GET("/deadlines/actions?status=" + status)
}
