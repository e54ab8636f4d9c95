package models

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	dErrors "regengine/pkg/domain-errors"
)

type StepStatus string

const (
	StepPending     StepStatus = "pending"
	StepCompleted   StepStatus = "completed"
	StepFailed      StepStatus = "failed"
	StepHumanReview StepStatus = "human-review"
)

func (s StepStatus) IsValid() bool {
	switch s {
	case StepPending, StepCompleted, StepFailed, StepHumanReview:
		return true
	}
	return false
}

type Actor string

const (
	ActorAI     Actor = "ai"
	ActorHuman  Actor = "human"
	ActorSystem Actor = "system"
)

func (a Actor) IsValid() bool {
	switch a {
	case ActorAI, ActorHuman, ActorSystem:
		return true
	}
	return false
}

// Confidence is optional on a step; the empty value means "not stated".
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

func (c Confidence) IsValid() bool {
	switch c {
	case ConfidenceHigh, ConfidenceMedium, ConfidenceLow:
		return true
	}
	return false
}

// AuditStep is one executed action in an automation run.
//
// Invariants (checked by Validate):
//   - Name is non-empty and Timestamp is set
//   - Status, Actor and, when present, Confidence are known values
//   - an ai step with status completed states its confidence
//   - a low-confidence step cites at least one source
//   - every source is a valid citation and no source is repeated
//   - a human-review step is recorded by a human
//   - DurationMs, when present, is not negative
//
// Inputs and Outputs are carried opaquely and must be JSON-serializable so the
// step can be hashed into the trail.
type AuditStep struct {
	ID                  string         `json:"id"`
	Name                string         `json:"name"`
	Description         string         `json:"description,omitempty"`
	Status              StepStatus     `json:"status"`
	Actor               Actor          `json:"actor"`
	Timestamp           time.Time      `json:"timestamp"`
	DurationMs          *int64         `json:"duration_ms,omitempty"`
	Confidence          Confidence     `json:"confidence,omitempty"`
	Sources             []Citation     `json:"sources,omitempty"`
	HumanReviewRequired bool           `json:"human_review_required"`
	Inputs              map[string]any `json:"inputs,omitempty"`
	Outputs             map[string]any `json:"outputs,omitempty"`
}

// IsAutomatedCompletion reports whether this is the kind of step the
// human-review gate holds back.
func (s AuditStep) IsAutomatedCompletion() bool {
	return s.Actor == ActorAI && s.Status == StepCompleted
}

// IsHumanCompletion reports whether this step clears an open review gate.
func (s AuditStep) IsHumanCompletion() bool {
	return s.Actor == ActorHuman && s.Status == StepCompleted
}

// Validate checks the step in isolation. Run-level rules (ordering, the
// review gate, closed runs) are enforced by Run.CanAppend.
func (s AuditStep) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return invalidStep("name is required")
	}
	if !s.Status.IsValid() {
		return invalidStep(fmt.Sprintf("unknown status %q", s.Status))
	}
	if !s.Actor.IsValid() {
		return invalidStep(fmt.Sprintf("unknown actor %q", s.Actor))
	}
	if s.Confidence != "" && !s.Confidence.IsValid() {
		return invalidStep(fmt.Sprintf("unknown confidence %q", s.Confidence))
	}
	if s.Timestamp.IsZero() {
		return invalidStep("timestamp is required")
	}
	if s.DurationMs != nil && *s.DurationMs < 0 {
		return invalidStep("duration must not be negative")
	}
	if s.Status == StepHumanReview && s.Actor != ActorHuman {
		return invalidStep(fmt.Sprintf("human-review step must be recorded by a human, got actor %q", s.Actor))
	}
	if s.IsAutomatedCompletion() && s.Confidence == "" {
		return invalidStep("completed ai step must state its confidence")
	}
	if s.Confidence == ConfidenceLow && len(s.Sources) == 0 {
		return invalidStep("low-confidence step must cite at least one source")
	}

	seen := make(map[string]struct{}, len(s.Sources))
	for i, src := range s.Sources {
		if err := src.Validate(); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInvalidStep, fmt.Sprintf("source %d is invalid", i))
		}
		k := src.key()
		if _, dup := seen[k]; dup {
			return invalidStep(fmt.Sprintf("source %d repeats %s %q", i, src.Type, src.Reference))
		}
		seen[k] = struct{}{}
	}
	return nil
}

// Clone returns a copy that shares no slices or top-level maps with s.
func (s AuditStep) Clone() AuditStep {
	c := s
	if s.DurationMs != nil {
		d := *s.DurationMs
		c.DurationMs = &d
	}
	c.Sources = slices.Clone(s.Sources)
	c.Inputs = maps.Clone(s.Inputs)
	c.Outputs = maps.Clone(s.Outputs)
	return c
}

func invalidStep(msg string) error {
	return dErrors.New(dErrors.CodeInvalidStep, msg)
}
