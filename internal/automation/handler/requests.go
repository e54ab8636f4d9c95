package handler

import (
	"fmt"
	"strings"
	"time"

	"regengine/internal/automation/models"
	dErrors "regengine/pkg/domain-errors"
)

const (
	maxNameLength = 256
	maxSources    = 50
)

// CitationRequest is one provenance source in an append request.
type CitationRequest struct {
	Type        string `json:"type"`
	Reference   string `json:"reference"`
	Description string `json:"description,omitempty"`
	URL         string `json:"url,omitempty"`
}

// AppendStepRequest is the HTTP request body for POST /runs/{runID}/steps.
// Timestamp defaults to the request time when omitted.
type AppendStepRequest struct {
	ID                  string            `json:"id"`
	Name                string            `json:"name"`
	Description         string            `json:"description"`
	Status              string            `json:"status"`
	Actor               string            `json:"actor"`
	Timestamp           *time.Time        `json:"timestamp"`
	DurationMs          *int64            `json:"duration_ms"`
	Confidence          string            `json:"confidence"`
	Sources             []CitationRequest `json:"sources"`
	HumanReviewRequired bool              `json:"human_review_required"`
	Inputs              map[string]any    `json:"inputs"`
	Outputs             map[string]any    `json:"outputs"`
}

// Validate normalizes the request and enforces transport limits. The step
// rules themselves are applied by the recorder.
// Implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *AppendStepRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}

	// Size validation (fail fast)
	if len(r.Name) > maxNameLength {
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("name must be at most %d characters", maxNameLength))
	}
	if len(r.Sources) > maxSources {
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("at most %d sources are allowed", maxSources))
	}

	r.ID = strings.TrimSpace(r.ID)
	r.Name = strings.TrimSpace(r.Name)
	r.Description = strings.TrimSpace(r.Description)
	r.Status = normalizeEnum(r.Status)
	r.Actor = normalizeEnum(r.Actor)
	r.Confidence = normalizeEnum(r.Confidence)
	for i := range r.Sources {
		r.Sources[i].Type = normalizeEnum(r.Sources[i].Type)
		r.Sources[i].Reference = strings.TrimSpace(r.Sources[i].Reference)
		r.Sources[i].Description = strings.TrimSpace(r.Sources[i].Description)
		r.Sources[i].URL = strings.TrimSpace(r.Sources[i].URL)
	}
	return nil
}

// ToStep builds the domain step, stamping it with now when the caller gave no
// timestamp.
func (r *AppendStepRequest) ToStep(now time.Time) models.AuditStep {
	ts := now
	if r.Timestamp != nil {
		ts = *r.Timestamp
	}
	step := models.AuditStep{
		ID:                  r.ID,
		Name:                r.Name,
		Description:         r.Description,
		Status:              models.StepStatus(r.Status),
		Actor:               models.Actor(r.Actor),
		Timestamp:           ts,
		DurationMs:          r.DurationMs,
		Confidence:          models.Confidence(r.Confidence),
		HumanReviewRequired: r.HumanReviewRequired,
		Inputs:              r.Inputs,
		Outputs:             r.Outputs,
	}
	if len(r.Sources) > 0 {
		step.Sources = make([]models.Citation, len(r.Sources))
		for i, src := range r.Sources {
			step.Sources[i] = src.ToCitation()
		}
	}
	return step
}

func (c CitationRequest) ToCitation() models.Citation {
	return models.Citation{
		Type:        models.CitationType(c.Type),
		Reference:   c.Reference,
		Description: c.Description,
		URL:         c.URL,
	}
}

func normalizeEnum(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
