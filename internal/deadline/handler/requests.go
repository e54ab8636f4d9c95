package handler

import (
	"fmt"
	"strings"
	"time"

	automation "regengine/internal/automation/models"
	"regengine/internal/deadline"
	dErrors "regengine/pkg/domain-errors"
)

const (
	maxReasonLength = 1024
	maxSources      = 50
)

// ClassifyRequest is the HTTP request body for POST /deadlines/classify.
// AsOf defaults to the request time.
type ClassifyRequest struct {
	DueAt     *time.Time `json:"due_at"`
	Type      string     `json:"type"`
	Completed bool       `json:"completed"`
	AsOf      *time.Time `json:"as_of"`
}

// Validate implements httputil.Validatable.
func (r *ClassifyRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.Type = strings.TrimSpace(r.Type)
	if r.Type == "" {
		return dErrors.New(dErrors.CodeValidation, "type is required")
	}
	if r.DueAt == nil && !r.Completed {
		return dErrors.New(dErrors.CodeValidation, "due_at is required")
	}
	return nil
}

func (r *ClassifyRequest) ToDeadline() deadline.Deadline {
	d := deadline.Deadline{
		Type:      deadline.ParseRegulatoryType(r.Type),
		Completed: r.Completed,
	}
	if r.DueAt != nil {
		d.DueAt = *r.DueAt
	}
	return d
}

// At returns the evaluation time: AsOf when given, otherwise now.
func (r *ClassifyRequest) At(now time.Time) time.Time {
	if r.AsOf != nil {
		return *r.AsOf
	}
	return now
}

type SourceRequest struct {
	Type        string `json:"type"`
	Reference   string `json:"reference"`
	Description string `json:"description,omitempty"`
	URL         string `json:"url,omitempty"`
}

// ExtendRequest is the HTTP request body for POST /deadlines/extend. The
// extension is always stamped with the request time.
type ExtendRequest struct {
	DueAt    *time.Time      `json:"due_at"`
	Type     string          `json:"type"`
	NewDueAt *time.Time      `json:"new_due_at"`
	Reason   string          `json:"reason"`
	RunID    string          `json:"run_id"`
	Actor    string          `json:"actor"`
	Sources  []SourceRequest `json:"sources"`
}

// Validate implements httputil.Validatable.
func (r *ExtendRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if len(r.Reason) > maxReasonLength {
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("reason must be at most %d characters", maxReasonLength))
	}
	if len(r.Sources) > maxSources {
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("at most %d sources are allowed", maxSources))
	}

	r.Type = strings.TrimSpace(r.Type)
	r.Reason = strings.TrimSpace(r.Reason)
	r.RunID = strings.TrimSpace(r.RunID)
	r.Actor = strings.ToLower(strings.TrimSpace(r.Actor))

	if r.Type == "" {
		return dErrors.New(dErrors.CodeValidation, "type is required")
	}
	if r.DueAt == nil {
		return dErrors.New(dErrors.CodeValidation, "due_at is required")
	}
	if r.NewDueAt == nil {
		return dErrors.New(dErrors.CodeValidation, "new_due_at is required")
	}
	if r.Reason == "" {
		return dErrors.New(dErrors.CodeValidation, "reason is required")
	}
	switch automation.Actor(r.Actor) {
	case "", automation.ActorHuman, automation.ActorSystem:
	default:
		return dErrors.New(dErrors.CodeValidation, "actor must be human or system")
	}
	for i := range r.Sources {
		r.Sources[i].Type = strings.ToLower(strings.TrimSpace(r.Sources[i].Type))
		r.Sources[i].Reference = strings.TrimSpace(r.Sources[i].Reference)
		r.Sources[i].Description = strings.TrimSpace(r.Sources[i].Description)
		r.Sources[i].URL = strings.TrimSpace(r.Sources[i].URL)
	}
	return nil
}

func (r *ExtendRequest) ToDeadline() deadline.Deadline {
	return deadline.Deadline{
		DueAt: *r.DueAt,
		Type:  deadline.ParseRegulatoryType(r.Type),
	}
}

func (r *ExtendRequest) Citations() []automation.Citation {
	if len(r.Sources) == 0 {
		return nil
	}
	out := make([]automation.Citation, len(r.Sources))
	for i, src := range r.Sources {
		out[i] = automation.Citation{
			Type:        automation.CitationType(src.Type),
			Reference:   src.Reference,
			Description: src.Description,
			URL:         src.URL,
		}
	}
	return out
}
