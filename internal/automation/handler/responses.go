package handler

import (
	"time"

	"regengine/internal/automation/models"
)

type AppendStepResponse struct {
	RunID    string `json:"run_id"`
	Position int    `json:"position"`
	StepID   string `json:"step_id"`
	Hash     string `json:"hash"`
}

// StepResponse is a recorded step as shown to clients, with its icon.
type StepResponse struct {
	Position            int               `json:"position"`
	ID                  string            `json:"id"`
	Name                string            `json:"name"`
	Description         string            `json:"description,omitempty"`
	Status              string            `json:"status"`
	Actor               string            `json:"actor"`
	Icon                string            `json:"icon"`
	Timestamp           time.Time         `json:"timestamp"`
	DurationMs          *int64            `json:"duration_ms,omitempty"`
	Confidence          string            `json:"confidence,omitempty"`
	Sources             []models.Citation `json:"sources"`
	HumanReviewRequired bool              `json:"human_review_required"`
	Inputs              map[string]any    `json:"inputs,omitempty"`
	Outputs             map[string]any    `json:"outputs,omitempty"`
	PrevHash            string            `json:"prev_hash"`
	Hash                string            `json:"hash"`
}

type TrailResponse struct {
	RunID string         `json:"run_id"`
	Steps []StepResponse `json:"steps"`
}

func FromRecordedStep(rs models.RecordedStep) StepResponse {
	sources := rs.Step.Sources
	if sources == nil {
		sources = []models.Citation{}
	}
	return StepResponse{
		Position:            rs.Position,
		ID:                  rs.Step.ID,
		Name:                rs.Step.Name,
		Description:         rs.Step.Description,
		Status:              string(rs.Step.Status),
		Actor:               string(rs.Step.Actor),
		Icon:                string(rs.Step.Icon()),
		Timestamp:           rs.Step.Timestamp,
		DurationMs:          rs.Step.DurationMs,
		Confidence:          string(rs.Step.Confidence),
		Sources:             sources,
		HumanReviewRequired: rs.Step.HumanReviewRequired,
		Inputs:              rs.Step.Inputs,
		Outputs:             rs.Step.Outputs,
		PrevHash:            rs.PrevHash,
		Hash:                rs.Hash,
	}
}

func FromTrail(runID string, steps []models.RecordedStep) TrailResponse {
	resp := TrailResponse{RunID: runID, Steps: make([]StepResponse, len(steps))}
	for i, rs := range steps {
		resp.Steps[i] = FromRecordedStep(rs)
	}
	return resp
}

// ToRecordedStep rebuilds the recorded step, so a trail fetched over HTTP can
// be verified offline.
func (s StepResponse) ToRecordedStep() models.RecordedStep {
	return models.RecordedStep{
		Position: s.Position,
		Step: models.AuditStep{
			ID:                  s.ID,
			Name:                s.Name,
			Description:         s.Description,
			Status:              models.StepStatus(s.Status),
			Actor:               models.Actor(s.Actor),
			Timestamp:           s.Timestamp,
			DurationMs:          s.DurationMs,
			Confidence:          models.Confidence(s.Confidence),
			Sources:             s.Sources,
			HumanReviewRequired: s.HumanReviewRequired,
			Inputs:              s.Inputs,
			Outputs:             s.Outputs,
		},
		PrevHash: s.PrevHash,
		Hash:     s.Hash,
	}
}

func (t TrailResponse) RecordedSteps() []models.RecordedStep {
	out := make([]models.RecordedStep, len(t.Steps))
	for i, s := range t.Steps {
		out[i] = s.ToRecordedStep()
	}
	return out
}
