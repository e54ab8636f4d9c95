package handler

import (
	"time"

	"regengine/internal/deadline"
	"regengine/internal/deadline/service"
)

// AssessmentResponse is a classified deadline as shown to clients.
type AssessmentResponse struct {
	Type             string    `json:"type"`
	DueAt            time.Time `json:"due_at,omitzero"`
	Status           string    `json:"status"`
	RemainingDisplay string    `json:"remaining_display"`
	RemainingSeconds int64     `json:"remaining_seconds"`
	Tone             string    `json:"tone"`
	Actions          []string  `json:"actions"`
}

type ExtensionResponse struct {
	PreviousDueAt   time.Time `json:"previous_due_at"`
	NewDueAt        time.Time `json:"new_due_at"`
	RequestedAt     time.Time `json:"requested_at"`
	Reason          string    `json:"reason"`
	StatusAtRequest string    `json:"status_at_request"`
}

// RecordedStepRef points at the trail entry written for an extension.
type RecordedStepRef struct {
	RunID    string `json:"run_id"`
	Position int    `json:"position"`
	StepID   string `json:"step_id"`
	Hash     string `json:"hash"`
}

type ExtendResponse struct {
	OriginalDueAt time.Time          `json:"original_due_at"`
	Extension     ExtensionResponse  `json:"extension"`
	Assessment    AssessmentResponse `json:"assessment"`
	Step          *RecordedStepRef   `json:"step,omitempty"`
}

// ActionsResponse answers GET /deadlines/actions.
type ActionsResponse struct {
	Status  string   `json:"status"`
	Tone    string   `json:"tone"`
	Actions []string `json:"actions"`
}

func FromAssessment(a *service.Assessment) AssessmentResponse {
	return AssessmentResponse{
		Type:             string(a.Deadline.Type),
		DueAt:            a.Deadline.DueAt,
		Status:           string(a.Classification.Status),
		RemainingDisplay: a.Classification.RemainingDisplay,
		RemainingSeconds: int64(a.Classification.Remaining / time.Second),
		Tone:             string(a.Tone),
		Actions:          a.Actions.Strings(),
	}
}

func FromExtendResult(runID string, res *service.ExtendResult) ExtendResponse {
	resp := ExtendResponse{
		OriginalDueAt: res.Deadline.OriginalDueAt(),
		Extension:     fromExtension(res.Extension),
		Assessment:    FromAssessment(&res.After),
	}
	if res.Step != nil {
		resp.Step = &RecordedStepRef{
			RunID:    runID,
			Position: res.Step.Position,
			StepID:   res.Step.Step.ID,
			Hash:     res.Step.Hash,
		}
	}
	return resp
}

func fromExtension(e deadline.Extension) ExtensionResponse {
	return ExtensionResponse{
		PreviousDueAt:   e.PreviousDueAt,
		NewDueAt:        e.NewDueAt,
		RequestedAt:     e.RequestedAt,
		Reason:          e.Reason,
		StatusAtRequest: string(e.StatusAtRequest),
	}
}
