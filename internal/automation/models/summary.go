package models

import "time"

// Summary is a read-side digest of a run.
type Summary struct {
	RunID           string             `json:"run_id"`
	State           RunState           `json:"state"`
	StepCount       int                `json:"step_count"`
	ByStatus        map[StepStatus]int `json:"by_status"`
	ByActor         map[Actor]int      `json:"by_actor"`
	ReviewGateOpen  bool               `json:"review_gate_open"`
	FirstAt         time.Time          `json:"first_at"`
	LastAt          time.Time          `json:"last_at"`
	TotalDurationMs int64              `json:"total_duration_ms"`
	HeadHash        string             `json:"head_hash"`
}

func (r *Run) Summarize() Summary {
	s := Summary{
		RunID:          r.ID,
		State:          r.State,
		StepCount:      len(r.Steps),
		ByStatus:       make(map[StepStatus]int),
		ByActor:        make(map[Actor]int),
		ReviewGateOpen: r.ReviewGateOpen(),
		HeadHash:       r.Head(),
	}
	for _, rs := range r.Steps {
		s.ByStatus[rs.Step.Status]++
		s.ByActor[rs.Step.Actor]++
		if rs.Step.DurationMs != nil {
			s.TotalDurationMs += *rs.Step.DurationMs
		}
	}
	if n := len(r.Steps); n > 0 {
		s.FirstAt = r.Steps[0].Step.Timestamp
		s.LastAt = r.Steps[n-1].Step.Timestamp
	}
	return s
}
