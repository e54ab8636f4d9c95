package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"time"

	dErrors "regengine/pkg/domain-errors"
)

type RunState string

const (
	RunOpen   RunState = "open"
	RunClosed RunState = "closed"
)

// Run is the aggregate root for one automation run's audit trail.
//
// Invariants:
//   - Steps only grow; recorded steps are never edited, removed or reordered
//   - Steps[i].Position == i and each step links to its predecessor's hash
//   - step timestamps are non-decreasing in append order
//   - State moves open -> closed once; a closed run accepts no steps
//   - while the review gate is open, no ai step may be recorded as completed
//
// A Run is not safe for concurrent use. The store serializes writers per run
// and hands readers a Clone.
type Run struct {
	ID    string         `json:"run_id"`
	State RunState       `json:"state"`
	Steps []RecordedStep `json:"steps"`

	// position of the step that opened the review gate, or -1
	gateOpenedBy int
}

// NewRun returns an empty open run.
func NewRun(id string) *Run {
	return &Run{ID: id, State: RunOpen, gateOpenedBy: -1}
}

func (r *Run) IsClosed() bool {
	return r.State == RunClosed
}

// ReviewGateOpen reports whether a step has requested human review and no
// human has completed a step since.
func (r *Run) ReviewGateOpen() bool {
	return r.gateOpenedBy >= 0
}

// ReviewGateOpenedBy returns the position of the step holding the gate open,
// or -1 when the gate is closed.
func (r *Run) ReviewGateOpenedBy() int {
	return r.gateOpenedBy
}

// Head returns the hash of the last recorded step, or "" for an empty run.
func (r *Run) Head() string {
	if len(r.Steps) == 0 {
		return ""
	}
	return r.Steps[len(r.Steps)-1].Hash
}

// CanAppend checks the run-level rules for step. The step itself must
// already have passed AuditStep.Validate.
func (r *Run) CanAppend(step AuditStep) error {
	if r.IsClosed() {
		return dErrors.New(dErrors.CodeRunClosed, fmt.Sprintf("run %s is closed", r.ID))
	}
	for _, rs := range r.Steps {
		if rs.Step.ID == step.ID {
			return dErrors.New(dErrors.CodeInvalidStep, fmt.Sprintf("step id %q already recorded at position %d", step.ID, rs.Position))
		}
	}
	if n := len(r.Steps); n > 0 {
		last := r.Steps[n-1].Step.Timestamp
		if step.Timestamp.Before(last) {
			return dErrors.New(dErrors.CodeTimestampRegression,
				fmt.Sprintf("step timestamp %s is earlier than previous step at %s", step.Timestamp.UTC().Format(time.RFC3339Nano), last.Format(time.RFC3339Nano)))
		}
	}
	if r.ReviewGateOpen() && step.IsAutomatedCompletion() {
		return dErrors.New(dErrors.CodeReviewGateOpen,
			fmt.Sprintf("cannot auto-complete: step %d requires human review", r.gateOpenedBy))
	}
	return nil
}

// PrepareAppend builds the recorded form of step at the next position
// without modifying the run. The timestamp is normalized to UTC and the
// payloads to their JSON form so the stored step hashes the same way on
// every read.
func (r *Run) PrepareAppend(step AuditStep) (RecordedStep, error) {
	step = step.Clone()
	step.Timestamp = step.Timestamp.UTC()

	var err error
	if step.Inputs, err = normalizePayload(step.Inputs); err != nil {
		return RecordedStep{}, dErrors.Wrap(err, dErrors.CodeInvalidStep, "inputs must be JSON-serializable")
	}
	if step.Outputs, err = normalizePayload(step.Outputs); err != nil {
		return RecordedStep{}, dErrors.Wrap(err, dErrors.CodeInvalidStep, "outputs must be JSON-serializable")
	}

	position := len(r.Steps)
	prev := r.Head()
	hash, err := ComputeStepHash(r.ID, position, step, prev)
	if err != nil {
		return RecordedStep{}, dErrors.Wrap(err, dErrors.CodeInvalidStep, "step cannot be hashed")
	}
	return RecordedStep{Position: position, Step: step, PrevHash: prev, Hash: hash}, nil
}

// ApplyAppend appends a step built by PrepareAppend and updates the review
// gate. A human completion clears the gate before the step's own
// HumanReviewRequired flag is applied.
func (r *Run) ApplyAppend(rs RecordedStep) {
	r.Steps = append(r.Steps, rs)
	if rs.Step.IsHumanCompletion() {
		r.gateOpenedBy = -1
	}
	if rs.Step.HumanReviewRequired {
		r.gateOpenedBy = rs.Position
	}
}

func (r *Run) CanClose() error {
	if r.IsClosed() {
		return dErrors.New(dErrors.CodeAlreadyClosed, fmt.Sprintf("run %s is already closed", r.ID))
	}
	return nil
}

func (r *Run) ApplyClose() {
	r.State = RunClosed
}

// Clone returns a deep copy safe to hand to readers.
func (r *Run) Clone() *Run {
	c := &Run{ID: r.ID, State: r.State, gateOpenedBy: r.gateOpenedBy}
	c.Steps = make([]RecordedStep, len(r.Steps))
	for i, rs := range r.Steps {
		rs.Step = rs.Step.Clone()
		rs.Step.Inputs = deepCopyMap(rs.Step.Inputs)
		rs.Step.Outputs = deepCopyMap(rs.Step.Outputs)
		c.Steps[i] = rs
	}
	return c
}

// normalizePayload round-trips m through JSON. The result only holds
// map[string]any, []any, string, json.Number, bool and nil. Numbers keep
// their literal text, so integers beyond float64 precision are not rounded.
func normalizePayload(m map[string]any) (map[string]any, error) {
	if m == nil {
		return nil, nil
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var out map[string]any
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}

func deepCopyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := maps.Clone(m)
	for k, v := range out {
		out[k] = deepCopyValue(v)
	}
	return out
}

func deepCopyValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return deepCopyMap(t)
	case []any:
		s := slices.Clone(t)
		for i := range s {
			s[i] = deepCopyValue(s[i])
		}
		return s
	case json.Number:
		return t
	default:
		return v
	}
}
