package models

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/gowebpki/jcs"

	dErrors "regengine/pkg/domain-errors"
)

// RecordedStep is a step as it sits in a run: its position and its link in
// the hash chain. Hash covers the run ID, position, step and PrevHash, so
// editing, removing or reordering any recorded step breaks every later link.
type RecordedStep struct {
	Position int       `json:"position"`
	Step     AuditStep `json:"step"`
	PrevHash string    `json:"prev_hash"`
	Hash     string    `json:"hash"`
}

type chainLink struct {
	RunID    string    `json:"run_id"`
	Position int       `json:"position"`
	PrevHash string    `json:"prev_hash"`
	Step     AuditStep `json:"step"`
}

// ComputeStepHash returns the hex SHA-256 of the RFC 8785 canonical JSON of
// the chain link. The first step of a run has an empty prevHash.
func ComputeStepHash(runID string, position int, step AuditStep, prevHash string) (string, error) {
	raw, err := json.Marshal(chainLink{
		RunID:    runID,
		Position: position,
		PrevHash: prevHash,
		Step:     step,
	})
	if err != nil {
		return "", fmt.Errorf("marshal step: %w", err)
	}
	canonical, err := jcs.Transform(raw)
	if err != nil {
		return "", fmt.Errorf("canonicalize step: %w", err)
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}

// Verification is the outcome of re-deriving a run's hash chain.
type Verification struct {
	RunID string `json:"run_id"`
	Valid bool   `json:"valid"`
	Steps int    `json:"steps"`
	// BrokenAt is the first position whose link does not verify, or -1.
	BrokenAt int    `json:"broken_at"`
	Reason   string `json:"reason,omitempty"`
	HeadHash string `json:"head_hash,omitempty"`
}

// VerifyChain recomputes every link of steps. A broken chain is reported in
// the result, not as an error; an error means a step could not be hashed.
func VerifyChain(runID string, steps []RecordedStep) (Verification, error) {
	v := Verification{RunID: runID, Valid: true, Steps: len(steps), BrokenAt: -1}
	prev := ""
	for i, rs := range steps {
		if rs.Position != i {
			return v.broken(i, fmt.Sprintf("position %d recorded at index %d", rs.Position, i)), nil
		}
		if rs.PrevHash != prev {
			return v.broken(i, "previous hash does not match"), nil
		}
		want, err := ComputeStepHash(runID, i, rs.Step, prev)
		if err != nil {
			return Verification{}, dErrors.Wrap(err, dErrors.CodeInternal, fmt.Sprintf("hash step %d", i))
		}
		if rs.Hash != want {
			return v.broken(i, "step hash does not match contents"), nil
		}
		prev = rs.Hash
	}
	v.HeadHash = prev
	return v, nil
}

func (v Verification) broken(at int, reason string) Verification {
	v.Valid = false
	v.BrokenAt = at
	v.Reason = reason
	return v
}
