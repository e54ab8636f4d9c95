package deadline

import (
	"strings"
	"time"

	dErrors "regengine/pkg/domain-errors"
)

// Extension records a due-date change. Extensions are events, never in-place
// edits, so the history of a deadline can be audited.
type Extension struct {
	PreviousDueAt   time.Time
	NewDueAt        time.Time
	RequestedAt     time.Time
	Reason          string
	StatusAtRequest Status
}

// CanExtend checks whether d may be extended at now. Only statuses for which
// AvailableActions offers ActionExtension qualify.
func (d Deadline) CanExtend(c *Classifier, now time.Time) (Classification, error) {
	cls, err := d.Classify(c, now)
	if err != nil {
		return Classification{}, err
	}
	if !AvailableActions(cls.Status, d.Type).Contains(ActionExtension) {
		return cls, dErrors.New(dErrors.CodeExtensionNotPermitted,
			"cannot extend a "+string(cls.Status)+" deadline; use the remediation path")
	}
	return cls, nil
}

// Extend returns a copy of d due at newDueAt together with the Extension event
// appended to its history. d itself is left untouched.
func (d Deadline) Extend(c *Classifier, newDueAt, now time.Time, reason string) (Deadline, Extension, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return Deadline{}, Extension{}, dErrors.New(dErrors.CodeValidation, "extension reason is required")
	}
	if newDueAt.IsZero() {
		return Deadline{}, Extension{}, dErrors.New(dErrors.CodeInvalidInput, "new due date is required")
	}
	if !newDueAt.After(d.DueAt) {
		return Deadline{}, Extension{}, dErrors.New(dErrors.CodeValidation, "new due date must be after the current due date")
	}

	cls, err := d.CanExtend(c, now)
	if err != nil {
		return Deadline{}, Extension{}, err
	}

	ext := Extension{
		PreviousDueAt:   d.DueAt,
		NewDueAt:        newDueAt,
		RequestedAt:     now,
		Reason:          reason,
		StatusAtRequest: cls.Status,
	}

	history := make([]Extension, 0, len(d.Extensions)+1)
	history = append(history, d.Extensions...)
	history = append(history, ext)

	return Deadline{
		DueAt:      newDueAt,
		Type:       d.Type,
		Completed:  d.Completed,
		Extensions: history,
	}, ext, nil
}
