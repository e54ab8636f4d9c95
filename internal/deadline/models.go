package deadline

import (
	"strings"
	"time"

	dErrors "regengine/pkg/domain-errors"
)

// RegulatoryType names the obligation a deadline belongs to. The set is open:
// unknown types are accepted and fall back to DefaultWindow.
type RegulatoryType string

const (
	TypeDSR                RegulatoryType = "dsr"
	TypeBreachNotification RegulatoryType = "breach-notification"
	TypeDPIAReview         RegulatoryType = "dpia-review"
	TypeVendorReview       RegulatoryType = "vendor-review"
)

// DefaultWindow applies to regulatory types without a configured SLA window.
const DefaultWindow = 168 * time.Hour

// slaWindows is the single source of truth for nominal SLA windows.
var slaWindows = map[RegulatoryType]time.Duration{
	TypeDSR:                720 * time.Hour,
	TypeBreachNotification: 72 * time.Hour,
	TypeDPIAReview:         336 * time.Hour,
	TypeVendorReview:       8760 * time.Hour,
}

// ParseRegulatoryType normalizes external input. It never fails; unknown
// values are kept as-is and classified with the default window.
func ParseRegulatoryType(s string) RegulatoryType {
	return RegulatoryType(strings.ToLower(strings.TrimSpace(s)))
}

// IsKnown reports whether t has a dedicated SLA window.
func (t RegulatoryType) IsKnown() bool {
	_, ok := slaWindows[t]
	return ok
}

// SLAWindow returns the nominal window for t, or DefaultWindow.
func (t RegulatoryType) SLAWindow() time.Duration {
	if w, ok := slaWindows[t]; ok {
		return w
	}
	return DefaultWindow
}

func (t RegulatoryType) String() string {
	return string(t)
}

// Status is the derived urgency of a deadline. It is computed on every
// evaluation and never stored.
type Status string

const (
	StatusOnTrack   Status = "on-track"
	StatusAtRisk    Status = "at-risk"
	StatusOverdue   Status = "overdue"
	StatusCompleted Status = "completed"
)

var validStatuses = map[Status]bool{
	StatusOnTrack:   true,
	StatusAtRisk:    true,
	StatusOverdue:   true,
	StatusCompleted: true,
}

// ParseStatus constructs a Status from external input.
func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	if !st.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid deadline status: "+s)
	}
	return st, nil
}

// IsValid checks if the status is one of the supported enum values.
func (s Status) IsValid() bool {
	return validStatuses[s]
}

func (s Status) String() string {
	return string(s)
}

// Classification is the result of classifying a deadline at a point in time.
type Classification struct {
	Status           Status
	RemainingDisplay string
	// Remaining is dueAt - now; negative when overdue, zero when completed.
	Remaining time.Duration
}

// Deadline is a regulatory due date. It is immutable: Extend returns a new
// value and records the change in Extensions.
type Deadline struct {
	DueAt      time.Time
	Type       RegulatoryType
	Completed  bool
	Extensions []Extension
}

// Classify classifies d at now.
func (d Deadline) Classify(c *Classifier, now time.Time) (Classification, error) {
	return c.Classify(d.DueAt, d.Type, now, d.Completed)
}

// OriginalDueAt returns the due date before any extension.
func (d Deadline) OriginalDueAt() time.Time {
	if len(d.Extensions) == 0 {
		return d.DueAt
	}
	return d.Extensions[0].PreviousDueAt
}
