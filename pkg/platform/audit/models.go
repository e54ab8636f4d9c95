package audit

import (
	"context"
	"time"
)

// EventCategory classifies audit events by their primary purpose.
// This enables different retention policies, storage backends, and routing.
type EventCategory string

const (
	// CategoryCompliance covers events with legal/regulatory significance:
	// recorded automation steps, closed runs, deadline extensions.
	CategoryCompliance EventCategory = "compliance"

	// CategorySecurity covers refused actions worth alerting on, such as an
	// automated step attempted while a human review is outstanding.
	CategorySecurity EventCategory = "security"

	// CategoryOperations covers routine activity that can be sampled.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Category  EventCategory
	Timestamp time.Time
	// Subject is the run or deadline the event is about. Stores index by it.
	Subject  string
	Action   string
	Decision string
	Reason   string
	// Position is the step position within a run, when the event concerns one.
	Position  int
	RequestID string
	// ActorID tracks who performed the action (ai, human, system or a named operator).
	ActorID string
}

type AuditEvent string

const (
	// Automation trail events
	EventStepRecorded      AuditEvent = "step_recorded"
	EventStepRejected      AuditEvent = "step_rejected"
	EventReviewGateBlocked AuditEvent = "review_gate_blocked"
	EventRunClosed         AuditEvent = "run_closed"

	// Deadline events
	EventDeadlineExtended        AuditEvent = "deadline_extended"
	EventDeadlineExtensionDenied AuditEvent = "deadline_extension_denied"
	EventDeadlineClassified      AuditEvent = "deadline_classified"
)

var eventCategories = map[AuditEvent]EventCategory{
	EventStepRecorded:     CategoryCompliance,
	EventRunClosed:        CategoryCompliance,
	EventDeadlineExtended: CategoryCompliance,

	EventReviewGateBlocked:       CategorySecurity,
	EventDeadlineExtensionDenied: CategorySecurity,

	EventStepRejected:       CategoryOperations,
	EventDeadlineClassified: CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

// Store persists audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListBySubject(ctx context.Context, subject string) ([]Event, error)
}
