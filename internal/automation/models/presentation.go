package models

// Icon names the glyph a UI should draw for a step. Rendering is the
// caller's concern; the engine only picks the name.
type Icon string

const (
	IconClock     Icon = "clock"
	IconCheck     Icon = "check-circle"
	IconSparkles  Icon = "sparkles"
	IconCross     Icon = "x-circle"
	IconUserCheck Icon = "user-check"
	IconEye       Icon = "eye"
	IconCog       Icon = "cog"
	IconHelp      Icon = "help-circle"
)

type iconKey struct {
	status StepStatus
	actor  Actor
}

// stepIcons overrides the per-status icon for specific actors.
var stepIcons = map[iconKey]Icon{
	{StepCompleted, ActorAI}:      IconSparkles,
	{StepCompleted, ActorHuman}:   IconUserCheck,
	{StepCompleted, ActorSystem}:  IconCog,
	{StepHumanReview, ActorHuman}: IconUserCheck,
	{StepPending, ActorHuman}:     IconEye,
}

var statusIcons = map[StepStatus]Icon{
	StepPending:     IconClock,
	StepCompleted:   IconCheck,
	StepFailed:      IconCross,
	StepHumanReview: IconEye,
}

// StepIcon returns the icon for a (status, actor) pair.
func StepIcon(status StepStatus, actor Actor) Icon {
	if icon, ok := stepIcons[iconKey{status, actor}]; ok {
		return icon
	}
	if icon, ok := statusIcons[status]; ok {
		return icon
	}
	return IconHelp
}

// Icon is StepIcon for this step.
func (s AuditStep) Icon() Icon {
	return StepIcon(s.Status, s.Actor)
}
