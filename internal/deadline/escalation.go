package deadline

import (
	"slices"
	"strings"

	dErrors "regengine/pkg/domain-errors"
)

// ActionKind is an escalation the caller may invoke. The engine only reports
// availability; invoking an action is always an explicit external call.
type ActionKind string

const (
	ActionExtension    ActionKind = "extension"
	ActionAutoResponse ActionKind = "auto-response"
)

// ParseActionKind constructs an ActionKind from external input.
func ParseActionKind(s string) (ActionKind, error) {
	switch k := ActionKind(strings.ToLower(strings.TrimSpace(s))); k {
	case ActionExtension, ActionAutoResponse:
		return k, nil
	default:
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid action kind: "+s)
	}
}

// ActionSet is a small ordered set of actions.
type ActionSet []ActionKind

// Contains reports whether k is in the set.
func (s ActionSet) Contains(k ActionKind) bool {
	return slices.Contains(s, k)
}

// Strings returns the set as plain strings for transport.
func (s ActionSet) Strings() []string {
	out := make([]string, len(s))
	for i, k := range s {
		out[i] = string(k)
	}
	return out
}

// AvailableActions reports which escalations the caller may offer:
//   - at-risk: auto-response and extension
//   - on-track: extension
//   - overdue: none; overdue items go through remediation outside the engine
//   - completed: none
//
// The regulatory type is accepted so per-type policy can be added without
// changing callers; all current types share the same rules.
func AvailableActions(status Status, _ RegulatoryType) ActionSet {
	switch status {
	case StatusAtRisk:
		return ActionSet{ActionExtension, ActionAutoResponse}
	case StatusOnTrack:
		return ActionSet{ActionExtension}
	default:
		return ActionSet{}
	}
}
