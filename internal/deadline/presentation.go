package deadline

// Tone is the badge colour a UI should use for a status.
type Tone string

const (
	ToneSuccess Tone = "success"
	ToneWarning Tone = "warning"
	ToneDanger  Tone = "danger"
	ToneNeutral Tone = "neutral"
)

var statusTones = map[Status]Tone{
	StatusOnTrack:   ToneSuccess,
	StatusAtRisk:    ToneWarning,
	StatusOverdue:   ToneDanger,
	StatusCompleted: ToneNeutral,
}

// Tone returns the badge tone for s; unknown statuses are neutral.
func (s Status) Tone() Tone {
	if t, ok := statusTones[s]; ok {
		return t
	}
	return ToneNeutral
}
