package deadline

import (
	"fmt"
	"math"
	"time"

	dErrors "regengine/pkg/domain-errors"
)

// DefaultRiskFraction is the share of the SLA window, counted back from the
// due date, in which a deadline is at risk.
const DefaultRiskFraction = 0.2

const (
	day = 24 * time.Hour

	// Breach notifications inside this horizon are counted in hours.
	hourGranularityLimit = 72 * time.Hour
)

// Policy parameterizes classification. The zero value is not usable; start
// from DefaultPolicy.
type Policy struct {
	RiskFraction  float64
	Windows       map[RegulatoryType]time.Duration
	DefaultWindow time.Duration
}

// DefaultPolicy returns the statutory windows with a 20% risk band.
func DefaultPolicy() Policy {
	windows := make(map[RegulatoryType]time.Duration, len(slaWindows))
	for t, w := range slaWindows {
		windows[t] = w
	}
	return Policy{
		RiskFraction:  DefaultRiskFraction,
		Windows:       windows,
		DefaultWindow: DefaultWindow,
	}
}

// Validate checks the policy invariants: fraction in (0, 1], positive windows.
func (p Policy) Validate() error {
	if !(p.RiskFraction > 0 && p.RiskFraction <= 1) {
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("risk fraction must be in (0, 1], got %v", p.RiskFraction))
	}
	if p.DefaultWindow <= 0 {
		return dErrors.New(dErrors.CodeValidation, "default window must be positive")
	}
	for t, w := range p.Windows {
		if w <= 0 {
			return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("window for %q must be positive", t))
		}
	}
	return nil
}

// Window returns the nominal SLA window for t under this policy.
func (p Policy) Window(t RegulatoryType) time.Duration {
	if w, ok := p.Windows[t]; ok {
		return w
	}
	return p.DefaultWindow
}

// RiskThreshold is the remaining time at or below which t is at risk.
func (p Policy) RiskThreshold(t RegulatoryType) time.Duration {
	return time.Duration(math.Round(p.RiskFraction * float64(p.Window(t))))
}

// Classifier is a pure, clock-free deadline classifier. It holds no mutable
// state and is safe for concurrent use.
type Classifier struct {
	policy Policy
}

// NewClassifier validates policy and returns a classifier for it.
func NewClassifier(policy Policy) (*Classifier, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	return &Classifier{policy: policy}, nil
}

var defaultClassifier = &Classifier{policy: DefaultPolicy()}

// Default returns the classifier for DefaultPolicy.
func Default() *Classifier {
	return defaultClassifier
}

// ClassifyDeadline classifies with the default policy.
func ClassifyDeadline(dueAt time.Time, t RegulatoryType, now time.Time, completed bool) (Classification, error) {
	return defaultClassifier.Classify(dueAt, t, now, completed)
}

// Policy returns a copy of the classifier's policy.
func (c *Classifier) Policy() Policy {
	p := c.policy
	p.Windows = make(map[RegulatoryType]time.Duration, len(c.policy.Windows))
	for t, w := range c.policy.Windows {
		p.Windows[t] = w
	}
	return p
}

// Classify derives the status and countdown text of a deadline at now.
//
// A completed deadline short-circuits before any timestamp is inspected.
// Otherwise both timestamps must be set; a zero time is reported as
// CodeInvalidInput. Remaining time of exactly zero is at risk, not overdue.
func (c *Classifier) Classify(dueAt time.Time, t RegulatoryType, now time.Time, completed bool) (Classification, error) {
	if completed {
		return Classification{Status: StatusCompleted, RemainingDisplay: "Completed"}, nil
	}
	if dueAt.IsZero() {
		return Classification{}, dErrors.New(dErrors.CodeInvalidInput, "due date is required")
	}
	if now.IsZero() {
		return Classification{}, dErrors.New(dErrors.CodeInvalidInput, "current time is required")
	}

	delta := dueAt.Sub(now)
	if delta < 0 {
		return Classification{
			Status:           StatusOverdue,
			RemainingDisplay: fmt.Sprintf("%d days overdue", ceilUnits(-delta, day)),
			Remaining:        delta,
		}, nil
	}

	var display string
	if t == TypeBreachNotification && delta <= hourGranularityLimit {
		display = fmt.Sprintf("%dh left", ceilUnits(delta, time.Hour))
	} else {
		display = fmt.Sprintf("%d days left", ceilUnits(delta, day))
	}

	status := StatusOnTrack
	if delta <= c.policy.RiskThreshold(t) {
		status = StatusAtRisk
	}

	return Classification{Status: status, RemainingDisplay: display, Remaining: delta}, nil
}

// ceilUnits returns ceil(d / unit) for non-negative d.
func ceilUnits(d, unit time.Duration) int64 {
	n := int64(d / unit)
	if d%unit != 0 {
		n++
	}
	return n
}
