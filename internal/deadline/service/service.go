package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	automation "regengine/internal/automation/models"
	"regengine/internal/deadline"
	deadlinemetrics "regengine/internal/deadline/metrics"
	dErrors "regengine/pkg/domain-errors"
	audit "regengine/pkg/platform/audit"
	"regengine/pkg/requestcontext"
)

const tracerName = "regengine/internal/deadline"

// ExtensionStepName names the audit step recorded for a granted extension.
const ExtensionStepName = "deadline-extension"

// StepRecorder appends steps to an automation run.
type StepRecorder interface {
	RecordStep(ctx context.Context, runID string, step automation.AuditStep) (*automation.RecordedStep, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Assessment is a classification plus what a caller may do about it.
type Assessment struct {
	Deadline       deadline.Deadline
	Classification deadline.Classification
	Actions        deadline.ActionSet
	Tone           deadline.Tone
}

// ExtendCommand asks for d to be moved to NewDueAt. When RunID is set the
// extension is also recorded as a step of that run, and the extension only
// stands if the step is accepted.
type ExtendCommand struct {
	Deadline deadline.Deadline
	NewDueAt time.Time
	Reason   string
	Now      time.Time
	RunID    string
	Actor    automation.Actor
	Sources  []automation.Citation
}

type ExtendResult struct {
	Deadline  deadline.Deadline
	Extension deadline.Extension
	After     Assessment
	Step      *automation.RecordedStep
}

// Service applies the deadline classifier and escalation policy for callers
// that need metrics, tracing and audit around them.
type Service struct {
	classifier     *deadline.Classifier
	recorder       StepRecorder
	auditPublisher AuditPublisher
	metrics        *deadlinemetrics.Metrics
	logger         *slog.Logger
	tracer         trace.Tracer
}

type Option func(*Service)

func WithStepRecorder(recorder StepRecorder) Option {
	return func(s *Service) {
		s.recorder = recorder
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func WithMetrics(m *deadlinemetrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = tracer
	}
}

// New constructs a Service. A nil classifier means deadline.Default().
func New(classifier *deadline.Classifier, opts ...Option) *Service {
	if classifier == nil {
		classifier = deadline.Default()
	}
	s := &Service{classifier: classifier}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.tracer == nil {
		s.tracer = otel.Tracer(tracerName)
	}
	return s
}

// Classify assesses d at now.
func (s *Service) Classify(ctx context.Context, d deadline.Deadline, now time.Time) (*Assessment, error) {
	_, span := s.tracer.Start(ctx, "deadline.Classify", trace.WithAttributes(
		attribute.String("deadline.type", string(d.Type)),
	))
	defer span.End()

	a, err := s.assess(d, now)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.String("deadline.status", string(a.Classification.Status)))
	s.metrics.IncrementClassification(string(a.Classification.Status), string(d.Type))
	return &a, nil
}

// Extend moves a deadline when the escalation policy allows it.
func (s *Service) Extend(ctx context.Context, cmd ExtendCommand) (*ExtendResult, error) {
	ctx, span := s.tracer.Start(ctx, "deadline.Extend", trace.WithAttributes(
		attribute.String("deadline.type", string(cmd.Deadline.Type)),
		attribute.String("run.id", cmd.RunID),
	))
	defer span.End()

	extended, ext, err := cmd.Deadline.Extend(s.classifier, cmd.NewDueAt, cmd.Now, cmd.Reason)
	if err != nil {
		span.RecordError(err)
		if dErrors.HasCode(err, dErrors.CodeExtensionNotPermitted) {
			s.refused(ctx, cmd)
		}
		return nil, err
	}

	result := &ExtendResult{Deadline: extended, Extension: ext}
	if runID := strings.TrimSpace(cmd.RunID); runID != "" {
		if s.recorder == nil {
			return nil, dErrors.New(dErrors.CodeInternal, "no step recorder configured")
		}
		step, err := s.recorder.RecordStep(ctx, runID, extensionStep(cmd, ext))
		if err != nil {
			span.RecordError(err)
			return nil, err
		}
		result.Step = step
	}

	after, err := s.assess(extended, cmd.Now)
	if err != nil {
		return nil, err
	}
	result.After = after

	s.metrics.IncrementExtension(string(cmd.Deadline.Type), string(ext.StatusAtRequest))
	s.logger.InfoContext(ctx, "deadline extended",
		"type", cmd.Deadline.Type,
		"previous_due_at", ext.PreviousDueAt,
		"new_due_at", ext.NewDueAt,
		"run_id", cmd.RunID,
		"request_id", requestcontext.RequestID(ctx),
	)
	s.emit(ctx, audit.Event{
		Subject:  subjectFor(cmd),
		Action:   string(audit.EventDeadlineExtended),
		ActorID:  string(actorOrDefault(cmd.Actor)),
		Decision: string(ext.StatusAtRequest),
		Reason:   ext.Reason,
	})
	return result, nil
}

func (s *Service) assess(d deadline.Deadline, now time.Time) (Assessment, error) {
	cls, err := d.Classify(s.classifier, now)
	if err != nil {
		return Assessment{}, err
	}
	return Assessment{
		Deadline:       d,
		Classification: cls,
		Actions:        deadline.AvailableActions(cls.Status, d.Type),
		Tone:           cls.Status.Tone(),
	}, nil
}

func (s *Service) refused(ctx context.Context, cmd ExtendCommand) {
	status := ""
	if cls, err := cmd.Deadline.Classify(s.classifier, cmd.Now); err == nil {
		status = string(cls.Status)
	}
	s.metrics.IncrementExtensionRefused(string(cmd.Deadline.Type), status)
	s.logger.WarnContext(ctx, "deadline extension refused",
		"type", cmd.Deadline.Type,
		"status", status,
		"run_id", cmd.RunID,
		"request_id", requestcontext.RequestID(ctx),
	)
	s.emit(ctx, audit.Event{
		Subject:  subjectFor(cmd),
		Action:   string(audit.EventDeadlineExtensionDenied),
		ActorID:  string(actorOrDefault(cmd.Actor)),
		Decision: status,
		Reason:   cmd.Reason,
	})
}

func (s *Service) emit(ctx context.Context, event audit.Event) {
	if s.auditPublisher == nil {
		return
	}
	event.RequestID = requestcontext.RequestID(ctx)
	if err := s.auditPublisher.Emit(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "failed to emit audit event",
			"action", event.Action,
			"error", err,
		)
	}
}

func extensionStep(cmd ExtendCommand, ext deadline.Extension) automation.AuditStep {
	return automation.AuditStep{
		Name:        ExtensionStepName,
		Description: ext.Reason,
		Status:      automation.StepCompleted,
		Actor:       actorOrDefault(cmd.Actor),
		Timestamp:   cmd.Now,
		Sources:     cmd.Sources,
		Inputs: map[string]any{
			"regulatory_type":   string(cmd.Deadline.Type),
			"previous_due_at":   ext.PreviousDueAt.UTC().Format(time.RFC3339Nano),
			"status_at_request": string(ext.StatusAtRequest),
		},
		Outputs: map[string]any{
			"new_due_at": ext.NewDueAt.UTC().Format(time.RFC3339Nano),
		},
	}
}

// actorOrDefault attributes an extension to the system unless the caller
// names a human. Only a named human completion may clear a review gate.
func actorOrDefault(a automation.Actor) automation.Actor {
	if a == "" {
		return automation.ActorSystem
	}
	return a
}

// subjectFor keys extension events by run when there is one, otherwise by
// the deadline's type and original due date.
func subjectFor(cmd ExtendCommand) string {
	if cmd.RunID != "" {
		return cmd.RunID
	}
	return string(cmd.Deadline.Type) + "@" + cmd.Deadline.OriginalDueAt().UTC().Format(time.RFC3339)
}
