package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	automationmetrics "regengine/internal/automation/metrics"
	"regengine/internal/automation/models"
	dErrors "regengine/pkg/domain-errors"
	audit "regengine/pkg/platform/audit"
	"regengine/pkg/platform/sentinel"
	"regengine/pkg/requestcontext"
)

const tracerName = "regengine/internal/automation"

// RunStore persists runs. Execute and ExecuteOrCreate must hold the run's
// exclusive lock across validate and mutate.
type RunStore interface {
	Execute(ctx context.Context, runID string, validate func(*models.Run) error, mutate func(*models.Run)) (*models.Run, error)
	ExecuteOrCreate(ctx context.Context, runID string, validate func(*models.Run) error, mutate func(*models.Run)) (*models.Run, bool, error)
	FindByID(ctx context.Context, runID string) (*models.Run, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service records automation runs as ordered, hash-chained audit trails.
type Service struct {
	runs           RunStore
	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *automationmetrics.Metrics
	tracer         trace.Tracer
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func WithMetrics(m *automationmetrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = tracer
	}
}

// New constructs a Service.
func New(runs RunStore, opts ...Option) *Service {
	s := &Service{runs: runs}
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

// AppendStep records step at the end of run runID and returns its 0-based
// position. The run is opened by its first accepted step.
func (s *Service) AppendStep(ctx context.Context, runID string, step models.AuditStep) (int, error) {
	recorded, err := s.RecordStep(ctx, runID, step)
	if err != nil {
		return -1, err
	}
	return recorded.Position, nil
}

// RecordStep is AppendStep returning the recorded step with its chain hashes.
//
// Step-local rules are checked before the run is locked. Run-level rules
// (closed run, ordering, review gate) are checked and the step appended under
// the run's lock, so concurrent appends to one run cannot interleave.
func (s *Service) RecordStep(ctx context.Context, runID string, step models.AuditStep) (*models.RecordedStep, error) {
	start := time.Now()
	defer s.metrics.ObserveAppend(start)

	ctx, span := s.tracer.Start(ctx, "automation.AppendStep", trace.WithAttributes(
		attribute.String("run.id", runID),
		attribute.String("step.actor", string(step.Actor)),
		attribute.String("step.status", string(step.Status)),
	))
	defer span.End()

	if err := requireRunID(runID); err != nil {
		return nil, s.rejectStep(ctx, span, runID, step, err)
	}
	if strings.TrimSpace(step.ID) == "" {
		step.ID = uuid.NewString()
	}
	if err := step.Validate(); err != nil {
		return nil, s.rejectStep(ctx, span, runID, step, err)
	}

	var recorded models.RecordedStep
	_, created, err := s.runs.ExecuteOrCreate(ctx, runID,
		func(r *models.Run) error {
			if err := r.CanAppend(step); err != nil {
				return err
			}
			rs, err := r.PrepareAppend(step)
			if err != nil {
				return err
			}
			recorded = rs
			return nil
		},
		func(r *models.Run) {
			r.ApplyAppend(recorded)
		},
	)
	if err != nil {
		return nil, s.rejectStep(ctx, span, runID, step, wrapRunErr(err))
	}

	if created {
		s.metrics.IncrementRunStarted()
	}
	s.metrics.IncrementStepRecorded(string(step.Actor), string(step.Status))
	span.SetAttributes(attribute.Int("step.position", recorded.Position))

	s.logger.DebugContext(ctx, "step recorded",
		"run_id", runID,
		"step_id", recorded.Step.ID,
		"position", recorded.Position,
		"request_id", requestcontext.RequestID(ctx),
	)
	s.emit(ctx, audit.Event{
		Subject:  runID,
		Action:   string(audit.EventStepRecorded),
		Position: recorded.Position,
		ActorID:  string(step.Actor),
		Decision: string(step.Status),
		Reason:   step.Name,
	})
	return &recorded, nil
}

// CloseRun marks the run closed. Its trail stays readable.
func (s *Service) CloseRun(ctx context.Context, runID string) error {
	ctx, span := s.tracer.Start(ctx, "automation.CloseRun", trace.WithAttributes(attribute.String("run.id", runID)))
	defer span.End()

	if err := requireRunID(runID); err != nil {
		return err
	}
	run, err := s.runs.Execute(ctx, runID,
		func(r *models.Run) error {
			return r.CanClose()
		},
		func(r *models.Run) {
			r.ApplyClose()
		},
	)
	if err != nil {
		err = wrapRunErr(err)
		recordSpanError(span, err)
		s.logger.WarnContext(ctx, "close run refused",
			"run_id", runID,
			"code", dErrors.CodeOf(err),
			"request_id", requestcontext.RequestID(ctx),
		)
		return err
	}

	s.metrics.IncrementRunClosed()
	s.logger.InfoContext(ctx, "run closed",
		"run_id", runID,
		"steps", len(run.Steps),
		"request_id", requestcontext.RequestID(ctx),
	)
	s.emit(ctx, audit.Event{
		Subject:  runID,
		Action:   string(audit.EventRunClosed),
		Position: len(run.Steps) - 1,
		Decision: string(models.RunClosed),
	})
	return nil
}

// GetRun returns a snapshot of the run.
func (s *Service) GetRun(ctx context.Context, runID string) (*models.Run, error) {
	if err := requireRunID(runID); err != nil {
		return nil, err
	}
	run, err := s.runs.FindByID(ctx, runID)
	if err != nil {
		return nil, wrapRunErr(err)
	}
	return run, nil
}

// GetTrail returns the run's steps in append order.
func (s *Service) GetTrail(ctx context.Context, runID string) ([]models.RecordedStep, error) {
	run, err := s.GetRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	return run.Steps, nil
}

func (s *Service) Summary(ctx context.Context, runID string) (*models.Summary, error) {
	run, err := s.GetRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	summary := run.Summarize()
	return &summary, nil
}

// VerifyTrail re-derives the run's hash chain from its stored steps.
func (s *Service) VerifyTrail(ctx context.Context, runID string) (*models.Verification, error) {
	ctx, span := s.tracer.Start(ctx, "automation.VerifyTrail", trace.WithAttributes(attribute.String("run.id", runID)))
	defer span.End()

	run, err := s.GetRun(ctx, runID)
	if err != nil {
		recordSpanError(span, err)
		return nil, err
	}
	v, err := models.VerifyChain(run.ID, run.Steps)
	if err != nil {
		recordSpanError(span, err)
		return nil, err
	}
	span.SetAttributes(attribute.Bool("trail.valid", v.Valid))
	if !v.Valid {
		s.metrics.IncrementChainFailure()
		s.logger.ErrorContext(ctx, "audit trail failed verification",
			"run_id", runID,
			"broken_at", v.BrokenAt,
			"reason", v.Reason,
			"request_id", requestcontext.RequestID(ctx),
		)
	}
	return &v, nil
}

func (s *Service) rejectStep(ctx context.Context, span trace.Span, runID string, step models.AuditStep, err error) error {
	code := dErrors.CodeOf(err)
	recordSpanError(span, err)
	s.metrics.IncrementStepRejected(string(code))
	s.logger.WarnContext(ctx, "step rejected",
		"run_id", runID,
		"step_id", step.ID,
		"code", code,
		"error", err,
		"request_id", requestcontext.RequestID(ctx),
	)

	if code == dErrors.CodeReviewGateOpen {
		s.emit(ctx, audit.Event{
			Subject:  runID,
			Action:   string(audit.EventReviewGateBlocked),
			ActorID:  string(step.Actor),
			Decision: "blocked",
			Reason:   step.Name,
		})
	}
	return err
}

// emit publishes an audit event. The trail itself is the system of record, so
// a publish failure is logged and never undoes an accepted write.
func (s *Service) emit(ctx context.Context, event audit.Event) {
	if s.auditPublisher == nil {
		return
	}
	event.RequestID = requestcontext.RequestID(ctx)
	if err := s.auditPublisher.Emit(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "failed to emit audit event",
			"action", event.Action,
			"run_id", event.Subject,
			"error", err,
		)
	}
}

func requireRunID(runID string) error {
	if strings.TrimSpace(runID) == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "run id is required")
	}
	return nil
}

// wrapRunErr translates store sentinels into domain errors; domain errors
// raised by the run's own rules pass through unchanged.
func wrapRunErr(err error) error {
	if err == nil {
		return nil
	}
	var de *dErrors.Error
	if errors.As(err, &de) {
		return err
	}
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeUnknownRun, "run not found")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "run store failure")
}

func recordSpanError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, string(dErrors.CodeOf(err)))
}
