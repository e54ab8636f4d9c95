package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"regengine/internal/automation/models"
	dErrors "regengine/pkg/domain-errors"
	"regengine/pkg/platform/httputil"
	"regengine/pkg/requestcontext"
)

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service

// Service defines the recorder operations the handler needs.
type Service interface {
	RecordStep(ctx context.Context, runID string, step models.AuditStep) (*models.RecordedStep, error)
	CloseRun(ctx context.Context, runID string) error
	GetTrail(ctx context.Context, runID string) ([]models.RecordedStep, error)
	Summary(ctx context.Context, runID string) (*models.Summary, error)
	VerifyTrail(ctx context.Context, runID string) (*models.Verification, error)
}

// Handler exposes automation run trails over HTTP.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the run endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/runs/{runID}", func(r chi.Router) {
		r.Post("/steps", h.HandleAppendStep)
		r.Post("/close", h.HandleCloseRun)
		r.Get("/trail", h.HandleGetTrail)
		r.Get("/summary", h.HandleSummary)
		r.Get("/verify", h.HandleVerify)
	})
}

// HandleAppendStep handles POST /runs/{runID}/steps.
func (h *Handler) HandleAppendStep(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	runID := chi.URLParam(r, "runID")

	req, ok := httputil.DecodeAndPrepare[AppendStepRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	recorded, err := h.service.RecordStep(ctx, runID, req.ToStep(requestcontext.Now(ctx)))
	if err != nil {
		h.logFailure(ctx, "append step failed", runID, err)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, AppendStepResponse{
		RunID:    runID,
		Position: recorded.Position,
		StepID:   recorded.Step.ID,
		Hash:     recorded.Hash,
	})
}

// HandleCloseRun handles POST /runs/{runID}/close.
func (h *Handler) HandleCloseRun(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	runID := chi.URLParam(r, "runID")

	if err := h.service.CloseRun(ctx, runID); err != nil {
		h.logFailure(ctx, "close run failed", runID, err)
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleGetTrail handles GET /runs/{runID}/trail.
func (h *Handler) HandleGetTrail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	runID := chi.URLParam(r, "runID")

	steps, err := h.service.GetTrail(ctx, runID)
	if err != nil {
		h.logFailure(ctx, "get trail failed", runID, err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromTrail(runID, steps))
}

// HandleSummary handles GET /runs/{runID}/summary.
func (h *Handler) HandleSummary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	runID := chi.URLParam(r, "runID")

	summary, err := h.service.Summary(ctx, runID)
	if err != nil {
		h.logFailure(ctx, "run summary failed", runID, err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, summary)
}

// HandleVerify handles GET /runs/{runID}/verify. A broken chain is still a
// 200; the body says where it breaks.
func (h *Handler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	runID := chi.URLParam(r, "runID")

	v, err := h.service.VerifyTrail(ctx, runID)
	if err != nil {
		h.logFailure(ctx, "verify trail failed", runID, err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, v)
}

// logFailure logs caller mistakes at warn and everything else at error.
func (h *Handler) logFailure(ctx context.Context, msg, runID string, err error) {
	level := slog.LevelWarn
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		level = slog.LevelError
	}
	h.logger.Log(ctx, level, msg,
		"request_id", requestcontext.RequestID(ctx),
		"run_id", runID,
		"error", err,
	)
}
