package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	automation "regengine/internal/automation/models"
	"regengine/internal/deadline"
	"regengine/internal/deadline/service"
	dErrors "regengine/pkg/domain-errors"
	"regengine/pkg/platform/httputil"
	"regengine/pkg/requestcontext"
)

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service

// Service defines the deadline operations the handler needs.
type Service interface {
	Classify(ctx context.Context, d deadline.Deadline, now time.Time) (*service.Assessment, error)
	Extend(ctx context.Context, cmd service.ExtendCommand) (*service.ExtendResult, error)
}

// Handler exposes deadline classification and escalation over HTTP.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the deadline endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/deadlines", func(r chi.Router) {
		r.Post("/classify", h.HandleClassify)
		r.Post("/extend", h.HandleExtend)
		r.Get("/actions", h.HandleActions)
	})
}

// HandleClassify handles POST /deadlines/classify.
func (h *Handler) HandleClassify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[ClassifyRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	a, err := h.service.Classify(ctx, req.ToDeadline(), req.At(requestcontext.Now(ctx)))
	if err != nil {
		h.logFailure(ctx, "classify deadline failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromAssessment(a))
}

// HandleExtend handles POST /deadlines/extend.
func (h *Handler) HandleExtend(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[ExtendRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	res, err := h.service.Extend(ctx, service.ExtendCommand{
		Deadline: req.ToDeadline(),
		NewDueAt: *req.NewDueAt,
		Reason:   req.Reason,
		Now:      requestcontext.Now(ctx),
		RunID:    req.RunID,
		Actor:    automation.Actor(req.Actor),
		Sources:  req.Citations(),
	})
	if err != nil {
		h.logFailure(ctx, "extend deadline failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromExtendResult(req.RunID, res))
}

// HandleActions handles GET /deadlines/actions?status=...&type=...
func (h *Handler) HandleActions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	status, err := deadline.ParseStatus(q.Get("status"))
	if err != nil {
		h.logFailure(ctx, "list actions failed", err)
		httputil.WriteError(w, err)
		return
	}
	actions := deadline.AvailableActions(status, deadline.ParseRegulatoryType(q.Get("type")))
	httputil.WriteJSON(w, http.StatusOK, ActionsResponse{
		Status:  string(status),
		Tone:    string(status.Tone()),
		Actions: actions.Strings(),
	})
}

func (h *Handler) logFailure(ctx context.Context, msg string, err error) {
	level := slog.LevelWarn
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		level = slog.LevelError
	}
	h.logger.Log(ctx, level, msg,
		"request_id", requestcontext.RequestID(ctx),
		"error", err,
	)
}
