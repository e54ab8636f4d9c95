package handler

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"regengine/internal/automation/handler/mocks"
	"regengine/internal/automation/models"
	"regengine/internal/automation/service"
	"regengine/internal/automation/store"
	dErrors "regengine/pkg/domain-errors"
	"regengine/pkg/testutil"
)

type HandlerSuite struct {
	suite.Suite
	now time.Time
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupSuite() {
	s.now = time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)
}

func (s *HandlerSuite) newHandler(t *testing.T) (*mocks.MockService, *chi.Mux) {
	t.Helper()
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	mockService := mocks.NewMockService(ctrl)
	r := chi.NewRouter()
	New(mockService, logger).Register(r)
	return mockService, r
}

func (s *HandlerSuite) TestAppendStep() {
	s.T().Run("201 with position and hash, timestamp defaults to request time", func(t *testing.T) {
		mockService, router := s.newHandler(t)
		mockService.EXPECT().RecordStep(gomock.Any(), "run-1", gomock.Any()).
			DoAndReturn(func(_ context.Context, _ string, step models.AuditStep) (*models.RecordedStep, error) {
				assert.Equal(t, s.now, step.Timestamp)
				assert.Equal(t, models.ActorAI, step.Actor)
				assert.Equal(t, models.ConfidenceLow, step.Confidence)
				require.Len(t, step.Sources, 1)
				assert.Equal(t, models.CitationGDPRArticle, step.Sources[0].Type)
				assert.Equal(t, "Article 15", step.Sources[0].Reference)
				step.ID = "generated"
				return &models.RecordedStep{Position: 3, Step: step, Hash: "abc"}, nil
			})

		req := testutil.NewJSONRequest(t, http.MethodPost, "/runs/run-1/steps", map[string]any{
			"name":       "draft response",
			"status":     "completed",
			"actor":      " AI ",
			"confidence": "Low",
			"sources":    []map[string]string{{"type": "GDPR-Article", "reference": " Article 15 "}},
		})
		rr := testutil.DoRequest(router, testutil.WithRequestTime(req, s.now))

		testutil.AssertStatus(t, rr, http.StatusCreated)
		resp := testutil.UnmarshalResponse[AppendStepResponse](t, rr)
		assert.Equal(t, 3, resp.Position)
		assert.Equal(t, "generated", resp.StepID)
		assert.Equal(t, "abc", resp.Hash)
		assert.Equal(t, "run-1", resp.RunID)
	})

	s.T().Run("explicit timestamp is kept", func(t *testing.T) {
		mockService, router := s.newHandler(t)
		explicit := s.now.Add(-time.Hour)
		mockService.EXPECT().RecordStep(gomock.Any(), "run-1", gomock.Any()).
			DoAndReturn(func(_ context.Context, _ string, step models.AuditStep) (*models.RecordedStep, error) {
				assert.True(t, explicit.Equal(step.Timestamp))
				return &models.RecordedStep{Step: step}, nil
			})

		req := testutil.NewJSONRequest(t, http.MethodPost, "/runs/run-1/steps", map[string]any{
			"name": "x", "status": "completed", "actor": "system", "timestamp": explicit,
		})
		rr := testutil.DoRequest(router, testutil.WithRequestTime(req, s.now))
		testutil.AssertStatus(t, rr, http.StatusCreated)
	})

	s.T().Run("400 on malformed json", func(t *testing.T) {
		mockService, router := s.newHandler(t)
		mockService.EXPECT().RecordStep(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

		req := httptest.NewRequest(http.MethodPost, "/runs/run-1/steps", strings.NewReader("{bad-json"))
		rr := testutil.DoRequest(router, req)
		testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, string(dErrors.CodeBadRequest))
	})

	s.T().Run("400 on unknown fields", func(t *testing.T) {
		mockService, router := s.newHandler(t)
		mockService.EXPECT().RecordStep(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

		req := testutil.NewJSONRequest(t, http.MethodPost, "/runs/run-1/steps", map[string]any{"name": "x", "priority": 1})
		rr := testutil.DoRequest(router, req)
		testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, string(dErrors.CodeBadRequest))
	})

	s.T().Run("400 when name is too long", func(t *testing.T) {
		mockService, router := s.newHandler(t)
		mockService.EXPECT().RecordStep(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

		req := testutil.NewJSONRequest(t, http.MethodPost, "/runs/run-1/steps", map[string]any{"name": strings.Repeat("n", maxNameLength+1)})
		rr := testutil.DoRequest(router, req)
		testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, string(dErrors.CodeValidation))
	})

	errorCases := []struct {
		name   string
		err    error
		status int
	}{
		{"invalid step", dErrors.New(dErrors.CodeInvalidStep, "low-confidence step must cite at least one source"), http.StatusBadRequest},
		{"review gate", dErrors.New(dErrors.CodeReviewGateOpen, "cannot auto-complete"), http.StatusConflict},
		{"timestamp regression", dErrors.New(dErrors.CodeTimestampRegression, "earlier"), http.StatusConflict},
		{"closed run", dErrors.New(dErrors.CodeRunClosed, "closed"), http.StatusConflict},
		{"store failure", dErrors.Wrap(errors.New("boom"), dErrors.CodeInternal, "run store failure"), http.StatusInternalServerError},
	}
	for _, tc := range errorCases {
		s.T().Run(tc.name, func(t *testing.T) {
			mockService, router := s.newHandler(t)
			mockService.EXPECT().RecordStep(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, tc.err)

			req := testutil.NewJSONRequest(t, http.MethodPost, "/runs/run-1/steps", map[string]any{"name": "x"})
			rr := testutil.DoRequest(router, req)
			testutil.AssertStatusAndError(t, rr, tc.status, string(dErrors.CodeOf(tc.err)))
		})
	}
}

func (s *HandlerSuite) TestCloseRun() {
	s.T().Run("204 on success", func(t *testing.T) {
		mockService, router := s.newHandler(t)
		mockService.EXPECT().CloseRun(gomock.Any(), "run-9").Return(nil)

		rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodPost, "/runs/run-9/close"))
		testutil.AssertStatus(t, rr, http.StatusNoContent)
	})

	s.T().Run("404 for unknown run", func(t *testing.T) {
		mockService, router := s.newHandler(t)
		mockService.EXPECT().CloseRun(gomock.Any(), "run-9").Return(dErrors.New(dErrors.CodeUnknownRun, "run not found"))

		rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodPost, "/runs/run-9/close"))
		testutil.AssertStatusAndError(t, rr, http.StatusNotFound, string(dErrors.CodeUnknownRun))
	})

	s.T().Run("409 when already closed", func(t *testing.T) {
		mockService, router := s.newHandler(t)
		mockService.EXPECT().CloseRun(gomock.Any(), "run-9").Return(dErrors.New(dErrors.CodeAlreadyClosed, "closed"))

		rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodPost, "/runs/run-9/close"))
		testutil.AssertStatusAndError(t, rr, http.StatusConflict, string(dErrors.CodeAlreadyClosed))
	})
}

func (s *HandlerSuite) TestGetTrail() {
	s.T().Run("renders steps with icons and hashes", func(t *testing.T) {
		mockService, router := s.newHandler(t)
		mockService.EXPECT().GetTrail(gomock.Any(), "run-2").Return([]models.RecordedStep{
			{Position: 0, Hash: "h0", Step: models.AuditStep{ID: "a", Name: "a", Status: models.StepCompleted, Actor: models.ActorAI, Confidence: models.ConfidenceHigh, Timestamp: s.now}},
			{Position: 1, PrevHash: "h0", Hash: "h1", Step: models.AuditStep{ID: "b", Name: "b", Status: models.StepHumanReview, Actor: models.ActorHuman, Timestamp: s.now}},
		}, nil)

		rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/runs/run-2/trail"))
		testutil.AssertStatus(t, rr, http.StatusOK)

		resp := testutil.UnmarshalResponse[TrailResponse](t, rr)
		require.Len(t, resp.Steps, 2)
		assert.Equal(t, string(models.IconSparkles), resp.Steps[0].Icon)
		assert.Equal(t, string(models.IconUserCheck), resp.Steps[1].Icon)
		assert.Equal(t, "h0", resp.Steps[1].PrevHash)
		assert.NotNil(t, resp.Steps[0].Sources)
	})

	s.T().Run("404 for unknown run", func(t *testing.T) {
		mockService, router := s.newHandler(t)
		mockService.EXPECT().GetTrail(gomock.Any(), "nope").Return(nil, dErrors.New(dErrors.CodeUnknownRun, "run not found"))

		rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/runs/nope/trail"))
		testutil.AssertStatusAndError(t, rr, http.StatusNotFound, string(dErrors.CodeUnknownRun))
	})
}

func (s *HandlerSuite) TestSummaryAndVerify() {
	s.T().Run("summary", func(t *testing.T) {
		mockService, router := s.newHandler(t)
		mockService.EXPECT().Summary(gomock.Any(), "run-3").Return(&models.Summary{RunID: "run-3", State: models.RunOpen, StepCount: 2}, nil)

		rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/runs/run-3/summary"))
		testutil.AssertStatus(t, rr, http.StatusOK)
		resp := testutil.UnmarshalResponse[models.Summary](t, rr)
		assert.Equal(t, 2, resp.StepCount)
	})

	s.T().Run("broken chain is reported with 200", func(t *testing.T) {
		mockService, router := s.newHandler(t)
		mockService.EXPECT().VerifyTrail(gomock.Any(), "run-3").Return(&models.Verification{RunID: "run-3", Valid: false, BrokenAt: 1}, nil)

		rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/runs/run-3/verify"))
		testutil.AssertStatus(t, rr, http.StatusOK)
		resp := testutil.UnmarshalResponse[models.Verification](t, rr)
		assert.False(t, resp.Valid)
		assert.Equal(t, 1, resp.BrokenAt)
	})
}

// TestReviewGateOverHTTP drives the real recorder through the handler.
func TestReviewGateOverHTTP(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	r := chi.NewRouter()
	New(service.New(store.NewInMemory(), service.WithLogger(logger)), logger).Register(r)

	clock := testutil.Clock(time.Date(2025, 7, 1, 9, 0, 0, 0, time.UTC), time.Minute)
	post := func(body map[string]any) int {
		req := testutil.NewJSONRequest(t, http.MethodPost, "/runs/dsr-42/steps", body)
		return testutil.DoRequest(r, testutil.WithRequestTime(req, clock())).Code
	}

	testutil.Given(t, "an ai step that requires human review", func(t *testing.T) {
		require.Equal(t, http.StatusCreated, post(map[string]any{
			"name": "classify request", "status": "completed", "actor": "ai", "confidence": "medium",
			"human_review_required": true,
		}))

		testutil.When(t, "another ai step tries to complete", func(t *testing.T) {
			code := post(map[string]any{"name": "send response", "status": "completed", "actor": "ai", "confidence": "high"})

			testutil.Then(t, "it is refused with 409", func(t *testing.T) {
				assert.Equal(t, http.StatusConflict, code)
			})
		})

		testutil.When(t, "a human signs off first", func(t *testing.T) {
			require.Equal(t, http.StatusCreated, post(map[string]any{"name": "review", "status": "completed", "actor": "human"}))
			code := post(map[string]any{"name": "send response", "status": "completed", "actor": "ai", "confidence": "high"})

			testutil.Then(t, "the ai step is accepted", func(t *testing.T) {
				assert.Equal(t, http.StatusCreated, code)
			})
		})

		testutil.Then(t, "the trail verifies", func(t *testing.T) {
			rr := testutil.DoRequest(r, testutil.NewRequest(t, http.MethodGet, "/runs/dsr-42/verify"))
			testutil.AssertStatus(t, rr, http.StatusOK)
			testutil.AssertJSONContains(t, rr, "valid", true)
		})
	})
}
