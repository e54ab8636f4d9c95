package handler

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	automationmodels "regengine/internal/automation/models"
	automationservice "regengine/internal/automation/service"
	"regengine/internal/automation/store"
	"regengine/internal/deadline"
	"regengine/internal/deadline/handler/mocks"
	"regengine/internal/deadline/service"
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
	s.now = time.Date(2025, 5, 20, 8, 0, 0, 0, time.UTC)
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

func (s *HandlerSuite) TestClassify() {
	s.T().Run("200 with status, tone and actions", func(t *testing.T) {
		mockService, router := s.newHandler(t)
		due := s.now.Add(30 * time.Hour)
		mockService.EXPECT().Classify(gomock.Any(), gomock.Any(), s.now).
			DoAndReturn(func(_ context.Context, d deadline.Deadline, _ time.Time) (*service.Assessment, error) {
				assert.Equal(t, deadline.TypeBreachNotification, d.Type)
				assert.True(t, due.Equal(d.DueAt))
				return &service.Assessment{
					Deadline: d,
					Classification: deadline.Classification{
						Status:           deadline.StatusAtRisk,
						RemainingDisplay: "30h left",
						Remaining:        30 * time.Hour,
					},
					Actions: deadline.ActionSet{deadline.ActionExtension, deadline.ActionAutoResponse},
					Tone:    deadline.ToneWarning,
				}, nil
			})

		req := testutil.NewJSONRequest(t, http.MethodPost, "/deadlines/classify", map[string]any{
			"due_at": due,
			"type":   " Breach-Notification ",
		})
		rr := testutil.DoRequest(router, testutil.WithRequestTime(req, s.now))

		testutil.AssertStatus(t, rr, http.StatusOK)
		resp := testutil.UnmarshalResponse[AssessmentResponse](t, rr)
		assert.Equal(t, "at-risk", resp.Status)
		assert.Equal(t, "30h left", resp.RemainingDisplay)
		assert.Equal(t, int64(30*3600), resp.RemainingSeconds)
		assert.Equal(t, "warning", resp.Tone)
		assert.Equal(t, []string{"extension", "auto-response"}, resp.Actions)
		assert.Equal(t, "breach-notification", resp.Type)
	})

	s.T().Run("as_of overrides the request time", func(t *testing.T) {
		mockService, router := s.newHandler(t)
		asOf := s.now.Add(-48 * time.Hour)
		mockService.EXPECT().Classify(gomock.Any(), gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, d deadline.Deadline, now time.Time) (*service.Assessment, error) {
				assert.True(t, asOf.Equal(now))
				return &service.Assessment{Deadline: d, Classification: deadline.Classification{Status: deadline.StatusOnTrack}}, nil
			})

		req := testutil.NewJSONRequest(t, http.MethodPost, "/deadlines/classify", map[string]any{
			"due_at": s.now, "type": "dsr", "as_of": asOf,
		})
		rr := testutil.DoRequest(router, testutil.WithRequestTime(req, s.now))
		testutil.AssertStatus(t, rr, http.StatusOK)
	})

	s.T().Run("completed deadlines need no due date", func(t *testing.T) {
		mockService, router := s.newHandler(t)
		mockService.EXPECT().Classify(gomock.Any(), gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, d deadline.Deadline, _ time.Time) (*service.Assessment, error) {
				assert.True(t, d.Completed)
				assert.True(t, d.DueAt.IsZero())
				return &service.Assessment{
					Deadline:       d,
					Classification: deadline.Classification{Status: deadline.StatusCompleted, RemainingDisplay: "Completed"},
					Actions:        deadline.ActionSet{},
					Tone:           deadline.ToneNeutral,
				}, nil
			})

		req := testutil.NewJSONRequest(t, http.MethodPost, "/deadlines/classify", map[string]any{
			"type": "dsr", "completed": true,
		})
		rr := testutil.DoRequest(router, req)
		testutil.AssertStatus(t, rr, http.StatusOK)
		resp := testutil.UnmarshalResponse[AssessmentResponse](t, rr)
		assert.Equal(t, "completed", resp.Status)
		assert.Empty(t, resp.Actions)
	})

	s.T().Run("400 on missing fields", func(t *testing.T) {
		mockService, router := s.newHandler(t)
		mockService.EXPECT().Classify(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

		for _, body := range []map[string]any{
			{"due_at": s.now},
			{"type": "dsr"},
		} {
			req := testutil.NewJSONRequest(t, http.MethodPost, "/deadlines/classify", body)
			rr := testutil.DoRequest(router, req)
			testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, string(dErrors.CodeValidation))
		}
	})
}

func (s *HandlerSuite) TestExtend() {
	due := s.now.Add(3 * 24 * time.Hour)
	newDue := due.Add(30 * 24 * time.Hour)

	s.T().Run("200 with extension and recorded step", func(t *testing.T) {
		mockService, router := s.newHandler(t)
		mockService.EXPECT().Extend(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, cmd service.ExtendCommand) (*service.ExtendResult, error) {
				assert.Equal(t, s.now, cmd.Now)
				assert.Equal(t, "run-7", cmd.RunID)
				assert.Equal(t, automationmodels.ActorSystem, cmd.Actor)
				assert.Equal(t, "complex request", cmd.Reason)
				require.Len(t, cmd.Sources, 1)
				assert.Equal(t, automationmodels.CitationGDPRArticle, cmd.Sources[0].Type)

				extended, ext, err := cmd.Deadline.Extend(deadline.Default(), cmd.NewDueAt, cmd.Now, cmd.Reason)
				require.NoError(t, err)
				return &service.ExtendResult{
					Deadline:  extended,
					Extension: ext,
					After: service.Assessment{
						Deadline:       extended,
						Classification: deadline.Classification{Status: deadline.StatusOnTrack, RemainingDisplay: "33 days left"},
						Actions:        deadline.ActionSet{deadline.ActionExtension},
						Tone:           deadline.ToneSuccess,
					},
					Step: &automationmodels.RecordedStep{Position: 2, Step: automationmodels.AuditStep{ID: "step-9"}, Hash: "h"},
				}, nil
			})

		req := testutil.NewJSONRequest(t, http.MethodPost, "/deadlines/extend", map[string]any{
			"due_at":     due,
			"type":       "dsr",
			"new_due_at": newDue,
			"reason":     " complex request ",
			"run_id":     "run-7",
			"actor":      "System",
			"sources":    []map[string]string{{"type": "GDPR-Article", "reference": "Art. 12(3)"}},
		})
		rr := testutil.DoRequest(router, testutil.WithRequestTime(req, s.now))

		testutil.AssertStatus(t, rr, http.StatusOK)
		resp := testutil.UnmarshalResponse[ExtendResponse](t, rr)
		assert.True(t, due.Equal(resp.OriginalDueAt))
		assert.True(t, newDue.Equal(resp.Extension.NewDueAt))
		assert.Equal(t, "at-risk", resp.Extension.StatusAtRequest)
		assert.Equal(t, "on-track", resp.Assessment.Status)
		require.NotNil(t, resp.Step)
		assert.Equal(t, "run-7", resp.Step.RunID)
		assert.Equal(t, 2, resp.Step.Position)
		assert.Equal(t, "step-9", resp.Step.StepID)
	})

	s.T().Run("409 when the policy refuses", func(t *testing.T) {
		mockService, router := s.newHandler(t)
		mockService.EXPECT().Extend(gomock.Any(), gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeExtensionNotPermitted, "cannot extend an overdue deadline"))

		req := testutil.NewJSONRequest(t, http.MethodPost, "/deadlines/extend", map[string]any{
			"due_at": due, "type": "dsr", "new_due_at": newDue, "reason": "late",
		})
		rr := testutil.DoRequest(router, req)
		testutil.AssertStatusAndError(t, rr, http.StatusConflict, string(dErrors.CodeExtensionNotPermitted))
	})

	s.T().Run("400 on invalid requests", func(t *testing.T) {
		mockService, router := s.newHandler(t)
		mockService.EXPECT().Extend(gomock.Any(), gomock.Any()).Times(0)

		cases := map[string]map[string]any{
			"missing reason":     {"due_at": due, "type": "dsr", "new_due_at": newDue},
			"missing new_due_at": {"due_at": due, "type": "dsr", "reason": "x"},
			"ai actor":           {"due_at": due, "type": "dsr", "new_due_at": newDue, "reason": "x", "actor": "ai"},
		}
		for name, body := range cases {
			t.Run(name, func(t *testing.T) {
				req := testutil.NewJSONRequest(t, http.MethodPost, "/deadlines/extend", body)
				rr := testutil.DoRequest(router, req)
				testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, string(dErrors.CodeValidation))
			})
		}
	})
}

func (s *HandlerSuite) TestActions() {
	_, router := s.newHandler(s.T())

	s.Run("at-risk", func() {
		rr := testutil.DoRequest(router, testutil.NewRequest(s.T(), http.MethodGet, "/deadlines/actions?status=at-risk&type=dsr"))
		testutil.AssertStatus(s.T(), rr, http.StatusOK)
		resp := testutil.UnmarshalResponse[ActionsResponse](s.T(), rr)
		s.Equal([]string{"extension", "auto-response"}, resp.Actions)
		s.Equal("warning", resp.Tone)
	})

	s.Run("overdue has none", func() {
		rr := testutil.DoRequest(router, testutil.NewRequest(s.T(), http.MethodGet, "/deadlines/actions?status=OVERDUE"))
		testutil.AssertStatus(s.T(), rr, http.StatusOK)
		resp := testutil.UnmarshalResponse[ActionsResponse](s.T(), rr)
		s.Empty(resp.Actions)
		s.Equal("overdue", resp.Status)
	})

	s.Run("unknown status", func() {
		rr := testutil.DoRequest(router, testutil.NewRequest(s.T(), http.MethodGet, "/deadlines/actions?status=late"))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, string(dErrors.CodeInvalidInput))
	})
}

// TestExtendOverHTTP runs the real services: an extension recorded on a run
// shows up as the next step in its trail.
func TestExtendOverHTTP(t *testing.T) {
	now := time.Date(2025, 5, 20, 8, 0, 0, 0, time.UTC)
	recorder := automationservice.New(store.NewInMemory())
	svc := service.New(nil, service.WithStepRecorder(recorder))
	router := chi.NewRouter()
	New(svc, slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))).Register(router)

	_, err := recorder.RecordStep(context.Background(), "run-http", automationmodels.AuditStep{
		Name: "intake", Status: automationmodels.StepCompleted, Actor: automationmodels.ActorSystem, Timestamp: now.Add(-time.Hour),
	})
	require.NoError(t, err)

	due := now.Add(24 * time.Hour)
	req := testutil.NewJSONRequest(t, http.MethodPost, "/deadlines/extend", map[string]any{
		"due_at": due, "type": "dsr", "new_due_at": due.Add(14 * 24 * time.Hour), "reason": "awaiting ID", "run_id": "run-http",
	})
	rr := testutil.DoRequest(router, testutil.WithRequestTime(req, now))
	testutil.AssertStatus(t, rr, http.StatusOK)

	resp := testutil.UnmarshalResponse[ExtendResponse](t, rr)
	require.NotNil(t, resp.Step)
	assert.Equal(t, 1, resp.Step.Position)

	trail, err := recorder.GetTrail(context.Background(), "run-http")
	require.NoError(t, err)
	require.Len(t, trail, 2)
	assert.Equal(t, service.ExtensionStepName, trail[1].Step.Name)
	assert.Equal(t, trail[0].Hash, trail[1].PrevHash)
}
