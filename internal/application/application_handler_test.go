package application_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"hrm-server/internal/application"
	applicationerrors "hrm-server/internal/application/errors"
	"hrm-server/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type apiMeta struct {
	Total    int64 `json:"total"`
	Page     int   `json:"page"`
	PageSize int   `json:"pageSize"`
}

type apiEnvelope struct {
	Ok    bool            `json:"ok"`
	Data  json.RawMessage `json:"data"`
	Meta  *apiMeta        `json:"meta"`
	Error *apiError       `json:"error"`
}

func decodeEnvelope(t *testing.T, body []byte) apiEnvelope {
	t.Helper()
	var env apiEnvelope
	err := json.Unmarshal(body, &env)
	assert.NoError(t, err)
	return env
}

type fakeApplicationService struct {
	createFn       func(ctx context.Context, orgID, actorID string, req application.CreateApplicationRequest) (application.ApplicationResponse, error)
	getByIDFn      func(ctx context.Context, orgID, actorID, id string, canReadAll bool) (application.ApplicationResponse, error)
	listFn         func(ctx context.Context, orgID, actorID string, canReadAll bool, filter application.ListFilter) (application.ListResult, error)
	activeFn       func(ctx context.Context, orgID, applicantID string) ([]application.ApplicationSummary, error)
	pendingFn      func(ctx context.Context, orgID, approverID string) ([]application.ApplicationSummary, error)
	advanceStageFn func(ctx context.Context, orgID, actorID, id string, req application.AdvanceStageRequest) (application.ApplicationResponse, error)
	addCommentFn   func(ctx context.Context, orgID, actorID, id string, stageIndex int, req application.AddCommentRequest) (application.ApplicationResponse, error)
	cancelFn       func(ctx context.Context, orgID, actorID, id string, req application.CancelRequest) (application.ApplicationResponse, error)
}

func (f *fakeApplicationService) Create(ctx context.Context, orgID, actorID string, req application.CreateApplicationRequest) (application.ApplicationResponse, error) {
	return f.createFn(ctx, orgID, actorID, req)
}
func (f *fakeApplicationService) GetByID(ctx context.Context, orgID, actorID, id string, canReadAll bool) (application.ApplicationResponse, error) {
	return f.getByIDFn(ctx, orgID, actorID, id, canReadAll)
}
func (f *fakeApplicationService) List(ctx context.Context, orgID, actorID string, canReadAll bool, filter application.ListFilter) (application.ListResult, error) {
	return f.listFn(ctx, orgID, actorID, canReadAll, filter)
}
func (f *fakeApplicationService) GetActiveForApplicant(ctx context.Context, orgID, applicantID string) ([]application.ApplicationSummary, error) {
	return f.activeFn(ctx, orgID, applicantID)
}
func (f *fakeApplicationService) GetPendingForApprover(ctx context.Context, orgID, approverID string) ([]application.ApplicationSummary, error) {
	return f.pendingFn(ctx, orgID, approverID)
}
func (f *fakeApplicationService) AdvanceStage(ctx context.Context, orgID, actorID, id string, req application.AdvanceStageRequest) (application.ApplicationResponse, error) {
	return f.advanceStageFn(ctx, orgID, actorID, id, req)
}
func (f *fakeApplicationService) AddComment(ctx context.Context, orgID, actorID, id string, stageIndex int, req application.AddCommentRequest) (application.ApplicationResponse, error) {
	return f.addCommentFn(ctx, orgID, actorID, id, stageIndex, req)
}
func (f *fakeApplicationService) Cancel(ctx context.Context, orgID, actorID, id string, req application.CancelRequest) (application.ApplicationResponse, error) {
	return f.cancelFn(ctx, orgID, actorID, id, req)
}

func newApplicationRouter(svc application.Service, employeeID, role string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	auth := func(c *gin.Context) {
		c.Set("employee_id", employeeID)
		c.Set("org_id", "org-1")
		c.Set("role", role)
		c.Next()
	}
	application.RegisterRoutes(r.Group("/api/v1"), application.NewHandler(svc), middleware.Guards{Auth: auth})
	return r
}

func TestApplicationHandler_Create(t *testing.T) {
	actor := uuid.NewString()
	body := `{
		"application_type": "leave",
		"title": "Trip",
		"body": "Off",
		"from_date": "2026-07-01",
		"to_date": "2026-07-03",
		"details": {"leave": {"leave_type": "ANNUAL", "has_documents": true}}
	}`

	t.Run("created", func(t *testing.T) {
		svc := &fakeApplicationService{
			createFn: func(ctx context.Context, orgID, actorID string, req application.CreateApplicationRequest) (application.ApplicationResponse, error) {
				assert.Equal(t, "org-1", orgID)
				assert.Equal(t, actor, actorID)
				require.NotNil(t, req.Details.Leave)
				assert.True(t, req.Details.Leave.HasDocuments)
				return application.ApplicationResponse{ID: "app-1", CurrentStatus: "pending"}, nil
			},
		}
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/applications", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")

		newApplicationRouter(svc, actor, "employee").ServeHTTP(w, req)

		assert.Equal(t, http.StatusCreated, w.Code)
		env := decodeEnvelope(t, w.Body.Bytes())
		assert.True(t, env.Ok)
		assert.Contains(t, string(env.Data), `"current_status":"pending"`)
	})

	t.Run("binding error", func(t *testing.T) {
		svc := &fakeApplicationService{}
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/applications", strings.NewReader(`{"application_type":"leave","from_date":"07/01/2026"}`))
		req.Header.Set("Content-Type", "application/json")

		newApplicationRouter(svc, actor, "employee").ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		env := decodeEnvelope(t, w.Body.Bytes())
		require.NotNil(t, env.Error)
		assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
	})
}

func TestApplicationHandler_AdvanceStage(t *testing.T) {
	actor := uuid.NewString()

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
		wantMsg    string
	}{
		{"not your turn", applicationerrors.ErrNotYourTurn, http.StatusConflict, "CONFLICT", "not your turn"},
		{"not authorized", applicationerrors.ErrNotAuthorized, http.StatusConflict, "CONFLICT", "not authorized to act on this stage"},
		{"decided", applicationerrors.ErrAlreadyDecided, http.StatusConflict, "CONFLICT", "application already decided"},
		{"not found", applicationerrors.ErrApplicationNotFound, http.StatusNotFound, "NOT_FOUND", "application not found"},
		{"reason", applicationerrors.ErrReasonRequired, http.StatusBadRequest, "VALIDATION_ERROR", "Reason is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeApplicationService{
				advanceStageFn: func(ctx context.Context, orgID, actorID, id string, req application.AdvanceStageRequest) (application.ApplicationResponse, error) {
					assert.Equal(t, "app-1", id)
					assert.Equal(t, "approve", req.Action)
					return application.ApplicationResponse{}, tt.err
				},
			}
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/api/v1/applications/app-1/actions", strings.NewReader(`{"action":"approve"}`))
			req.Header.Set("Content-Type", "application/json")

			newApplicationRouter(svc, actor, "employee").ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			env := decodeEnvelope(t, w.Body.Bytes())
			require.NotNil(t, env.Error)
			assert.Equal(t, tt.wantCode, env.Error.Code)
			assert.Equal(t, tt.wantMsg, env.Error.Message)
		})
	}

	t.Run("unknown action", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/applications/app-1/actions", strings.NewReader(`{"action":"escalate"}`))
		req.Header.Set("Content-Type", "application/json")

		newApplicationRouter(&fakeApplicationService{}, actor, "employee").ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestApplicationHandler_AddComment(t *testing.T) {
	actor := uuid.NewString()

	t.Run("passes the stage index", func(t *testing.T) {
		svc := &fakeApplicationService{
			addCommentFn: func(ctx context.Context, orgID, actorID, id string, stageIndex int, req application.AddCommentRequest) (application.ApplicationResponse, error) {
				assert.Equal(t, 2, stageIndex)
				assert.Equal(t, "see attached", req.Message)
				return application.ApplicationResponse{ID: id}, nil
			},
		}
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/applications/app-1/stages/2/comments", strings.NewReader(`{"message":"see attached"}`))
		req.Header.Set("Content-Type", "application/json")

		newApplicationRouter(svc, actor, "employee").ServeHTTP(w, req)

		assert.Equal(t, http.StatusCreated, w.Code)
	})

	t.Run("non numeric index", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/applications/app-1/stages/x/comments", strings.NewReader(`{"message":"hi"}`))
		req.Header.Set("Content-Type", "application/json")

		newApplicationRouter(&fakeApplicationService{}, actor, "employee").ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestApplicationHandler_Reads(t *testing.T) {
	actor := uuid.NewString()

	t.Run("list passes role and returns meta", func(t *testing.T) {
		svc := &fakeApplicationService{
			listFn: func(ctx context.Context, orgID, actorID string, canReadAll bool, filter application.ListFilter) (application.ListResult, error) {
				assert.True(t, canReadAll)
				assert.Equal(t, "leave", filter.Type)
				assert.Equal(t, "trip", filter.Search)
				return application.ListResult{Items: []application.ApplicationSummary{{ID: "a"}}, Total: 41, Page: 2, Limit: 20}, nil
			},
		}
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/applications?type=leave&q=trip&page=2", nil)

		newApplicationRouter(svc, actor, "hr").ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		env := decodeEnvelope(t, w.Body.Bytes())
		require.NotNil(t, env.Meta)
		assert.Equal(t, int64(41), env.Meta.Total)
		assert.Equal(t, 20, env.Meta.PageSize)
	})

	t.Run("invalid status filter", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/applications?status=done", nil)

		newApplicationRouter(&fakeApplicationService{}, actor, "hr").ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("pending approvals routes before id", func(t *testing.T) {
		svc := &fakeApplicationService{
			pendingFn: func(ctx context.Context, orgID, approverID string) ([]application.ApplicationSummary, error) {
				assert.Equal(t, actor, approverID)
				return []application.ApplicationSummary{}, nil
			},
			getByIDFn: func(ctx context.Context, orgID, actorID, id string, canReadAll bool) (application.ApplicationResponse, error) {
				t.Fatal("mine/pending-approvals must not hit GetByID")
				return application.ApplicationResponse{}, nil
			},
		}
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/applications/mine/pending-approvals", nil)

		newApplicationRouter(svc, actor, "employee").ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("cancel forbidden", func(t *testing.T) {
		svc := &fakeApplicationService{
			cancelFn: func(ctx context.Context, orgID, actorID, id string, req application.CancelRequest) (application.ApplicationResponse, error) {
				return application.ApplicationResponse{}, applicationerrors.ErrNotApplicant
			},
		}
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/applications/app-1/cancel", nil)

		newApplicationRouter(svc, actor, "employee").ServeHTTP(w, req)

		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}
