package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BerniceZTT/sales_pipeline/controllers"
	"github.com/BerniceZTT/sales_pipeline/models"
	"github.com/BerniceZTT/sales_pipeline/repository"
	"github.com/BerniceZTT/sales_pipeline/service"
)

type apiResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Error   string          `json:"error"`
	Code    string          `json:"code"`
}

type testServer struct {
	t      *testing.T
	store  repository.Store
	router *gin.Engine
	token  string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctx := context.Background()

	store := repository.NewMemoryStore()
	require.NoError(t, store.EnsureCollections(ctx, repository.Collections))
	require.NoError(t, repository.InitializeAdminAccount(ctx, store, "admin123"))

	created := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, store.Insert(ctx, repository.EnquiriesCollection,
		models.Enquiry{ID: "1", Name: "Acme", Stage: models.StageLead, AssignedTo: "u1", SalesflowCode: "u1", CreatedAt: created},
		models.Enquiry{
			ID: "3", Name: "Globex", Stage: models.StageOpportunity, AssignedTo: "u1", SalesflowCode: "u1",
			PipelineID: "p-std", CreatedAt: created,
			Products: map[string]models.EnquiryProduct{"101": {ProductName: "Water Filter", Price: 50, Quantity: 2}},
		},
	))
	require.NoError(t, store.Insert(ctx, repository.PipelinesCollection, models.Pipeline{PipelineID: "p-std", PipelineName: "Standard"}))
	require.NoError(t, store.Insert(ctx, repository.ProductsCollection, models.Product{ProductID: "101", CurrentStock: 5}))

	ctl := controllers.New(store, service.NewSessionManager(store))
	return &testServer{t: t, store: store, router: NewRouter(ctl, store, []string{"*"})}
}

func (s *testServer) do(method, path string, body interface{}) (*httptest.ResponseRecorder, apiResponse) {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var resp apiResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	return w, resp
}

func (s *testServer) login() {
	s.t.Helper()
	w, resp := s.do(http.MethodPost, "/api/auth/login", models.LoginRequest{Username: "admin", Password: "admin123"})
	require.Equal(s.t, http.StatusOK, w.Code, w.Body.String())

	var login struct {
		Token string `json:"token"`
	}
	require.NoError(s.t, json.Unmarshal(resp.Data, &login))
	require.NotEmpty(s.t, login.Token)
	s.token = login.Token
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}

func columnIDs(b service.Board, columnID string) []string {
	var ids []string
	for _, c := range b.Columns {
		if c.ID != columnID {
			continue
		}
		for _, e := range c.Enquiries {
			ids = append(ids, e.ID)
		}
	}
	return ids
}

func intPtr(v int) *int { return &v }

func TestHealth(t *testing.T) {
	s := newTestServer(t)

	w, _ := s.do(http.MethodGet, "/api/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	w, _ = s.do(http.MethodGet, "/api/db-status", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"enquiries":{"count":2}`)
}

func TestLogin(t *testing.T) {
	s := newTestServer(t)

	w, resp := s.do(http.MethodPost, "/api/auth/login", models.LoginRequest{Username: "admin", Password: "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.False(t, resp.Success)

	w, _ = s.do(http.MethodPost, "/api/auth/login", map[string]string{"username": "admin"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	s.login()
	w, resp = s.do(http.MethodGet, "/api/auth/validate", nil)
	require.Equal(t, http.StatusOK, w.Code)
	user := decode[map[string]string](t, resp.Data)
	assert.Equal(t, "admin", user["name"])
	assert.Equal(t, "ADMIN", user["role"])
}

func TestBoardRequiresToken(t *testing.T) {
	s := newTestServer(t)

	w, resp := s.do(http.MethodGet, "/api/sales/board", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "MISSING_TOKEN", resp.Code)

	s.token = "garbage"
	w, resp = s.do(http.MethodGet, "/api/sales/board", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "INVALID_TOKEN", resp.Code)
}

func TestBoardAndMove(t *testing.T) {
	s := newTestServer(t)
	s.login()

	w, resp := s.do(http.MethodGet, "/api/sales/board", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	board := decode[service.Board](t, resp.Data)
	require.Len(t, board.Columns, len(models.DefaultStages))
	assert.Equal(t, []string{"1"}, columnIDs(board, models.StageLead))

	w, resp = s.do(http.MethodPost, "/api/sales/board/moves", models.MoveRequest{
		SourceStageID: models.StageLead, SourceIndex: intPtr(0),
		DestStageID: models.StageProspect, DestIndex: intPtr(0),
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	outcome := decode[service.MoveOutcome](t, resp.Data)
	assert.Equal(t, service.StatusCommitted, outcome.Result.Status)
	assert.Equal(t, []string{"1"}, columnIDs(*outcome.Board, models.StageProspect))

	var stored []models.Enquiry
	require.NoError(t, s.store.Find(context.Background(), repository.EnquiriesCollection,
		[]repository.Filter{repository.Eq("id", "1")}, &stored))
	assert.Equal(t, models.StageProspect, stored[0].Stage)

	// 写操作记录到操作日志
	n, err := s.store.Count(context.Background(), repository.ApiOperationLogsCollection,
		[]repository.Filter{repository.Eq("path", "/api/sales/board/moves")})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	w, resp = s.do(http.MethodPost, "/api/sales/board/moves", models.MoveRequest{
		SourceStageID: models.StageLead, SourceIndex: intPtr(3),
		DestStageID: models.StageProspect, DestIndex: intPtr(0),
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, string(service.KindValidation), resp.Code)

	w, _ = s.do(http.MethodPost, "/api/sales/board/moves", map[string]string{"sourceStageId": "Lead"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestClosingFlow(t *testing.T) {
	s := newTestServer(t)
	s.login()

	w, _ := s.do(http.MethodGet, "/api/sales/board", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w, resp := s.do(http.MethodPost, "/api/sales/board/moves", models.MoveRequest{
		SourceStageID: models.StageOpportunity, SourceIndex: intPtr(0),
		DestStageID: models.StageCustomerWon, DestIndex: intPtr(0),
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	outcome := decode[service.MoveOutcome](t, resp.Data)
	require.Equal(t, service.StatusPendingClosing, outcome.Result.Status)
	id := outcome.Result.ClosingID
	require.NotEmpty(t, id)

	w, resp = s.do(http.MethodGet, "/api/sales/closings/"+id, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, service.ClosingCollecting, decode[service.ClosingSnapshot](t, resp.Data).State)

	w, resp = s.do(http.MethodPut, "/api/sales/closings/"+id, models.ClosingFormRequest{WaitingNumber: "W-1"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, service.ClosingConfirming, decode[service.ClosingSnapshot](t, resp.Data).State)

	w, resp = s.do(http.MethodPost, "/api/sales/closings/"+id+"/confirm", models.ConfirmRequest{Confirmed: true})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	done := decode[service.ClosingOutcome](t, resp.Data)
	assert.Equal(t, service.ClosingCommitted, done.Closing.State)
	assert.Equal(t, []string{"3"}, columnIDs(*done.Board, models.StageCustomerWon))

	var products []models.Product
	require.NoError(t, s.store.Find(context.Background(), repository.ProductsCollection, nil, &products))
	assert.Equal(t, 3, products[0].CurrentStock)

	w, resp = s.do(http.MethodGet, "/api/sales/closings/"+id, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, string(service.KindNotFound), resp.Code)
}

func TestCancelClosing(t *testing.T) {
	s := newTestServer(t)
	s.login()

	s.do(http.MethodGet, "/api/sales/board", nil)
	_, resp := s.do(http.MethodPost, "/api/sales/board/moves", models.MoveRequest{
		SourceStageID: models.StageOpportunity, SourceIndex: intPtr(0),
		DestStageID: models.StageCustomerWon, DestIndex: intPtr(0),
	})
	id := decode[service.MoveOutcome](t, resp.Data).Result.ClosingID

	w, resp := s.do(http.MethodDelete, "/api/sales/closings/"+id, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	cancelled := decode[service.ClosingOutcome](t, resp.Data)
	assert.Equal(t, service.ClosingCancelled, cancelled.Closing.State)
	assert.Equal(t, []string{"3"}, columnIDs(*cancelled.Board, models.StageOpportunity))
	assert.Empty(t, columnIDs(*cancelled.Board, models.StageCustomerWon))
}

func TestCatalogRoutes(t *testing.T) {
	s := newTestServer(t)
	s.login()

	w, resp := s.do(http.MethodGet, "/api/pipelines", nil)
	require.Equal(t, http.StatusOK, w.Code)
	pipelines := decode[[]models.Pipeline](t, resp.Data)
	require.Len(t, pipelines, 2)
	assert.Equal(t, models.AllPipelinesID, pipelines[0].PipelineID)

	w, resp = s.do(http.MethodGet, "/api/pipelines/p-std/stages", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]models.PipelineStage](t, resp.Data), len(models.DefaultStages))
}

func TestAssignTask(t *testing.T) {
	s := newTestServer(t)
	s.login()

	w, resp := s.do(http.MethodPost, "/api/enquiries/1/tasks", models.AssignTaskRequest{
		TaskName: "Call back", AssignedTo: "u2",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assignment := decode[service.TaskAssignment](t, resp.Data)
	assert.Equal(t, "u1-u2", assignment.Enquiry.SalesflowCode)

	w, resp = s.do(http.MethodPost, "/api/enquiries/3/tasks", models.AssignTaskRequest{
		TaskName: "Visit", AssignedTo: "u2",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, resp.Error, service.IncompleteTasksMessage)
}

func TestPipelineStats(t *testing.T) {
	s := newTestServer(t)

	w, _ := s.do(http.MethodGet, "/api/dashboard/pipeline-stats", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	s.login()
	w, resp := s.do(http.MethodGet, "/api/dashboard/pipeline-stats", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	stats := decode[models.PipelineStatsResponse](t, resp.Data)
	assert.Equal(t, 2, stats.TotalCount)
	assert.Equal(t, []models.ChartDataItem{
		{Name: models.StageLead, Value: 1},
		{Name: models.StageProspect, Value: 0},
		{Name: models.StageOpportunity, Value: 1},
		{Name: models.StageCustomerWon, Value: 0},
		{Name: models.StageLost, Value: 0},
	}, stats.StageCounts)
	assert.Len(t, stats.Conversions, 3)
	require.Len(t, stats.Leaderboard, 1)
	assert.Equal(t, "u1", stats.Leaderboard[0].UserID)
	assert.Equal(t, 2, stats.Leaderboard[0].PendingDeals)

	w, resp = s.do(http.MethodGet, "/api/dashboard/pipeline-stats?from=2024-06-01", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, decode[models.PipelineStatsResponse](t, resp.Data).TotalCount)

	w, _ = s.do(http.MethodGet, "/api/dashboard/pipeline-stats?to=not-a-date", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
