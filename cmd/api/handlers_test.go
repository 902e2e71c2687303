package main

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/mocks"

	apispec "github.com/wms-platform/pick-ticket-service/api"
	"github.com/wms-platform/pick-ticket-service/internal/application"
	"github.com/wms-platform/pick-ticket-service/internal/domain"
	"github.com/wms-platform/pick-ticket-service/internal/workflows"
	"github.com/wms-platform/pick-ticket-service/pkg/contracts/openapi"
	"github.com/wms-platform/pick-ticket-service/pkg/errors"
	"github.com/wms-platform/pick-ticket-service/pkg/idempotency"
	"github.com/wms-platform/pick-ticket-service/pkg/logging"
	"github.com/wms-platform/pick-ticket-service/pkg/middleware"
	"github.com/wms-platform/pick-ticket-service/pkg/temporal"
)

type stubRunRepo struct {
	runs  map[string]*domain.PickTicketRun
	order []string

	SaveFn func(ctx context.Context, run *domain.PickTicketRun) error
}

func newStubRunRepo() *stubRunRepo {
	return &stubRunRepo{runs: make(map[string]*domain.PickTicketRun)}
}

func (s *stubRunRepo) Save(ctx context.Context, run *domain.PickTicketRun) error {
	if s.SaveFn != nil {
		return s.SaveFn(ctx, run)
	}
	if _, exists := s.runs[run.RunID]; !exists {
		s.order = append(s.order, run.RunID)
	}
	s.runs[run.RunID] = run
	run.ClearDomainEvents()
	return nil
}

func (s *stubRunRepo) FindByRunID(_ context.Context, runID string) (*domain.PickTicketRun, error) {
	if run, ok := s.runs[runID]; ok {
		return run, nil
	}
	return nil, domain.ErrRunNotFound
}

func (s *stubRunRepo) FindRecent(_ context.Context, offset, limit int64) ([]*domain.PickTicketRun, error) {
	var out []*domain.PickTicketRun
	for i := len(s.order) - 1; i >= 0; i-- {
		out = append(out, s.runs[s.order[i]])
	}
	if offset >= int64(len(out)) {
		return nil, nil
	}
	out = out[offset:]
	if int64(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *stubRunRepo) Count(context.Context) (int64, error) {
	return int64(len(s.runs)), nil
}

type stubStarter struct {
	workflowID string
	taskQueue  string
	name       string
	input      workflows.PickTicketWorkflowInput
	err        error
}

func (s *stubStarter) StartWorkflow(_ context.Context, workflowID, taskQueue, workflowName string, args ...interface{}) (client.WorkflowRun, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.workflowID = workflowID
	s.taskQueue = taskQueue
	s.name = workflowName
	s.input = args[0].(workflows.PickTicketWorkflowInput)

	run := &mocks.WorkflowRun{}
	run.On("GetID").Return(workflowID)
	return run, nil
}

func newTestRouter(t *testing.T, repo domain.PickTicketRunRepository, starter WorkflowStarter) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := logging.NewNop()
	service, err := application.NewPickTicketService(repo, domain.DefaultEngineConfig(), nil, logger)
	require.NoError(t, err)

	router := gin.New()
	middleware.Setup(router, middleware.DefaultConfig(serviceName, logger.Logger))
	router.NoRoute(middleware.NoRoute())
	keys := idempotency.DefaultConfig(serviceName, idempotency.NewMemoryStore(), logger)
	registerRoutes(router, service, starter, keys, logger)
	return router
}

func newContractValidator(t *testing.T) *openapi.Validator {
	t.Helper()
	v, err := openapi.NewValidatorFromBytes(apispec.OpenAPI)
	require.NoError(t, err)
	return v
}

func requestJSON(t *testing.T, router *gin.Engine, method, path string, payload any) (*http.Request, *httptest.ResponseRecorder) {
	t.Helper()
	var body []byte
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = raw
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return req, rec
}

func sampleRequest() map[string]any {
	line := func(issueNo, sku string, qty float64) map[string]any {
		return map[string]any{
			"issueNo":      issueNo,
			"sku":          sku,
			"pickingQty":   qty,
			"shipTo":       "CUST-A",
			"deliveryDate": "2025-03-14",
			"locationType": "picking",
		}
	}
	return map[string]any{
		"lines": []any{
			line("GI-1", "SKU-1", 12),
			line("GI-1", "SKU-2", 4),
			line("GI-2", "SKU-1", 6),
			line("GI-3", "SKU-X", 1),
		},
		"skuMaster": []any{
			map[string]any{"skuCode": "SKU-1", "itemVolume": 100, "qtyPerCarton": 12, "qtyPerCommercialBox": 1},
			map[string]any{"skuCode": "SKU-2", "itemVolume": 250, "qtyPerCarton": 4, "qtyPerCommercialBox": 1},
		},
	}
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestGeneratePickTicketHandler(t *testing.T) {
	repo := newStubRunRepo()
	router := newTestRouter(t, repo, nil)
	validator := newContractValidator(t)

	req, rec := requestJSON(t, router, http.MethodPost, "/api/v1/pick-tickets", sampleRequest())

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.NoError(t, validator.ValidateRecorder(req, rec))

	run := decode[application.PickTicketRunDTO](t, rec)
	assert.True(t, strings.HasPrefix(run.RunID, "PT-"))
	assert.Equal(t, "api", run.Source)
	assert.Equal(t, "completed", run.Status)
	assert.Len(t, run.Jobs, 2)
	require.Len(t, run.Excluded, 1)
	assert.Equal(t, "GI-3", run.Excluded[0].IssueNo)
	assert.Equal(t, string(domain.ReasonMissingMasterData), run.Excluded[0].Reason)
	assert.Contains(t, repo.runs, run.RunID)
}

func TestGeneratePickTicketHandler_CorrelationID(t *testing.T) {
	repo := newStubRunRepo()
	router := newTestRouter(t, repo, nil)

	raw, err := json.Marshal(sampleRequest())
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/pick-tickets", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Correlation-ID", "corr-42")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	run := decode[application.PickTicketRunDTO](t, rec)
	assert.Equal(t, "corr-42", run.CorrelationID)
}

func TestGeneratePickTicketHandler_IdempotencyKey(t *testing.T) {
	repo := newStubRunRepo()
	router := newTestRouter(t, repo, nil)
	validator := newContractValidator(t)

	raw, err := json.Marshal(sampleRequest())
	require.NoError(t, err)
	send := func(body []byte) (*http.Request, *httptest.ResponseRecorder) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/pick-tickets", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set(idempotency.HeaderIdempotencyKey, "upload-2025-03-14")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return req, rec
	}

	_, first := send(raw)
	req, second := send(raw)

	require.Equal(t, http.StatusCreated, first.Code, first.Body.String())
	require.Equal(t, http.StatusCreated, second.Code, second.Body.String())
	assert.NoError(t, validator.ValidateRecorder(req, second))
	assert.Equal(t, "true", second.Header().Get(idempotency.HeaderReplayed))
	assert.Equal(t,
		decode[application.PickTicketRunDTO](t, first).RunID,
		decode[application.PickTicketRunDTO](t, second).RunID)
	assert.Len(t, repo.runs, 1)

	other := sampleRequest()
	other["lines"] = other["lines"].([]any)[:1]
	raw, err = json.Marshal(other)
	require.NoError(t, err)

	req, conflict := send(raw)
	assert.Equal(t, http.StatusConflict, conflict.Code)
	assert.NoError(t, validator.ValidateRecorder(req, conflict))
	assert.Len(t, repo.runs, 1)
}

func TestGeneratePickTicketHandler_EmptyInput(t *testing.T) {
	router := newTestRouter(t, newStubRunRepo(), nil)

	_, rec := requestJSON(t, router, http.MethodPost, "/api/v1/pick-tickets", map[string]any{
		"lines":     []any{},
		"skuMaster": []any{},
	})

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	run := decode[application.PickTicketRunDTO](t, rec)
	assert.Equal(t, string(domain.StatusNoData), run.Status)
	assert.Empty(t, run.Rows)
}

func TestGeneratePickTicketHandler_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(body map[string]any)
		field  string
	}{
		{
			name: "blank sku",
			mutate: func(body map[string]any) {
				body["lines"].([]any)[0].(map[string]any)["sku"] = "  "
			},
			field: "lines[0].sku",
		},
		{
			name: "bad strategy",
			mutate: func(body map[string]any) {
				body["strategy"] = "fastest"
			},
			field: "strategy",
		},
		{
			name: "bad date range key",
			mutate: func(body map[string]any) {
				body["options"] = map[string]any{"deliveryFrom": "14/03/2025"}
			},
			field: "options.deliveryFrom",
		},
		{
			name: "inverted date range",
			mutate: func(body map[string]any) {
				body["options"] = map[string]any{"deliveryFrom": "2025-03-15", "deliveryTo": "2025-03-14"}
			},
			field: "options.deliveryFrom",
		},
		{
			name: "missing master",
			mutate: func(body map[string]any) {
				delete(body, "skuMaster")
			},
			field: "skuMaster",
		},
	}

	router := newTestRouter(t, newStubRunRepo(), nil)
	validator := newContractValidator(t)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := sampleRequest()
			tt.mutate(body)

			req, rec := requestJSON(t, router, http.MethodPost, "/api/v1/pick-tickets", body)

			require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
			assert.NoError(t, validator.ValidateRecorder(req, rec))

			resp := decode[middleware.APIErrorResponse](t, rec)
			assert.Equal(t, errors.CodeValidationError, resp.Code)
			assert.Contains(t, resp.Details, tt.field)
		})
	}
}

func TestGeneratePickTicketHandler_ArchiveFailure(t *testing.T) {
	repo := newStubRunRepo()
	repo.SaveFn = func(context.Context, *domain.PickTicketRun) error {
		return context.DeadlineExceeded
	}
	router := newTestRouter(t, repo, nil)

	_, rec := requestJSON(t, router, http.MethodPost, "/api/v1/pick-tickets", sampleRequest())

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func multipartRequest(t *testing.T, files map[string]string, fields map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)

	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		part, err := w.CreateFormFile(name, name+".csv")
		require.NoError(t, err)
		_, err = part.Write([]byte(files[name]))
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/pick-tickets/upload", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

const (
	orderLinesCSV = "IssueNo,SKU,PickingQty,ShipTo,DeliveryDate\n" +
		"GI-1,SKU-1,12,CUST-A,2025-03-14\n" +
		"GI-1,SKU-2,4,CUST-A,2025-03-14\n" +
		"GI-2,SKU-1,6,CUST-A,2025-03-15\n"
	skuMasterCSV = "SKUCode,ItemVolume,QtyPerCarton,QtyPerCommercialBox\n" +
		"SKU-1,100,12,1\n" +
		"SKU-2,250,4,1\n"
)

func TestUploadPickTicketHandler(t *testing.T) {
	repo := newStubRunRepo()
	router := newTestRouter(t, repo, nil)
	validator := newContractValidator(t)

	req := multipartRequest(t,
		map[string]string{"orderLines": orderLinesCSV, "skuMaster": skuMasterCSV},
		map[string]string{"deliveryFrom": "2025-03-14", "deliveryTo": "2025-03-14"},
	)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.NoError(t, validator.ValidateRecorder(req, rec))

	run := decode[application.PickTicketRunDTO](t, rec)
	assert.Equal(t, "upload", run.Source)
	assert.Equal(t, "2025-03-14", run.Options.DeliveryFrom)
	assert.Equal(t, 1, run.Summary.OutOfRangeLines)
	for _, row := range run.Rows {
		assert.Equal(t, "GI-1", row.IssueNo)
	}
}

func TestUploadPickTicketHandler_Errors(t *testing.T) {
	tests := []struct {
		name   string
		files  map[string]string
		fields map[string]string
		status int
		code   string
	}{
		{
			name:   "missing sku master file",
			files:  map[string]string{"orderLines": orderLinesCSV},
			status: http.StatusBadRequest,
			code:   errors.CodeValidationError,
		},
		{
			name:   "missing column",
			files:  map[string]string{"orderLines": "IssueNo,SKU,PickingQty\nGI-1,SKU-1,1\n", "skuMaster": skuMasterCSV},
			status: http.StatusBadRequest,
			code:   errors.CodeValidationError,
		},
		{
			name: "unparseable quantity",
			files: map[string]string{
				"orderLines": "IssueNo,SKU,PickingQty,ShipTo,DeliveryDate\nGI-1,SKU-1,many,C,2025-03-14\n",
				"skuMaster":  skuMasterCSV,
			},
			status: http.StatusBadRequest,
			code:   errors.CodeBadRequest,
		},
		{
			name:   "bad order kind",
			files:  map[string]string{"orderLines": orderLinesCSV, "skuMaster": skuMasterCSV},
			fields: map[string]string{"orderKind": "bulk"},
			status: http.StatusBadRequest,
			code:   errors.CodeValidationError,
		},
	}

	router := newTestRouter(t, newStubRunRepo(), nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, multipartRequest(t, tt.files, tt.fields))

			require.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.Equal(t, tt.code, decode[middleware.APIErrorResponse](t, rec).Code)
		})
	}
}

func TestStartPickTicketWorkflowHandler(t *testing.T) {
	starter := &stubStarter{}
	router := newTestRouter(t, newStubRunRepo(), starter)
	validator := newContractValidator(t)

	body := sampleRequest()
	body["export"] = true
	body["strategy"] = "capacity"
	req, rec := requestJSON(t, router, http.MethodPost, "/api/v1/pick-tickets/async", body)

	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	assert.NoError(t, validator.ValidateRecorder(req, rec))

	resp := decode[map[string]string](t, rec)
	assert.True(t, strings.HasPrefix(resp["runId"], "PT-"))
	assert.Equal(t, "pick-ticket-"+resp["runId"], resp["workflowId"])
	assert.Equal(t, "accepted", resp["status"])

	assert.Equal(t, temporal.TaskQueues.PickTicket, starter.taskQueue)
	assert.Equal(t, temporal.WorkflowNames.PickTicket, starter.name)
	assert.Equal(t, resp["runId"], starter.input.RunID)
	assert.Len(t, starter.input.Lines, 4)
	assert.Len(t, starter.input.SKUMaster, 2)
	assert.Equal(t, "capacity", starter.input.Strategy)
	assert.True(t, starter.input.Export)
}

func TestStartPickTicketWorkflowHandler_Unavailable(t *testing.T) {
	t.Run("no temporal client", func(t *testing.T) {
		router := newTestRouter(t, newStubRunRepo(), nil)
		_, rec := requestJSON(t, router, http.MethodPost, "/api/v1/pick-tickets/async", sampleRequest())
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})

	t.Run("start fails", func(t *testing.T) {
		router := newTestRouter(t, newStubRunRepo(), &stubStarter{err: context.Canceled})
		_, rec := requestJSON(t, router, http.MethodPost, "/api/v1/pick-tickets/async", sampleRequest())
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}

func TestGetAndListPickTickets(t *testing.T) {
	repo := newStubRunRepo()
	router := newTestRouter(t, repo, nil)
	validator := newContractValidator(t)

	var runIDs []string
	for i := 0; i < 3; i++ {
		_, rec := requestJSON(t, router, http.MethodPost, "/api/v1/pick-tickets", sampleRequest())
		require.Equal(t, http.StatusCreated, rec.Code)
		runIDs = append(runIDs, decode[application.PickTicketRunDTO](t, rec).RunID)
	}

	req, rec := requestJSON(t, router, http.MethodGet, "/api/v1/pick-tickets/"+runIDs[1], nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NoError(t, validator.ValidateRecorder(req, rec))
	assert.Equal(t, runIDs[1], decode[application.PickTicketRunDTO](t, rec).RunID)

	req, rec = requestJSON(t, router, http.MethodGet, "/api/v1/pick-tickets?page=1&pageSize=2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NoError(t, validator.ValidateRecorder(req, rec))

	var page struct {
		Data       []application.PickTicketRunSummaryDTO `json:"data"`
		TotalItems int64                                 `json:"totalItems"`
		HasNext    bool                                  `json:"hasNext"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Equal(t, int64(3), page.TotalItems)
	assert.True(t, page.HasNext)
	require.Len(t, page.Data, 2)
	assert.Equal(t, runIDs[2], page.Data[0].RunID)
	assert.Equal(t, domain.StrategyScenario, page.Data[0].Strategy)
}

func TestGetPickTicketHandler_NotFound(t *testing.T) {
	router := newTestRouter(t, newStubRunRepo(), nil)
	validator := newContractValidator(t)

	req, rec := requestJSON(t, router, http.MethodGet, "/api/v1/pick-tickets/PT-MISSING", nil)

	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.NoError(t, validator.ValidateRecorder(req, rec))
	assert.Equal(t, errors.CodeNotFound, decode[middleware.APIErrorResponse](t, rec).Code)
}

func TestArchiveRoutesWithoutRepository(t *testing.T) {
	router := newTestRouter(t, nil, nil)

	_, rec := requestJSON(t, router, http.MethodGet, "/api/v1/pick-tickets", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	_, rec = requestJSON(t, router, http.MethodGet, "/api/v1/pick-tickets/PT-1", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	// Generation still works, the run is just not archived
	_, rec = requestJSON(t, router, http.MethodPost, "/api/v1/pick-tickets", sampleRequest())
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestExportPickTicketHandler(t *testing.T) {
	repo := newStubRunRepo()
	router := newTestRouter(t, repo, nil)

	_, rec := requestJSON(t, router, http.MethodPost, "/api/v1/pick-tickets", sampleRequest())
	require.Equal(t, http.StatusCreated, rec.Code)
	runID := decode[application.PickTicketRunDTO](t, rec).RunID

	t.Run("primary", func(t *testing.T) {
		_, rec := requestJSON(t, router, http.MethodGet, "/api/v1/pick-tickets/"+runID+"/export", nil)

		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
		assert.Contains(t, rec.Header().Get("Content-Disposition"), runID+"-primary.csv")
		lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
		assert.Len(t, lines, 4) // header + 3 rows
		assert.True(t, strings.HasPrefix(lines[0], "JobID"))
	})

	t.Run("excluded", func(t *testing.T) {
		_, rec := requestJSON(t, router, http.MethodGet, "/api/v1/pick-tickets/"+runID+"/export?table=excluded", nil)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "GI-3")
		assert.Contains(t, rec.Body.String(), string(domain.ReasonMissingMasterData))
	})

	t.Run("unknown table", func(t *testing.T) {
		_, rec := requestJSON(t, router, http.MethodGet, "/api/v1/pick-tickets/"+runID+"/export?table=summary", nil)

		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, errors.CodeValidationError, decode[middleware.APIErrorResponse](t, rec).Code)
	})
}

func TestGetConfigHandler(t *testing.T) {
	router := newTestRouter(t, nil, nil)
	validator := newContractValidator(t)

	req, rec := requestJSON(t, router, http.MethodGet, "/api/v1/config", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.NoError(t, validator.ValidateRecorder(req, rec))
	cfg := decode[domain.EngineConfig](t, rec)
	assert.Equal(t, domain.DefaultEngineConfig().Classification, cfg.Classification)
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("SERVER_ADDR", ":9999")
	t.Setenv("MONGODB_DATABASE", "tickets_test")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("TEMPORAL_HOST", "temporal:7233")
	t.Setenv("ENGINE_CONFIG", "configs/engine.yaml")

	cfg := loadConfig()

	assert.Equal(t, ":9999", cfg.ServerAddr)
	assert.Equal(t, "tickets_test", cfg.MongoDB.Database)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "temporal:7233", cfg.Temporal.HostPort)
	assert.Equal(t, "configs/engine.yaml", cfg.EngineConfigPath)
}

func TestGetEnv(t *testing.T) {
	t.Setenv("TEST_ENV_KEY", "value")
	assert.Equal(t, "value", getEnv("TEST_ENV_KEY", "default"))
	assert.Equal(t, "default", getEnv("MISSING_KEY_FOR_TEST", "default"))
}
