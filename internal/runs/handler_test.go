package runs

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"translation-backend/internal/documents"
	"translation-backend/internal/shared/server/middleware"
)

func setupRunRouter(t *testing.T) (*gin.Engine, *fixture) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	f := newFixture(t)
	r := gin.New()
	r.Use(middleware.RequestID(), middleware.Auth())
	NewHandler(f.svc).RegisterRoutes(r.Group("/api/v1"))
	return r, f
}

func doRequest(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-Actor-Id", "admin-1")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func decodeBody(t *testing.T, resp *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	return body
}

func TestCreateRunEndpointDispatchesByDefault(t *testing.T) {
	r, f := setupRunRouter(t)

	resp := doRequest(r, http.MethodPost, "/api/v1/quotes/q-1/analysis-runs", "")
	require.Equal(t, http.StatusCreated, resp.Code)

	body := decodeBody(t, resp)
	assert.NotEmpty(t, body["run_id"])
	assert.EqualValues(t, 1, body["version"])
	assert.Equal(t, "pending", body["status"])
	assert.Equal(t, true, body["dispatched"])
	assert.NotContains(t, body, "dispatch_error")
	assert.Equal(t, 1, f.sender.count())
}

func TestCreateRunEndpointReportsDispatchFailure(t *testing.T) {
	r, f := setupRunRouter(t)
	f.sender.err = errors.New("connection refused")

	resp := doRequest(r, http.MethodPost, "/api/v1/quotes/q-1/analysis-runs", `{"run_type":"manual"}`)
	require.Equal(t, http.StatusCreated, resp.Code)

	body := decodeBody(t, resp)
	assert.Equal(t, false, body["dispatched"])
	assert.Contains(t, body["dispatch_error"], "connection refused")
}

func TestCreateRunEndpointWithoutDispatch(t *testing.T) {
	r, f := setupRunRouter(t)

	resp := doRequest(r, http.MethodPost, "/api/v1/quotes/q-1/analysis-runs", `{"dispatch":false}`)
	require.Equal(t, http.StatusCreated, resp.Code)
	assert.Zero(t, f.sender.count())

	resp = doRequest(r, http.MethodPost, "/api/v1/quotes/missing/analysis-runs", `{"dispatch":false}`)
	assert.Equal(t, http.StatusNotFound, resp.Code)

	resp = doRequest(r, http.MethodPost, "/api/v1/quotes/q-1/analysis-runs", `{"run_type":"nightly"}`)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestDispatchEndpointStatusCodes(t *testing.T) {
	r, f := setupRunRouter(t)
	run := f.createRun(t)

	resp := doRequest(r, http.MethodPost, "/api/v1/analysis-runs/"+run.ID+"/dispatch", "")
	require.Equal(t, http.StatusOK, resp.Code)

	f.sender.err = errors.New("bad gateway")
	resp = doRequest(r, http.MethodPost, "/api/v1/analysis-runs/"+run.ID+"/dispatch", "")
	assert.Equal(t, http.StatusBadGateway, resp.Code)

	resp = doRequest(r, http.MethodPost, "/api/v1/analysis-runs/missing/dispatch", "")
	assert.Equal(t, http.StatusNotFound, resp.Code)

	f.svc.Sender = nil
	resp = doRequest(r, http.MethodPost, "/api/v1/analysis-runs/"+run.ID+"/dispatch", "")
	assert.Equal(t, http.StatusServiceUnavailable, resp.Code)
}

func TestStatusEndpoint(t *testing.T) {
	r, f := setupRunRouter(t)
	run := f.createRun(t)

	resp := doRequest(r, http.MethodGet, "/api/v1/analysis-runs/"+run.ID+"/status", "")
	require.Equal(t, http.StatusOK, resp.Code)
	body := decodeBody(t, resp)
	assert.Equal(t, "pending", body["status"])
	assert.Equal(t, false, body["is_active"])
	assert.Equal(t, false, body["discarded"])
	assert.Contains(t, body, "updated_at")
	assert.Contains(t, body, "n8n_status")

	resp = doRequest(r, http.MethodGet, "/api/v1/analysis-runs/missing/status", "")
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestResultsEndpoint(t *testing.T) {
	r, f := setupRunRouter(t)
	run := f.createRun(t)
	f.finish(t, run, documents.Document{Filename: "a.pdf", PageCount: ptr(2.0), BillablePages: ptr(2.0)})

	resp := doRequest(r, http.MethodGet, "/api/v1/analysis-runs/"+run.ID+"/results", "")
	require.Equal(t, http.StatusOK, resp.Code)
	body := decodeBody(t, resp)
	assert.Equal(t, "q-1", body["quote_id"])
	assert.Equal(t, run.ID, body["run_id"])
	summary := body["summary"].(map[string]any)
	assert.EqualValues(t, 1, summary["total_documents"])
	assert.EqualValues(t, 0, summary["estimated_total"])
	assert.Len(t, body["documents"], 1)

	resp = doRequest(r, http.MethodGet, "/api/v1/analysis-runs/missing/results", "")
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestHistoryEndpoint(t *testing.T) {
	r, f := setupRunRouter(t)
	f.createRun(t)
	f.createRun(t)

	resp := doRequest(r, http.MethodGet, "/api/v1/quotes/q-1/analysis-runs?limit=1", "")
	require.Equal(t, http.StatusOK, resp.Code)
	runs := decodeBody(t, resp)["runs"].([]any)
	require.Len(t, runs, 1)
	assert.EqualValues(t, 2, runs[0].(map[string]any)["version"])

	resp = doRequest(r, http.MethodGet, "/api/v1/quotes/q-1/analysis-runs?limit=abc", "")
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestUseEndpoint(t *testing.T) {
	r, f := setupRunRouter(t)
	run := f.createRun(t)

	resp := doRequest(r, http.MethodPost, "/api/v1/analysis-runs/"+run.ID+"/use", `{"confirmed":false}`)
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	resp = doRequest(r, http.MethodPost, "/api/v1/analysis-runs/"+run.ID+"/use", `{"confirmed":true}`)
	assert.Equal(t, http.StatusConflict, resp.Code)

	f.finish(t, run, documents.Document{BillablePages: ptr(1.0)})
	resp = doRequest(r, http.MethodPost, "/api/v1/analysis-runs/"+run.ID+"/use", `{"confirmed":true}`)
	require.Equal(t, http.StatusOK, resp.Code)
	body := decodeBody(t, resp)
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, "q-1", body["quote_id"])
	assert.EqualValues(t, 50, body["total"])

	resp = doRequest(r, http.MethodPost, "/api/v1/analysis-runs/missing/use", `{"confirmed":true}`)
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestDiscardEndpoint(t *testing.T) {
	r, f := setupRunRouter(t)
	run := f.createRun(t)

	for i := 0; i < 2; i++ {
		resp := doRequest(r, http.MethodPost, "/api/v1/analysis-runs/"+run.ID+"/discard", `{"reason":"duplicate upload"}`)
		require.Equal(t, http.StatusOK, resp.Code)
		assert.Equal(t, run.ID, decodeBody(t, resp)["run_id"])
	}
	records, err := f.feedback.ListByQuote(context.Background(), "q-1")
	require.NoError(t, err)
	assert.Len(t, records, 1)

	active := f.createRun(t)
	f.finish(t, active)
	_, err = f.svc.Use(context.Background(), active.ID, true)
	require.NoError(t, err)
	resp := doRequest(r, http.MethodPost, "/api/v1/analysis-runs/"+active.ID+"/discard", "")
	assert.Equal(t, http.StatusConflict, resp.Code)

	resp = doRequest(r, http.MethodPost, "/api/v1/analysis-runs/missing/discard", "")
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestEditDocumentEndpoint(t *testing.T) {
	r, f := setupRunRouter(t)
	run := f.createRun(t)
	f.finish(t, run, documents.Document{Filename: "a.pdf", DocumentType: "birth_certificate"})

	resp := doRequest(r, http.MethodPatch, "/api/v1/analysis-runs/"+run.ID+"/documents/0",
		`{"document_type":"marriage_certificate","certification_amount":30,"feedback":"misclassified"}`)
	require.Equal(t, http.StatusOK, resp.Code)
	body := decodeBody(t, resp)
	assert.Equal(t, "marriage_certificate", body["document_type"])
	assert.EqualValues(t, 30, body["certification_amount"])

	records, err := f.feedback.ListByQuote(context.Background(), "q-1")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "misclassified", records[0].FeedbackText)
	assert.Equal(t, "admin-1", records[0].AdminID)

	resp = doRequest(r, http.MethodPatch, "/api/v1/analysis-runs/"+run.ID+"/documents/3", `{"document_type":"x"}`)
	assert.Equal(t, http.StatusNotFound, resp.Code)

	resp = doRequest(r, http.MethodPatch, "/api/v1/analysis-runs/"+run.ID+"/documents/x", `{"document_type":"x"}`)
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	resp = doRequest(r, http.MethodPatch, "/api/v1/analysis-runs/"+run.ID+"/documents/0", `{"billable_pages":-2}`)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}
