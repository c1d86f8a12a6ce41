package runsclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientStatusSendsActorHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/analysis-runs/run-1/status", r.URL.Path)
		assert.Equal(t, "admin-1", r.Header.Get("X-Actor-Id"))
		assert.Equal(t, "staff", r.Header.Get("X-Actor-Role"))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status":     "processing",
			"n8n_status": "processing",
			"updated_at": "2026-01-02T03:04:05Z",
			"is_active":  false,
			"discarded":  false,
		})
	}))
	defer srv.Close()

	c, err := New(srv.URL+"/", "admin-1", "staff", time.Second)
	require.NoError(t, err)
	snap, err := c.Fetch(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, "processing", snap.Status)
	assert.Equal(t, 2026, snap.UpdatedAt.Year())
}

func TestClientDecodesEnvelopeErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"error":{"code":"run_active","message":"the active analysis run cannot be discarded"}}`))
	}))
	defer srv.Close()

	c, err := New(srv.URL, "admin-1", "", time.Second)
	require.NoError(t, err)
	err = c.Discard(context.Background(), "run-1", "dup")

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusConflict, apiErr.StatusCode)
	assert.Equal(t, "run_active", apiErr.Code)
}

func TestClientDecodesFlatErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"Invalid webhook secret"}`))
	}))
	defer srv.Close()

	c, err := New(srv.URL, "admin-1", "", time.Second)
	require.NoError(t, err)
	_, err = c.Status(context.Background(), "run-1")

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "Invalid webhook secret", apiErr.Message)
}

func TestClientHistoryAndCreate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			assert.Equal(t, "5", r.URL.Query().Get("limit"))
			_, _ = w.Write([]byte(`{"runs":[{"id":"run-2","version":2,"status":"ready"},{"id":"run-1","version":1,"status":"discarded","discarded":true}]}`))
		case http.MethodPost:
			var body map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, false, body["dispatch"])
			assert.Equal(t, "manual", body["run_type"])
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"run_id":"run-3","version":3,"status":"pending","dispatched":false}`))
		}
	}))
	defer srv.Close()

	c, err := New(srv.URL, "admin-1", "", time.Second)
	require.NoError(t, err)

	runs, err := c.History(context.Background(), "q-1", 5)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.True(t, runs[1].Discarded)

	created, err := c.CreateRun(context.Background(), "q-1", "manual", false)
	require.NoError(t, err)
	assert.Equal(t, 3, created.Version)
}

func TestNewValidates(t *testing.T) {
	_, err := New("", "a", "", 0)
	require.Error(t, err)
	_, err = New("http://x", "", "", 0)
	require.Error(t, err)
}
