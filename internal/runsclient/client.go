// Package runsclient is an HTTP client for the analysis run API.
package runsclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"translation-backend/internal/poller"
)

// APIError is a non-2xx response from the API.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("api error %d %s: %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
}

// Client calls the run endpoints on behalf of an actor.
type Client struct {
	baseURL    string
	actorID    string
	actorRole  string
	httpClient *http.Client
}

// New constructs a Client. baseURL is the server root, e.g. http://localhost:8080.
func New(baseURL, actorID, actorRole string, timeout time.Duration) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, eris.New("api base url is required")
	}
	if strings.TrimSpace(actorID) == "" {
		return nil, eris.New("actor id is required")
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL:    baseURL,
		actorID:    actorID,
		actorRole:  actorRole,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// StatusView mirrors the status endpoint.
type StatusView struct {
	Status    string    `json:"status"`
	N8NStatus string    `json:"n8n_status"`
	UpdatedAt time.Time `json:"updated_at"`
	IsActive  bool      `json:"is_active"`
	Discarded bool      `json:"discarded"`
}

// RunSummary is one entry of a quote's run history.
type RunSummary struct {
	ID        string `json:"id"`
	Version   int    `json:"version"`
	RunType   string `json:"run_type"`
	Status    string `json:"status"`
	IsActive  bool   `json:"is_active"`
	Discarded bool   `json:"discarded"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// CreatedRun is the response to creating a run.
type CreatedRun struct {
	RunID         string `json:"run_id"`
	Version       int    `json:"version"`
	Status        string `json:"status"`
	Dispatched    bool   `json:"dispatched"`
	DispatchError string `json:"dispatch_error,omitempty"`
}

// Status fetches a run's polling view.
func (c *Client) Status(ctx context.Context, runID string) (StatusView, error) {
	var out StatusView
	err := c.do(ctx, http.MethodGet, "/api/v1/analysis-runs/"+url.PathEscape(runID)+"/status", nil, &out)
	return out, err
}

// Fetch adapts Status to the poller.
func (c *Client) Fetch(ctx context.Context, runID string) (poller.Snapshot, error) {
	v, err := c.Status(ctx, runID)
	if err != nil {
		return poller.Snapshot{}, err
	}
	return poller.Snapshot{
		Status:    v.Status,
		N8NStatus: v.N8NStatus,
		UpdatedAt: v.UpdatedAt,
		IsActive:  v.IsActive,
		Discarded: v.Discarded,
	}, nil
}

// History lists a quote's runs newest first.
func (c *Client) History(ctx context.Context, quoteID string, limit int) ([]RunSummary, error) {
	path := "/api/v1/quotes/" + url.PathEscape(quoteID) + "/analysis-runs"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var out struct {
		Runs []RunSummary `json:"runs"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Runs, nil
}

// CreateRun starts a new run for the quote.
func (c *Client) CreateRun(ctx context.Context, quoteID, runType string, dispatch bool) (CreatedRun, error) {
	body := map[string]any{"dispatch": dispatch}
	if runType != "" {
		body["run_type"] = runType
	}
	var out CreatedRun
	err := c.do(ctx, http.MethodPost, "/api/v1/quotes/"+url.PathEscape(quoteID)+"/analysis-runs", body, &out)
	return out, err
}

// Dispatch re-sends a run to the worker.
func (c *Client) Dispatch(ctx context.Context, runID string) error {
	return c.do(ctx, http.MethodPost, "/api/v1/analysis-runs/"+url.PathEscape(runID)+"/dispatch", nil, nil)
}

// Discard retires a run.
func (c *Client) Discard(ctx context.Context, runID, reason string) error {
	return c.do(ctx, http.MethodPost, "/api/v1/analysis-runs/"+url.PathEscape(runID)+"/discard", map[string]string{"reason": reason}, nil)
}

// Use applies a run to its quote and returns the billing response.
func (c *Client) Use(ctx context.Context, runID string) (map[string]any, error) {
	var out map[string]any
	err := c.do(ctx, http.MethodPost, "/api/v1/analysis-runs/"+url.PathEscape(runID)+"/use", map[string]bool{"confirmed": true}, &out)
	return out, err
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return eris.Wrap(err, "encode request")
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return eris.Wrap(err, "build request")
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-Actor-Id", c.actorID)
	if c.actorRole != "" {
		req.Header.Set("X-Actor-Role", c.actorRole)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return eris.Wrapf(err, "%s %s", method, path)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return eris.Wrap(err, "read response")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeAPIError(resp.StatusCode, data)
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	return eris.Wrap(json.Unmarshal(data, out), "decode response")
}

func decodeAPIError(status int, data []byte) error {
	apiErr := &APIError{StatusCode: status}
	var envelope struct {
		Error json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(data, &envelope); err == nil && len(envelope.Error) > 0 {
		var structured struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		}
		if err := json.Unmarshal(envelope.Error, &structured); err == nil {
			apiErr.Code = structured.Code
			apiErr.Message = structured.Message
			return apiErr
		}
		var flat string
		if err := json.Unmarshal(envelope.Error, &flat); err == nil {
			apiErr.Message = flat
			return apiErr
		}
	}
	apiErr.Message = strings.TrimSpace(string(data))
	return apiErr
}
