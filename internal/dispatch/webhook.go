package dispatch

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/oauth2"

	"translation-backend/internal/shared/resilience"
)

// WebhookSender posts payloads to the worker's HTTP webhook.
type WebhookSender struct {
	URL    string
	Client *http.Client
}

// NewWebhookSender builds a sender for url. A non-empty token is attached as
// a bearer credential on every request.
func NewWebhookSender(url, token string, timeout time.Duration) (*WebhookSender, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, eris.New("worker url is required")
	}
	client := &http.Client{}
	if token = strings.TrimSpace(token); token != "" {
		client = oauth2.NewClient(context.Background(), oauth2.StaticTokenSource(&oauth2.Token{
			AccessToken: token,
			TokenType:   "Bearer",
		}))
	}
	if timeout > 0 {
		client.Timeout = timeout
	}
	return &WebhookSender{URL: url, Client: client}, nil
}

// Send posts the payload. Non-2xx responses are errors; 408, 429 and 5xx are
// marked transient.
func (w *WebhookSender) Send(ctx context.Context, p Payload) error {
	body, err := EncodePayload(p)
	if err != nil {
		return eris.Wrap(err, "encode dispatch payload")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.URL, bytes.NewReader(body))
	if err != nil {
		return eris.Wrap(err, "build dispatch request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.Client.Do(req)
	if err != nil {
		return eris.Wrap(err, "post dispatch")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	err = eris.Errorf("worker responded %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	if resilience.IsTransientHTTPStatus(resp.StatusCode) {
		return resilience.NewTransientError(err, resp.StatusCode)
	}
	return err
}

var _ Sender = (*WebhookSender)(nil)
