// Package engine talks to the external search engine that executes queries
// and writes results back through the ingest endpoints.
package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// ErrMalformedResponse marks an upstream reply that was not valid JSON even
// after one retry. Callers surface it as a distinct failure instead of a
// decode panic or a silent empty result.
var ErrMalformedResponse = errors.New("engine returned a malformed response")

const maxResponseBytes = 1 << 20

// Client is the HTTP client for the search engine.
type Client struct {
	baseURL string
	http    *http.Client
	logger  zerolog.Logger
}

func NewClient(baseURL string, timeout time.Duration, logger zerolog.Logger) *Client {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		logger:  logger.With().Str("component", "engine_client").Logger(),
	}
}

type startSearchRequest struct {
	RunID       string          `json:"run_id"`
	Query       string          `json:"query"`
	Params      json.RawMessage `json:"params,omitempty"`
	CallbackURL string          `json:"callback_url"`
	AuthToken   string          `json:"auth_token"`
}

// StartSearchResponse is the engine's acknowledgement of a dispatched
// search. The engine reports progress asynchronously via the callback URL.
type StartSearchResponse struct {
	Accepted bool   `json:"accepted"`
	EngineID string `json:"engine_id,omitempty"`
	Message  string `json:"message,omitempty"`
}

// StartSearch dispatches a search run to the engine. The auth token is the
// producer credential the engine presents on its callbacks.
func (c *Client) StartSearch(ctx context.Context, runID, query string, params json.RawMessage, callbackURL, authToken string) (StartSearchResponse, error) {
	payload := startSearchRequest{
		RunID:       runID,
		Query:       query,
		Params:      params,
		CallbackURL: callbackURL,
		AuthToken:   authToken,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return StartSearchResponse{}, errors.Wrap(err, "encode start request")
	}

	var resp StartSearchResponse
	if err := c.postJSON(ctx, c.baseURL+"/searches", body, &resp); err != nil {
		return StartSearchResponse{}, err
	}
	if !resp.Accepted {
		return resp, errors.Errorf("engine rejected run %s: %s", runID, resp.Message)
	}
	return resp, nil
}

// postJSON posts body and decodes a JSON reply into out. A reply that does
// not parse as JSON (upstream proxies occasionally serve an HTML error
// page) is retried once; a second malformed reply is ErrMalformedResponse.
func (c *Client) postJSON(ctx context.Context, url string, body []byte, out interface{}) error {
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		if attempt > 0 {
			c.logger.Warn().Str("url", url).Msg("Retrying after malformed engine response")
		}
		raw, err := c.post(ctx, url, body)
		if err != nil {
			return err
		}
		if jsonErr := json.Unmarshal(raw, out); jsonErr == nil {
			return nil
		}
		lastErr = ErrMalformedResponse
	}
	return lastErr
}

func (c *Client) post(ctx context.Context, url string, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "build engine request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "call engine")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, errors.Wrap(err, "read engine response")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("engine returned status %d: %s", resp.StatusCode, truncate(raw, 256))
	}
	return raw, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
