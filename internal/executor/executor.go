// Package executor abstracts the downstream query engine the gatekeeper
// guards. The engine is opaque, potentially slow, and allowed to fail; the
// pipeline treats it as an external collaborator.
package executor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	dErrors "gatekeeper/pkg/domain-errors"
)

// Executor processes one sanitized query on behalf of a user.
type Executor interface {
	Execute(ctx context.Context, query, userID string) (string, error)
}

// HTTPExecutor delegates to a remote engine over JSON HTTP.
type HTTPExecutor struct {
	baseURL string
	client  *http.Client
}

// NewHTTPExecutor constructs a client for the engine at baseURL. The
// timeout bounds each Execute call end to end.
func NewHTTPExecutor(baseURL string, timeout time.Duration) (*HTTPExecutor, error) {
	if baseURL == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "executor url is required")
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPExecutor{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}, nil
}

type executeRequest struct {
	Query  string `json:"query"`
	UserID string `json:"user_id"`
}

type executeResponse struct {
	Response string `json:"response"`
	Error    string `json:"error,omitempty"`
}

// Execute posts the query to the engine and returns its response text.
func (e *HTTPExecutor) Execute(ctx context.Context, query, userID string) (string, error) {
	body, err := json.Marshal(executeRequest{Query: query, UserID: userID})
	if err != nil {
		return "", fmt.Errorf("marshal execute request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/execute", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build execute request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return "", dErrors.New(dErrors.CodeExecutorFailure, "query engine unreachable")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return "", dErrors.New(dErrors.CodeExecutorFailure,
			fmt.Sprintf("query engine returned status %d", resp.StatusCode))
	}

	var out executeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", dErrors.New(dErrors.CodeExecutorFailure, "query engine returned malformed response")
	}
	if out.Error != "" {
		return "", dErrors.New(dErrors.CodeExecutorFailure, "query engine reported an error")
	}
	return out.Response, nil
}

// Static answers every query with a fixed response. Used when no engine
// URL is configured, and in tests.
type Static struct {
	Response string
}

func (s Static) Execute(_ context.Context, _, _ string) (string, error) {
	return s.Response, nil
}
