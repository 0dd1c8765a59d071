// Package api is the HTTP client for the task-creation backend.
// Every method returns either a value or an *Error.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/clive/jira-tui/internal/logging"
)

// DefaultBaseURL is used when no base URL is configured
const DefaultBaseURL = "http://localhost:8000"

const apiPrefix = "/api/v1"

// TokenSource supplies the bearer token for authenticated calls.
// An empty token means there is no session.
type TokenSource interface {
	Token() string
}

// StaticToken is a TokenSource that always returns the same token
type StaticToken string

// Token returns the token
func (t StaticToken) Token() string {
	return string(t)
}

// Client talks to the backend REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenSource
	logger     *logging.Logger
}

// NewClient creates a client for baseURL. A zero timeout waits forever.
func NewClient(baseURL string, timeout time.Duration, logger *logging.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger.WithComponent("api"),
	}
}

// BaseURL returns the server root the client talks to
func (c *Client) BaseURL() string {
	return c.baseURL
}

// WithTokenSource returns a copy of the client that authenticates with ts
func (c *Client) WithTokenSource(ts TokenSource) *Client {
	clone := *c
	clone.tokens = ts
	return &clone
}

// WithToken returns a copy of the client that authenticates with a fixed token
func (c *Client) WithToken(token string) *Client {
	return c.WithTokenSource(StaticToken(token))
}

// authMode controls how a request uses the session token
type authMode int

const (
	authNone     authMode = iota
	authOptional          // attach the token when there is one
	authRequired          // refuse the call without a token
)

// request describes one API call
type request struct {
	method string
	path   string
	auth   authMode
	body   any        // JSON-encoded when non-nil
	form   url.Values // form-encoded when non-nil
}

func (r request) op() string {
	return r.method + " " + apiPrefix + r.path
}

// do executes req and decodes a 2xx JSON response into result (if non-nil)
func (c *Client) do(ctx context.Context, req request, result any) error {
	op := req.op()

	token := ""
	if req.auth != authNone && c.tokens != nil {
		token = c.tokens.Token()
	}
	if req.auth == authRequired && token == "" {
		return preconditionError(op, ErrNoToken)
	}

	var body io.Reader
	contentType := ""
	switch {
	case req.form != nil:
		body = strings.NewReader(req.form.Encode())
		contentType = "application/x-www-form-urlencoded"
	case req.body != nil:
		data, err := json.Marshal(req.body)
		if err != nil {
			return preconditionError(op, fmt.Errorf("marshal request: %w", err))
		}
		body = bytes.NewReader(data)
		contentType = "application/json"
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, c.baseURL+apiPrefix+req.path, body)
	if err != nil {
		return preconditionError(op, fmt.Errorf("create request: %w", err))
	}
	httpReq.Header.Set("Accept", "application/json")
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.logger.Debug("request failed", "op", op, "error", err)
		return transportError(op, fmt.Errorf("execute request: %w", err))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return transportError(op, fmt.Errorf("read response: %w", err))
	}

	c.logger.Debug("request", "op", op, "status", resp.StatusCode, "duration_ms", time.Since(start).Milliseconds())

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return httpError(op, resp.StatusCode, respBody)
	}

	if result == nil || len(bytes.TrimSpace(respBody)) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, result); err != nil {
		return &Error{
			Kind:    KindHTTP,
			Status:  resp.StatusCode,
			Message: "unexpected response from server",
			Op:      op,
			Err:     fmt.Errorf("unmarshal response: %w", err),
		}
	}
	return nil
}

// malformed reports a 2xx response whose content breaks an invariant
func malformed(op string, status int, err error) *Error {
	return &Error{Kind: KindHTTP, Status: status, Message: err.Error(), Op: op, Err: err}
}
