package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"
)

const maxResponseBytes = 8 << 20

// StatusError is a non-2xx answer from a REST backend.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.StatusCode, e.Message)
}

// restClient performs JSON requests against one REST backend.
type restClient struct {
	baseURL    string
	authHeader string
	http       *http.Client
	logger     *zap.Logger
	// errorMessage extracts the backend's error text from a failed response.
	errorMessage func(body []byte) string
}

func newRESTClient(baseURL, authHeader string, client *http.Client, logger *zap.Logger, errorMessage func([]byte) string) *restClient {
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &restClient{
		baseURL:      strings.TrimRight(baseURL, "/"),
		authHeader:   authHeader,
		http:         client,
		logger:       logger,
		errorMessage: errorMessage,
	}
}

// do sends body as JSON and returns the raw response body on 2xx. Other
// statuses return a *StatusError.
func (c *restClient) do(ctx context.Context, method, path string, query url.Values, body any) ([]byte, error) {
	requestURL := c.baseURL + path
	if len(query) > 0 {
		requestURL += "?" + query.Encode()
	}

	var bodyReader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		bodyReader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, requestURL, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.authHeader != "" {
		req.Header.Set("Authorization", c.authHeader)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	c.logger.Debug("backend request",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
	)

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return respBody, nil
	}
	msg := ""
	if c.errorMessage != nil {
		msg = c.errorMessage(respBody)
	}
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return nil, &StatusError{Method: method, Path: path, StatusCode: resp.StatusCode, Message: msg}
}

// isArray reports whether raw is a JSON array.
func isArray(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '['
}
