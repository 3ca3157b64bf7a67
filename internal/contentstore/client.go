// Package contentstore persists resolved lesson content to an external
// key/value content store over HTTP.
package contentstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"
)

// Client communicates with the content store HTTP API.
type Client struct {
	baseURL    string
	apiKey     string
	prefix     string
	httpClient *http.Client
}

func NewClient(baseURL, apiKey, prefix string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		prefix:  strings.Trim(prefix, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// DocumentRequest is the body for PUT /kv/{key}.
type DocumentRequest struct {
	Value       any    `json:"value"`
	Source      string `json:"source,omitempty"`
	ContentHash string `json:"content_hash,omitempty"`
}

// DocumentResponse is the response from GET /kv/{key}.
type DocumentResponse struct {
	Key         string          `json:"key_path"`
	Value       json.RawMessage `json:"value"`
	ContentHash string          `json:"content_hash,omitempty"`
}

// RetryableError indicates a transient failure that can be retried.
type RetryableError struct {
	StatusCode int
	Message    string
}

func (e *RetryableError) Error() string {
	msg := e.Message
	if len(msg) > 200 {
		msg = msg[:200] + "..."
	}
	if e.StatusCode == 0 {
		return "retryable error: " + msg
	}
	return fmt.Sprintf("retryable error (status %d): %s", e.StatusCode, msg)
}

// Key joins parts under the client's prefix, e.g. lessons/lesson-7/es.
func (c *Client) Key(parts ...string) string {
	elems := make([]string, 0, len(parts)+1)
	if c.prefix != "" {
		elems = append(elems, c.prefix)
	}
	for _, p := range parts {
		if p = strings.Trim(p, "/"); p != "" {
			elems = append(elems, url.PathEscape(p))
		}
	}
	return path.Join(elems...)
}

// PutDocument stores or replaces the document at key.
func (c *Client) PutDocument(ctx context.Context, key string, req DocumentRequest) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPut, c.baseURL+"/kv/"+key, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.do(httpReq)
	if err != nil {
		return fmt.Errorf("put document %s: %w", key, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusNoContent {
		return statusError("put document "+key, resp)
	}
	return nil
}

// GetDocument retrieves the document at key. A missing key returns nil, nil.
func (c *Client) GetDocument(ctx context.Context, key string) (*DocumentResponse, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/kv/"+key, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("get document %s: %w", key, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, statusError("get document "+key, resp)
	}

	var doc DocumentResponse
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return &doc, nil
}

// DeleteDocument removes the document at key. Deleting a missing key is not
// an error.
func (c *Client) DeleteDocument(ctx context.Context, key string) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+"/kv/"+key, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := c.do(httpReq)
	if err != nil {
		return fmt.Errorf("delete document %s: %w", key, err)
	}
	defer resp.Body.Close()
	switch resp.StatusCode {
	case http.StatusOK, http.StatusNoContent, http.StatusNotFound:
		return nil
	}
	return statusError("delete document "+key, resp)
}

func (c *Client) do(req *http.Request) (*http.Response, error) {
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if req.Context().Err() != nil {
			return nil, err
		}
		return nil, &RetryableError{Message: err.Error()}
	}
	return resp, nil
}

func statusError(op string, resp *http.Response) error {
	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return fmt.Errorf("%s: %w", op, &RetryableError{StatusCode: resp.StatusCode, Message: string(respBody)})
	}
	return fmt.Errorf("%s: status %d: %s", op, resp.StatusCode, string(respBody))
}

// Close releases idle connections.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}
