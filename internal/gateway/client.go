// Package gateway provides an HTTP client for the proxy control API: the
// surface through which the scheduler probes targets, moves clients and
// delivers chat notices.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sevler/gatehouse/internal/domain"
)

const defaultTimeout = 10 * time.Second

// Config holds proxy control API client configuration.
type Config struct {
	BaseURL string
	Token   string        // bearer token for the control API (optional)
	Timeout time.Duration // request timeout
}

// Client talks to the proxy control API.
type Client struct {
	config     Config
	httpClient *http.Client
}

// NewClient creates a new proxy control API client.
func NewClient(config Config) *Client {
	if config.Timeout == 0 {
		config.Timeout = defaultTimeout
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")

	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

// Probe checks whether a target server accepts connections. Any non-2xx
// response or transport error counts as the target being down.
func (c *Client) Probe(ctx context.Context, target string) error {
	path := fmt.Sprintf("/servers/%s/ping", url.PathEscape(target))
	resp, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return fmt.Errorf("probe %s: %w", target, err)
	}
	defer drain(resp)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("probe %s: status %d", target, resp.StatusCode)
	}
	return nil
}

// Connect asks the proxy to move the client to the target server.
func (c *Client) Connect(ctx context.Context, id domain.ClientID, target string) error {
	path := fmt.Sprintf("/players/%s/connect", id)
	body := map[string]string{"server": target}

	resp, err := c.do(ctx, http.MethodPost, path, body)
	if err != nil {
		return fmt.Errorf("connect %s to %s: %w", id, target, err)
	}
	defer drain(resp)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("connect %s to %s: status %d", id, target, resp.StatusCode)
	}
	return nil
}

// Notify sends a chat message to the client.
func (c *Client) Notify(ctx context.Context, id domain.ClientID, text string) error {
	path := fmt.Sprintf("/players/%s/message", id)
	body := map[string]string{"text": text}

	resp, err := c.do(ctx, http.MethodPost, path, body)
	if err != nil {
		return fmt.Errorf("notify %s: %w", id, err)
	}
	defer drain(resp)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("notify %s: status %d", id, resp.StatusCode)
	}
	return nil
}

// Locate returns the name of the server the client is currently on. A client
// unknown to the proxy resolves to an empty name, not an error.
func (c *Client) Locate(ctx context.Context, id domain.ClientID) (string, error) {
	path := fmt.Sprintf("/players/%s", id)
	resp, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return "", fmt.Errorf("locate %s: %w", id, err)
	}
	defer drain(resp)

	if resp.StatusCode == http.StatusNotFound {
		return "", nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("locate %s: status %d", id, resp.StatusCode)
	}

	var payload struct {
		Server string `json:"server"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("locate %s: decode response: %w", id, err)
	}
	return payload.Server, nil
}

func (c *Client) do(ctx context.Context, method, path string, body interface{}) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.config.BaseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.config.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.Token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	return resp, nil
}

// drain discards the remaining body so the connection can be reused.
func drain(resp *http.Response) {
	if _, err := io.Copy(io.Discard, io.LimitReader(resp.Body, 4096)); err != nil {
		slog.Debug("failed to drain response body", "error", err)
	}
	_ = resp.Body.Close()
}
