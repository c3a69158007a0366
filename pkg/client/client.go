package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Client talks to the videospace HTTP API.
type Client struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

// Config holds client configuration
type Config struct {
	BaseURL string
	Timeout time.Duration
	Logger  *slog.Logger // Optional logger for client operations
}

// APIError is a non-200 answer from the API.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("HTTP %d", e.Status)
	}
	return fmt.Sprintf("API error (%d): %s", e.Status, e.Message)
}

// DefaultConfig returns default client configuration
func DefaultConfig() Config {
	return Config{
		BaseURL: "http://127.0.0.1:8787/api",
		Timeout: 10 * time.Second,
	}
}

// New creates a new API client.
func New(config Config) *Client {
	def := DefaultConfig()
	if config.BaseURL == "" {
		config.BaseURL = def.BaseURL
	}
	if config.Timeout == 0 {
		config.Timeout = def.Timeout
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	return &Client{
		baseURL: strings.TrimRight(config.BaseURL, "/"),
		logger:  config.Logger,
		client:  &http.Client{Timeout: config.Timeout},
	}
}

// IsReachable checks if the shell's API is up.
func (c *Client) IsReachable(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/server/status", nil)
	if err != nil {
		c.logger.Debug("Failed to create request for reachability check", "error", err)
		return false
	}
	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Debug("API unreachable", "error", err)
		return false
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)

	ok := resp.StatusCode == http.StatusOK
	c.logger.Debug("API reachability check", "reachable", ok, "status", resp.StatusCode)
	return ok
}

// Start asks the shell to start the server and returns its status message.
func (c *Client) Start(ctx context.Context) (string, error) {
	var out MessageResponse
	if err := c.do(ctx, http.MethodPost, "/server/start", nil, &out); err != nil {
		return "", err
	}
	return out.Message, nil
}

// Stop asks the shell to stop the server and returns its status message.
func (c *Client) Stop(ctx context.Context) (string, error) {
	var out MessageResponse
	if err := c.do(ctx, http.MethodPost, "/server/stop", nil, &out); err != nil {
		return "", err
	}
	return out.Message, nil
}

func (c *Client) Status(ctx context.Context) (bool, error) {
	var out StatusResponse
	if err := c.do(ctx, http.MethodGet, "/server/status", nil, &out); err != nil {
		return false, err
	}
	return out.Running, nil
}

func (c *Client) Info(ctx context.Context) (ServerInfo, error) {
	var out ServerInfo
	err := c.do(ctx, http.MethodGet, "/server/info", nil, &out)
	return out, err
}

// History lists recent transitions; limit <= 0 uses the server default.
func (c *Client) History(ctx context.Context, limit int) ([]HistoryEvent, error) {
	path := "/server/history"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var out []HistoryEvent
	err := c.do(ctx, http.MethodGet, path, nil, &out)
	return out, err
}

// Open asks the shell to open url in the user's browser.
func (c *Client) Open(ctx context.Context, url string) error {
	return c.do(ctx, http.MethodPost, "/open", URLRequest{URL: url}, nil)
}

func (c *Client) SystemInfo(ctx context.Context) (SystemInfo, error) {
	var out SystemInfo
	err := c.do(ctx, http.MethodGet, "/system-info", nil, &out)
	return out, err
}

// DeepLink forwards a custom-scheme URL to the running shell.
func (c *Client) DeepLink(ctx context.Context, url string) error {
	return c.do(ctx, http.MethodPost, "/deep-link", URLRequest{URL: url}, nil)
}

// do performs an HTTP request with common error handling and decodes a 200 body into out.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}
	url := c.baseURL + path
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Error("HTTP request failed", "error", err, "url", url)
		return fmt.Errorf("do request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if err := c.handleErrorResponse(resp); err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// handleErrorResponse handles HTTP error responses
func (c *Client) handleErrorResponse(resp *http.Response) error {
	if resp.StatusCode == http.StatusOK {
		return nil
	}
	var errorResp ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&errorResp); err != nil {
		c.logger.Error("Failed to decode error response", "status", resp.StatusCode)
		return &APIError{Status: resp.StatusCode}
	}
	c.logger.Error("API request failed", "error", errorResp.Error, "status", resp.StatusCode)
	return &APIError{Status: resp.StatusCode, Message: errorResp.Error}
}

// IsBadRequest reports whether err is an API rejection of the caller's input.
func IsBadRequest(err error) bool {
	var ae *APIError
	return errors.As(err, &ae) && ae.Status == http.StatusBadRequest
}
