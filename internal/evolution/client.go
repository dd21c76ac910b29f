// Package evolution wraps the Evolution API WhatsApp gateway.
//
// Every call is a single synchronous HTTP request with a bounded timeout.
// Callers decide whether to retry; the dashboard refresh cycle retries naturally.
package evolution

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

var (
	// ErrUnavailable marks transient failures: the gateway is unreachable or answered 5xx.
	ErrUnavailable = errors.New("gateway unavailable")
	// ErrRejected marks requests the gateway refused (4xx).
	ErrRejected = errors.New("gateway rejected request")
)

const defaultTimeout = 5 * time.Second

// Client calls the Evolution API using a base URL and an apikey header.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a gateway client with the given base URL, API key, and per-call timeout.
func NewClient(log *slog.Logger, baseURL, apiKey string, timeout time.Duration) *Client {
	if log == nil {
		log = slog.Default()
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		apiKey:     strings.TrimSpace(apiKey),
		httpClient: &http.Client{Timeout: timeout},
		logger:     log.With(slog.String("client", "evolution")),
	}
}

// CreateInstance registers a new instance with the gateway.
func (c *Client) CreateInstance(ctx context.Context, target Target, name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("instance name is required: %w", ErrRejected)
	}
	body := createInstanceRequest{InstanceName: name, Integration: "WHATSAPP-BAILEYS"}
	return c.do(ctx, target, http.MethodPost, "/instance/create", body, nil)
}

// ConnectionState fetches the live connection state of an instance.
func (c *Client) ConnectionState(ctx context.Context, target Target, name string) (ConnectionState, error) {
	var resp connectionStateResponse
	err := c.do(ctx, target, http.MethodGet, "/instance/connectionState/"+url.PathEscape(name), nil, &resp)
	if err != nil {
		return StateUnknown, err
	}
	return NormalizeState(resp.Instance.State), nil
}

// DeleteInstance removes an instance from the gateway.
func (c *Client) DeleteInstance(ctx context.Context, target Target, name string) error {
	return c.do(ctx, target, http.MethodDelete, "/instance/delete/"+url.PathEscape(name), nil, nil)
}

// FetchInstances lists the instances known to the gateway.
func (c *Client) FetchInstances(ctx context.Context, target Target) ([]Instance, error) {
	var resp fetchInstancesResponse
	if err := c.do(ctx, target, http.MethodGet, "/instance/fetchInstances", nil, &resp); err != nil {
		return nil, err
	}
	items := make([]Instance, 0, len(resp))
	for _, entry := range resp {
		items = append(items, Instance{
			Name:  entry.Instance.InstanceName,
			State: NormalizeState(entry.Instance.Status),
		})
	}
	return items, nil
}

// SendText sends a text message through the given instance.
func (c *Client) SendText(ctx context.Context, target Target, instanceName, number, text string) error {
	if strings.TrimSpace(number) == "" || strings.TrimSpace(text) == "" {
		return fmt.Errorf("number and text are required: %w", ErrRejected)
	}
	body := sendTextRequest{Number: number, Text: text}
	return c.do(ctx, target, http.MethodPost, "/message/sendText/"+url.PathEscape(instanceName), body, nil)
}

func (c *Client) do(ctx context.Context, target Target, method, path string, body, out any) error {
	baseURL := strings.TrimRight(strings.TrimSpace(target.BaseURL), "/")
	if baseURL == "" {
		baseURL = c.baseURL
	}
	apiKey := strings.TrimSpace(target.APIKey)
	if apiKey == "" {
		apiKey = c.apiKey
	}
	if baseURL == "" {
		return fmt.Errorf("gateway base url not configured: %w", ErrUnavailable)
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("apikey", apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("gateway request failed", slog.String("path", path), slog.Any("error", err))
		return fmt.Errorf("%s %s: %w", method, path, ErrUnavailable)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		c.logger.Warn("gateway error response",
			slog.String("path", path),
			slog.Int("status", resp.StatusCode),
		)
		return fmt.Errorf("%s %s: status %d: %w", method, path, resp.StatusCode, ErrUnavailable)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.logger.Warn("gateway rejected request",
			slog.String("path", path),
			slog.Int("status", resp.StatusCode),
			slog.String("body", string(detail)),
		)
		return fmt.Errorf("%s %s: status %d: %w", method, path, resp.StatusCode, ErrRejected)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
