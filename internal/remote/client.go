// Package remote is the boundary to the coordination server: recipient-list
// fetch, command poll, and fire-and-forget telemetry/result pushes. The core
// loop calls these and falls back to cached data on any failure; nothing in
// here ever blocks the loop beyond the HTTP client timeout.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/cri-kee-zel/agos-flood-monitoring-sub002/internal/broadcast"
	"github.com/cri-kee-zel/agos-flood-monitoring-sub002/internal/domain"
)

// Client talks JSON over HTTP to the coordination server.
type Client struct {
	baseURL    string
	stationID  string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a coordination server client. baseURL has no trailing
// slash; timeout bounds every request end to end.
func NewClient(baseURL, stationID string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		baseURL:   baseURL,
		stationID: stationID,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// FetchRecipients retrieves the full recipient list. Any non-200 status or
// parse failure is an error; the caller keeps its existing list in that case.
func (c *Client) FetchRecipients(ctx context.Context) ([]broadcast.Recipient, error) {
	body, err := c.get(ctx, "/recipients")
	if err != nil {
		return nil, err
	}
	var numbers []string
	if err := json.Unmarshal(body, &numbers); err != nil {
		return nil, fmt.Errorf("decode recipient list: %w", err)
	}
	recipients := make([]broadcast.Recipient, 0, len(numbers))
	for _, n := range numbers {
		if n == "" {
			continue
		}
		recipients = append(recipients, broadcast.Recipient(n))
	}
	return recipients, nil
}

// commandResponse is the coordination server's command poll shape. Anything
// that is not a well-formed "send" command means no command is pending.
type commandResponse struct {
	Command   string `json:"command"`
	AlertType string `json:"alertType"`
	Message   string `json:"message"`
}

// PollCommand asks the server for a pending externally-triggered broadcast.
// Returns (nil, nil) when no command is pending; a malformed command is
// treated the same way, logged rather than escalated.
func (c *Client) PollCommand(ctx context.Context) (*domain.AlertEvent, error) {
	body, err := c.get(ctx, "/command")
	if err != nil {
		return nil, err
	}
	var cmd commandResponse
	if err := json.Unmarshal(body, &cmd); err != nil {
		// Not an error condition: any other shape means nothing pending.
		c.logger.Debug("command poll returned non-command payload")
		return nil, nil
	}
	if cmd.Command != "send" {
		return nil, nil
	}
	category, err := domain.ParseCategory(cmd.AlertType)
	if err != nil {
		c.logger.Warn("commanded broadcast with unknown alert type", "alert_type", cmd.AlertType)
		return nil, nil
	}
	message := cmd.Message
	if message == "" {
		message = domain.ComposeMessage(category, c.stationID)
	}
	return &domain.AlertEvent{
		Tier:     category.Tier(),
		Category: category,
		Message:  message,
	}, nil
}

// telemetryPayload wraps the domain snapshot with the station identity.
type telemetryPayload struct {
	Station string `json:"station"`
	domain.Telemetry
}

// PushTelemetry reports the current fusion and modem status. Fire and
// forget: the caller logs failures and never retries.
func (c *Client) PushTelemetry(ctx context.Context, t domain.Telemetry) error {
	return c.post(ctx, "/telemetry", telemetryPayload{Station: c.stationID, Telemetry: t})
}

// resultPayload is the wire shape for a broadcast outcome.
type resultPayload struct {
	Station   string    `json:"station"`
	Category  string    `json:"category"`
	Succeeded int       `json:"success_count"`
	Failed    int       `json:"failure_count"`
	Timestamp time.Time `json:"timestamp"`
}

// PushResult reports a completed broadcast's aggregate outcome. Fire and
// forget, like PushTelemetry.
func (c *Client) PushResult(ctx context.Context, r broadcast.Result) error {
	return c.post(ctx, "/results", resultPayload{
		Station:   c.stationID,
		Category:  string(r.Category),
		Succeeded: r.Succeeded,
		Failed:    r.Failed,
		Timestamp: r.Timestamp,
	})
}

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	u := c.baseURL + path + "?station=" + url.QueryEscape(c.stationID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("GET %s: status %d: %s", path, resp.StatusCode, body)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", path, err)
	}
	return body, nil
}

func (c *Client) post(ctx context.Context, path string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", path, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("POST %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("POST %s: status %d: %s", path, resp.StatusCode, body)
	}
	return nil
}
