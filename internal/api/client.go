// Package api delivers location reports to the notification backend, either
// over its REST endpoint or through a Kafka topic.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/edgard/geonotify/internal/reporter"
)

// ReportPath is the backend endpoint that accepts location reports.
const ReportPath = "/user/notification/send-location"

const maxResponseBytes = 64 << 10

// StatusError is returned when the backend answers with a non-2xx status.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("backend returned status %d", e.Code)
	}
	return fmt.Sprintf("backend returned status %d: %s", e.Code, e.Body)
}

// CredentialSource supplies the user API token sent with every report.
type CredentialSource interface {
	Credential(ctx context.Context) (string, error)
}

// ClientConfig configures the HTTP client.
type ClientConfig struct {
	BaseURL    string
	PartnerKey string
	Timeout    time.Duration
	// RequestsPerSecond paces outbound calls. Zero disables pacing.
	RequestsPerSecond float64
}

// Client posts location reports to the backend REST API.
type Client struct {
	baseURL    string
	partnerKey string
	http       *http.Client
	creds      CredentialSource
	limiter    *rate.Limiter
	logger     *slog.Logger
}

var _ reporter.LocationReporter = (*Client)(nil)

// NewClient creates a Client.
func NewClient(cfg ClientConfig, creds CredentialSource, logger *slog.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("api base url is required")
	}
	if creds == nil {
		return nil, errors.New("credential source is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		partnerKey: cfg.PartnerKey,
		http:       &http.Client{Timeout: timeout},
		creds:      creds,
		limiter:    limiter,
		logger:     logger.With("component", "api"),
	}, nil
}

// ReportLocation implements reporter.LocationReporter.
func (c *Client) ReportLocation(ctx context.Context, r reporter.Report) (reporter.Ack, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return reporter.Ack{}, fmt.Errorf("request pacing: %w", err)
	}

	credential, err := c.creds.Credential(ctx)
	if err != nil {
		return reporter.Ack{}, fmt.Errorf("failed to read credential: %w", err)
	}

	payload, err := json.Marshal(r)
	if err != nil {
		return reporter.Ack{}, fmt.Errorf("failed to encode report: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+ReportPath, bytes.NewReader(payload))
	if err != nil {
		return reporter.Ack{}, fmt.Errorf("failed to build request: %w", err)
	}
	requestID := uuid.NewString()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if c.partnerKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.partnerKey)
	}
	if credential != "" {
		req.Header.Set("x-api-token", credential)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return reporter.Ack{}, fmt.Errorf("report request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return reporter.Ack{}, fmt.Errorf("failed to read response: %w", err)
	}

	c.logger.DebugContext(ctx, "Report request finished",
		"request_id", requestID, "status", resp.StatusCode, "duration", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return reporter.Ack{}, &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	ack := reporter.Ack{Status: resp.StatusCode}
	if len(bytes.TrimSpace(body)) > 0 && json.Valid(body) {
		ack.Body = json.RawMessage(body)
	}
	return ack, nil
}
