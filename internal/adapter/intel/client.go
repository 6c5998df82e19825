package intel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/laundrotech/intel-gateway/internal/domain"
	"github.com/laundrotech/intel-gateway/internal/infrastructure/circuitbreaker"
	"github.com/laundrotech/intel-gateway/internal/observability/telemetry"
)

// Client talks to the tiered analysis backend over HTTP. All calls go
// through a circuit breaker so a degraded backend fails fast. Responses are
// decoded and validated as a whole; a malformed body is reported as an
// error and nothing partial is returned.
type Client struct {
	baseURL string
	apiKey  string
	http    *circuitbreaker.HTTPClient
	log     *zap.Logger
}

// Config holds the backend connection settings.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// NewClient creates a backend client with its own circuit breaker.
func NewClient(cfg Config, log *zap.Logger) *Client {
	settings := circuitbreaker.DefaultHTTPClientSettings("intel-backend")
	if cfg.Timeout > 0 {
		settings.Timeout = cfg.Timeout
	}
	return &Client{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		http:    circuitbreaker.NewHTTPClientWithSettings(settings, log),
		log:     log,
	}
}

// NewClientWithHTTP creates a backend client on an existing wrapped client.
// Used by tests to point at a local server.
func NewClientWithHTTP(baseURL, apiKey string, httpClient *circuitbreaker.HTTPClient, log *zap.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    httpClient,
		log:     log,
	}
}

type previewRequest struct {
	Address string `json:"address"`
}

type purchaseRequest struct {
	Address    string `json:"address"`
	DepthLevel int    `json:"depth_level"`
}

// Preview fetches the redacted intelligence snapshot for an address.
func (c *Client) Preview(ctx context.Context, address string) (*domain.PreviewReport, error) {
	start := time.Now()
	defer telemetry.ObserveBackend("preview", start)

	var report domain.PreviewReport
	if err := c.post(ctx, "/analysis/preview", previewRequest{Address: address}, &report); err != nil {
		return nil, err
	}
	if err := report.Validate(); err != nil {
		return nil, fmt.Errorf("invalid preview response: %w", err)
	}

	c.log.Debug("Preview fetched",
		zap.String("grade", report.Grade),
		zap.Duration("duration", time.Since(start)),
	)
	return &report, nil
}

// Purchase requests a full report at the given depth. The backend records
// the charge, so callers must not invoke this twice for one confirmation.
func (c *Client) Purchase(ctx context.Context, address string, depthLevel int) (*domain.PurchaseResult, error) {
	start := time.Now()
	defer telemetry.ObserveBackend("purchase", start)

	var result domain.PurchaseResult
	if err := c.post(ctx, "/analysis/purchase", purchaseRequest{Address: address, DepthLevel: depthLevel}, &result); err != nil {
		return nil, err
	}
	if err := result.Validate(); err != nil {
		return nil, fmt.Errorf("invalid purchase response: %w", err)
	}

	c.log.Info("Purchase completed",
		zap.Int("depth_level", depthLevel),
		zap.Int64("amount_charged", result.AmountCharged),
		zap.Duration("duration", time.Since(start)),
	)
	return &result, nil
}

func (c *Client) post(ctx context.Context, path string, payload, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if resp != nil && resp.Body != nil {
			resp.Body.Close()
		}
		return fmt.Errorf("backend request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("backend returned %d: %s", resp.StatusCode, string(data))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode backend response: %w", err)
	}
	return nil
}
