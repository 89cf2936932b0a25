// Cloud Frequency - Earth Engine Cloud Cover Map Server
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cloudfrequency

// Package earthengine is a client for the Earth Engine REST API.
//
// Computations are described as expression graphs built with the typed
// helpers in this package (Image, ImageCollection, Geometry...) and sent to
// the service for evaluation; nothing is computed locally.
//
//	img := earthengine.LoadImageCollection("MODIS/061/MOD09GA").Mean()
//	var stats map[string]interface{}
//	err := client.ComputeValue(ctx, img.ReduceRegion(
//		earthengine.ReducerMean(), earthengine.PointGeometry(lon, lat), 20000), &stats)
package earthengine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"github.com/tomtom215/cloudfrequency/internal/config"
	"github.com/tomtom215/cloudfrequency/internal/logging"
	"github.com/tomtom215/cloudfrequency/internal/metrics"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const (
	// maxErrorBodySize caps how much of an error response is read.
	maxErrorBodySize = 64 * 1024

	// maxResponseSize caps successful responses; feature collections for
	// long series stay well below this.
	maxResponseSize = 32 * 1024 * 1024

	// tileFormat lets the service pick JPEG or PNG per tile.
	tileFormat = "AUTO_JPEG_PNG"
)

// MapID identifies a tiled rendering of an image.
type MapID struct {
	// MapID is the map resource name, projects/{project}/maps/{id}.
	MapID string `json:"mapid"`
	// Token is always empty for the REST API; kept for page templates that
	// expect a token next to the map ID.
	Token string `json:"token"`
	// TileURL has {z}/{x}/{y} placeholders.
	TileURL string `json:"tile_url"`
}

// Client calls the Earth Engine REST API for one Cloud project.
type Client struct {
	baseURL        string
	project        string
	client         *http.Client
	limiter        *rate.Limiter
	breaker        *gobreaker.CircuitBreaker[[]byte]
	breakerName    string
	maxRetries     int
	retryBaseDelay time.Duration
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the authenticated HTTP client. Tests use it to
// talk to an httptest server without credentials.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.client = hc }
}

// WithBaseURL overrides the REST endpoint.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithRetry sets the retry budget for throttled calls.
func WithRetry(maxRetries int, baseDelay time.Duration) Option {
	return func(c *Client) {
		c.maxRetries = maxRetries
		c.retryBaseDelay = baseDelay
	}
}

// WithRateLimit caps outbound requests per second. rps <= 0 disables it.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithBreakerSettings replaces the circuit breaker thresholds.
func WithBreakerSettings(s BreakerSettings) Option {
	return func(c *Client) { c.breaker = newBreaker(c.breakerName, s) }
}

// NewClient builds a client authenticated with the service account in cfg.
// The token source is bound to ctx, so ctx should live as long as the client.
func NewClient(ctx context.Context, cfg *config.EarthEngineConfig, opts ...Option) (*Client, error) {
	if cfg.Project == "" {
		return nil, fmt.Errorf("earth engine project is required")
	}

	c := &Client{
		baseURL:        strings.TrimRight(cfg.BaseURL, "/"),
		project:        cfg.Project,
		breakerName:    "earthengine-api",
		maxRetries:     cfg.MaxRetries,
		retryBaseDelay: cfg.RetryDelay,
	}
	if c.baseURL == "" {
		c.baseURL = config.DefaultEarthEngineURL
	}
	if cfg.RateLimit > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), max(cfg.RateBurst, 1))
	}
	c.breaker = newBreaker(c.breakerName, DefaultBreakerSettings())

	for _, opt := range opts {
		opt(c)
	}

	if c.client == nil {
		ts, err := TokenSource(ctx, cfg)
		if err != nil {
			return nil, err
		}
		c.client = &http.Client{
			Timeout: cfg.Timeout,
			Transport: &oauth2.Transport{
				Source: ts,
				Base:   http.DefaultTransport,
			},
		}
	}

	return c, nil
}

// BreakerState reports the circuit breaker state: closed, half-open or open.
func (c *Client) BreakerState() string {
	return stateToString(c.breaker.State())
}

// TileURL returns the tile URL template for a map resource name.
func (c *Client) TileURL(mapName string) string {
	return c.baseURL + "/" + mapName + "/tiles/{z}/{x}/{y}"
}

type computeValueRequest struct {
	Expression *Expression `json:"expression"`
}

type computeValueResponse struct {
	Result json.RawMessage `json:"result"`
}

// ComputeValue evaluates expr and decodes the result into out.
func (c *Client) ComputeValue(ctx context.Context, expr *Value, out interface{}) error {
	serialized, err := Serialize(expr)
	if err != nil {
		return err
	}

	var resp computeValueResponse
	if err := c.call(ctx, "value_compute", "value:compute", &computeValueRequest{Expression: serialized}, &resp); err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(resp.Result, out); err != nil {
		return fmt.Errorf("failed to decode computed value: %w", err)
	}
	return nil
}

type createMapRequest struct {
	Expression *Expression `json:"expression"`
	FileFormat string      `json:"fileFormat"`
}

type createMapResponse struct {
	Name string `json:"name"`
}

// CreateMap renders image with vis and registers it for tiling.
func (c *Client) CreateMap(ctx context.Context, image Image, vis VisParams) (*MapID, error) {
	serialized, err := Serialize(image.Visualize(vis).Value())
	if err != nil {
		return nil, err
	}

	var resp createMapResponse
	req := &createMapRequest{Expression: serialized, FileFormat: tileFormat}
	if err := c.call(ctx, "create_map", "maps", req, &resp); err != nil {
		return nil, err
	}
	if resp.Name == "" {
		return nil, fmt.Errorf("earth engine returned an empty map name")
	}

	return &MapID{MapID: resp.Name, TileURL: c.TileURL(resp.Name)}, nil
}

// call POSTs body to a project-scoped endpoint through the circuit breaker
// and decodes the JSON response into out.
func (c *Client) call(ctx context.Context, method, path string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode %s request: %w", method, err)
	}
	reqURL := fmt.Sprintf("%s/projects/%s/%s", c.baseURL, c.project, path)

	start := time.Now()
	statusCode := 0
	data, err := c.execute(func() ([]byte, error) {
		resp, err := c.doRequestWithRetry(ctx, method, reqURL, payload)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		statusCode = resp.StatusCode
		if resp.StatusCode != http.StatusOK {
			return nil, parseAPIError(resp.StatusCode, readBodyForError(resp.Body))
		}
		data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
		if err != nil {
			return nil, fmt.Errorf("failed to read %s response: %w", method, err)
		}
		return data, nil
	})
	if statusCode == 0 {
		statusCode = errorStatus(err)
	}
	metrics.RecordEarthEngineCall(method, statusCode, time.Since(start))
	if err != nil {
		logging.Ctx(ctx).Debug().Err(err).Str("method", method).Int("status", statusCode).Msg("Earth Engine call failed")
		return err
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", method, err)
	}
	return nil
}

// doRequestWithRetry sends the request, retrying throttled and temporarily
// unavailable responses with exponential backoff (base, 2x base, 4x base...).
// A Retry-After header in seconds overrides the computed delay.
func (c *Client) doRequestWithRetry(ctx context.Context, method, reqURL string, payload []byte) (*http.Response, error) {
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, fmt.Errorf("rate limiter: %w", err)
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(payload))
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		if requestID := logging.RequestIDFromContext(ctx); requestID != "" {
			req.Header.Set("X-Request-ID", requestID)
		}

		resp, err := c.client.Do(req)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, &TransportError{Err: err}
		}

		if !isRetryableStatus(resp.StatusCode) {
			return resp, nil
		}

		if attempt == c.maxRetries {
			apiErr := parseAPIError(resp.StatusCode, readBodyForError(resp.Body))
			_ = resp.Body.Close()
			lastErr = apiErr
			break
		}
		_ = resp.Body.Close()

		delay := c.retryBaseDelay * time.Duration(1<<uint(attempt))
		if retryAfter := resp.Header.Get("Retry-After"); retryAfter != "" {
			if seconds, err := strconv.Atoi(retryAfter); err == nil && seconds >= 0 {
				delay = time.Duration(seconds) * time.Second
			}
		}

		metrics.EarthEngineRetries.WithLabelValues(method).Inc()
		logging.Ctx(ctx).Warn().Str("method", method).Int("status", resp.StatusCode).
			Int("attempt", attempt+1).Dur("delay", delay).Msg("Earth Engine throttled, retrying")

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return nil, lastErr
}

func isRetryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code == http.StatusServiceUnavailable
}

// readBodyForError reads at most maxErrorBodySize bytes of an error body.
func readBodyForError(r io.Reader) []byte {
	body, err := io.ReadAll(io.LimitReader(r, maxErrorBodySize))
	if err != nil {
		return []byte("(failed to read response body)")
	}
	return body
}

// errorStatus extracts the HTTP status from err, or 0.
func errorStatus(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}
