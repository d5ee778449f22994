// Package client provides the HTTP client for the Amethyst Inn backend.
package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"amethyst-gateway/internal/config"
	"amethyst-gateway/internal/metrics"
	"amethyst-gateway/internal/model"
)

// maxResponseBytes caps how much of a backend body is buffered.
const maxResponseBytes = 16 << 20

// ErrResponseTooLarge is returned when a backend body exceeds maxResponseBytes.
var ErrResponseTooLarge = fmt.Errorf("backend response exceeds %d bytes", maxResponseBytes)

// BackendClient sends requests to the backend service.
type BackendClient struct {
	httpClient *http.Client
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

// NewBackendClient creates a BackendClient with connection pooling and timeouts.
// The metrics parameter is optional; pass nil to disable backend metrics recording.
func NewBackendClient(cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) *BackendClient {
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        cfg.Backend.IdleConnections,
		MaxIdleConnsPerHost: cfg.Backend.IdleConnections,
		IdleConnTimeout:     90 * time.Second,
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
	}

	return &BackendClient{
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   time.Duration(cfg.Backend.TimeoutSeconds) * time.Second,
		},
		logger:  logger.With("component", "backend_client"),
		metrics: m,
	}
}

// Do executes req and reads the whole response body.
// A non-nil error means no response was obtained.
func (c *BackendClient) Do(req *http.Request) (*model.BackendResponse, error) {
	c.logger.Debug("backend request",
		"method", req.Method,
		"path", req.URL.Path,
	)

	method := metrics.NormalizeMethod(req.Method)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if c.metrics != nil {
			c.metrics.BackendDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
			c.metrics.BackendFailures.WithLabelValues(method).Inc()
		}
		return nil, fmt.Errorf("backend request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes+1))
	if err == nil && len(body) > maxResponseBytes {
		err = ErrResponseTooLarge
	}
	duration := time.Since(start).Seconds()
	if err != nil {
		if c.metrics != nil {
			c.metrics.BackendDuration.WithLabelValues(method).Observe(duration)
			c.metrics.BackendFailures.WithLabelValues(method).Inc()
		}
		return nil, fmt.Errorf("read backend response: %w", err)
	}

	if c.metrics != nil {
		c.metrics.BackendDuration.WithLabelValues(method).Observe(duration)
		c.metrics.BackendResponses.WithLabelValues(method, strconv.Itoa(resp.StatusCode)).Inc()
	}

	return &model.BackendResponse{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
	}, nil
}

// Send builds a request from its parts and executes it.
// The context controls the lifetime of the backend call: when the browser
// disconnects, the backend request is canceled too.
func (c *BackendClient) Send(ctx context.Context, method, url string, header http.Header, body []byte) (*model.BackendResponse, error) {
	var r io.Reader
	if len(body) > 0 {
		r = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, r)
	if err != nil {
		return nil, fmt.Errorf("build backend request: %w", err)
	}
	if header != nil {
		req.Header = header
	}

	return c.Do(req)
}
