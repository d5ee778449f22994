package service

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"amethyst-gateway/internal/client"
	"amethyst-gateway/internal/config"
	"amethyst-gateway/internal/metrics"
	"amethyst-gateway/internal/model"
)

// StatusService probes the gateway's own health route and the backend's
// health endpoint.
type StatusService struct {
	client     *client.BackendClient
	backendURL *config.BackendURL
	selfURL    string
	metrics    *metrics.Metrics
	logger     *slog.Logger
	now        func() time.Time
}

// NewStatusService creates a StatusService. The metrics parameter is optional.
func NewStatusService(c *client.BackendClient, backendURL *config.BackendURL, cfg *config.Config, m *metrics.Metrics, logger *slog.Logger) *StatusService {
	return &StatusService{
		client:     c,
		backendURL: backendURL,
		selfURL:    strings.TrimRight(cfg.Server.SelfURL, "/"),
		metrics:    m,
		logger:     logger.With("component", "status_service"),
		now:        time.Now,
	}
}

// Check runs both probes concurrently and waits for both. It never fails:
// a probe error is recorded in that probe's result. When ctx is canceled the
// first probe to notice stops the other.
func (s *StatusService) Check(ctx context.Context) *model.SystemStatus {
	st := &model.SystemStatus{Timestamp: s.now().UTC().Format(time.RFC3339)}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		st.Frontend, err = s.probe(gctx, "frontend", s.selfURL+"/api/health")
		return err
	})
	g.Go(func() error {
		var err error
		st.Backend, err = s.probe(gctx, "backend", s.backendURL.Get()+"/health")
		return err
	})
	if err := g.Wait(); err != nil {
		s.logger.Debug("status check aborted", "err", err)
	}

	return st
}

// probe always returns a result. The error is non-nil only when ctx ended
// before the probe finished.
func (s *StatusService) probe(ctx context.Context, target, url string) (model.CheckResult, error) {
	header := http.Header{
		"Accept":        {"application/json"},
		"Cache-Control": {"no-store"},
		"User-Agent":    {userAgent},
	}
	resp, err := s.client.Send(ctx, http.MethodGet, url, header, nil)
	if err != nil {
		s.logger.Warn("status probe failed", "target", target, "err", err)
		s.record(target, "error")
		return model.CheckResult{OK: false, Error: err.Error()}, ctx.Err()
	}

	r := model.NewCheckResult(resp)
	if r.OK {
		s.record(target, "ok")
	} else {
		s.record(target, "unhealthy")
	}
	return r, nil
}

func (s *StatusService) record(target, outcome string) {
	if s.metrics != nil {
		s.metrics.StatusChecks.WithLabelValues(target, outcome).Inc()
	}
}
