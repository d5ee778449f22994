package service

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"amethyst-gateway/internal/client"
	"amethyst-gateway/internal/config"
	"amethyst-gateway/internal/metrics"
)

func newTestStatusService(t *testing.T, selfURL, backendURL string, m *metrics.Metrics) *StatusService {
	t.Helper()
	cfg := &config.Config{
		Server:  config.ServerConfig{SelfURL: selfURL},
		Backend: config.BackendConfig{BaseURL: backendURL, TimeoutSeconds: 5, IdleConnections: 10},
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s := NewStatusService(client.NewBackendClient(cfg, logger, nil), config.NewBackendURL(cfg), cfg, m, logger)
	s.now = func() time.Time { return time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC) }
	return s
}

func TestStatusService_Check_BothHealthy(t *testing.T) {
	self := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/health", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"healthy"}`))
	}))
	defer self.Close()
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/health", r.URL.Path)
		assert.Equal(t, "no-store", r.Header.Get("Cache-Control"))
		_, _ = w.Write([]byte("OK"))
	}))
	defer backend.Close()

	st := newTestStatusService(t, self.URL+"/", backend.URL, nil).Check(context.Background())

	assert.Equal(t, "2026-10-19T12:00:00Z", st.Timestamp)
	assert.True(t, st.Frontend.OK)
	assert.Equal(t, http.StatusOK, st.Frontend.Status)
	assert.Equal(t, json.RawMessage(`{"status":"healthy"}`), st.Frontend.Data)
	assert.True(t, st.Backend.OK)
	assert.Equal(t, "OK", st.Backend.Data)
}

func TestStatusService_Check_OneFails(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"status":"up"}`))
	}))
	defer backend.Close()

	m := metrics.New()
	st := newTestStatusService(t, "http://127.0.0.1:1", backend.URL, m).Check(context.Background())

	assert.False(t, st.Frontend.OK)
	assert.Nil(t, st.Frontend.Data)
	assert.NotEmpty(t, st.Frontend.Error)
	assert.Zero(t, st.Frontend.Status)

	assert.True(t, st.Backend.OK)
	assert.Empty(t, st.Backend.Error)

	raw, err := json.Marshal(st)
	require.NoError(t, err)
	var decoded struct {
		Frontend map[string]any `json:"frontend"`
		Backend  map[string]any `json:"backend"`
	}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Contains(t, decoded.Frontend, "data")
	assert.Nil(t, decoded.Frontend["data"])
	assert.Equal(t, map[string]any{"status": "up"}, decoded.Backend["data"])

	families, err := m.Registry.Gather()
	require.NoError(t, err)
	outcomes := map[string]string{}
	for _, f := range families {
		if f.GetName() != "amethyst_gateway_status_checks_total" {
			continue
		}
		for _, metric := range f.GetMetric() {
			labels := map[string]string{}
			for _, lp := range metric.GetLabel() {
				labels[lp.GetName()] = lp.GetValue()
			}
			outcomes[labels["target"]] = labels["outcome"]
		}
	}
	assert.Equal(t, map[string]string{"frontend": "error", "backend": "ok"}, outcomes)
}

func TestStatusService_Check_UnhealthyStatus(t *testing.T) {
	self := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"success":false}`))
	}))
	defer self.Close()

	st := newTestStatusService(t, self.URL, "http://127.0.0.1:1", nil).Check(context.Background())

	assert.False(t, st.Frontend.OK)
	assert.Equal(t, http.StatusServiceUnavailable, st.Frontend.Status)
	assert.NotNil(t, st.Frontend.Data)
	assert.Empty(t, st.Frontend.Error)

	assert.False(t, st.Backend.OK)
	assert.Nil(t, st.Backend.Data)
	assert.NotEmpty(t, st.Backend.Error)
}

func TestStatusService_Check_CanceledContextStopsProbes(t *testing.T) {
	hang := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
		w.WriteHeader(http.StatusOK)
	})
	self := httptest.NewServer(hang)
	defer self.Close()
	backend := httptest.NewServer(hang)
	defer backend.Close()

	s := newTestStatusService(t, self.URL, backend.URL, nil)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	start := time.Now()
	st := s.Check(ctx)

	assert.Less(t, time.Since(start), 2*time.Second)
	assert.False(t, st.Frontend.OK)
	assert.NotEmpty(t, st.Frontend.Error)
	assert.False(t, st.Backend.OK)
	assert.NotEmpty(t, st.Backend.Error)
}
