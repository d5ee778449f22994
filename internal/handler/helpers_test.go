package handler

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"amethyst-gateway/internal/auth"
	"amethyst-gateway/internal/client"
	"amethyst-gateway/internal/config"
	"amethyst-gateway/internal/service"
)

// unreachableURL refuses connections.
const unreachableURL = "http://127.0.0.1:1"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig(backendURL string) *config.Config {
	return &config.Config{
		Server:  config.ServerConfig{SelfURL: unreachableURL},
		Backend: config.BackendConfig{BaseURL: backendURL, TimeoutSeconds: 5, IdleConnections: 10},
		Auth:    config.AuthConfig{CookieName: "auth_token", CookieMaxAgeDays: 30},
	}
}

// newTestGateway wires the full route table against backendURL.
func newTestGateway(t *testing.T, backendURL string, mutate ...func(*config.Config)) *echo.Echo {
	t.Helper()
	cfg := testConfig(backendURL)
	for _, f := range mutate {
		f(cfg)
	}

	logger := discardLogger()
	bc := client.NewBackendClient(cfg, logger, nil)
	live := config.NewBackendURL(cfg)

	proxy := NewProxyHandler(service.NewProxyService(bc, live, cfg, logger), logger)
	authHandler := NewAuthHandler(proxy, auth.NewCookies(cfg), logger)
	health := NewHealthHandler(cfg, live, service.NewStatusService(bc, live, cfg, nil, logger), "test")

	e := echo.New()
	e.Validator = NewValidator()
	RegisterRoutes(e, proxy, authHandler, health)
	return e
}

// serve sends one request through e and returns the recorder.
func serve(e *echo.Echo, method, path, body string, prepare ...func(*http.Request)) *httptest.ResponseRecorder {
	var r io.Reader = http.NoBody
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	for _, p := range prepare {
		p(req)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func withCookie(name, value string) func(*http.Request) {
	return func(r *http.Request) { r.AddCookie(&http.Cookie{Name: name, Value: value}) }
}

func withHeader(key, value string) func(*http.Request) {
	return func(r *http.Request) { r.Header.Set(key, value) }
}

func findCookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// inboundPath fills route parameters with a sample id.
func inboundPath(r apiRoute) string {
	return strings.ReplaceAll(r.path, ":id", "42")
}
