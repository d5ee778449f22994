package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"amethyst-gateway/internal/config"
	"amethyst-gateway/internal/metrics"
	"amethyst-gateway/internal/service"
)

// apiRoute binds an inbound path to a backend route.
type apiRoute struct {
	path          string
	route         service.Route
	issuesSession bool
}

// apiRoutes is the gateway's proxied surface. Echo ":name" parameters carry
// over to the backend path by name.
var apiRoutes = []apiRoute{
	{
		path: "/api/auth/login",
		route: service.Route{
			Name: "auth.login", Method: http.MethodPost, Path: "auth/login",
			Body: service.BodyJSON, FailureStatus: http.StatusBadGateway,
		},
		issuesSession: true,
	},
	{
		path: "/api/auth/register",
		route: service.Route{
			Name: "auth.register", Method: http.MethodPost, Path: "auth/register",
			Body: service.BodyJSON, FailureStatus: http.StatusBadGateway,
		},
		issuesSession: true,
	},
	{
		path: "/api/auth/me",
		route: service.Route{
			Name: "auth.me", Method: http.MethodGet, Path: "auth/me",
			RequireAuth: true, NoStore: true, FailureStatus: http.StatusInternalServerError,
		},
	},
	{
		path: "/api/feedback/:id/approve",
		route: service.Route{
			Name: "feedback.approve", Method: http.MethodPut, Path: "feedback/:id/approve",
			RequireAuth: true, Body: service.BodyJSON, FailureStatus: http.StatusBadGateway,
		},
	},
	{
		path: "/api/health",
		route: service.Route{
			Name: "health", Method: http.MethodGet, Path: "health",
			NoStore: true, FailureStatus: http.StatusServiceUnavailable,
		},
	},
	{
		path: "/api/payments/:id/refund",
		route: service.Route{
			Name: "payments.refund", Method: http.MethodPost, Path: "payments/:id/refund",
			RequireAuth: true, Body: service.BodyJSON, FailureStatus: http.StatusInternalServerError,
		},
	},
	{
		path: "/api/payments/confirm",
		route: service.Route{
			Name: "payments.confirm", Method: http.MethodPost, Path: "payments/confirm",
			Body: service.BodyJSON, FailureStatus: http.StatusInternalServerError,
		},
	},
	{
		path: "/api/payments/create-payment-intent",
		route: service.Route{
			Name: "payments.create_intent", Method: http.MethodPost, Path: "payments/create-payment-intent",
			Body: service.BodyJSON, FailureStatus: http.StatusInternalServerError,
		},
	},
	{
		path: "/api/users",
		route: service.Route{
			Name: "users.list", Method: http.MethodGet, Path: "users",
			NoStore: true, FailureStatus: http.StatusBadGateway,
		},
	},
}

// RegisterRoutes wires all route handlers onto the Echo instance.
func RegisterRoutes(e *echo.Echo, proxy *ProxyHandler, auth *AuthHandler, health *HealthHandler) {
	e.GET("/healthz", health.Healthz)
	e.GET("/gateway/status", health.Status)
	e.GET("/api/system-status", health.SystemStatus)

	e.POST("/api/auth/logout", auth.Logout)
	e.POST("/api/auth/cookie-consent", auth.CookieConsent)

	for _, r := range apiRoutes {
		h := proxy.Handle(r.route)
		if r.issuesSession {
			h = auth.Login(r.route)
		}
		e.Add(r.route.Method, r.path, h)
	}
}

// RegisterMetrics exposes the Prometheus registry when metrics are enabled.
func RegisterMetrics(e *echo.Echo, cfg *config.Config, m *metrics.Metrics) {
	if !cfg.Metrics.Enabled {
		return
	}
	e.GET(cfg.Metrics.Path, echo.WrapHandler(promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})))
}
