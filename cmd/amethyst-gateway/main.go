package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/fx"

	"amethyst-gateway/internal/auth"
	"amethyst-gateway/internal/client"
	"amethyst-gateway/internal/config"
	"amethyst-gateway/internal/handler"
	"amethyst-gateway/internal/metrics"
	"amethyst-gateway/internal/middleware"
	"amethyst-gateway/internal/service"
)

// Set by goreleaser ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

type cmdLine struct {
	config.CLI
	Version kong.VersionFlag `kong:"help='Print version and exit.'"`
}

func main() {
	var cli cmdLine
	kong.Parse(&cli,
		kong.Name("amethyst-gateway"),
		kong.Description("Authenticated API gateway for the Amethyst Inn web frontend."),
		kong.Vars{"version": fmt.Sprintf("%s (%s, %s)", version, commit, date)},
	)

	fx.New(
		fx.Provide(
			func() *config.CLI { return &cli.CLI },
			func() handler.Version { return handler.Version(version) },
			config.Load,
			config.NewBackendURL,
			metrics.New,
			newLogger,
			newEcho,
			client.NewBackendClient,
			auth.NewCookies,
			service.NewProxyService,
			service.NewStatusService,
			handler.NewProxyHandler,
			handler.NewAuthHandler,
			handler.NewHealthHandler,
		),
		fx.Invoke(
			handler.RegisterRoutes,
			handler.RegisterMetrics,
			warnConfigPermissions,
			watchReload,
			startServer,
		),
	).Run()
}

func newLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(cfg.Log.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}

	var h slog.Handler
	switch strings.ToLower(cfg.Log.Format) {
	case "text":
		h = slog.NewTextHandler(os.Stdout, opts)
	default:
		h = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(h).With("service", "amethyst-gateway")
}

func newEcho(cfg *config.Config, m *metrics.Metrics, logger *slog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()

	e.Server.ReadTimeout = 30 * time.Second
	// Outbound calls are bounded by backend.timeout_seconds; the write side
	// only needs to outlast that.
	e.Server.WriteTimeout = time.Duration(cfg.Backend.TimeoutSeconds+5) * time.Second
	e.Server.IdleTimeout = 120 * time.Second
	e.Server.ReadHeaderTimeout = 10 * time.Second

	e.Use(echomw.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.RequestLogger(logger))
	if cfg.Metrics.Enabled {
		e.Use(middleware.MetricsMiddleware(m, cfg.Metrics.Path))
	}
	e.Use(echomw.BodyLimit(fmt.Sprintf("%dB", cfg.Server.BodyMaxBytes)))
	e.Use(middleware.SecurityHeaders())

	if len(cfg.Server.CORS.AllowOrigins) > 0 {
		e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
			AllowOrigins:     cfg.Server.CORS.AllowOrigins,
			AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
			AllowHeaders:     []string{echo.HeaderAuthorization, echo.HeaderContentType, echo.HeaderAccept, "Accept-Language"},
			AllowCredentials: true,
		}))
		logger.Info("cors enabled", "origins", cfg.Server.CORS.AllowOrigins)
	}

	if cfg.Server.RateLimit.Enabled {
		e.Use(middleware.RateLimiter(cfg.Server.RateLimit, logger))
		logger.Info("rate limiter enabled", "rps", cfg.Server.RateLimit.RequestsPerSecond)
	}

	return e
}

func warnConfigPermissions(cfg *config.Config, logger *slog.Logger) {
	cfg.WarnPermissions(logger)
}

// watchReload re-reads the configuration on SIGHUP and swaps in the new
// backend URL. Every other setting needs a restart.
func watchReload(lc fx.Lifecycle, cli *config.CLI, backendURL *config.BackendURL, logger *slog.Logger) {
	sig := make(chan os.Signal, 1)
	done := make(chan struct{})

	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			signal.Notify(sig, syscall.SIGHUP)
			go func() {
				for {
					select {
					case <-sig:
						logger.Info("reloading configuration")
						if err := backendURL.Reload(cli, logger); err != nil {
							logger.Error("config reload failed", "err", err)
						}
					case <-done:
						return
					}
				}
			}()
			return nil
		},
		OnStop: func(_ context.Context) error {
			signal.Stop(sig)
			close(done)
			return nil
		},
	})
}

func startServer(lc fx.Lifecycle, e *echo.Echo, cfg *config.Config, backendURL *config.BackendURL, logger *slog.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			addr := cfg.Server.Addr()
			ln, err := net.Listen("tcp", addr)
			if err != nil {
				return fmt.Errorf("bind %s: %w", addr, err)
			}
			logger.Info("starting server",
				"addr", addr,
				"backend_url", backendURL.Get(),
				"environment", cfg.App.Environment,
			)
			go func() {
				if err := e.Server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("server error", "err", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("shutting down server")
			return e.Shutdown(ctx)
		},
	})
}
