package middleware

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"

	"amethyst-gateway/internal/config"
	"amethyst-gateway/internal/model"
)

// RateLimiter returns a per-client-IP rate limiter. Rejected requests get a
// 429 failure envelope.
func RateLimiter(cfg config.RateLimitConfig, logger *slog.Logger) echo.MiddlewareFunc {
	store := echomw.NewRateLimiterMemoryStore(rate.Limit(cfg.RequestsPerSecond))
	return echomw.RateLimiterWithConfig(echomw.RateLimiterConfig{
		Store: store,
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		DenyHandler: func(c echo.Context, identifier string, _ error) error {
			logger.Warn("rate limit exceeded", "client", identifier, "path", c.Request().URL.Path)
			return c.JSON(http.StatusTooManyRequests,
				model.NewFailure(model.CodeRateLimited, "Too many requests", ""))
		},
	})
}
