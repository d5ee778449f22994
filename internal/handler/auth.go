package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"amethyst-gateway/internal/auth"
	"amethyst-gateway/internal/model"
	"amethyst-gateway/internal/service"
)

// AuthHandler serves the session endpoints: login/register (which issue the
// session cookie), logout and cookie consent.
type AuthHandler struct {
	proxy   *ProxyHandler
	cookies *auth.Cookies
	logger  *slog.Logger
}

// NewAuthHandler creates an AuthHandler.
func NewAuthHandler(proxy *ProxyHandler, cookies *auth.Cookies, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		proxy:   proxy,
		cookies: cookies,
		logger:  logger.With("component", "auth_handler"),
	}
}

// Login proxies route like ProxyHandler.Handle and, when the backend answers
// 2xx with a token, also sets the session cookie. The body is relayed unchanged
// either way.
func (h *AuthHandler) Login(route service.Route) echo.HandlerFunc {
	return func(c echo.Context) error {
		p, err := h.proxy.forward(c, route)
		if err != nil {
			return h.proxy.mapError(c, route, err)
		}

		if token := sessionToken(p); token != "" {
			c.SetCookie(h.cookies.Session(token))
			h.logger.Info("session cookie issued", "route", route.Name)
		}
		return renderPayload(c, p)
	}
}

// sessionToken extracts the top-level "token" string from a successful JSON payload.
func sessionToken(p *model.Payload) string {
	if p.Status < 200 || p.Status >= 300 || p.Kind != model.PayloadJSON {
		return ""
	}
	var body struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(p.Body, &body); err != nil {
		return ""
	}
	return body.Token
}

// Logout clears the session cookie. It does not contact the backend.
func (h *AuthHandler) Logout(c echo.Context) error {
	c.SetCookie(h.cookies.Expired())
	return c.JSON(http.StatusOK, map[string]any{
		"success": true,
		"message": "Logged out successfully",
	})
}

type consentRequest struct {
	Consent *bool `json:"consent" validate:"required"`
}

// CookieConsent echoes the browser's cookie consent choice.
func (h *AuthHandler) CookieConsent(c echo.Context) error {
	var req consentRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, model.NewFailure(model.CodeInvalidRequest, "Invalid consent payload", "body must be a JSON object"))
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, model.NewFailure(model.CodeInvalidRequest, "Invalid consent payload", "consent is required"))
	}

	return c.JSON(http.StatusOK, map[string]any{
		"success": true,
		"consent": *req.Consent,
	})
}
