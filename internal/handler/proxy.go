package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"regexp"

	"github.com/labstack/echo/v4"

	"amethyst-gateway/internal/client"
	"amethyst-gateway/internal/model"
	"amethyst-gateway/internal/service"
)

// credentialPattern matches bearer tokens and token query values in error messages.
var credentialPattern = regexp.MustCompile(`(?i)(bearer\s+|token=)[^&\s"]+`)

// ProxyHandler forwards API requests to the backend.
type ProxyHandler struct {
	service *service.ProxyService
	logger  *slog.Logger
}

// NewProxyHandler creates a ProxyHandler.
func NewProxyHandler(svc *service.ProxyService, logger *slog.Logger) *ProxyHandler {
	return &ProxyHandler{
		service: svc,
		logger:  logger.With("component", "proxy_handler"),
	}
}

// Handle returns an Echo handler that proxies requests for route and relays
// the backend's status and body.
func (h *ProxyHandler) Handle(route service.Route) echo.HandlerFunc {
	return func(c echo.Context) error {
		p, err := h.forward(c, route)
		if err != nil {
			return h.mapError(c, route, err)
		}
		return renderPayload(c, p)
	}
}

func (h *ProxyHandler) forward(c echo.Context, route service.Route) (*model.Payload, error) {
	req := c.Request()

	body, err := io.ReadAll(req.Body)
	if err != nil {
		var he *echo.HTTPError
		if errors.As(err, &he) {
			return nil, he
		}
		return nil, fmt.Errorf("%w: read body: %w", service.ErrMalformedRequest, err)
	}

	params := make(map[string]string, len(c.ParamNames()))
	for _, name := range c.ParamNames() {
		params[name] = c.Param(name)
	}

	pr := &model.ProxyRequest{
		Ctx:    req.Context(),
		Params: params,
		Query:  req.URL.Query(),
		Header: req.Header,
		Cookie: req.Cookie,
		Body:   body,
	}
	return h.service.Forward(route, pr)
}

// renderPayload writes a translated backend response. JSON goes out byte for
// byte; text keeps the backend's content type and is never sniffed.
func renderPayload(c echo.Context, p *model.Payload) error {
	if p.Kind == model.PayloadJSON {
		return c.Blob(p.Status, echo.MIMEApplicationJSON, p.Body)
	}

	header := c.Response().Header()
	if p.ContentType != "" {
		header.Set(echo.HeaderContentType, p.ContentType)
	} else {
		// A nil entry suppresses net/http content sniffing.
		header[echo.HeaderContentType] = nil
	}
	c.Response().WriteHeader(p.Status)
	_, err := c.Response().Write(p.Body)
	return err
}

func (h *ProxyHandler) mapError(c echo.Context, route service.Route, err error) error {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he
	}

	if errors.Is(err, service.ErrUnauthenticated) {
		h.logger.Info("rejected unauthenticated request", "route", route.Name)
		return c.JSON(http.StatusUnauthorized, model.NewFailure(model.CodeUnauthenticated, "Not authenticated", ""))
	}
	if errors.Is(err, service.ErrMalformedRequest) {
		h.logger.Warn("malformed request", "route", route.Name, "err", err)
		return c.JSON(http.StatusInternalServerError, model.NewFailure(model.CodeInvalidRequest, "Failed to process request", err.Error()))
	}

	h.logger.Error("backend call failed",
		"route", route.Name,
		"err", sanitizeError(err),
		"path", c.Request().URL.Path,
	)

	code, message, detail := classifyTransportError(err)
	return c.JSON(route.FailureStatus, model.NewFailure(code, message, detail))
}

// classifyTransportError describes an error that left the gateway with no
// backend response. The status is the route's, never derived from the error.
func classifyTransportError(err error) (code, message, detail string) {
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != nil {
		detail = sanitizeError(urlErr.Err)
	}

	if errors.Is(err, client.ErrResponseTooLarge) {
		return model.CodeRequestFailed, "Backend response too large", client.ErrResponseTooLarge.Error()
	}
	if errors.Is(err, context.Canceled) {
		return model.CodeRequestFailed, "Request canceled before the backend answered", detail
	}
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return model.CodeBackendTimeout, "Backend request timed out", detail
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return model.CodeBackendUnreachable, "Backend host unreachable", detail
	}
	if urlErr != nil {
		return model.CodeBackendUnreachable, "Backend connection failed", detail
	}
	return model.CodeRequestFailed, "Backend request failed", detail
}

// sanitizeError redacts credentials from error messages.
func sanitizeError(err error) string {
	return credentialPattern.ReplaceAllString(err.Error(), "${1}[REDACTED]")
}
