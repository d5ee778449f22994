// Package service implements the backend forwarding logic.
package service

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"amethyst-gateway/internal/auth"
	"amethyst-gateway/internal/client"
	"amethyst-gateway/internal/config"
	"amethyst-gateway/internal/model"
)

// ErrUnauthenticated is returned when a route requires a credential and none was sent.
var ErrUnauthenticated = errors.New("not authenticated")

// ErrMalformedRequest is returned when the inbound request cannot be turned
// into a backend request (invalid JSON body, missing path parameter).
var ErrMalformedRequest = errors.New("malformed request")

// forwardableRequestHeaders are copied from the browser request when present.
var forwardableRequestHeaders = []string{
	"Accept-Language",
	"X-Request-Id",
}

const userAgent = "amethyst-gateway/1.0"

// BodyMode selects what a route does with the inbound body.
type BodyMode int

const (
	// BodyNone never forwards a body.
	BodyNone BodyMode = iota
	// BodyJSON parses a non-empty body as JSON and forwards it re-serialized.
	BodyJSON
)

// Route describes one backend endpoint the gateway fronts.
type Route struct {
	Name   string
	Method string
	// Path is relative to the backend base URL; ":name" segments are
	// replaced by the matching path parameter.
	Path          string
	RequireAuth   bool
	NoStore       bool
	Body          BodyMode
	FailureStatus int // status sent when the backend cannot be reached
}

// ProxyService forwards browser requests to the backend.
type ProxyService struct {
	client     *client.BackendClient
	backendURL *config.BackendURL
	cookieName string
	logger     *slog.Logger
}

// NewProxyService creates a ProxyService.
func NewProxyService(c *client.BackendClient, backendURL *config.BackendURL, cfg *config.Config, logger *slog.Logger) *ProxyService {
	return &ProxyService{
		client:     c,
		backendURL: backendURL,
		cookieName: cfg.Auth.CookieName,
		logger:     logger.With("component", "proxy_service"),
	}
}

// Forward sends pr to the backend endpoint described by route and classifies
// the answer. Backend error statuses are returned as a Payload, not an error;
// an error means the gateway itself could not complete the exchange.
//
// The credential is resolved in order: Authorization header → session cookie.
// If a route requires one and neither is present, ErrUnauthenticated is
// returned before any backend call.
func (s *ProxyService) Forward(route Route, pr *model.ProxyRequest) (*model.Payload, error) {
	credential := auth.Credential(pr.Header, pr.Cookie, s.cookieName)
	if route.RequireAuth && credential == "" {
		return nil, ErrUnauthenticated
	}

	body, err := transformBody(route.Body, pr.Body)
	if err != nil {
		return nil, err
	}

	target, err := s.buildBackendURL(route.Path, pr.Params, pr.Query)
	if err != nil {
		return nil, err
	}

	header := s.buildRequestHeaders(pr.Header, credential, route.NoStore)

	s.logger.Debug("forwarding request",
		"route", route.Name,
		"method", route.Method,
		"authenticated", credential != "",
	)

	resp, err := s.client.Send(pr.Ctx, route.Method, target, header, body)
	if err != nil {
		return nil, fmt.Errorf("forward to backend: %w", err)
	}

	return model.NewPayload(resp), nil
}

// transformBody applies the route's body mode to the raw inbound body.
func transformBody(mode BodyMode, raw []byte) ([]byte, error) {
	if mode == BodyNone {
		return nil, nil
	}
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, nil
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, trimmed); err != nil {
		return nil, fmt.Errorf("%w: body is not valid JSON: %v", ErrMalformedRequest, err)
	}
	return buf.Bytes(), nil
}

// buildBackendURL joins the live base URL with the expanded route path.
// The base is read on every call.
func (s *ProxyService) buildBackendURL(path string, params map[string]string, query url.Values) (string, error) {
	expanded, err := expandPath(path, params)
	if err != nil {
		return "", err
	}

	target := s.backendURL.Get() + "/" + expanded
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	return target, nil
}

// expandPath substitutes ":name" segments with escaped path parameters.
func expandPath(path string, params map[string]string) (string, error) {
	segments := strings.Split(strings.Trim(path, "/"), "/")
	for i, seg := range segments {
		name, ok := strings.CutPrefix(seg, ":")
		if !ok {
			continue
		}
		v := params[name]
		if v == "" {
			return "", fmt.Errorf("%w: missing path parameter %q", ErrMalformedRequest, name)
		}
		segments[i] = url.PathEscape(v)
	}
	return strings.Join(segments, "/"), nil
}

func (s *ProxyService) buildRequestHeaders(src http.Header, credential string, noStore bool) http.Header {
	dst := make(http.Header)
	for _, key := range forwardableRequestHeaders {
		if vals := src.Values(key); len(vals) > 0 {
			dst[http.CanonicalHeaderKey(key)] = vals
		}
	}
	dst.Set("Content-Type", "application/json")
	dst.Set("Accept", "application/json")
	dst.Set("User-Agent", userAgent)
	if credential != "" {
		dst.Set("Authorization", credential)
	}
	if noStore {
		dst.Set("Cache-Control", "no-store")
	}
	return dst
}
