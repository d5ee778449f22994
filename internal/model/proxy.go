// Package model defines shared types for the gateway.
package model

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
)

// ProxyRequest is an inbound browser request to be forwarded to the backend.
type ProxyRequest struct {
	Ctx    context.Context
	Params map[string]string // path parameters, e.g. "id"
	Query  url.Values
	Header http.Header
	Cookie func(name string) (*http.Cookie, error)
	Body   []byte
}

// BackendResponse is a fully read backend response.
type BackendResponse struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// OK reports whether the backend answered with a 2xx status.
func (r *BackendResponse) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// PayloadKind tells how a backend body is relayed to the browser.
type PayloadKind int

const (
	// PayloadJSON is a body that parsed as JSON; it is relayed byte for byte.
	PayloadJSON PayloadKind = iota
	// PayloadText is anything else; relayed raw with the backend's content type.
	PayloadText
)

func (k PayloadKind) String() string {
	if k == PayloadJSON {
		return "json"
	}
	return "text"
}

// Payload is the translated backend response, decided once and rendered uniformly.
type Payload struct {
	Status      int
	Kind        PayloadKind
	ContentType string // set for PayloadText when the backend sent one
	Body        []byte
}

// NewPayload classifies a backend response body as JSON or raw text.
func NewPayload(resp *BackendResponse) *Payload {
	p := &Payload{Status: resp.StatusCode, Body: resp.Body}
	if len(resp.Body) > 0 && json.Valid(resp.Body) {
		p.Kind = PayloadJSON
		return p
	}
	p.Kind = PayloadText
	p.ContentType = resp.Header.Get("Content-Type")
	return p
}

// Failure is the single envelope for every gateway-synthesized error.
// Backend-reported errors are relayed as-is and never use it.
type Failure struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error"`
	Detail  string `json:"detail,omitempty"`
}

// Failure codes.
const (
	CodeUnauthenticated    = "unauthenticated"
	CodeInvalidRequest     = "invalid_request"
	CodeBackendUnreachable = "backend_unreachable"
	CodeBackendTimeout     = "backend_timeout"
	CodeRequestFailed      = "request_failed"
	CodeRateLimited        = "rate_limited"
)

// NewFailure builds a Failure envelope.
func NewFailure(code, message, detail string) Failure {
	return Failure{Success: false, Message: message, Error: code, Detail: detail}
}
