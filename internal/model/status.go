package model

import "encoding/json"

// CheckResult is the outcome of one system-status probe. A probe that got
// no response has OK false, a nil Data and a non-empty Error.
type CheckResult struct {
	OK     bool   `json:"ok"`
	Status int    `json:"status,omitempty"`
	Data   any    `json:"data"`
	Error  string `json:"error,omitempty"`
}

// SystemStatus is the body of GET /api/system-status.
type SystemStatus struct {
	Timestamp string      `json:"timestamp"`
	Frontend  CheckResult `json:"frontend"`
	Backend   CheckResult `json:"backend"`
}

// NewCheckResult converts a backend response into a CheckResult. JSON bodies
// are embedded as-is; anything else is embedded as a string.
func NewCheckResult(resp *BackendResponse) CheckResult {
	r := CheckResult{OK: resp.OK(), Status: resp.StatusCode}
	switch p := NewPayload(resp); {
	case p.Kind == PayloadJSON:
		r.Data = json.RawMessage(p.Body)
	case len(p.Body) > 0:
		r.Data = string(p.Body)
	}
	return r
}
