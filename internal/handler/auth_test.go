package handler

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"amethyst-gateway/internal/config"
	"amethyst-gateway/internal/model"
)

func TestLogin_IssuesCookie(t *testing.T) {
	var gotBody string
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/login", r.URL.Path)
		assert.Empty(t, r.Header.Get("Authorization"))
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"token":"abc","user":{"id":3,"role":"admin"}}`))
	}))
	defer backend.Close()

	e := newTestGateway(t, backend.URL)
	rec := serve(e, http.MethodPost, "/api/auth/login", `{"email":"admin@amethyst-inn.example","password":"pw"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `{"token":"abc","user":{"id":3,"role":"admin"}}`, rec.Body.String())
	assert.Equal(t, `{"email":"admin@amethyst-inn.example","password":"pw"}`, gotBody)

	c := findCookie(rec, "auth_token")
	require.NotNil(t, c)
	assert.Equal(t, "abc", c.Value)
	assert.True(t, c.HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, c.SameSite)
	assert.Equal(t, "/", c.Path)
	assert.Equal(t, 30*24*60*60, c.MaxAge)
	assert.False(t, c.Secure)
}

func TestLogin_SecureCookieInProduction(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"token":"abc"}`))
	}))
	defer backend.Close()

	e := newTestGateway(t, backend.URL, func(cfg *config.Config) {
		cfg.App.Environment = config.EnvProduction
	})
	rec := serve(e, http.MethodPost, "/api/auth/login", `{}`)

	c := findCookie(rec, "auth_token")
	require.NotNil(t, c)
	assert.True(t, c.Secure)
}

func TestLogin_NoCookie(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"bad credentials", http.StatusUnauthorized, `{"error":"bad credentials"}`},
		{"error status with token", http.StatusForbidden, `{"token":"abc"}`},
		{"success without token", http.StatusOK, `{"message":"verification email sent"}`},
		{"empty token", http.StatusOK, `{"token":""}`},
		{"non-string token", http.StatusOK, `{"token":42}`},
		{"json array", http.StatusOK, `[{"token":"abc"}]`},
		{"text body", http.StatusOK, `token=abc`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer backend.Close()

			e := newTestGateway(t, backend.URL)
			rec := serve(e, http.MethodPost, "/api/auth/login", `{"email":"a@b.c","password":"wrong"}`)

			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.body, rec.Body.String())
			assert.Nil(t, findCookie(rec, "auth_token"))
		})
	}
}

func TestRegister_IssuesCookie(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/register", r.URL.Path)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"token":"new-user"}`))
	}))
	defer backend.Close()

	e := newTestGateway(t, backend.URL)
	rec := serve(e, http.MethodPost, "/api/auth/register", `{"email":"guest@amethyst-inn.example"}`)

	assert.Equal(t, http.StatusCreated, rec.Code)
	c := findCookie(rec, "auth_token")
	require.NotNil(t, c)
	assert.Equal(t, "new-user", c.Value)
}

func TestLogout(t *testing.T) {
	tests := []struct {
		name    string
		prepare []func(*http.Request)
	}{
		{"no cookie", nil},
		{"existing cookie", []func(*http.Request){withCookie("auth_token", "abc")}},
		{"with header", []func(*http.Request){withHeader("Authorization", "Bearer abc")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Logout never reaches the backend.
			e := newTestGateway(t, unreachableURL)
			rec := serve(e, http.MethodPost, "/api/auth/logout", "", tt.prepare...)

			assert.Equal(t, http.StatusOK, rec.Code)
			var body map[string]any
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, true, body["success"])
			assert.Equal(t, "Logged out successfully", body["message"])

			c := findCookie(rec, "auth_token")
			require.NotNil(t, c)
			assert.Empty(t, c.Value)
			assert.Less(t, c.MaxAge, 0, "Max-Age=0 parses as a negative MaxAge")
			assert.Contains(t, rec.Header().Get("Set-Cookie"), "Max-Age=0")
			assert.True(t, c.HttpOnly)
		})
	}
}

func TestCookieConsent(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantBody   map[string]any
	}{
		{"accepted", `{"consent":true}`, http.StatusOK, map[string]any{"success": true, "consent": true}},
		{"declined", `{"consent":false}`, http.StatusOK, map[string]any{"success": true, "consent": false}},
		{"missing field", `{}`, http.StatusBadRequest, nil},
		{"malformed", `{"consent":`, http.StatusBadRequest, nil},
		{"wrong type", `{"consent":"yes"}`, http.StatusBadRequest, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestGateway(t, unreachableURL)
			rec := serve(e, http.MethodPost, "/api/auth/cookie-consent", tt.body)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantBody != nil {
				var body map[string]any
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
				assert.Equal(t, tt.wantBody, body)
				return
			}
			f := decodeFailure(t, rec)
			assert.Equal(t, model.CodeInvalidRequest, f.Error)
		})
	}
}
