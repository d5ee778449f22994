// Package auth resolves bearer credentials and issues the session cookie.
package auth

import (
	"net/http"
	"strings"
	"time"

	"amethyst-gateway/internal/config"
)

// Credential resolves the bearer credential for a backend call.
// The Authorization header is used verbatim when present; otherwise the
// session cookie is formatted as "Bearer <value>". An empty string means
// no credential.
func Credential(header http.Header, cookie func(string) (*http.Cookie, error), cookieName string) string {
	if v := strings.TrimSpace(header.Get("Authorization")); v != "" {
		return v
	}
	if cookie == nil {
		return ""
	}
	c, err := cookie(cookieName)
	if err != nil || c.Value == "" {
		return ""
	}
	return "Bearer " + c.Value
}

// Cookies builds the session cookie according to the auth configuration.
type Cookies struct {
	name   string
	maxAge time.Duration
	secure bool
}

// NewCookies creates a Cookies issuer. Secure is set only in production.
func NewCookies(cfg *config.Config) *Cookies {
	return &Cookies{
		name:   cfg.Auth.CookieName,
		maxAge: time.Duration(cfg.Auth.CookieMaxAgeDays) * 24 * time.Hour,
		secure: cfg.Production(),
	}
}

// Name returns the session cookie name.
func (c *Cookies) Name() string {
	return c.name
}

// Session returns the cookie carrying token.
func (c *Cookies) Session(token string) *http.Cookie {
	return &http.Cookie{
		Name:     c.name,
		Value:    token,
		Path:     "/",
		MaxAge:   int(c.maxAge / time.Second),
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// Expired returns an empty session cookie that the browser drops immediately.
func (c *Cookies) Expired() *http.Cookie {
	ck := c.Session("")
	// net/http encodes a negative MaxAge as "Max-Age=0".
	ck.MaxAge = -1
	return ck
}
