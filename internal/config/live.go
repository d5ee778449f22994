package config

import (
	"log/slog"
	"strings"
	"sync/atomic"
)

// BackendURL is the live backend base URL. Handlers call Get on every
// request so a reload takes effect without a restart.
type BackendURL struct {
	v atomic.Pointer[string]
}

// NewBackendURL creates a BackendURL seeded from the loaded configuration.
func NewBackendURL(cfg *Config) *BackendURL {
	b := &BackendURL{}
	b.Set(cfg.Backend.BaseURL)
	return b
}

// Get returns the current base URL with any trailing slash removed.
func (b *BackendURL) Get() string {
	p := b.v.Load()
	if p == nil {
		return DefaultBackendURL
	}
	return *p
}

// Set replaces the base URL. An empty value restores the default.
func (b *BackendURL) Set(raw string) {
	s := strings.TrimRight(strings.TrimSpace(raw), "/")
	if s == "" {
		s = DefaultBackendURL
	}
	b.v.Store(&s)
}

// Reload re-reads configuration the same way Load does and swaps in the new
// backend URL. On error the current value is kept.
func (b *BackendURL) Reload(cli *CLI, logger *slog.Logger) error {
	cfg, err := Load(cli)
	if err != nil {
		return err
	}
	prev := b.Get()
	b.Set(cfg.Backend.BaseURL)
	if next := b.Get(); next != prev {
		logger.Info("backend url changed", "from", prev, "to", next)
	}
	return nil
}
