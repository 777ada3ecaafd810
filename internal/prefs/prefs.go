// Package prefs holds the process-wide collector preferences: size unit,
// currency and language. Each preference is loaded once from a key/value
// store and falls back to its default when the stored value is missing or
// unreadable.
package prefs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/erazemk/sneakerdex/internal/store"
)

// Store is the key/value persistence behind preferences.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
}

// Preference is a single persisted value.
type Preference[T any] struct {
	key    string
	def    T
	encode func(T) string
	decode func(string) (T, error)
	kv     Store
	logger *slog.Logger

	mu          sync.RWMutex
	value       T
	initialized bool
}

// New creates a preference stored under key. Until Init runs, Get returns def.
func New[T any](kv Store, key string, def T, encode func(T) string, decode func(string) (T, error), logger *slog.Logger) *Preference[T] {
	if logger == nil {
		logger = slog.Default()
	}
	return &Preference[T]{
		key:    key,
		def:    def,
		encode: encode,
		decode: decode,
		kv:     kv,
		logger: logger,
		value:  def,
	}
}

// Key returns the storage key.
func (p *Preference[T]) Key() string {
	return p.key
}

// Init loads the stored value. Failures never block startup: the default is
// kept and the preference is marked initialized regardless.
func (p *Preference[T]) Init(ctx context.Context) {
	value := p.def
	raw, err := p.kv.Get(ctx, p.key)
	switch {
	case err == nil:
		v, perr := p.decode(raw)
		if perr != nil {
			p.logger.Warn("invalid stored preference, using default", "key", p.key, "value", raw, "error", perr)
		} else {
			value = v
		}
	case errors.Is(err, store.ErrNotFound):
	default:
		p.logger.Warn("failed to load preference, using default", "key", p.key, "error", err)
	}

	p.mu.Lock()
	p.value = value
	p.initialized = true
	p.mu.Unlock()
}

// Initialized reports whether Init has run.
func (p *Preference[T]) Initialized() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.initialized
}

// Get returns the current value.
func (p *Preference[T]) Get() T {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.value
}

// Set persists v and makes it current. The last write wins.
func (p *Preference[T]) Set(ctx context.Context, v T) error {
	if err := p.kv.Set(ctx, p.key, p.encode(v)); err != nil {
		return fmt.Errorf("saving preference %s: %w", p.key, err)
	}
	p.mu.Lock()
	p.value = v
	p.initialized = true
	p.mu.Unlock()
	return nil
}

// Parse decodes s with the preference's codec without storing it.
func (p *Preference[T]) Parse(s string) (T, error) {
	return p.decode(s)
}
