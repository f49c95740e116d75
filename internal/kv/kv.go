package kv

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"
)

// Backend is a synchronous string key-value store scoped to one client.
type Backend interface {
	Get(ctx context.Context, key string) (raw string, found bool, err error)
	Set(ctx context.Context, key, raw string) error
	Delete(ctx context.Context, key string) error
}

// Adapter layers JSON encoding and failure tolerance over a Backend.
type Adapter struct {
	backend Backend
	logger  zerolog.Logger
}

func New(backend Backend, logger zerolog.Logger) *Adapter {
	return &Adapter{backend: backend, logger: logger}
}

// Load decodes the value stored under key. Absence, a read failure or a
// corrupt blob all yield def; the last two are logged and never returned.
func Load[T any](ctx context.Context, a *Adapter, key string, def T) T {
	raw, found, err := a.backend.Get(ctx, key)
	if err != nil {
		a.logger.Warn().Err(err).Str("key", key).Msg("state read failed, using default")
		return def
	}
	if !found {
		return def
	}
	var out T
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		a.logger.Warn().Err(err).Str("key", key).Msg("state decode failed, using default")
		return def
	}
	return out
}

// Save encodes v and writes it under key. Write failures are returned.
func Save[T any](ctx context.Context, a *Adapter, key string, v T) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := a.backend.Set(ctx, key, string(b)); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

func (a *Adapter) Clear(ctx context.Context, key string) error {
	if err := a.backend.Delete(ctx, key); err != nil {
		return fmt.Errorf("clear %s: %w", key, err)
	}
	return nil
}

// Has reports whether key holds any value, decodable or not.
func (a *Adapter) Has(ctx context.Context, key string) bool {
	_, found, err := a.backend.Get(ctx, key)
	return err == nil && found
}
