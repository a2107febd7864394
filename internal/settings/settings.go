// Package settings provides typed, default-filled access to the persisted
// corrector configuration and broadcasts changes to active sessions.
package settings

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"github.com/raphaelaulasgranger/correcteurOrtho/internal/model"
)

// Storage keys. They match the keys written by the browser-side settings page.
const (
	KeyEnabled             = "correctorEnabled"
	KeyBackend             = "correctionModel"
	KeyToken               = "hfToken"
	KeyConfidenceThreshold = "confidenceThreshold"
	KeyMaxSuggestions      = "maxSuggestions"
)

// KV is the key-value persistence the adapter reads and writes.
type KV interface {
	SettingValues(ctx context.Context) (map[string]string, error)
	SetSettingValues(ctx context.Context, values map[string]string) error
	ClearSettings(ctx context.Context) error
}

// Adapter reads and writes Settings on top of a KV store.
// It is safe for concurrent use.
type Adapter struct {
	kv     KV
	logger *slog.Logger

	mu     sync.Mutex
	last   model.Settings
	loaded bool
	subs   map[int]func(model.Settings)
	nextID int
}

// New returns an Adapter backed by kv. A nil logger uses slog.Default.
func New(kv KV, logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Adapter{
		kv:     kv,
		logger: logger,
		subs:   map[int]func(model.Settings){},
	}
}

// Load returns the current settings with every absent key resolved to its default.
func (a *Adapter) Load(ctx context.Context) (model.Settings, error) {
	values, err := a.kv.SettingValues(ctx)
	if err != nil {
		return model.Settings{}, fmt.Errorf("failed to read settings: %w", err)
	}
	s := Resolve(values, a.logger)
	a.mu.Lock()
	a.last = s
	a.loaded = true
	a.mu.Unlock()
	return s, nil
}

// Update applies a partial update and notifies subscribers with the result.
func (a *Adapter) Update(ctx context.Context, patch model.SettingsPatch) (model.Settings, error) {
	if err := Validate(patch); err != nil {
		return model.Settings{}, err
	}
	if err := a.kv.SetSettingValues(ctx, Encode(patch)); err != nil {
		return model.Settings{}, fmt.Errorf("failed to write settings: %w", err)
	}
	return a.Refresh(ctx)
}

// Reset removes every stored key so all settings fall back to defaults.
func (a *Adapter) Reset(ctx context.Context) (model.Settings, error) {
	if err := a.kv.ClearSettings(ctx); err != nil {
		return model.Settings{}, fmt.Errorf("failed to clear settings: %w", err)
	}
	return a.Refresh(ctx)
}

// Refresh reloads settings and notifies subscribers when they changed.
func (a *Adapter) Refresh(ctx context.Context) (model.Settings, error) {
	a.mu.Lock()
	prev, hadPrev := a.last, a.loaded
	a.mu.Unlock()

	s, err := a.Load(ctx)
	if err != nil {
		return model.Settings{}, err
	}
	if hadPrev && prev == s {
		return s, nil
	}
	a.notify(s)
	return s, nil
}

// Subscribe registers fn to receive every settings change. The returned
// function removes the subscription.
func (a *Adapter) Subscribe(fn func(model.Settings)) func() {
	a.mu.Lock()
	id := a.nextID
	a.nextID++
	a.subs[id] = fn
	a.mu.Unlock()
	return func() {
		a.mu.Lock()
		delete(a.subs, id)
		a.mu.Unlock()
	}
}

func (a *Adapter) notify(s model.Settings) {
	a.mu.Lock()
	fns := make([]func(model.Settings), 0, len(a.subs))
	for _, fn := range a.subs {
		fns = append(fns, fn)
	}
	a.mu.Unlock()
	for _, fn := range fns {
		fn(s)
	}
}

// Resolve fills a Settings value from raw stored strings. Missing or
// unparsable values resolve to their defaults.
func Resolve(values map[string]string, logger *slog.Logger) model.Settings {
	s := model.DefaultSettings()
	if v, ok := values[KeyEnabled]; ok {
		if parsed, err := strconv.ParseBool(v); err == nil {
			s.Enabled = parsed
		} else {
			logInvalid(logger, KeyEnabled, v)
		}
	}
	if v, ok := values[KeyBackend]; ok && strings.TrimSpace(v) != "" {
		s.Backend = model.BackendID(strings.TrimSpace(v))
	}
	if v, ok := values[KeyToken]; ok {
		s.Token = strings.TrimSpace(v)
	}
	if v, ok := values[KeyConfidenceThreshold]; ok {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil && parsed >= 0 && parsed <= 1 {
			s.ConfidenceThreshold = parsed
		} else {
			logInvalid(logger, KeyConfidenceThreshold, v)
		}
	}
	if v, ok := values[KeyMaxSuggestions]; ok {
		if parsed, err := strconv.Atoi(v); err == nil && parsed >= 0 {
			s.MaxSuggestions = parsed
		} else {
			logInvalid(logger, KeyMaxSuggestions, v)
		}
	}
	return s
}

func logInvalid(logger *slog.Logger, key, value string) {
	if logger == nil {
		return
	}
	logger.Warn("ignoring invalid setting, using default", "key", key, "value", value)
}

// Validate checks the fields a patch sets.
func Validate(p model.SettingsPatch) error {
	if p.ConfidenceThreshold != nil {
		if v := *p.ConfidenceThreshold; v < 0 || v > 1 {
			return fmt.Errorf("confidence threshold must be between 0 and 1")
		}
	}
	if p.MaxSuggestions != nil && *p.MaxSuggestions < 0 {
		return fmt.Errorf("max suggestions must be >= 0")
	}
	return nil
}

// Encode converts the fields a patch sets into stored strings.
func Encode(p model.SettingsPatch) map[string]string {
	values := map[string]string{}
	if p.Enabled != nil {
		values[KeyEnabled] = strconv.FormatBool(*p.Enabled)
	}
	if p.Backend != nil {
		values[KeyBackend] = string(*p.Backend)
	}
	if p.Token != nil {
		values[KeyToken] = strings.TrimSpace(*p.Token)
	}
	if p.ConfidenceThreshold != nil {
		values[KeyConfidenceThreshold] = strconv.FormatFloat(*p.ConfidenceThreshold, 'f', -1, 64)
	}
	if p.MaxSuggestions != nil {
		values[KeyMaxSuggestions] = strconv.Itoa(*p.MaxSuggestions)
	}
	return values
}

// CanonicalKey maps a storage key or one of its command line aliases to the
// storage key.
func CanonicalKey(key string) (string, error) {
	switch key {
	case KeyEnabled, "enabled":
		return KeyEnabled, nil
	case KeyBackend, "backend", "model":
		return KeyBackend, nil
	case KeyToken, "token":
		return KeyToken, nil
	case KeyConfidenceThreshold, "threshold":
		return KeyConfidenceThreshold, nil
	case KeyMaxSuggestions, "max-suggestions":
		return KeyMaxSuggestions, nil
	}
	return "", fmt.Errorf("unknown setting %q", key)
}

// ParseKeyValue builds a patch from a single "key=value" assignment as typed on
// the command line.
func ParseKeyValue(key, value string) (model.SettingsPatch, error) {
	var p model.SettingsPatch
	canonical, err := CanonicalKey(key)
	if err != nil {
		return p, err
	}
	switch canonical {
	case KeyEnabled:
		v, err := strconv.ParseBool(value)
		if err != nil {
			return p, fmt.Errorf("invalid %s value %q", key, value)
		}
		p.Enabled = &v
	case KeyBackend:
		v := model.BackendID(strings.TrimSpace(value))
		p.Backend = &v
	case KeyToken:
		v := value
		p.Token = &v
	case KeyConfidenceThreshold:
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return p, fmt.Errorf("invalid %s value %q", key, value)
		}
		p.ConfidenceThreshold = &v
	case KeyMaxSuggestions:
		v, err := strconv.Atoi(value)
		if err != nil {
			return p, fmt.Errorf("invalid %s value %q", key, value)
		}
		p.MaxSuggestions = &v
	}
	return p, Validate(p)
}

// Value returns the stored string form of one setting.
func Value(s model.Settings, key string) (string, error) {
	canonical, err := CanonicalKey(key)
	if err != nil {
		return "", err
	}
	switch canonical {
	case KeyEnabled:
		return strconv.FormatBool(s.Enabled), nil
	case KeyBackend:
		return string(s.Backend), nil
	case KeyToken:
		return s.Token, nil
	case KeyConfidenceThreshold:
		return strconv.FormatFloat(s.ConfidenceThreshold, 'f', -1, 64), nil
	default:
		return strconv.Itoa(s.MaxSuggestions), nil
	}
}
