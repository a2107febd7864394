// Package coordinator is the single entry point between capture layers and
// the correction pipeline. A Session owns the settings snapshot; every
// analysis cycle reads it once and shares nothing else with other cycles.
package coordinator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/raphaelaulasgranger/correcteurOrtho/internal/backend"
	"github.com/raphaelaulasgranger/correcteurOrtho/internal/model"
)

// Corrector requests corrections from a backend.
type Corrector interface {
	RequestCorrections(ctx context.Context, text string, s model.Settings) ([]model.Correction, error)
	Ping(ctx context.Context, s model.Settings) error
}

// SettingsSource loads, updates and broadcasts settings.
type SettingsSource interface {
	Load(ctx context.Context) (model.Settings, error)
	Update(ctx context.Context, patch model.SettingsPatch) (model.Settings, error)
	Reset(ctx context.Context) (model.Settings, error)
	Subscribe(fn func(model.Settings)) func()
}

// StatsStore persists counters and decisions.
type StatsStore interface {
	Stats(ctx context.Context) (model.Stats, error)
	ResetStats(ctx context.Context) error
	RecordDecision(ctx context.Context, d model.Decision) (int64, error)
}

// Result is the outcome of one analysis cycle. Err is nil on success, and
// Corrections may then be empty.
type Result struct {
	Corrections []model.Correction
	Err         error
}

// Kind returns the backend error kind of a failed result.
func (r Result) Kind() backend.ErrorKind {
	return backend.KindOf(r.Err)
}

// Session holds the state shared by analysis cycles of one capture layer.
type Session struct {
	corrector Corrector
	settings  SettingsSource
	stats     StatsStore
	logger    *slog.Logger

	initMu      sync.Mutex
	initialized bool
	unsubscribe func()

	mu       sync.RWMutex
	snapshot model.Settings
}

// NewSession returns an uninitialised Session. stats may be nil, in which case
// the stats actions fail.
func NewSession(c Corrector, settings SettingsSource, stats StatsStore, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		corrector: c,
		settings:  settings,
		stats:     stats,
		logger:    logger,
		snapshot:  model.DefaultSettings(),
	}
}

// Init loads the settings snapshot and subscribes to changes. Calling it
// again after a successful call does nothing.
func (s *Session) Init(ctx context.Context) error {
	s.initMu.Lock()
	defer s.initMu.Unlock()
	if s.initialized {
		return nil
	}
	loaded, err := s.settings.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialise session: %w", err)
	}
	s.setSnapshot(loaded)
	s.unsubscribe = s.settings.Subscribe(s.setSnapshot)
	s.initialized = true
	s.logger.Debug("session initialised", "backend", loaded.Backend, "enabled", loaded.Enabled)
	return nil
}

// Close drops the settings subscription. The session may be initialised again.
func (s *Session) Close() {
	s.initMu.Lock()
	defer s.initMu.Unlock()
	if s.unsubscribe != nil {
		s.unsubscribe()
		s.unsubscribe = nil
	}
	s.initialized = false
}

// Settings returns the current settings snapshot.
func (s *Session) Settings() model.Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot
}

func (s *Session) setSnapshot(v model.Settings) {
	s.mu.Lock()
	s.snapshot = v
	s.mu.Unlock()
}

// GetCorrections runs one analysis cycle for text.
func (s *Session) GetCorrections(ctx context.Context, text string) Result {
	if err := s.Init(ctx); err != nil {
		return Result{Err: err}
	}
	corrections, err := s.corrector.RequestCorrections(ctx, text, s.Settings())
	if err != nil {
		return Result{Err: err}
	}
	return Result{Corrections: corrections}
}

// Analyze is GetCorrections in the (value, error) form used by capture
// controllers.
func (s *Session) Analyze(ctx context.Context, text string) ([]model.Correction, error) {
	r := s.GetCorrections(ctx, text)
	return r.Corrections, r.Err
}

// UpdateSettings persists a partial update and refreshes the snapshot.
func (s *Session) UpdateSettings(ctx context.Context, patch model.SettingsPatch) (model.Settings, error) {
	if err := s.Init(ctx); err != nil {
		return model.Settings{}, err
	}
	updated, err := s.settings.Update(ctx, patch)
	if err != nil {
		return model.Settings{}, err
	}
	s.setSnapshot(updated)
	return updated, nil
}

// ResetSettings clears every stored setting.
func (s *Session) ResetSettings(ctx context.Context) (model.Settings, error) {
	if err := s.Init(ctx); err != nil {
		return model.Settings{}, err
	}
	reset, err := s.settings.Reset(ctx)
	if err != nil {
		return model.Settings{}, err
	}
	s.setSnapshot(reset)
	return reset, nil
}

// TestConnection pings the backend with the snapshot overlaid by patch.
// Nothing is persisted.
func (s *Session) TestConnection(ctx context.Context, patch model.SettingsPatch) error {
	if err := s.Init(ctx); err != nil {
		return err
	}
	return s.corrector.Ping(ctx, Apply(s.Settings(), patch))
}

// Apply returns base with the fields set in patch.
func Apply(base model.Settings, patch model.SettingsPatch) model.Settings {
	if patch.Enabled != nil {
		base.Enabled = *patch.Enabled
	}
	if patch.Backend != nil {
		base.Backend = *patch.Backend
	}
	if patch.Token != nil {
		base.Token = *patch.Token
	}
	if patch.ConfidenceThreshold != nil {
		base.ConfidenceThreshold = *patch.ConfidenceThreshold
	}
	if patch.MaxSuggestions != nil {
		base.MaxSuggestions = *patch.MaxSuggestions
	}
	return base
}
