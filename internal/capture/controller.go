package capture

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/benbjohnson/clock"

	"github.com/raphaelaulasgranger/correcteurOrtho/internal/model"
)

// Defaults for Config.
const (
	DefaultDelay     = 500 * time.Millisecond
	DefaultMinLength = 10
)

// Config tunes a Controller. Zero values select the defaults.
type Config struct {
	Delay     time.Duration
	MinLength int
	Clock     clock.Clock
}

// AnalyzeFunc returns the corrections for text.
type AnalyzeFunc func(ctx context.Context, text string) ([]model.Correction, error)

// Sink receives the corrections found for a surface's text.
type Sink func(s Surface, text string, corrections []model.Correction)

// Controller debounces edits and dispatches analyses of the last modified
// surface. Results are handed to the sink in completion order.
type Controller struct {
	minLength int
	settings  func() model.Settings
	analyze   AnalyzeFunc
	sink      Sink
	logger    *slog.Logger
	debouncer *Debouncer

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	last    Surface
	stopped bool
}

// NewController returns a running Controller. settings is called for a fresh
// snapshot on every edit and every trigger.
func NewController(cfg Config, settings func() model.Settings, analyze AnalyzeFunc, sink Sink, logger *slog.Logger) *Controller {
	if cfg.Delay <= 0 {
		cfg.Delay = DefaultDelay
	}
	if cfg.MinLength <= 0 {
		cfg.MinLength = DefaultMinLength
	}
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Controller{
		minLength: cfg.MinLength,
		settings:  settings,
		analyze:   analyze,
		sink:      sink,
		logger:    logger,
		debouncer: NewDebouncer(cfg.Clock, cfg.Delay),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Observe records an edit of s.
func (c *Controller) Observe(s Surface) {
	if s == nil || !Editable(s.Kind(), s.InputType()) {
		return
	}
	if !c.settings().Enabled {
		return
	}
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return
	}
	c.last = s
	c.mu.Unlock()
	c.debouncer.Arm(c.fire)
}

// LastModified returns the surface of the most recent observed edit.
func (c *Controller) LastModified() Surface {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last
}

// Stop cancels the pending trigger and outstanding analyses and waits for
// them to return.
func (c *Controller) Stop() {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return
	}
	c.stopped = true
	c.mu.Unlock()

	c.debouncer.Stop()
	c.cancel()
	c.wg.Wait()
}

func (c *Controller) fire() {
	s := c.settings()
	if !s.Enabled || s.Token == "" {
		return
	}

	c.mu.Lock()
	if c.stopped || c.last == nil {
		c.mu.Unlock()
		return
	}
	surface := c.last
	text := surface.Text()
	if utf8.RuneCountInString(text) < c.minLength {
		c.mu.Unlock()
		return
	}
	c.wg.Add(1)
	c.mu.Unlock()

	go func() {
		defer c.wg.Done()
		corrections, err := c.analyze(c.ctx, text)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			c.logger.Warn("analysis failed", "surface", surface.ID(), "err", err)
			return
		}
		if c.ctx.Err() != nil {
			return
		}
		c.sink(surface, text, corrections)
	}()
}
