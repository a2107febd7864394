// Package overlay keeps the correction markers shown under editable elements
// and applies the user's accept or ignore decisions.
//
// Every marker belongs to exactly one element. Presenting new corrections for
// an element first destroys its existing markers, so the latest analysis
// always wins. Accept and Ignore are terminal: the marker is gone afterwards.
package overlay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/raphaelaulasgranger/correcteurOrtho/internal/model"
	"github.com/raphaelaulasgranger/correcteurOrtho/internal/observe"
	"github.com/raphaelaulasgranger/correcteurOrtho/internal/store"
)

var (
	// ErrMarkerNotFound is returned for an unknown or destroyed marker.
	ErrMarkerNotFound = errors.New("marker not found")
	// ErrOriginalNotFound is returned by Accept when the element text no
	// longer contains the corrected fragment.
	ErrOriginalNotFound = errors.New("original text no longer present")
)

// Rect is an element's layout rectangle in cells.
type Rect struct {
	X, Y          int
	Width, Height int
}

// Point is a cell position.
type Point struct {
	X, Y int
}

// Element is an editable element markers can be attached to.
type Element interface {
	ID() string
	Text() string
	SetText(string)
	Bounds() Rect
	// NotifyInput signals that the text changed programmatically.
	NotifyInput()
}

// Recorder persists usage counters and decisions.
type Recorder interface {
	IncrementStat(ctx context.Context, name string, delta int64) error
	RecordDecision(ctx context.Context, d model.Decision) (int64, error)
}

// Marker is a snapshot of one live marker.
type Marker struct {
	ID         string
	ElementID  string
	Correction model.Correction
	Anchor     Point
	PopupOpen  bool
}

type liveMarker struct {
	id         string
	elementID  string
	element    Element
	correction model.Correction
	anchor     Point
}

// Presenter owns all markers. It is safe for concurrent use; element methods
// are never called with the presenter lock held.
type Presenter struct {
	recorder   Recorder
	metrics    *observe.Metrics
	logger     *slog.Logger
	maxMarkers int
	now        func() time.Time

	mu        sync.Mutex
	seq       uint64
	markers   map[string]*liveMarker
	byElement map[string][]string
	open      string
}

// Option configures a Presenter.
type Option func(*Presenter)

// WithRecorder persists counters and decisions through r.
func WithRecorder(r Recorder) Option {
	return func(p *Presenter) { p.recorder = r }
}

// WithMetrics counts presented markers on m.
func WithMetrics(m *observe.Metrics) Option {
	return func(p *Presenter) { p.metrics = m }
}

// WithLogger sets the logger for recorder failures.
func WithLogger(l *slog.Logger) Option {
	return func(p *Presenter) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithMaxMarkers caps the markers created per Present call. Zero means no cap.
func WithMaxMarkers(n int) Option {
	return func(p *Presenter) { p.maxMarkers = n }
}

// New returns an empty Presenter.
func New(opts ...Option) *Presenter {
	p := &Presenter{
		logger:    slog.Default(),
		now:       time.Now,
		markers:   make(map[string]*liveMarker),
		byElement: make(map[string][]string),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Present replaces el's markers with one marker per correction. Markers are
// anchored under el and stacked one row apart.
func (p *Presenter) Present(ctx context.Context, el Element, corrections []model.Correction) []Marker {
	if p.maxMarkers > 0 && len(corrections) > p.maxMarkers {
		corrections = corrections[:p.maxMarkers]
	}
	bounds := el.Bounds()
	elID := el.ID()

	p.mu.Lock()
	p.clearLocked(elID)
	out := make([]Marker, 0, len(corrections))
	ids := make([]string, 0, len(corrections))
	for i, c := range corrections {
		p.seq++
		m := &liveMarker{
			id:         fmt.Sprintf("m%d", p.seq),
			elementID:  elID,
			element:    el,
			correction: c,
			anchor: Point{
				X: bounds.X + clampColumn(c.Span.Start, bounds.Width),
				Y: bounds.Y + bounds.Height + i,
			},
		}
		p.markers[m.id] = m
		ids = append(ids, m.id)
		out = append(out, m.snapshot(false))
	}
	if len(ids) > 0 {
		p.byElement[elID] = ids
	}
	p.mu.Unlock()

	if n := len(out); n > 0 {
		p.metrics.RecordPresented(ctx, n)
		p.incrementStat(ctx, store.StatCorrections, int64(n))
	}
	return out
}

func clampColumn(col, width int) int {
	if col < 0 || width <= 0 {
		return 0
	}
	if col >= width {
		return width - 1
	}
	return col
}

// Accept applies the marker's suggestion to its element and destroys the
// marker. A whole-text correction replaces the full content while it is
// unchanged; otherwise the first occurrence of the original fragment is
// replaced. The marker is destroyed even when the fragment is gone.
func (p *Presenter) Accept(ctx context.Context, id string) error {
	m, err := p.take(id)
	if err != nil {
		return err
	}

	text := m.element.Text()
	var next string
	switch {
	case m.correction.WholeText() && text == m.correction.Original:
		next = m.correction.Suggestion
	case m.correction.Original != "" && strings.Contains(text, m.correction.Original):
		next = strings.Replace(text, m.correction.Original, m.correction.Suggestion, 1)
	default:
		return fmt.Errorf("accept %s: %w", id, ErrOriginalNotFound)
	}
	m.element.SetText(next)
	m.element.NotifyInput()

	p.recordDecision(ctx, m.correction, model.ActionAccepted)
	return nil
}

// Ignore destroys the marker without touching its element.
func (p *Presenter) Ignore(ctx context.Context, id string) error {
	m, err := p.take(id)
	if err != nil {
		return err
	}
	p.recordDecision(ctx, m.correction, model.ActionIgnored)
	return nil
}

// OpenPopup shows the popup of marker id and hides any other.
func (p *Presenter) OpenPopup(id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.markers[id]; !ok {
		return fmt.Errorf("open popup %s: %w", id, ErrMarkerNotFound)
	}
	p.open = id
	return nil
}

// DismissAllPopups hides every popup.
func (p *Presenter) DismissAllPopups() {
	p.mu.Lock()
	p.open = ""
	p.mu.Unlock()
}

// Clear destroys every marker of the element.
func (p *Presenter) Clear(elementID string) {
	p.mu.Lock()
	p.clearLocked(elementID)
	p.mu.Unlock()
}

// Markers returns the element's markers in presentation order.
func (p *Presenter) Markers(elementID string) []Marker {
	p.mu.Lock()
	defer p.mu.Unlock()
	ids := p.byElement[elementID]
	out := make([]Marker, 0, len(ids))
	for _, id := range ids {
		out = append(out, p.markers[id].snapshot(id == p.open))
	}
	return out
}

// Marker returns the live marker with the given ID.
func (p *Presenter) Marker(id string) (Marker, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	m, ok := p.markers[id]
	if !ok {
		return Marker{}, false
	}
	return m.snapshot(id == p.open), true
}

// OpenMarker returns the marker whose popup is visible, if any.
func (p *Presenter) OpenMarker() (Marker, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.open == "" {
		return Marker{}, false
	}
	return p.markers[p.open].snapshot(true), true
}

func (p *Presenter) take(id string) (*liveMarker, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	m, ok := p.markers[id]
	if !ok {
		return nil, fmt.Errorf("marker %s: %w", id, ErrMarkerNotFound)
	}
	p.removeLocked(m)
	return m, nil
}

func (p *Presenter) clearLocked(elementID string) {
	for _, id := range p.byElement[elementID] {
		if p.open == id {
			p.open = ""
		}
		delete(p.markers, id)
	}
	delete(p.byElement, elementID)
}

func (p *Presenter) removeLocked(m *liveMarker) {
	delete(p.markers, m.id)
	if p.open == m.id {
		p.open = ""
	}
	elID := m.elementID
	ids := p.byElement[elID]
	for i, id := range ids {
		if id == m.id {
			ids = append(ids[:i:i], ids[i+1:]...)
			break
		}
	}
	if len(ids) == 0 {
		delete(p.byElement, elID)
		return
	}
	p.byElement[elID] = ids
}

func (m *liveMarker) snapshot(open bool) Marker {
	return Marker{
		ID:         m.id,
		ElementID:  m.elementID,
		Correction: m.correction,
		Anchor:     m.anchor,
		PopupOpen:  open,
	}
}

func (p *Presenter) incrementStat(ctx context.Context, name string, delta int64) {
	if p.recorder == nil {
		return
	}
	if err := p.recorder.IncrementStat(ctx, name, delta); err != nil {
		p.logger.Warn("failed to record stat", "name", name, "err", err)
	}
}

func (p *Presenter) recordDecision(ctx context.Context, c model.Correction, action model.Action) {
	if p.recorder == nil {
		return
	}
	_, err := p.recorder.RecordDecision(ctx, model.Decision{
		Original:   c.Original,
		Suggestion: c.Suggestion,
		Kind:       c.Kind,
		Confidence: c.Confidence,
		Action:     action,
		DecidedAt:  p.now(),
	})
	if err != nil {
		p.logger.Warn("failed to record decision", "action", action, "err", err)
	}
}
