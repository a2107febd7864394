package tui

import (
	"context"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/raphaelaulasgranger/correcteurOrtho/internal/capture"
	"github.com/raphaelaulasgranger/correcteurOrtho/internal/model"
	"github.com/raphaelaulasgranger/correcteurOrtho/internal/overlay"
)

type fakeSession struct {
	mu       sync.Mutex
	settings model.Settings
	updates  int
}

func (f *fakeSession) Settings() model.Settings {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.settings
}

func (f *fakeSession) UpdateSettings(_ context.Context, p model.SettingsPatch) (model.Settings, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p.Enabled != nil {
		f.settings.Enabled = *p.Enabled
	}
	f.updates++
	return f.settings, nil
}

func (f *fakeSession) Analyze(context.Context, string) ([]model.Correction, error) {
	return []model.Correction{}, nil
}

type fakeStats struct {
	mu    sync.Mutex
	stats model.Stats
}

func (f *fakeStats) Stats(context.Context) (model.Stats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stats, nil
}

func (f *fakeStats) IncrementStat(_ context.Context, name string, delta int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stats.CorrectionsCount += delta
	return nil
}

func (f *fakeStats) RecordDecision(_ context.Context, d model.Decision) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if d.Action == model.ActionAccepted {
		f.stats.AcceptedCount++
	} else {
		f.stats.IgnoredCount++
	}
	return 1, nil
}

func newTestModel(t *testing.T) (*Model, *fakeSession, *fakeStats) {
	t.Helper()
	session := &fakeSession{settings: model.DefaultSettings()}
	stats := &fakeStats{}
	m := NewModel(session, overlay.New(overlay.WithRecorder(stats)), stats, capture.Config{}, nil)
	t.Cleanup(m.Close)
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	return m, session, stats
}

func typeText(m *Model, text string) {
	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(text)})
}

func key(m *Model, k tea.KeyType) {
	m.Update(tea.KeyMsg{Type: k})
}

func TestTypingEditsFocusedField(t *testing.T) {
	m, _, _ := newTestModel(t)

	typeText(m, "Objet")
	key(m, tea.KeyEnter)
	typeText(m, "Il est")
	key(m, tea.KeyEnter)
	typeText(m, "partit")
	key(m, tea.KeyBackspace)

	if got := m.Field("subject").Text(); got != "Objet" {
		t.Fatalf("unexpected subject %q", got)
	}
	if got := m.Field("body").Text(); got != "Il est\nparti" {
		t.Fatalf("unexpected body %q", got)
	}
}

func TestSubjectRejectsNewlines(t *testing.T) {
	m, _, _ := newTestModel(t)
	typeText(m, "a\nb")
	if got := m.Field("subject").Text(); got != "ab" {
		t.Fatalf("unexpected subject %q", got)
	}
}

func TestAcceptAppliesSuggestion(t *testing.T) {
	m, _, stats := newTestModel(t)
	key(m, tea.KeyTab)
	typeText(m, "Il est partit.")

	m.Update(correctionsMsg{fieldID: "body", text: "Il est partit.", corrections: []model.Correction{{
		Original:   "Il est partit.",
		Suggestion: "Il est parti.",
		Confidence: 0.7,
		Kind:       model.KindFullRewrite,
		Span:       model.Span{Start: 0, End: 14},
	}}})
	if n := len(m.presenter.Markers("body")); n != 1 {
		t.Fatalf("expected 1 marker, got %d", n)
	}
	if m.counters.CorrectionsCount != 1 {
		t.Fatalf("expected counters to refresh, got %+v", m.counters)
	}

	key(m, tea.KeyCtrlN)
	if _, ok := m.presenter.OpenMarker(); !ok {
		t.Fatalf("expected the popup to open on selection")
	}
	key(m, tea.KeyCtrlY)

	if got := m.Field("body").Text(); got != "Il est parti." {
		t.Fatalf("unexpected body %q", got)
	}
	if len(m.presenter.Markers("body")) != 0 {
		t.Fatalf("accepted marker still shown")
	}
	if stats.stats.AcceptedCount != 1 || m.counters.AcceptedCount != 1 {
		t.Fatalf("unexpected stats %+v", stats.stats)
	}
}

func TestIgnoreKeepsText(t *testing.T) {
	m, _, stats := newTestModel(t)
	typeText(m, "Bonjour tout le monde")
	m.Update(correctionsMsg{fieldID: "subject", text: "Bonjour tout le monde", corrections: []model.Correction{{
		Original:   "Bonjour tout le monde",
		Suggestion: "Bonjour à tous",
		Confidence: 0.8,
		Kind:       model.KindSpelling,
		Span:       model.Span{Start: 0, End: 21},
	}}})

	key(m, tea.KeyCtrlN)
	key(m, tea.KeyCtrlX)
	if got := m.Field("subject").Text(); got != "Bonjour tout le monde" {
		t.Fatalf("ignore changed the text: %q", got)
	}
	if stats.stats.IgnoredCount != 1 {
		t.Fatalf("unexpected stats %+v", stats.stats)
	}
	key(m, tea.KeyCtrlY)
	if m.status != "no suggestion selected" {
		t.Fatalf("unexpected status %q", m.status)
	}
}

func TestEscAndTypingDismissPopup(t *testing.T) {
	m, _, _ := newTestModel(t)
	typeText(m, "Bonjour tout le monde")
	m.Update(correctionsMsg{fieldID: "subject", corrections: []model.Correction{
		{Original: "Bonjour tout le monde", Suggestion: "a", Confidence: 0.9, Kind: model.KindSpelling, Span: model.Span{End: 21}},
		{Original: "Bonjour tout le monde", Suggestion: "b", Confidence: 0.8, Kind: model.KindSpelling, Span: model.Span{End: 21}},
	}})

	key(m, tea.KeyCtrlN)
	key(m, tea.KeyCtrlN)
	open, ok := m.presenter.OpenMarker()
	if !ok || open.Correction.Suggestion != "b" {
		t.Fatalf("expected second marker popup, got %+v", open)
	}
	key(m, tea.KeyEsc)
	if _, ok := m.presenter.OpenMarker(); ok {
		t.Fatalf("esc must close the popup")
	}

	key(m, tea.KeyCtrlO)
	if _, ok := m.presenter.OpenMarker(); !ok {
		t.Fatalf("ctrl+o must open a popup")
	}
	typeText(m, "!")
	if _, ok := m.presenter.OpenMarker(); ok {
		t.Fatalf("typing must close the popup")
	}
}

func TestCtrlOReopensSelectedMarker(t *testing.T) {
	m, _, _ := newTestModel(t)
	typeText(m, "Bonjour tout le monde")
	m.Update(correctionsMsg{fieldID: "subject", corrections: []model.Correction{
		{Original: "Bonjour tout le monde", Suggestion: "a", Confidence: 0.9, Kind: model.KindSpelling, Span: model.Span{End: 21}},
		{Original: "Bonjour tout le monde", Suggestion: "b", Confidence: 0.8, Kind: model.KindSpelling, Span: model.Span{End: 21}},
	}})

	key(m, tea.KeyCtrlN)
	key(m, tea.KeyCtrlN)
	key(m, tea.KeyCtrlO)
	if _, ok := m.presenter.OpenMarker(); ok {
		t.Fatalf("ctrl+o must close the open popup")
	}
	key(m, tea.KeyCtrlO)
	open, ok := m.presenter.OpenMarker()
	if !ok || open.Correction.Suggestion != "b" {
		t.Fatalf("expected the selected marker to reopen, got %+v", open)
	}
}

func TestToggleEnabledClearsMarkers(t *testing.T) {
	m, session, _ := newTestModel(t)
	typeText(m, "Bonjour tout le monde")
	m.Update(correctionsMsg{fieldID: "subject", corrections: []model.Correction{
		{Original: "Bonjour tout le monde", Suggestion: "a", Confidence: 0.9, Kind: model.KindSpelling, Span: model.Span{End: 21}},
	}})

	key(m, tea.KeyCtrlE)
	if session.Settings().Enabled {
		t.Fatalf("expected corrector to be disabled")
	}
	if len(m.presenter.Markers("subject")) != 0 {
		t.Fatalf("disabling must clear markers")
	}
	if !containsAll(m.View(), []string{"OFF"}) {
		t.Fatalf("header must show the disabled state")
	}
	key(m, tea.KeyCtrlE)
	if !session.Settings().Enabled || session.updates != 2 {
		t.Fatalf("expected corrector to be enabled again")
	}
}

func TestViewShowsMarkersUnderField(t *testing.T) {
	m, _, _ := newTestModel(t)
	typeText(m, "Bonjour tout le monde")
	m.Update(correctionsMsg{fieldID: "subject", corrections: []model.Correction{
		{Original: "Bonjour tout le monde", Suggestion: "Bonjour à tous", Confidence: 0.92, Kind: model.KindSpelling, Span: model.Span{End: 21}},
	}})
	key(m, tea.KeyCtrlN)

	view := m.View()
	if !containsAll(view, []string{"Subject", "Body", "~ Bonjour à tous (92%)", "Suggestion: Bonjour à tous", "ctrl+y accept"}) {
		t.Fatalf("view missing marker or popup:\n%s", view)
	}
}
