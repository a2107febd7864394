// Package tui provides the Bubble Tea correction editor.
package tui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/raphaelaulasgranger/correcteurOrtho/internal/capture"
	"github.com/raphaelaulasgranger/correcteurOrtho/internal/model"
	"github.com/raphaelaulasgranger/correcteurOrtho/internal/overlay"
)

// Session is the part of the coordinator the editor drives.
type Session interface {
	Settings() model.Settings
	UpdateSettings(ctx context.Context, patch model.SettingsPatch) (model.Settings, error)
	Analyze(ctx context.Context, text string) ([]model.Correction, error)
}

// StatsSource reads the persisted counters.
type StatsSource interface {
	Stats(ctx context.Context) (model.Stats, error)
}

// SettingsChangedMsg tells the editor that settings changed elsewhere.
type SettingsChangedMsg struct {
	Settings model.Settings
}

type correctionsMsg struct {
	fieldID     string
	text        string
	corrections []model.Correction
}

const (
	minBodyLines  = 5
	minFieldWidth = 20
)

// Model implements the Bubble Tea editor.
type Model struct {
	session    Session
	presenter  *overlay.Presenter
	stats      StatsSource
	controller *capture.Controller
	logger     *slog.Logger

	results   chan correctionsMsg
	done      chan struct{}
	closeOnce sync.Once

	fields   []*Field
	focus    int
	selected int

	width  int
	height int

	status   string
	counters model.Stats
}

var (
	titleStyle          = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#F0F0F0"))
	labelStyle          = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	focusedLabelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A"))
	textStyle           = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0"))
	markedStyle         = textStyle.Copy().Underline(true).Foreground(lipgloss.Color("#FF4D4F"))
	cursorStyle         = lipgloss.NewStyle().Reverse(true)
	fieldStyle          = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#4A4A4A")).Padding(0, 1)
	focusedFieldStyle   = fieldStyle.Copy().BorderForeground(lipgloss.Color("#C89A3A"))
	markerStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	selectedMarkerStyle = markerStyle.Copy().Bold(true).Underline(true)
	popupStyle          = lipgloss.NewStyle().Border(lipgloss.NormalBorder()).BorderForeground(lipgloss.Color("#FF4D4F")).Padding(0, 1)
	onStyle             = lipgloss.NewStyle().Foreground(lipgloss.Color("#4CAF50")).Bold(true)
	offStyle            = lipgloss.NewStyle().Foreground(lipgloss.Color("#F44336")).Bold(true)
	footerStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
)

// NewModel constructs the editor. Close must be called once the program exits.
func NewModel(session Session, presenter *overlay.Presenter, stats StatsSource, cfg capture.Config, logger *slog.Logger) *Model {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Model{
		session:   session,
		presenter: presenter,
		stats:     stats,
		logger:    logger,
		results:   make(chan correctionsMsg, 16),
		done:      make(chan struct{}),
		fields:    []*Field{newSubjectField(), newBodyField()},
		selected:  -1,
	}
	for _, f := range m.fields {
		f.onInput = m.observe
	}
	m.controller = capture.NewController(cfg, session.Settings, session.Analyze, m.deliver, logger)
	m.layout()
	m.loadCounters()
	return m
}

// Close stops the capture controller and releases pending deliveries.
func (m *Model) Close() {
	m.closeOnce.Do(func() {
		close(m.done)
		m.controller.Stop()
	})
}

// Field returns the field with the given ID, or nil.
func (m *Model) Field(id string) *Field {
	for _, f := range m.fields {
		if f.ID() == id {
			return f
		}
	}
	return nil
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return m.waitForResult()
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()
		return m, nil
	case correctionsMsg:
		m.present(msg)
		return m, m.waitForResult()
	case SettingsChangedMsg:
		if !msg.Settings.Enabled {
			m.clearMarkers()
		}
		m.status = "settings updated"
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	default:
		return m, nil
	}
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		return m, tea.Quit
	case tea.KeyTab, tea.KeyShiftTab:
		m.presenter.DismissAllPopups()
		m.focus = (m.focus + 1) % len(m.fields)
		m.selected = -1
	case tea.KeyEsc:
		m.presenter.DismissAllPopups()
		m.selected = -1
	case tea.KeyCtrlN:
		m.selectMarker(1)
	case tea.KeyCtrlP:
		m.selectMarker(-1)
	case tea.KeyCtrlO:
		m.togglePopup()
	case tea.KeyCtrlY:
		m.decide(true)
	case tea.KeyCtrlX:
		m.decide(false)
	case tea.KeyCtrlE:
		m.toggleEnabled()
	default:
		m.edit(msg)
	}
	return m, nil
}

func (m *Model) edit(msg tea.KeyMsg) {
	f := m.fields[m.focus]
	changed := false
	switch msg.Type {
	case tea.KeyBackspace:
		changed = f.backspace()
	case tea.KeyDelete:
		changed = f.deleteForward()
	case tea.KeyLeft:
		f.moveCursor(-1)
	case tea.KeyRight:
		f.moveCursor(1)
	case tea.KeyHome:
		f.home()
	case tea.KeyEnd:
		f.end()
	case tea.KeyEnter:
		if !f.multiline {
			m.focus = (m.focus + 1) % len(m.fields)
			m.selected = -1
			return
		}
		changed = f.insert([]rune{'\n'})
	case tea.KeySpace:
		changed = f.insert([]rune{' '})
	case tea.KeyRunes:
		changed = f.insert(msg.Runes)
	default:
		return
	}
	// Any editing key closes popups, like a click outside them.
	m.presenter.DismissAllPopups()
	if changed {
		m.observe(f)
	}
}

func (m *Model) observe(f *Field) {
	m.controller.Observe(f)
}

func (m *Model) deliver(s capture.Surface, text string, corrections []model.Correction) {
	select {
	case m.results <- correctionsMsg{fieldID: s.ID(), text: text, corrections: corrections}:
	case <-m.done:
	}
}

func (m *Model) waitForResult() tea.Cmd {
	return func() tea.Msg {
		select {
		case msg := <-m.results:
			return msg
		case <-m.done:
			return nil
		}
	}
}

func (m *Model) present(msg correctionsMsg) {
	f := m.Field(msg.fieldID)
	if f == nil {
		return
	}
	m.layout()
	markers := m.presenter.Present(context.Background(), f, msg.corrections)
	if f == m.fields[m.focus] {
		m.selected = -1
	}
	m.loadCounters()
	switch len(markers) {
	case 0:
		m.status = "no suggestion"
	case 1:
		m.status = "1 suggestion"
	default:
		m.status = fmt.Sprintf("%d suggestions", len(markers))
	}
}

func (m *Model) selectMarker(delta int) {
	markers := m.presenter.Markers(m.fields[m.focus].ID())
	n := len(markers)
	if n == 0 {
		m.selected = -1
		m.status = "no suggestion"
		return
	}
	switch {
	case m.selected < 0 && delta > 0:
		m.selected = 0
	case m.selected < 0:
		m.selected = n - 1
	default:
		m.selected = ((m.selected+delta)%n + n) % n
	}
	if err := m.presenter.OpenPopup(markers[m.selected].ID); err != nil {
		m.logger.Debug("open popup", "err", err)
	}
}

func (m *Model) togglePopup() {
	if _, ok := m.presenter.OpenMarker(); ok {
		m.presenter.DismissAllPopups()
		return
	}
	if m.selected < 0 {
		m.selectMarker(1)
		return
	}
	markers := m.presenter.Markers(m.fields[m.focus].ID())
	if m.selected < len(markers) {
		if err := m.presenter.OpenPopup(markers[m.selected].ID); err != nil {
			m.logger.Debug("open popup", "err", err)
		}
	}
}

// currentMarker is the marker with an open popup, else the selected one.
func (m *Model) currentMarker() (overlay.Marker, bool) {
	if mk, ok := m.presenter.OpenMarker(); ok {
		return mk, true
	}
	markers := m.presenter.Markers(m.fields[m.focus].ID())
	if m.selected >= 0 && m.selected < len(markers) {
		return markers[m.selected], true
	}
	return overlay.Marker{}, false
}

func (m *Model) decide(accept bool) {
	mk, ok := m.currentMarker()
	if !ok {
		m.status = "no suggestion selected"
		return
	}
	ctx := context.Background()
	var err error
	if accept {
		err = m.presenter.Accept(ctx, mk.ID)
	} else {
		err = m.presenter.Ignore(ctx, mk.ID)
	}
	m.selected = -1
	m.loadCounters()
	switch {
	case errors.Is(err, overlay.ErrOriginalNotFound):
		m.status = "text changed, suggestion dropped"
	case err != nil:
		m.logger.Warn("marker decision failed", "marker", mk.ID, "err", err)
		m.status = "suggestion no longer available"
	case accept:
		m.status = "suggestion applied"
	default:
		m.status = "suggestion ignored"
	}
}

func (m *Model) toggleEnabled() {
	enabled := !m.session.Settings().Enabled
	if _, err := m.session.UpdateSettings(context.Background(), model.SettingsPatch{Enabled: &enabled}); err != nil {
		m.logger.Error("failed to toggle corrector", "err", err)
		m.status = "could not save settings"
		return
	}
	if enabled {
		m.status = "corrector on"
		return
	}
	m.clearMarkers()
	m.status = "corrector off"
}

func (m *Model) clearMarkers() {
	for _, f := range m.fields {
		m.presenter.Clear(f.ID())
	}
	m.selected = -1
}

func (m *Model) loadCounters() {
	if m.stats == nil {
		return
	}
	s, err := m.stats.Stats(context.Background())
	if err != nil {
		m.logger.Warn("failed to load stats", "err", err)
		return
	}
	m.counters = s
}

func (m *Model) contentWidth() int {
	if m.width == 0 {
		return 60
	}
	return max(int(float64(m.width)*0.70), minFieldWidth)
}

// layout records each field's rectangle so markers can be anchored under it.
func (m *Model) layout() {
	width := m.contentWidth()
	y := 2
	for _, f := range m.fields {
		// Label row, then the bordered box.
		y++
		height := 1
		if f.multiline {
			height = max(minBodyLines, len(m.fieldLines(f, width-2, false)))
		}
		f.setBounds(overlay.Rect{X: 2, Y: y + 1, Width: width, Height: height})
		y += height + 2
		for _, mk := range m.presenter.Markers(f.ID()) {
			y++
			if mk.PopupOpen {
				y += 4
			}
		}
	}
}

func (m *Model) fieldLines(f *Field, width int, showCursor bool) []string {
	runes, cursor := f.snapshot()
	if !showCursor {
		cursor = -1
	}
	var spans []model.Span
	for _, mk := range m.presenter.Markers(f.ID()) {
		spans = append(spans, model.Span{
			Start: min(mk.Correction.Span.Start, len(runes)),
			End:   min(mk.Correction.Span.End, len(runes)),
		})
	}
	return wrapStyledRunes(buildStyledRunes(runes, cursor, spans), width)
}

// View implements tea.Model.
func (m *Model) View() string {
	width := m.contentWidth()
	blocks := []string{m.renderHeader(), ""}
	for i, f := range m.fields {
		blocks = append(blocks, m.renderField(f, i == m.focus, width))
	}
	content := lipgloss.JoinVertical(lipgloss.Left, blocks...)
	footer := m.renderFooter()
	if m.width == 0 || m.height == 0 {
		return content + "\n" + footer
	}
	if m.height < 3 {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Top, content)
	}
	body := lipgloss.Place(m.width, m.height-1, lipgloss.Center, lipgloss.Top, content)
	footerLine := lipgloss.Place(m.width, 1, lipgloss.Center, lipgloss.Center, footer)
	return body + "\n" + footerLine
}

func (m *Model) renderHeader() string {
	state := onStyle.Render("ON")
	if !m.session.Settings().Enabled {
		state = offStyle.Render("OFF")
	}
	return titleStyle.Render("Correcteur") + "  " + state
}

func (m *Model) renderField(f *Field, focused bool, width int) string {
	// The box padding takes two cells.
	lines := m.fieldLines(f, width-2, focused)
	if f.multiline {
		for len(lines) < minBodyLines {
			lines = append(lines, "")
		}
	}
	label, box := labelStyle, fieldStyle
	if focused {
		label, box = focusedLabelStyle, focusedFieldStyle
	}
	parts := []string{
		label.Render(f.label),
		box.Width(width).Render(strings.Join(lines, "\n")),
	}

	bounds := f.Bounds()
	for i, mk := range m.presenter.Markers(f.ID()) {
		indent := strings.Repeat(" ", max(0, mk.Anchor.X-bounds.X))
		style := markerStyle
		if focused && i == m.selected {
			style = selectedMarkerStyle
		}
		text := runewidth.Truncate(strings.Join(strings.Fields(mk.Correction.Suggestion), " "), max(10, width-12), "…")
		parts = append(parts, indent+style.Render(fmt.Sprintf("~ %s (%.0f%%)", text, mk.Correction.Confidence*100)))
		if mk.PopupOpen {
			parts = append(parts, indent+m.renderPopup(mk, width))
		}
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m *Model) renderPopup(mk overlay.Marker, width int) string {
	body := lipgloss.NewStyle().Width(max(10, width-4)).Render("Suggestion: " + mk.Correction.Suggestion)
	actions := footerStyle.Render("ctrl+y accept · ctrl+x ignore · esc close")
	return popupStyle.Render(body + "\n" + actions)
}

func (m *Model) renderFooter() string {
	var segments []string
	if m.status != "" {
		segments = append(segments, m.status)
	}
	segments = append(segments, fmt.Sprintf("Corrections %d · Accepted %d · Ignored %d",
		m.counters.CorrectionsCount, m.counters.AcceptedCount, m.counters.IgnoredCount))
	segments = append(segments, "tab field · ctrl+n/p select · ctrl+e on/off · ctrl+c quit")
	return footerStyle.Render(strings.Join(segments, "  "))
}
