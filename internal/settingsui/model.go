// Package settingsui provides the Bubble Tea settings and statistics interface.
package settingsui

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/raphaelaulasgranger/correcteurOrtho/internal/backend"
	"github.com/raphaelaulasgranger/correcteurOrtho/internal/model"
	"github.com/raphaelaulasgranger/correcteurOrtho/internal/settings"
	"github.com/raphaelaulasgranger/correcteurOrtho/internal/stats"
)

const (
	tabSettings = iota
	tabStats
	tabHistory
)

const (
	fieldEnabled = iota
	fieldBackend
	fieldToken
	fieldThreshold
	fieldMaxSuggestions
)

// HistoryLimit is the number of decisions shown in the history tab.
const HistoryLimit = 100

var fieldKeys = []string{
	settings.KeyEnabled,
	settings.KeyBackend,
	settings.KeyToken,
	settings.KeyConfidenceThreshold,
	settings.KeyMaxSuggestions,
}

var (
	activeNavStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F0F0F0")).
			Bold(true).
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#C89A3A"))
	inactiveNavStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#B0B0B0")).
				Padding(0, 1).
				Border(lipgloss.RoundedBorder(), true).
				BorderForeground(lipgloss.Color("#4A4A4A"))
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#52C41A"))
	cardStyle   = lipgloss.NewStyle().
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#4A4A4A"))
	cardTitleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	cardValueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	tableMutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#B8B8B8"))
	modalStyle      = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#C89A3A")).
			Padding(1, 2)
)

// Session is the part of the coordinator the settings UI drives.
type Session interface {
	Settings() model.Settings
	UpdateSettings(ctx context.Context, patch model.SettingsPatch) (model.Settings, error)
	ResetSettings(ctx context.Context) (model.Settings, error)
	TestConnection(ctx context.Context, patch model.SettingsPatch) error
}

// StatsStore reads and resets usage statistics.
type StatsStore interface {
	stats.Source
	ResetStats(ctx context.Context) error
}

// SettingsChangedMsg tells the UI that settings changed elsewhere.
type SettingsChangedMsg struct {
	Settings model.Settings
}

type connectionMsg struct {
	err error
}

type confirmation struct {
	prompt string
	run    func() error
	done   string
}

// Model implements the Bubble Tea settings UI.
type Model struct {
	session   Session
	store     StatsStore
	endpoints []backend.Endpoint

	current model.Settings
	report  stats.Report
	loadErr string

	tabs         []string
	activeTab    int
	viewports    []viewport.Model
	historyTable table.Model

	width  int
	height int

	editMode   bool
	inputs     []textinput.Model
	inputIndex int
	formError  string

	confirm *confirmation

	testing bool
	status  string
	errMsg  string
}

// NewModel constructs a settings UI model.
func NewModel(session Session, st StatsStore, endpoints backend.Table) *Model {
	m := &Model{
		session:   session,
		store:     st,
		endpoints: endpoints.Endpoints(),
		current:   session.Settings(),
		tabs:      []string{"Settings", "Stats", "History"},
	}
	m.initInputs()
	m.initViewports()
	m.historyTable = buildHistoryTable(nil, 0, 1)
	m.refreshReport()
	return m
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateLayout()
		m.renderTabContents()
		return m, nil
	case SettingsChangedMsg:
		m.current = msg.Settings
		m.renderTabContents()
		return m, nil
	case connectionMsg:
		m.testing = false
		if msg.err != nil {
			m.status = ""
			m.errMsg = connectionError(msg.err)
		} else {
			m.errMsg = ""
			m.status = "Connection OK"
		}
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		if m.confirm != nil {
			return m.updateConfirm(msg)
		}
		if m.editMode {
			return m.updateEdit(msg)
		}
		if msg.String() == "q" {
			return m, tea.Quit
		}
		return m.updateBrowse(msg)
	}
	return m, nil
}

func (m *Model) updateBrowse(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "left", "h":
		m.moveTab(-1)
		return m, tea.ClearScreen
	case "right", "l":
		m.moveTab(1)
		return m, tea.ClearScreen
	case "t":
		return m, m.startTest(model.SettingsPatch{})
	}
	switch m.activeTab {
	case tabSettings:
		switch msg.String() {
		case "e", "enter":
			return m.startEdit()
		case " ":
			enabled := !m.current.Enabled
			m.save(model.SettingsPatch{Enabled: &enabled})
			return m, nil
		case "b":
			next := m.nextBackend(m.current.Backend)
			m.save(model.SettingsPatch{Backend: &next})
			return m, nil
		case "r":
			m.confirm = &confirmation{
				prompt: "Reset all settings to their defaults?",
				run:    m.resetSettings,
				done:   "Settings reset",
			}
			return m, nil
		}
	case tabStats:
		if msg.String() == "r" {
			m.confirm = &confirmation{
				prompt: "Reset all statistics and decision history?",
				run:    m.resetStats,
				done:   "Statistics reset",
			}
			return m, nil
		}
	case tabHistory:
		var cmd tea.Cmd
		m.historyTable, cmd = m.historyTable.Update(msg)
		return m, cmd
	}
	vp := m.viewports[m.activeTab]
	var cmd tea.Cmd
	vp, cmd = vp.Update(msg)
	m.viewports[m.activeTab] = vp
	return m, cmd
}

func (m *Model) updateConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "enter":
		c := m.confirm
		m.confirm = nil
		if err := c.run(); err != nil {
			m.status = ""
			m.errMsg = err.Error()
			return m, nil
		}
		m.errMsg = ""
		m.status = c.done
	case "n", "esc":
		m.confirm = nil
	}
	return m, nil
}

func (m *Model) updateEdit(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.editMode = false
		m.formError = ""
		return m, nil
	case tea.KeyEnter:
		patch, err := m.formPatch()
		if err != nil {
			m.formError = err.Error()
			return m, nil
		}
		m.editMode = false
		m.formError = ""
		m.save(patch)
		return m, nil
	case tea.KeyCtrlT:
		patch, err := m.formPatch()
		if err != nil {
			m.formError = err.Error()
			return m, nil
		}
		m.formError = ""
		return m, m.startTest(patch)
	case tea.KeyTab, tea.KeyDown:
		return m, m.setInputIndex(m.inputIndex + 1)
	case tea.KeyShiftTab, tea.KeyUp:
		return m, m.setInputIndex(m.inputIndex - 1)
	}
	var cmd tea.Cmd
	m.inputs[m.inputIndex], cmd = m.inputs[m.inputIndex].Update(msg)
	return m, cmd
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	if m.confirm != nil {
		return fitLines(m.renderConfirmModal(), m.width, m.height)
	}
	headerHeight, bodyHeight, footerHeight := m.layoutHeights()
	header := fitLines(m.renderHeader(), m.width, headerHeight)
	body := fitLines(m.renderBody(bodyHeight), m.width, bodyHeight)
	footer := fitLines(m.renderFooter(), m.width, footerHeight)
	return strings.Join([]string{header, body, footer}, "\n")
}

func (m *Model) save(patch model.SettingsPatch) {
	updated, err := m.session.UpdateSettings(context.Background(), patch)
	if err != nil {
		m.status = ""
		m.errMsg = err.Error()
		return
	}
	m.current = updated
	m.errMsg = ""
	m.status = "Settings saved"
	m.renderTabContents()
}

func (m *Model) resetSettings() error {
	reset, err := m.session.ResetSettings(context.Background())
	if err != nil {
		return err
	}
	m.current = reset
	m.renderTabContents()
	return nil
}

func (m *Model) resetStats() error {
	if err := m.store.ResetStats(context.Background()); err != nil {
		return err
	}
	m.refreshReport()
	return nil
}

func (m *Model) startTest(patch model.SettingsPatch) tea.Cmd {
	if m.testing {
		return nil
	}
	m.testing = true
	m.errMsg = ""
	m.status = "Testing connection..."
	session := m.session
	return func() tea.Msg {
		return connectionMsg{err: session.TestConnection(context.Background(), patch)}
	}
}

// connectionError turns a probe failure into a message a user can act on.
func connectionError(err error) string {
	switch backend.KindOf(err) {
	case backend.KindMissingCredential:
		return "Connection failed: enter a Hugging Face access token first"
	case backend.KindInvalidCredential:
		return "Connection failed: the access token was rejected"
	case backend.KindBackendNotFound:
		return "Connection failed: the selected model does not exist"
	case backend.KindBackendWarmingUp:
		return "The model is loading, try again in a few seconds"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "Connection failed: request timed out"
	}
	return "Connection failed: " + err.Error()
}

func (m *Model) nextBackend(id model.BackendID) model.BackendID {
	if len(m.endpoints) == 0 {
		return model.DefaultBackend
	}
	for i, ep := range m.endpoints {
		if ep.ID == id {
			return m.endpoints[(i+1)%len(m.endpoints)].ID
		}
	}
	return m.endpoints[0].ID
}

func (m *Model) knownBackend(id model.BackendID) bool {
	for _, ep := range m.endpoints {
		if ep.ID == id {
			return true
		}
	}
	return false
}

func (m *Model) initViewports() {
	m.viewports = make([]viewport.Model, len(m.tabs))
	for i := range m.viewports {
		m.viewports[i] = viewport.New(0, 0)
	}
}

func (m *Model) initInputs() {
	m.inputs = []textinput.Model{
		newFormInput("Enabled (true/false): "),
		newFormInput("Model: "),
		newFormInput("Access token: "),
		newFormInput("Confidence threshold (0-1): "),
		newFormInput("Max suggestions: "),
	}
	m.inputs[fieldToken].EchoMode = textinput.EchoPassword
	m.inputs[fieldToken].EchoCharacter = '*'
	m.inputs[fieldBackend].Placeholder = string(model.DefaultBackend)
	m.inputs[fieldToken].Placeholder = "hf_..."
	m.setInputsFromSettings()
}

func newFormInput(prompt string) textinput.Model {
	input := textinput.New()
	input.Prompt = prompt
	input.CharLimit = 0
	input.Cursor.SetMode(cursor.CursorBlink)
	return input
}

func (m *Model) setInputsFromSettings() {
	s := m.current
	m.inputs[fieldEnabled].SetValue(strconv.FormatBool(s.Enabled))
	m.inputs[fieldBackend].SetValue(string(s.Backend))
	m.inputs[fieldToken].SetValue(s.Token)
	m.inputs[fieldThreshold].SetValue(strconv.FormatFloat(s.ConfidenceThreshold, 'f', -1, 64))
	m.inputs[fieldMaxSuggestions].SetValue(strconv.Itoa(s.MaxSuggestions))
}

func (m *Model) startEdit() (tea.Model, tea.Cmd) {
	m.editMode = true
	m.formError = ""
	m.setInputsFromSettings()
	return m, m.setInputIndex(0)
}

func (m *Model) setInputIndex(idx int) tea.Cmd {
	count := len(m.inputs)
	if idx < 0 {
		idx = count - 1
	}
	if idx >= count {
		idx = 0
	}
	m.inputIndex = idx
	var cmd tea.Cmd
	for i := range m.inputs {
		if i == m.inputIndex {
			cmd = m.inputs[i].Focus()
		} else {
			m.inputs[i].Blur()
		}
	}
	return cmd
}

// formPatch validates the form and returns the fields that differ from the
// current settings.
func (m *Model) formPatch() (model.SettingsPatch, error) {
	var out model.SettingsPatch
	for i, input := range m.inputs {
		value := strings.TrimSpace(input.Value())
		p, err := settings.ParseKeyValue(fieldKeys[i], value)
		if err != nil {
			return model.SettingsPatch{}, err
		}
		mergePatch(&out, p)
	}
	if out.Backend != nil && !m.knownBackend(*out.Backend) {
		return model.SettingsPatch{}, fmt.Errorf("unknown model %q", *out.Backend)
	}
	return changedOnly(m.current, out), nil
}

func mergePatch(dst *model.SettingsPatch, p model.SettingsPatch) {
	if p.Enabled != nil {
		dst.Enabled = p.Enabled
	}
	if p.Backend != nil {
		dst.Backend = p.Backend
	}
	if p.Token != nil {
		dst.Token = p.Token
	}
	if p.ConfidenceThreshold != nil {
		dst.ConfidenceThreshold = p.ConfidenceThreshold
	}
	if p.MaxSuggestions != nil {
		dst.MaxSuggestions = p.MaxSuggestions
	}
}

func changedOnly(s model.Settings, p model.SettingsPatch) model.SettingsPatch {
	if p.Enabled != nil && *p.Enabled == s.Enabled {
		p.Enabled = nil
	}
	if p.Backend != nil && *p.Backend == s.Backend {
		p.Backend = nil
	}
	if p.Token != nil && *p.Token == s.Token {
		p.Token = nil
	}
	if p.ConfidenceThreshold != nil && *p.ConfidenceThreshold == s.ConfidenceThreshold {
		p.ConfidenceThreshold = nil
	}
	if p.MaxSuggestions != nil && *p.MaxSuggestions == s.MaxSuggestions {
		p.MaxSuggestions = nil
	}
	return p
}

func (m *Model) layoutHeights() (headerHeight, bodyHeight, footerHeight int) {
	headerHeight = max(1, lipgloss.Height(activeNavStyle.Render("X")))
	footerHeight = 1
	if m.errMsg != "" || m.status != "" {
		footerHeight++
	}
	bodyHeight = max(1, m.height-headerHeight-footerHeight)
	return headerHeight, bodyHeight, footerHeight
}

func (m *Model) updateLayout() {
	if m.width <= 0 || m.height <= 0 {
		return
	}
	_, vpHeight, _ := m.layoutHeights()
	for i := range m.viewports {
		m.viewports[i].Width = m.width
		m.viewports[i].Height = vpHeight
	}
	m.historyTable.SetWidth(m.width)
	m.historyTable.SetHeight(max(1, vpHeight-1))
	for i := range m.inputs {
		promptWidth := lipgloss.Width(m.inputs[i].Prompt)
		m.inputs[i].Width = max(10, m.width-promptWidth-2)
	}
}

func (m *Model) moveTab(delta int) {
	count := len(m.tabs)
	next := m.activeTab + delta
	if next < 0 {
		next = count - 1
	}
	if next >= count {
		next = 0
	}
	m.activeTab = next
	if m.activeTab == tabHistory {
		m.historyTable.Focus()
	} else {
		m.historyTable.Blur()
	}
}

func (m *Model) renderTabs() string {
	parts := make([]string, 0, len(m.tabs))
	for i, tab := range m.tabs {
		if i == m.activeTab {
			parts = append(parts, activeNavStyle.Render(tab))
		} else {
			parts = append(parts, inactiveNavStyle.Render(tab))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func (m *Model) renderHeader() string {
	return padLines(m.renderTabs(), m.width)
}

func (m *Model) renderHelp() string {
	var help string
	switch {
	case m.editMode:
		help = "tab/shift+tab: next field  enter: save  ctrl+t: test  esc: cancel"
	case m.activeTab == tabSettings:
		help = "Nav: left/right  Edit: e  Toggle: space  Model: b  Test: t  Reset: r  Quit: q"
	case m.activeTab == tabStats:
		help = "Nav: left/right  Test: t  Reset stats: r  Quit: q"
	default:
		help = "Nav: left/right  Scroll: up/down  Test: t  Quit: q"
	}
	return headerStyle.Render(truncateLine(help, m.width))
}

func (m *Model) renderFooter() string {
	switch {
	case m.errMsg != "":
		return m.renderHelp() + "\n" + errorStyle.Render(truncateLine(m.errMsg, m.width))
	case m.status != "":
		return m.renderHelp() + "\n" + okStyle.Render(truncateLine(m.status, m.width))
	}
	return m.renderHelp()
}

func (m *Model) renderForm() string {
	lines := []string{"Edit settings (enter to save, esc to cancel)"}
	for _, input := range m.inputs {
		lines = append(lines, input.View())
	}
	lines = append(lines, "", headerStyle.Render("Models: "+m.backendList()))
	if m.formError != "" {
		lines = append(lines, errorStyle.Render(m.formError))
	}
	return strings.Join(lines, "\n")
}

func (m *Model) renderBody(height int) string {
	if m.editMode {
		return fitLines(m.renderForm(), m.width, height)
	}
	if m.activeTab == tabHistory {
		if m.loadErr != "" {
			return fitLines("Failed to load stats.", m.width, height)
		}
		if len(m.report.Recent) == 0 {
			return fitLines("No decisions recorded.", m.width, height)
		}
		return fitLines(tableMutedStyle.Render(m.historyTable.View()), m.width, height)
	}
	return fitLines(m.viewports[m.activeTab].View(), m.width, height)
}

func (m *Model) renderConfirmModal() string {
	body := []string{
		cardValueStyle.Render("Confirm"),
		m.confirm.prompt,
		headerStyle.Render("y / enter to confirm, n / esc to cancel"),
	}
	box := modalStyle.Width(modalWidth(m.width)).Render(strings.Join(body, "\n"))
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}

func (m *Model) refreshReport() {
	report, err := stats.BuildReport(context.Background(), m.store, HistoryLimit)
	if err != nil {
		m.loadErr = err.Error()
		m.errMsg = err.Error()
		m.renderTabContents()
		return
	}
	m.loadErr = ""
	m.report = report
	m.historyTable.SetRows(historyRows(report.Recent))
	m.renderTabContents()
}

func (m *Model) renderTabContents() {
	if len(m.viewports) == 0 {
		return
	}
	width := m.width
	if width <= 0 {
		width = 80
	}
	m.viewports[tabSettings].SetContent(m.renderSettings(width))
	if m.loadErr != "" {
		m.viewports[tabStats].SetContent("Failed to load stats.")
		return
	}
	m.viewports[tabStats].SetContent(renderStatsCards(m.report, width))
}

func (m *Model) renderSettings(width int) string {
	s := m.current
	enabled := errorStyle.Render("off")
	if s.Enabled {
		enabled = okStyle.Render("on")
	}
	lines := []string{
		cardTitleStyle.Render("Corrector  ") + enabled,
		cardTitleStyle.Render("Model      ") + cardValueStyle.Render(string(s.Backend)),
		cardTitleStyle.Render("Token      ") + maskToken(s.Token),
		cardTitleStyle.Render("Threshold  ") + strconv.FormatFloat(s.ConfidenceThreshold, 'f', -1, 64),
		cardTitleStyle.Render("Max        ") + strconv.Itoa(s.MaxSuggestions),
		"",
		"Available models",
	}
	for _, ep := range m.endpoints {
		mark := "  "
		if ep.ID == s.Backend {
			mark = "> "
		}
		lines = append(lines, truncateLine(fmt.Sprintf("%s%-12s %s", mark, ep.ID, ep.Description), width))
	}
	if s.Token == "" {
		lines = append(lines, "", errorStyle.Render("No access token set: corrections are disabled."))
	}
	return strings.Join(lines, "\n")
}

func (m *Model) backendList() string {
	ids := make([]string, 0, len(m.endpoints))
	for _, ep := range m.endpoints {
		ids = append(ids, string(ep.ID))
	}
	return strings.Join(ids, ", ")
}

func maskToken(token string) string {
	switch {
	case token == "":
		return "(not set)"
	case len(token) <= 4:
		return "****"
	default:
		return "****" + token[len(token)-4:]
	}
}

func renderStatsCards(r stats.Report, width int) string {
	s := r.Stats
	rate := "n/a"
	if r.Decided() > 0 {
		rate = fmt.Sprintf("%.1f%%", stats.AcceptanceRate(s)*100)
	}
	cards := []string{
		metricCard("Corrections", strconv.FormatInt(s.CorrectionsCount, 10)),
		metricCard("Accepted", strconv.FormatInt(s.AcceptedCount, 10)),
		metricCard("Ignored", strconv.FormatInt(s.IgnoredCount, 10)),
		metricCard("Pending", strconv.FormatInt(stats.Pending(s), 10)),
		metricCard("Acceptance", rate),
	}
	var summary string
	if width < 80 {
		summary = strings.Join(cards, "\n")
	} else {
		row1 := lipgloss.JoinHorizontal(lipgloss.Top, cards[0], cards[1], cards[2])
		row2 := lipgloss.JoinHorizontal(lipgloss.Top, cards[3], cards[4])
		summary = lipgloss.JoinVertical(lipgloss.Left, row1, row2)
	}
	if len(r.Recent) < 2 {
		return summary
	}
	trend := stats.MovingAverage(stats.AcceptanceSeries(r.Recent), stats.TrendWindow)
	line := truncateLine(stats.Sparkline(trend), max(1, width-2))
	return summary + "\n\n" + cardTitleStyle.Render("Acceptance trend (oldest to newest)") + "\n" + line
}

func metricCard(label, value string) string {
	content := fmt.Sprintf("%s\n%s", cardTitleStyle.Render(label), cardValueStyle.Render(value))
	return cardStyle.Render(content)
}

func buildHistoryTable(decisions []model.Decision, width, height int) table.Model {
	columns := []table.Column{
		{Title: "When", Width: 16},
		{Title: "Action", Width: 8},
		{Title: "Type", Width: 11},
		{Title: "Confidence", Width: 10},
		{Title: "Original", Width: stats.MaxTextWidth},
		{Title: "Suggestion", Width: stats.MaxTextWidth},
	}
	t := table.New(
		table.WithColumns(columns),
		table.WithRows(historyRows(decisions)),
		table.WithHeight(max(1, height-1)),
	)
	t.SetWidth(width)
	t.SetStyles(historyTableStyles())
	return t
}

func historyRows(decisions []model.Decision) []table.Row {
	rows := make([]table.Row, 0, len(decisions))
	for _, d := range decisions {
		rows = append(rows, table.Row(stats.DecisionRow(d)))
	}
	return rows
}

func historyTableStyles() table.Styles {
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		Border(lipgloss.NormalBorder(), false, false, true, false).
		BorderForeground(lipgloss.Color("#4A4A4A")).
		Foreground(lipgloss.Color("#C0C0C0")).
		Bold(true).
		Padding(0, 1).
		PaddingLeft(0)
	styles.Cell = styles.Cell.
		Padding(0, 1).
		PaddingLeft(0)
	styles.Selected = styles.Cell.
		Foreground(lipgloss.Color("#F0F0F0")).
		Bold(true)
	return styles
}

func modalWidth(width int) int {
	return max(40, min(width-4, 80))
}

func padLines(s string, width int) string {
	if width <= 0 || s == "" {
		return s
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = padLine(line, width)
	}
	return strings.Join(lines, "\n")
}

func padLine(line string, width int) string {
	lineWidth := lipgloss.Width(line)
	if lineWidth < width {
		return line + strings.Repeat(" ", width-lineWidth)
	}
	return line
}

func fitLines(s string, width, height int) string {
	if width <= 0 || height <= 0 {
		return s
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = padLine(line, width)
	}
	if len(lines) > height {
		lines = lines[:height]
	}
	for len(lines) < height {
		lines = append(lines, strings.Repeat(" ", width))
	}
	return strings.Join(lines, "\n")
}

func truncateLine(s string, width int) string {
	if width <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	if width <= 3 {
		return string(runes[:width])
	}
	return string(runes[:width-3]) + "..."
}
