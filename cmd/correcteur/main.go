// Package main provides the CLI entrypoint for correcteur.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/raphaelaulasgranger/correcteurOrtho/internal/backend"
	"github.com/raphaelaulasgranger/correcteurOrtho/internal/capture"
	"github.com/raphaelaulasgranger/correcteurOrtho/internal/config"
	"github.com/raphaelaulasgranger/correcteurOrtho/internal/coordinator"
	"github.com/raphaelaulasgranger/correcteurOrtho/internal/model"
	"github.com/raphaelaulasgranger/correcteurOrtho/internal/nativemsg"
	"github.com/raphaelaulasgranger/correcteurOrtho/internal/observe"
	"github.com/raphaelaulasgranger/correcteurOrtho/internal/overlay"
	"github.com/raphaelaulasgranger/correcteurOrtho/internal/settings"
	"github.com/raphaelaulasgranger/correcteurOrtho/internal/settingsui"
	"github.com/raphaelaulasgranger/correcteurOrtho/internal/stats"
	"github.com/raphaelaulasgranger/correcteurOrtho/internal/tui"
)

const (
	defaultLogLevel       = "info"
	defaultTimeoutSeconds = 30
	defaultDebounceMs     = 500
	defaultMinLength      = 10
)

var (
	logLevel       string
	dbPath         string
	timeoutSeconds int

	editorDebounceMs int
	editorMinLength  int

	statsReset  bool
	statsRecent int

	checkJSON bool

	testToken   string
	testBackend string
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "correcteur",
		Short:         "French spelling correction editor",
		SilenceUsage:  true,
		SilenceErrors: false,
		Args:          cobra.NoArgs,
		RunE:          runEditorCmd,
	}

	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", defaultLogLevel, "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", config.DefaultDBPath(), "settings and stats database")
	rootCmd.PersistentFlags().IntVar(&timeoutSeconds, "timeout", defaultTimeoutSeconds, "backend request timeout in seconds")
	rootCmd.Flags().IntVar(&editorDebounceMs, "debounce-ms", defaultDebounceMs, "delay after the last keystroke before analysis")
	rootCmd.Flags().IntVar(&editorMinLength, "min-length", defaultMinLength, "minimum number of characters to analyse")

	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newSettingsCmd())
	rootCmd.AddCommand(newStatsCmd())
	rootCmd.AddCommand(newCheckCmd())
	rootCmd.AddCommand(newHostCmd())

	return rootCmd
}

func runEditorCmd(cmd *cobra.Command, _ []string) error {
	a, err := openApp(cmd, true)
	if err != nil {
		return err
	}
	defer a.close()

	applyIntConfig(cmd, "debounce-ms", &editorDebounceMs, a.cfg.Editor.DebounceMs)
	applyIntConfig(cmd, "min-length", &editorMinLength, a.cfg.Editor.MinLength)
	if editorDebounceMs <= 0 {
		return fmt.Errorf("--debounce-ms must be > 0")
	}
	if editorMinLength <= 0 {
		return fmt.Errorf("--min-length must be > 0")
	}

	stopWatch := a.watchSettings(cmd.Context())
	defer stopWatch()

	presenter := overlay.New(
		overlay.WithRecorder(a.store),
		overlay.WithMetrics(observe.Default()),
		overlay.WithLogger(a.logger),
	)
	captureCfg := capture.Config{
		Delay:     time.Duration(editorDebounceMs) * time.Millisecond,
		MinLength: editorMinLength,
	}
	m := tui.NewModel(a.session, presenter, a.store, captureCfg, a.logger)
	defer m.Close()

	program := tea.NewProgram(m, tea.WithAltScreen())
	unsubscribe := a.adapter.Subscribe(func(s model.Settings) {
		// Subscribers run inside UpdateSettings, which the UI calls from its event loop.
		go program.Send(tui.SettingsChangedMsg{Settings: s})
	})
	defer unsubscribe()

	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	return nil
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := config.DefaultConfigPath()
	if err := ensureConfigFile(path); err != nil {
		return err
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return fmt.Errorf("editor command is empty")
	}
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

func ensureConfigFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}
	return nil
}

func newSettingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Browse and edit settings and stats",
		Args:  cobra.NoArgs,
		RunE:  runSettingsUICmd,
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "get [key]",
		Short: "Print settings",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSettingsGetCmd,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "set <key> <value>",
		Short: "Change one setting",
		Args:  cobra.ExactArgs(2),
		RunE:  runSettingsSetCmd,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "reset",
		Short: "Restore default settings",
		Args:  cobra.NoArgs,
		RunE:  runSettingsResetCmd,
	})
	testCmd := &cobra.Command{
		Use:   "test",
		Short: "Test the connection to the selected model",
		Args:  cobra.NoArgs,
		RunE:  runSettingsTestCmd,
	}
	testCmd.Flags().StringVar(&testToken, "token", "", "access token to test instead of the saved one")
	testCmd.Flags().StringVar(&testBackend, "model", "", "model to test instead of the saved one")
	cmd.AddCommand(testCmd)
	return cmd
}

func runSettingsUICmd(cmd *cobra.Command, _ []string) error {
	a, err := openApp(cmd, true)
	if err != nil {
		return err
	}
	defer a.close()

	stopWatch := a.watchSettings(cmd.Context())
	defer stopWatch()

	m := settingsui.NewModel(a.session, a.store, a.table)
	program := tea.NewProgram(m, tea.WithAltScreen())
	unsubscribe := a.adapter.Subscribe(func(s model.Settings) {
		// Subscribers run inside UpdateSettings, which the UI calls from its event loop.
		go program.Send(settingsui.SettingsChangedMsg{Settings: s})
	})
	defer unsubscribe()

	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run settings TUI: %w", err)
	}
	return nil
}

func runSettingsGetCmd(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd, false)
	if err != nil {
		return err
	}
	defer a.close()

	s := a.session.Settings()
	out := cmd.OutOrStdout()
	if len(args) == 1 {
		value, err := settings.Value(s, args[0])
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(out, value)
		return err
	}
	for _, line := range formatSettings(s) {
		if _, err := fmt.Fprintln(out, line); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	return nil
}

func runSettingsSetCmd(cmd *cobra.Command, args []string) error {
	patch, err := settings.ParseKeyValue(args[0], args[1])
	if err != nil {
		return err
	}
	a, err := openApp(cmd, false)
	if err != nil {
		return err
	}
	defer a.close()

	if patch.Backend != nil && !knownBackend(a.table, *patch.Backend) {
		return fmt.Errorf("unknown model %q (available: %s)", *patch.Backend, backendIDs(a.table))
	}
	if _, err := a.session.UpdateSettings(cmd.Context(), patch); err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), "Settings saved")
	return err
}

func runSettingsResetCmd(cmd *cobra.Command, _ []string) error {
	a, err := openApp(cmd, false)
	if err != nil {
		return err
	}
	defer a.close()

	if _, err := a.session.ResetSettings(cmd.Context()); err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), "Settings reset to defaults")
	return err
}

func runSettingsTestCmd(cmd *cobra.Command, _ []string) error {
	a, err := openApp(cmd, false)
	if err != nil {
		return err
	}
	defer a.close()

	var patch model.SettingsPatch
	if cmd.Flags().Changed("token") {
		patch.Token = &testToken
	}
	if cmd.Flags().Changed("model") {
		id := model.BackendID(strings.TrimSpace(testBackend))
		if !knownBackend(a.table, id) {
			return fmt.Errorf("unknown model %q (available: %s)", id, backendIDs(a.table))
		}
		patch.Backend = &id
	}
	s := coordinator.Apply(a.session.Settings(), patch)
	if err := a.session.TestConnection(cmd.Context(), patch); err != nil {
		return fmt.Errorf("connection to %s failed: %w", s.Backend, err)
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "Connection to %s OK\n", s.Backend)
	return err
}

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show stats",
		Args:  cobra.NoArgs,
		RunE:  runStatsCmd,
	}
	cmd.Flags().BoolVar(&statsReset, "reset", false, "reset counters and decision history")
	cmd.Flags().IntVar(&statsRecent, "recent", stats.DefaultRecent, "number of recent decisions to show")
	return cmd
}

func runStatsCmd(cmd *cobra.Command, _ []string) error {
	if statsRecent <= 0 {
		return fmt.Errorf("--recent must be > 0")
	}
	a, err := openApp(cmd, false)
	if err != nil {
		return err
	}
	defer a.close()

	out := cmd.OutOrStdout()
	if statsReset {
		if err := a.store.ResetStats(cmd.Context()); err != nil {
			return fmt.Errorf("failed to reset stats: %w", err)
		}
		_, err := fmt.Fprintln(out, "Statistics reset")
		return err
	}
	report, err := stats.BuildReport(cmd.Context(), a.store, statsRecent)
	if err != nil {
		return fmt.Errorf("failed to load stats: %w", err)
	}
	if err := stats.RenderSummary(out, report); err != nil {
		return err
	}
	return stats.RenderDecisions(out, report.Recent)
}

func newCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check [text...]",
		Short: "Correct text given as arguments or on stdin",
		RunE:  runCheckCmd,
	}
	cmd.Flags().BoolVar(&checkJSON, "json", false, "print corrections as JSON")
	return cmd
}

func runCheckCmd(cmd *cobra.Command, args []string) error {
	text, err := readCheckInput(cmd.InOrStdin(), args)
	if err != nil {
		return err
	}
	a, err := openApp(cmd, false)
	if err != nil {
		return err
	}
	defer a.close()

	res := a.session.GetCorrections(cmd.Context(), text)
	if res.Err != nil {
		return res.Err
	}
	out := cmd.OutOrStdout()
	if checkJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(res.Corrections)
	}
	for _, line := range formatCorrections(res.Corrections) {
		if _, err := fmt.Fprintln(out, line); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	return nil
}

// readCheckInput joins args, or reads r when no args are given and r is not
// an interactive terminal.
func readCheckInput(r io.Reader, args []string) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	if f, ok := r.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return "", fmt.Errorf("no text given: pass it as arguments or pipe it on stdin")
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("failed to read stdin: %w", err)
	}
	text := strings.TrimRight(string(data), "\r\n")
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("no text given")
	}
	return text, nil
}

func newHostCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "host",
		Short: "Serve browser requests over native messaging (stdin/stdout)",
		Args:  cobra.NoArgs,
		RunE:  runHostCmd,
	}
}

func runHostCmd(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := openApp(cmd, false)
	if err != nil {
		return err
	}
	defer a.close()

	stopWatch := a.watchSettings(ctx)
	defer stopWatch()

	a.logger.Info("native messaging host started", "db", a.store.Path())
	srv := nativemsg.NewServer(a.session, a.logger)
	if err := srv.Serve(ctx, cmd.InOrStdin(), cmd.OutOrStdout()); err != nil {
		return fmt.Errorf("native messaging host stopped: %w", err)
	}
	a.logger.Info("native messaging host stopped")
	return nil
}

func formatSettings(s model.Settings) []string {
	token := "(not set)"
	if s.Token != "" {
		token = "(set)"
	}
	return []string{
		fmt.Sprintf("%s = %t", settings.KeyEnabled, s.Enabled),
		fmt.Sprintf("%s = %s", settings.KeyBackend, s.Backend),
		fmt.Sprintf("%s = %s", settings.KeyToken, token),
		fmt.Sprintf("%s = %g", settings.KeyConfidenceThreshold, s.ConfidenceThreshold),
		fmt.Sprintf("%s = %d", settings.KeyMaxSuggestions, s.MaxSuggestions),
	}
}

func formatCorrections(cs []model.Correction) []string {
	if len(cs) == 0 {
		return []string{"No corrections."}
	}
	lines := make([]string, 0, len(cs))
	for _, c := range cs {
		lines = append(lines, fmt.Sprintf("%-11s %3.0f%%  %s", c.Kind, c.Confidence*100, c.Suggestion))
	}
	return lines
}

func knownBackend(t backend.Table, id model.BackendID) bool {
	for _, ep := range t.Endpoints() {
		if ep.ID == id {
			return true
		}
	}
	return false
}

func backendIDs(t backend.Table) string {
	eps := t.Endpoints()
	ids := make([]string, 0, len(eps))
	for _, ep := range eps {
		ids = append(ids, string(ep.ID))
	}
	return strings.Join(ids, ", ")
}

// applyGlobalConfig copies file values into the persistent flags the user
// did not set.
func applyGlobalConfig(cmd *cobra.Command, cfg config.FileConfig) {
	applyStringConfig(cmd, "log-level", &logLevel, cfg.Log.Level)
	applyStringConfig(cmd, "db", &dbPath, cfg.Store.Path)
	applyIntConfig(cmd, "timeout", &timeoutSeconds, cfg.Backend.TimeoutSeconds)
}

func applyStringConfig(cmd *cobra.Command, name string, target, value *string) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyIntConfig(cmd *cobra.Command, name string, target, value *int) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func defaultConfigTemplate() string {
	return fmt.Sprintf(`# correcteur configuration
# Uncomment a value to enable it. CLI flags override config values.
# Corrector settings (token, model, threshold) are managed with
# "correcteur settings" and stored in the database.

[editor]
# debounce-ms = %d        # Delay after the last keystroke before analysis
# min-length = %d          # Minimum number of characters to analyse

[backend]
# timeout-seconds = %d     # Backend request timeout

[backends]
# camembert = "https://api-inference.huggingface.co/models/camembert/camembert-base"
# local = "http://127.0.0.1:8080/fill-mask"   # Adds a custom model named "local"

[store]
# path = %q

[log]
# level = %q             # debug, info, warn or error
`,
		defaultDebounceMs,
		defaultMinLength,
		defaultTimeoutSeconds,
		config.DefaultDBPath(),
		defaultLogLevel,
	)
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
