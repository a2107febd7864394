package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/raphaelaulasgranger/correcteurOrtho/internal/backend"
	"github.com/raphaelaulasgranger/correcteurOrtho/internal/config"
	"github.com/raphaelaulasgranger/correcteurOrtho/internal/coordinator"
	"github.com/raphaelaulasgranger/correcteurOrtho/internal/observe"
	"github.com/raphaelaulasgranger/correcteurOrtho/internal/settings"
	"github.com/raphaelaulasgranger/correcteurOrtho/internal/store"
)

// app holds the components shared by every command.
type app struct {
	cfg      config.FileConfig
	logger   *slog.Logger
	store    *store.Store
	adapter  *settings.Adapter
	table    backend.Table
	client   *backend.Client
	session  *coordinator.Session
	logClose func() error
}

// openApp loads the config file, applies it under the command line flags and
// builds the correction pipeline. When logToFile is set, logs go to the state
// directory instead of stderr so a full-screen UI is not corrupted.
func openApp(cmd *cobra.Command, logToFile bool) (*app, error) {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	applyGlobalConfig(cmd, fileCfg)

	a := &app{cfg: fileCfg}
	var logW io.Writer = cmd.ErrOrStderr()
	if logToFile {
		f, err := openLogFile(config.DefaultLogPath())
		if err != nil {
			return nil, err
		}
		logW = f
		a.logClose = f.Close
	}
	a.logger, err = newLogger(logLevel, logW)
	if err != nil {
		a.closeLog()
		return nil, err
	}
	slog.SetDefault(a.logger)

	if timeoutSeconds <= 0 {
		a.closeLog()
		return nil, fmt.Errorf("--timeout must be > 0")
	}
	a.table, err = backend.NewTable(fileCfg.Backends)
	if err != nil {
		a.closeLog()
		return nil, fmt.Errorf("invalid [backends] config: %w", err)
	}

	a.store, err = store.Open(dbPath)
	if err != nil {
		a.closeLog()
		return nil, fmt.Errorf("failed to open db: %w", err)
	}
	a.adapter = settings.New(a.store, a.logger)
	a.client = backend.New(
		backend.WithEndpoints(a.table),
		backend.WithTimeout(time.Duration(timeoutSeconds)*time.Second),
		backend.WithMetrics(observe.Default()),
	)
	a.session = coordinator.NewSession(a.client, a.adapter, a.store, a.logger)
	if err := a.session.Init(cmd.Context()); err != nil {
		a.close()
		return nil, err
	}
	return a, nil
}

func (a *app) close() {
	a.session.Close()
	if err := a.store.Close(); err != nil {
		a.logger.Warn("failed to close db", "err", err)
	}
	a.closeLog()
}

func (a *app) closeLog() {
	if a.logClose == nil {
		return
	}
	if err := a.logClose(); err != nil {
		logErrf("failed to close log file: %v\n", err)
	}
	a.logClose = nil
}

// watchSettings follows settings written by other processes until the
// returned stop function is called.
func (a *app) watchSettings(ctx context.Context) (stop func()) {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := a.adapter.Watch(ctx, a.store.Path()); err != nil {
			a.logger.Warn("settings watch stopped", "err", err)
		}
	}()
	return func() {
		cancel()
		<-done
	}
}

func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return f, nil
}

func newLogger(level string, w io.Writer) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		return nil, fmt.Errorf("invalid log level %q", level)
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})), nil
}
