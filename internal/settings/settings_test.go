package settings

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/raphaelaulasgranger/correcteurOrtho/internal/model"
	"github.com/raphaelaulasgranger/correcteurOrtho/internal/store"
)

type memKV struct {
	values map[string]string
	err    error
}

func (m *memKV) SettingValues(context.Context) (map[string]string, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := make(map[string]string, len(m.values))
	for k, v := range m.values {
		out[k] = v
	}
	return out, nil
}

func (m *memKV) SetSettingValues(_ context.Context, values map[string]string) error {
	if m.err != nil {
		return m.err
	}
	if m.values == nil {
		m.values = map[string]string{}
	}
	for k, v := range values {
		m.values[k] = v
	}
	return nil
}

func (m *memKV) ClearSettings(context.Context) error {
	m.values = nil
	return m.err
}

func TestLoadEmptyStoreFillsDefaults(t *testing.T) {
	a := New(&memKV{}, nil)
	s, err := a.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if s != model.DefaultSettings() {
		t.Fatalf("expected defaults, got %+v", s)
	}
	if !s.Enabled || s.Backend != model.BackendCamembert || s.Token != "" ||
		s.ConfidenceThreshold != 0.7 || s.MaxSuggestions != 3 {
		t.Fatalf("unexpected default values: %+v", s)
	}
}

func TestResolveInvalidValuesFallBack(t *testing.T) {
	s := Resolve(map[string]string{
		KeyEnabled:             "sometimes",
		KeyBackend:             "  ",
		KeyConfidenceThreshold: "1.5",
		KeyMaxSuggestions:      "-2",
		KeyToken:               "  hf_abc  ",
	}, nil)
	want := model.DefaultSettings()
	want.Token = "hf_abc"
	if s != want {
		t.Fatalf("expected %+v, got %+v", want, s)
	}
}

func TestUpdateIsPartialAndNotifies(t *testing.T) {
	kv := &memKV{values: map[string]string{KeyToken: "t"}}
	a := New(kv, nil)
	ctx := context.Background()
	if _, err := a.Load(ctx); err != nil {
		t.Fatalf("load: %v", err)
	}

	var got []model.Settings
	cancel := a.Subscribe(func(s model.Settings) { got = append(got, s) })

	limit := 5
	s, err := a.Update(ctx, model.SettingsPatch{MaxSuggestions: &limit})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if s.Token != "t" || s.MaxSuggestions != 5 {
		t.Fatalf("unexpected settings after update: %+v", s)
	}
	if len(got) != 1 || got[0] != s {
		t.Fatalf("expected one notification with new settings, got %+v", got)
	}

	// Same value again: no change, no notification.
	if _, err := a.Update(ctx, model.SettingsPatch{MaxSuggestions: &limit}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected no notification for unchanged settings, got %d", len(got))
	}

	cancel()
	enabled := false
	if _, err := a.Update(ctx, model.SettingsPatch{Enabled: &enabled}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected no notification after unsubscribe, got %d", len(got))
	}
}

func TestUpdateRejectsInvalidPatch(t *testing.T) {
	kv := &memKV{}
	a := New(kv, nil)
	threshold := 1.2
	if _, err := a.Update(context.Background(), model.SettingsPatch{ConfidenceThreshold: &threshold}); err == nil {
		t.Fatalf("expected validation error")
	}
	if len(kv.values) != 0 {
		t.Fatalf("invalid patch must not be written: %v", kv.values)
	}
}

func TestLoadPropagatesStoreError(t *testing.T) {
	boom := errors.New("boom")
	a := New(&memKV{err: boom}, nil)
	if _, err := a.Load(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped store error, got %v", err)
	}
}

func TestResetRestoresDefaults(t *testing.T) {
	st, err := store.Open(filepath.Join(t.TempDir(), "correcteur.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	a := New(st, nil)
	ctx := context.Background()
	token := "hf_x"
	backend := model.BackendFlaubert
	if _, err := a.Update(ctx, model.SettingsPatch{Token: &token, Backend: &backend}); err != nil {
		t.Fatalf("update: %v", err)
	}
	s, err := a.Reset(ctx)
	if err != nil {
		t.Fatalf("reset: %v", err)
	}
	if s != model.DefaultSettings() {
		t.Fatalf("expected defaults after reset, got %+v", s)
	}
}

func TestParseKeyValue(t *testing.T) {
	p, err := ParseKeyValue("threshold", "0.85")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if p.ConfidenceThreshold == nil || *p.ConfidenceThreshold != 0.85 {
		t.Fatalf("unexpected patch: %+v", p)
	}
	if _, err := ParseKeyValue("maxSuggestions", "-1"); err == nil {
		t.Fatalf("expected validation error for negative max")
	}
	if _, err := ParseKeyValue("colour", "blue"); err == nil {
		t.Fatalf("expected error for unknown key")
	}
}

func TestValueResolvesAliases(t *testing.T) {
	s := model.DefaultSettings()
	s.Token = "hf_abc"
	cases := map[string]string{
		"enabled":         "true",
		"model":           "camembert",
		KeyToken:          "hf_abc",
		"threshold":       "0.7",
		"max-suggestions": "3",
	}
	for key, want := range cases {
		got, err := Value(s, key)
		if err != nil {
			t.Fatalf("value %s: %v", key, err)
		}
		if got != want {
			t.Fatalf("value %s = %q, want %q", key, got, want)
		}
	}
	if _, err := Value(s, "colour"); err == nil {
		t.Fatalf("expected error for unknown key")
	}
}

func TestWatchPicksUpWritesFromAnotherProcess(t *testing.T) {
	path := filepath.Join(t.TempDir(), "correcteur.db")
	reader, err := store.Open(path)
	if err != nil {
		t.Fatalf("open reader: %v", err)
	}
	t.Cleanup(func() { _ = reader.Close() })
	writer, err := store.Open(path)
	if err != nil {
		t.Fatalf("open writer: %v", err)
	}
	t.Cleanup(func() { _ = writer.Close() })

	a := New(reader, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if _, err := a.Load(ctx); err != nil {
		t.Fatalf("load: %v", err)
	}

	changed := make(chan model.Settings, 4)
	a.Subscribe(func(s model.Settings) { changed <- s })

	done := make(chan error, 1)
	go func() { done <- a.Watch(ctx, path) }()
	// Give the watcher time to register before writing.
	time.Sleep(100 * time.Millisecond)

	if err := writer.SetSettingValues(ctx, map[string]string{KeyToken: "from-elsewhere"}); err != nil {
		t.Fatalf("write: %v", err)
	}

	select {
	case s := <-changed:
		if s.Token != "from-elsewhere" {
			t.Fatalf("unexpected token %q", s.Token)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for settings change")
	}

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("watch returned error: %v", err)
	}
}
