package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/raphaelaulasgranger/correcteurOrtho/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "correcteur.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		_ = st.Close()
	})
	return st
}

func TestSettingValuesPartialSet(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	values, err := st.SettingValues(ctx)
	if err != nil {
		t.Fatalf("settings: %v", err)
	}
	if len(values) != 0 {
		t.Fatalf("expected empty settings, got %v", values)
	}

	if err := st.SetSettingValues(ctx, map[string]string{"hfToken": "t", "maxSuggestions": "3"}); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := st.SetSettingValues(ctx, map[string]string{"maxSuggestions": "5"}); err != nil {
		t.Fatalf("set: %v", err)
	}
	values, err = st.SettingValues(ctx)
	if err != nil {
		t.Fatalf("settings: %v", err)
	}
	if values["hfToken"] != "t" || values["maxSuggestions"] != "5" {
		t.Fatalf("unexpected values: %v", values)
	}

	if err := st.ClearSettings(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	values, err = st.SettingValues(ctx)
	if err != nil {
		t.Fatalf("settings: %v", err)
	}
	if len(values) != 0 {
		t.Fatalf("expected cleared settings, got %v", values)
	}
}

func TestStatsCountersAndReset(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	if err := st.IncrementStat(ctx, StatCorrections, 3); err != nil {
		t.Fatalf("increment: %v", err)
	}
	if err := st.IncrementStat(ctx, StatCorrections, 2); err != nil {
		t.Fatalf("increment: %v", err)
	}
	decisions := []model.Decision{
		{Original: "bonjour le mond", Suggestion: "monde", Kind: model.KindSpelling, Confidence: 0.9, Action: model.ActionAccepted, DecidedAt: time.Unix(10, 0)},
		{Original: "bonjour le mond", Suggestion: "mondes", Kind: model.KindSpelling, Confidence: 0.8, Action: model.ActionIgnored, DecidedAt: time.Unix(20, 0)},
		{Original: "il fait beau", Suggestion: "Il fait beau.", Kind: model.KindFullRewrite, Confidence: 0.7, Action: model.ActionAccepted, DecidedAt: time.Unix(30, 0)},
	}
	for _, d := range decisions {
		if _, err := st.RecordDecision(ctx, d); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	stats, err := st.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	want := model.Stats{CorrectionsCount: 5, AcceptedCount: 2, IgnoredCount: 1}
	if stats != want {
		t.Fatalf("expected %+v, got %+v", want, stats)
	}

	recent, err := st.ListDecisions(ctx, 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("expected 2 decisions, got %d", len(recent))
	}
	if recent[0].Suggestion != "Il fait beau." || recent[1].Action != model.ActionIgnored {
		t.Fatalf("unexpected order: %+v", recent)
	}

	if err := st.ResetStats(ctx); err != nil {
		t.Fatalf("reset: %v", err)
	}
	stats, err = st.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats != (model.Stats{}) {
		t.Fatalf("expected zero stats after reset, got %+v", stats)
	}
	all, err := st.ListDecisions(ctx, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 0 {
		t.Fatalf("expected empty history after reset, got %d", len(all))
	}
}

func TestRecordDecisionRejectsUnknownAction(t *testing.T) {
	st := openTestStore(t)
	if _, err := st.RecordDecision(context.Background(), model.Decision{Action: "maybe"}); err == nil {
		t.Fatalf("expected error for unknown action")
	}
}
