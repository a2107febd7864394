package capture

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/goleak"

	"github.com/raphaelaulasgranger/correcteurOrtho/internal/model"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeSurface struct {
	id        string
	kind      SurfaceKind
	inputType string

	mu   sync.Mutex
	text string
}

func (f *fakeSurface) ID() string          { return f.id }
func (f *fakeSurface) Kind() SurfaceKind   { return f.kind }
func (f *fakeSurface) InputType() string   { return f.inputType }
func (f *fakeSurface) Text() string        { f.mu.Lock(); defer f.mu.Unlock(); return f.text }
func (f *fakeSurface) setText(text string) { f.mu.Lock(); f.text = text; f.mu.Unlock() }

type delivery struct {
	surface     Surface
	text        string
	corrections []model.Correction
}

type harness struct {
	mock      *clock.Mock
	ctrl      *Controller
	calls     int32
	delivered chan delivery
}

func newHarness(t *testing.T, s model.Settings, analyze AnalyzeFunc) *harness {
	t.Helper()
	h := &harness{
		mock:      clock.NewMock(),
		delivered: make(chan delivery, 8),
	}
	if analyze == nil {
		analyze = func(ctx context.Context, text string) ([]model.Correction, error) {
			return []model.Correction{{Original: text, Suggestion: "ok", Confidence: 0.9, Kind: model.KindSpelling}}, nil
		}
	}
	counted := func(ctx context.Context, text string) ([]model.Correction, error) {
		atomic.AddInt32(&h.calls, 1)
		return analyze(ctx, text)
	}
	sink := func(surface Surface, text string, corrections []model.Correction) {
		h.delivered <- delivery{surface: surface, text: text, corrections: corrections}
	}
	h.ctrl = NewController(Config{Clock: h.mock}, func() model.Settings { return s }, counted, sink, nil)
	t.Cleanup(h.ctrl.Stop)
	return h
}

func (h *harness) expectDelivery(t *testing.T) delivery {
	t.Helper()
	select {
	case d := <-h.delivered:
		return d
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for delivery")
		return delivery{}
	}
}

func (h *harness) expectNoDelivery(t *testing.T) {
	t.Helper()
	select {
	case d := <-h.delivered:
		t.Fatalf("unexpected delivery for %q", d.text)
	case <-time.After(50 * time.Millisecond):
	}
}

func enabledSettings() model.Settings {
	s := model.DefaultSettings()
	s.Token = "hf_test"
	return s
}

func TestEditable(t *testing.T) {
	cases := []struct {
		kind      SurfaceKind
		inputType string
		want      bool
	}{
		{SurfaceInput, "text", true},
		{SurfaceInput, "EMAIL", true},
		{SurfaceInput, "search", true},
		{SurfaceInput, "url", true},
		{SurfaceInput, "", true},
		{SurfaceInput, "password", false},
		{SurfaceInput, "checkbox", false},
		{SurfaceTextArea, "", true},
		{SurfaceContentEditable, "", true},
		{SurfaceTextbox, "", true},
		{SurfaceOther, "text", false},
	}
	for _, tc := range cases {
		if got := Editable(tc.kind, tc.inputType); got != tc.want {
			t.Fatalf("Editable(%d, %q) = %v, want %v", tc.kind, tc.inputType, got, tc.want)
		}
	}
}

func TestDebouncerFiresOnceAfterLastArm(t *testing.T) {
	mock := clock.NewMock()
	d := NewDebouncer(mock, 500*time.Millisecond)
	defer d.Stop()

	var fired int32
	done := make(chan struct{}, 4)
	fn := func() {
		atomic.AddInt32(&fired, 1)
		done <- struct{}{}
	}
	for i := 0; i < 5; i++ {
		d.Arm(fn)
		mock.Add(100 * time.Millisecond)
	}
	// 499ms after the last Arm.
	mock.Add(399 * time.Millisecond)
	select {
	case <-done:
		t.Fatalf("fired before the delay elapsed")
	case <-time.After(30 * time.Millisecond):
	}

	mock.Add(time.Millisecond)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("debouncer never fired")
	}
	mock.Add(time.Second)
	time.Sleep(20 * time.Millisecond)
	if n := atomic.LoadInt32(&fired); n != 1 {
		t.Fatalf("expected 1 fire, got %d", n)
	}
	if d.Pending() {
		t.Fatalf("expected no pending task after firing")
	}
}

func TestDebouncerCancel(t *testing.T) {
	mock := clock.NewMock()
	d := NewDebouncer(mock, 500*time.Millisecond)
	defer d.Stop()

	var fired int32
	d.Arm(func() { atomic.AddInt32(&fired, 1) })
	if !d.Pending() {
		t.Fatalf("expected pending task")
	}
	d.Cancel()
	mock.Add(time.Second)
	time.Sleep(20 * time.Millisecond)
	if atomic.LoadInt32(&fired) != 0 {
		t.Fatalf("cancelled task ran")
	}

	d.Stop()
	d.Arm(func() { atomic.AddInt32(&fired, 1) })
	mock.Add(time.Second)
	time.Sleep(20 * time.Millisecond)
	if atomic.LoadInt32(&fired) != 0 {
		t.Fatalf("stopped debouncer ran a task")
	}
}

func TestControllerBurstTriggersOneAnalysis(t *testing.T) {
	h := newHarness(t, enabledSettings(), nil)
	surface := &fakeSurface{id: "body", kind: SurfaceTextArea}

	for _, text := range []string{"Bonjour", "Bonjour tout", "Bonjour tout le", "Bonjour tout le monde"} {
		surface.setText(text)
		h.ctrl.Observe(surface)
		h.mock.Add(100 * time.Millisecond)
	}
	h.mock.Add(DefaultDelay)

	d := h.expectDelivery(t)
	if d.text != "Bonjour tout le monde" {
		t.Fatalf("analysed %q, want the final text", d.text)
	}
	if d.surface.ID() != "body" || len(d.corrections) != 1 {
		t.Fatalf("unexpected delivery %+v", d)
	}
	h.expectNoDelivery(t)
	if n := atomic.LoadInt32(&h.calls); n != 1 {
		t.Fatalf("expected 1 analysis, got %d", n)
	}
	if h.ctrl.LastModified() != Surface(surface) {
		t.Fatalf("last modified surface not recorded")
	}
}

func TestControllerAnalysesLastModifiedSurface(t *testing.T) {
	h := newHarness(t, enabledSettings(), nil)
	subject := &fakeSurface{id: "subject", kind: SurfaceInput, inputType: "text", text: "Un sujet assez long"}
	body := &fakeSurface{id: "body", kind: SurfaceTextArea, text: "Un corps de texte assez long"}

	h.ctrl.Observe(subject)
	h.ctrl.Observe(body)
	h.mock.Add(DefaultDelay)

	if d := h.expectDelivery(t); d.surface.ID() != "body" {
		t.Fatalf("expected body to be analysed, got %s", d.surface.ID())
	}
}

func TestControllerMinimumLength(t *testing.T) {
	h := newHarness(t, enabledSettings(), nil)
	// Nine runes, eighteen bytes.
	surface := &fakeSurface{id: "body", kind: SurfaceTextArea, text: "éèàùâêîôû"}

	h.ctrl.Observe(surface)
	h.mock.Add(DefaultDelay)
	h.expectNoDelivery(t)

	surface.setText("éèàùâêîôûç")
	h.ctrl.Observe(surface)
	h.mock.Add(DefaultDelay)
	h.expectDelivery(t)
}

func TestControllerSkipsWithoutToken(t *testing.T) {
	s := enabledSettings()
	s.Token = ""
	h := newHarness(t, s, nil)

	h.ctrl.Observe(&fakeSurface{id: "body", kind: SurfaceTextArea, text: "Bonjour tout le monde"})
	h.mock.Add(DefaultDelay)
	h.expectNoDelivery(t)
	if n := atomic.LoadInt32(&h.calls); n != 0 {
		t.Fatalf("expected no analysis, got %d", n)
	}
}

func TestControllerSkipsWhenDisabled(t *testing.T) {
	s := enabledSettings()
	s.Enabled = false
	h := newHarness(t, s, nil)

	h.ctrl.Observe(&fakeSurface{id: "body", kind: SurfaceTextArea, text: "Bonjour tout le monde"})
	h.mock.Add(DefaultDelay)
	h.expectNoDelivery(t)
	if h.ctrl.LastModified() != nil {
		t.Fatalf("disabled controller must not record edits")
	}
}

func TestControllerIgnoresPasswordInput(t *testing.T) {
	h := newHarness(t, enabledSettings(), nil)

	h.ctrl.Observe(&fakeSurface{id: "pw", kind: SurfaceInput, inputType: "password", text: "correct horse battery"})
	h.mock.Add(DefaultDelay)
	h.expectNoDelivery(t)
}

func TestControllerDropsFailedAnalysis(t *testing.T) {
	h := newHarness(t, enabledSettings(), func(context.Context, string) ([]model.Correction, error) {
		return nil, context.DeadlineExceeded
	})

	h.ctrl.Observe(&fakeSurface{id: "body", kind: SurfaceTextArea, text: "Bonjour tout le monde"})
	h.mock.Add(DefaultDelay)
	h.expectNoDelivery(t)
	if n := atomic.LoadInt32(&h.calls); n != 1 {
		t.Fatalf("expected 1 analysis, got %d", n)
	}
}

func TestStopAbortsOutstandingAnalysis(t *testing.T) {
	started := make(chan struct{})
	h := newHarness(t, enabledSettings(), func(ctx context.Context, _ string) ([]model.Correction, error) {
		close(started)
		<-ctx.Done()
		return nil, ctx.Err()
	})

	h.ctrl.Observe(&fakeSurface{id: "body", kind: SurfaceTextArea, text: "Bonjour tout le monde"})
	h.mock.Add(DefaultDelay)
	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatalf("analysis never started")
	}

	h.ctrl.Stop()
	h.expectNoDelivery(t)

	h.ctrl.Observe(&fakeSurface{id: "body", kind: SurfaceTextArea, text: "Bonjour tout le monde"})
	if h.ctrl.debouncer.Pending() {
		t.Fatalf("stopped controller armed its debouncer")
	}
}
