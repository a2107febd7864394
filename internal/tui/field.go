package tui

import (
	"sync"

	"github.com/raphaelaulasgranger/correcteurOrtho/internal/capture"
	"github.com/raphaelaulasgranger/correcteurOrtho/internal/overlay"
)

// Field is an editable text buffer. It is read by the capture controller
// from other goroutines, so every accessor locks.
type Field struct {
	id        string
	label     string
	kind      capture.SurfaceKind
	inputType string
	multiline bool
	onInput   func(*Field)

	mu     sync.Mutex
	runes  []rune
	cursor int
	bounds overlay.Rect
}

func newSubjectField() *Field {
	return &Field{id: "subject", label: "Subject", kind: capture.SurfaceInput, inputType: "text"}
}

func newBodyField() *Field {
	return &Field{id: "body", label: "Body", kind: capture.SurfaceTextArea, multiline: true}
}

// ID implements overlay.Element and capture.Surface.
func (f *Field) ID() string { return f.id }

// Kind implements capture.Surface.
func (f *Field) Kind() capture.SurfaceKind { return f.kind }

// InputType implements capture.Surface.
func (f *Field) InputType() string { return f.inputType }

// Text returns the buffer content.
func (f *Field) Text() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return string(f.runes)
}

// SetText replaces the content and moves the cursor to the end.
func (f *Field) SetText(text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runes = []rune(text)
	if !f.multiline {
		f.runes = stripNewlines(f.runes)
	}
	f.cursor = len(f.runes)
}

// Bounds implements overlay.Element.
func (f *Field) Bounds() overlay.Rect {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.bounds
}

func (f *Field) setBounds(r overlay.Rect) {
	f.mu.Lock()
	f.bounds = r
	f.mu.Unlock()
}

// NotifyInput reports a change made outside of key handling.
func (f *Field) NotifyInput() {
	if f.onInput != nil {
		f.onInput(f)
	}
}

func (f *Field) snapshot() ([]rune, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]rune, len(f.runes))
	copy(out, f.runes)
	return out, f.cursor
}

func (f *Field) insert(rs []rune) bool {
	if !f.multiline {
		rs = stripNewlines(rs)
	}
	if len(rs) == 0 {
		return false
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	next := make([]rune, 0, len(f.runes)+len(rs))
	next = append(next, f.runes[:f.cursor]...)
	next = append(next, rs...)
	next = append(next, f.runes[f.cursor:]...)
	f.runes = next
	f.cursor += len(rs)
	return true
}

func (f *Field) backspace() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cursor == 0 {
		return false
	}
	f.runes = append(f.runes[:f.cursor-1], f.runes[f.cursor:]...)
	f.cursor--
	return true
}

func (f *Field) deleteForward() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cursor >= len(f.runes) {
		return false
	}
	f.runes = append(f.runes[:f.cursor], f.runes[f.cursor+1:]...)
	return true
}

func (f *Field) moveCursor(delta int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cursor = max(0, min(f.cursor+delta, len(f.runes)))
}

func (f *Field) home() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for f.cursor > 0 && f.runes[f.cursor-1] != '\n' {
		f.cursor--
	}
}

func (f *Field) end() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for f.cursor < len(f.runes) && f.runes[f.cursor] != '\n' {
		f.cursor++
	}
}

func stripNewlines(rs []rune) []rune {
	out := rs[:0:0]
	for _, r := range rs {
		if r == '\n' || r == '\r' {
			continue
		}
		out = append(out, r)
	}
	return out
}
