// Package capture watches editable surfaces and triggers one analysis per
// burst of edits.
package capture

import "strings"

// SurfaceKind is the broad category of an editable surface.
type SurfaceKind int

const (
	// SurfaceOther is anything that is not a text surface.
	SurfaceOther SurfaceKind = iota
	// SurfaceInput is a single-line input with a type attribute.
	SurfaceInput
	// SurfaceTextArea is a multi-line text area.
	SurfaceTextArea
	// SurfaceContentEditable is a free-form editable region.
	SurfaceContentEditable
	// SurfaceTextbox is any element with a textbox role.
	SurfaceTextbox
)

// Surface is an editable surface whose content may be analysed.
type Surface interface {
	ID() string
	Text() string
	Kind() SurfaceKind
	// InputType is the input type attribute for SurfaceInput, "" otherwise.
	InputType() string
}

var textInputTypes = map[string]bool{
	"":       true,
	"text":   true,
	"email":  true,
	"search": true,
	"url":    true,
}

// Editable reports whether a surface of this kind may be captured. Password
// inputs are never captured.
func Editable(kind SurfaceKind, inputType string) bool {
	switch kind {
	case SurfaceInput:
		return textInputTypes[strings.ToLower(strings.TrimSpace(inputType))]
	case SurfaceTextArea, SurfaceContentEditable, SurfaceTextbox:
		return true
	default:
		return false
	}
}
