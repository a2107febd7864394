// Package model defines shared data structures.
package model

import "time"

// BackendID identifies a correction backend.
type BackendID string

// Known backends.
const (
	BackendCamembert  BackendID = "camembert"
	BackendFlaubert   BackendID = "flaubert"
	BackendOpus       BackendID = "opus"
	BackendBarthez    BackendID = "barthez"
	BackendGPT2French BackendID = "gpt2_french"
)

// Settings defaults.
const (
	DefaultEnabled             = true
	DefaultBackend             = BackendCamembert
	DefaultConfidenceThreshold = 0.7
	DefaultMaxSuggestions      = 3
)

// Settings holds user configuration for the corrector.
type Settings struct {
	Enabled             bool      `json:"correctorEnabled"`
	Backend             BackendID `json:"correctionModel"`
	Token               string    `json:"hfToken"`
	ConfidenceThreshold float64   `json:"confidenceThreshold"`
	MaxSuggestions      int       `json:"maxSuggestions"`
}

// DefaultSettings returns settings with every field at its documented default.
func DefaultSettings() Settings {
	return Settings{
		Enabled:             DefaultEnabled,
		Backend:             DefaultBackend,
		ConfidenceThreshold: DefaultConfidenceThreshold,
		MaxSuggestions:      DefaultMaxSuggestions,
	}
}

// SettingsPatch is a partial settings update. Nil fields are left untouched.
type SettingsPatch struct {
	Enabled             *bool      `json:"correctorEnabled,omitempty"`
	Backend             *BackendID `json:"correctionModel,omitempty"`
	Token               *string    `json:"hfToken,omitempty"`
	ConfidenceThreshold *float64   `json:"confidenceThreshold,omitempty"`
	MaxSuggestions      *int       `json:"maxSuggestions,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p SettingsPatch) Empty() bool {
	return p.Enabled == nil && p.Backend == nil && p.Token == nil &&
		p.ConfidenceThreshold == nil && p.MaxSuggestions == nil
}

// Kind classifies a correction.
type Kind string

// Correction kinds.
const (
	KindSpelling    Kind = "spelling"
	KindFullRewrite Kind = "fullRewrite"
)

// Span is a [Start, End) rune range into a text buffer.
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Correction is one suggested change produced from a backend reply.
type Correction struct {
	Original   string  `json:"original"`
	Suggestion string  `json:"suggestion"`
	Confidence float64 `json:"confidence"`
	Kind       Kind    `json:"type"`
	Span       Span    `json:"position"`
}

// WholeText reports whether the correction spans all of Original.
func (c Correction) WholeText() bool {
	return c.Span.Start == 0 && c.Span.End == len([]rune(c.Original))
}

// Stats holds the persisted usage counters.
type Stats struct {
	CorrectionsCount int64 `json:"correctionsCount"`
	AcceptedCount    int64 `json:"acceptedCount"`
	IgnoredCount     int64 `json:"ignoredCount"`
}

// Action is a terminal decision on a marker.
type Action string

// Marker decisions.
const (
	ActionAccepted Action = "accepted"
	ActionIgnored  Action = "ignored"
)

// Decision records one accept or ignore.
type Decision struct {
	ID         int64
	Original   string
	Suggestion string
	Kind       Kind
	Confidence float64
	Action     Action
	DecidedAt  time.Time
}
