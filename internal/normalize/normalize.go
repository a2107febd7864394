// Package normalize converts heterogeneous backend replies into a uniform,
// ordered list of corrections.
//
// Replies are classified into a [Shape] before any field is extracted, so
// every branch of [Normalize] works on a known layout. Unknown layouts,
// including invalid JSON, produce an empty result rather than an error.
// An array is read as predictions only when its first element carries a
// numeric score; a list whose first entry lacks one is an unknown layout.
//
// Token-level predictions are not localised: every correction spans the whole
// input text. Recovering sub-spans from fill-mask output by searching for
// words is unreliable when a word repeats, so it is not attempted.
package normalize

import (
	"strings"
	"unicode/utf8"

	"github.com/tidwall/gjson"

	"github.com/raphaelaulasgranger/correcteurOrtho/internal/model"
)

// RewriteConfidence is assigned to full-text rewrites; generative backends do
// not report a calibrated score.
const RewriteConfidence = 0.7

// Shape tags the layout of a backend reply.
type Shape int

const (
	// ShapeUnknown is anything that matches no other shape.
	ShapeUnknown Shape = iota
	// ShapePredictions is an ordered array of scored token or label predictions.
	ShapePredictions
	// ShapeRewrite is an object carrying a generated replacement text.
	ShapeRewrite
	// ShapeWrappedRewrite is a one-element array wrapping a rewrite object.
	ShapeWrappedRewrite
)

func (s Shape) String() string {
	switch s {
	case ShapePredictions:
		return "predictions"
	case ShapeRewrite:
		return "rewrite"
	case ShapeWrappedRewrite:
		return "wrapped-rewrite"
	default:
		return "unknown"
	}
}

// suggestionFields are probed in order on each prediction.
var suggestionFields = []string{"token_str", "label", "word", "sequence"}

// rewriteFields are probed in order on rewrite objects.
var rewriteFields = []string{"generated_text", "translation_text"}

// Detect classifies a raw reply.
func Detect(raw []byte) Shape {
	if len(raw) == 0 || !gjson.ValidBytes(raw) {
		return ShapeUnknown
	}
	root := gjson.ParseBytes(raw)
	switch {
	case root.IsArray():
		items := root.Array()
		if len(items) == 0 {
			return ShapeUnknown
		}
		first := items[0]
		if first.IsObject() && first.Get("score").Type == gjson.Number {
			return ShapePredictions
		}
		if len(items) == 1 {
			if _, ok := rewriteText(first); ok {
				return ShapeWrappedRewrite
			}
		}
	case root.IsObject():
		if _, ok := rewriteText(root); ok {
			return ShapeRewrite
		}
	}
	return ShapeUnknown
}

// Normalize turns a raw reply into at most maxSuggestions corrections in the
// order the backend gave them. It never fails and has no side effects.
func Normalize(raw []byte, originalText string, threshold float64, maxSuggestions int) []model.Correction {
	out := []model.Correction{}
	if maxSuggestions <= 0 {
		return out
	}
	switch Detect(raw) {
	case ShapePredictions:
		out = fromPredictions(gjson.ParseBytes(raw), originalText, threshold)
	case ShapeRewrite:
		out = fromRewrite(gjson.ParseBytes(raw), originalText)
	case ShapeWrappedRewrite:
		out = fromRewrite(gjson.ParseBytes(raw).Array()[0], originalText)
	}
	if len(out) > maxSuggestions {
		out = out[:maxSuggestions]
	}
	return out
}

func fromPredictions(root gjson.Result, originalText string, threshold float64) []model.Correction {
	out := []model.Correction{}
	span := wholeSpan(originalText)
	root.ForEach(func(_, item gjson.Result) bool {
		if !item.IsObject() {
			return true
		}
		score := item.Get("score")
		if score.Type != gjson.Number {
			return true
		}
		confidence := score.Float()
		if confidence < threshold || confidence < 0 || confidence > 1 {
			return true
		}
		suggestion, ok := firstString(item, suggestionFields)
		if !ok {
			return true
		}
		out = append(out, model.Correction{
			Original:   originalText,
			Suggestion: suggestion,
			Confidence: confidence,
			Kind:       model.KindSpelling,
			Span:       span,
		})
		return true
	})
	return out
}

func fromRewrite(obj gjson.Result, originalText string) []model.Correction {
	text, ok := rewriteText(obj)
	if !ok || text == strings.TrimSpace(originalText) {
		return []model.Correction{}
	}
	return []model.Correction{{
		Original:   originalText,
		Suggestion: text,
		Confidence: RewriteConfidence,
		Kind:       model.KindFullRewrite,
		Span:       wholeSpan(originalText),
	}}
}

func rewriteText(obj gjson.Result) (string, bool) {
	if !obj.IsObject() {
		return "", false
	}
	return firstString(obj, rewriteFields)
}

// firstString returns the first field holding a non-blank string.
func firstString(obj gjson.Result, fields []string) (string, bool) {
	for _, field := range fields {
		v := obj.Get(field)
		if v.Type != gjson.String {
			continue
		}
		if s := strings.TrimSpace(v.String()); s != "" {
			return s, true
		}
	}
	return "", false
}

func wholeSpan(text string) model.Span {
	return model.Span{Start: 0, End: utf8.RuneCountInString(text)}
}
