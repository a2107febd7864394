package normalize

import (
	"reflect"
	"testing"

	"github.com/raphaelaulasgranger/correcteurOrtho/internal/model"
)

func TestDetectShapes(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want Shape
	}{
		{"predictions", `[{"score":0.9,"token_str":"monde"}]`, ShapePredictions},
		{"label predictions", `[{"label":"POSITIVE","score":0.99}]`, ShapePredictions},
		{"rewrite", `{"generated_text":"Bonjour."}`, ShapeRewrite},
		{"translation rewrite", `{"translation_text":"Bonjour."}`, ShapeRewrite},
		{"wrapped rewrite", `[{"generated_text":"Bonjour."}]`, ShapeWrappedRewrite},
		{"two rewrites", `[{"generated_text":"a"},{"generated_text":"b"}]`, ShapeUnknown},
		{"null", `null`, ShapeUnknown},
		{"empty array", `[]`, ShapeUnknown},
		{"empty object", `{}`, ShapeUnknown},
		{"error object", `{"error":"Model is loading","estimated_time":20}`, ShapeUnknown},
		{"string score", `[{"score":"0.9","token_str":"x"}]`, ShapeUnknown},
		{"unscored first entry", `[{"token_str":"x"},{"score":0.9,"token_str":"y"}]`, ShapeUnknown},
		{"invalid json", `{"generated_text":`, ShapeUnknown},
		{"empty input", ``, ShapeUnknown},
		{"number", `42`, ShapeUnknown},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Detect([]byte(tc.raw)); got != tc.want {
				t.Fatalf("Detect(%s) = %v, want %v", tc.raw, got, tc.want)
			}
		})
	}
}

func TestNormalizeThresholdCapAndOrder(t *testing.T) {
	raw := `[
		{"score":0.9,"token_str":"un"},
		{"score":0.8,"token_str":"deux"},
		{"score":0.6,"token_str":"trois"},
		{"score":0.75,"token_str":"quatre"},
		{"score":0.71,"token_str":"cinq"}
	]`
	text := "il y a <mask> chats"
	got := Normalize([]byte(raw), text, 0.7, 3)
	if len(got) != 3 {
		t.Fatalf("expected 3 corrections, got %d", len(got))
	}
	wantSuggestions := []string{"un", "deux", "quatre"}
	for i, c := range got {
		if c.Suggestion != wantSuggestions[i] {
			t.Fatalf("index %d: expected %q, got %q", i, wantSuggestions[i], c.Suggestion)
		}
		if c.Confidence < 0.7 {
			t.Fatalf("confidence %v below threshold", c.Confidence)
		}
		if c.Kind != model.KindSpelling {
			t.Fatalf("expected spelling kind, got %v", c.Kind)
		}
		if c.Original != text || c.Span != (model.Span{Start: 0, End: len([]rune(text))}) {
			t.Fatalf("expected whole-text span, got %+v", c)
		}
	}

	all := Normalize([]byte(raw), text, 0.7, 10)
	if len(all) != 4 {
		t.Fatalf("expected 4 entries above threshold, got %d", len(all))
	}
}

func TestNormalizeSuggestionFieldPriority(t *testing.T) {
	raw := `[
		{"score":0.9,"label":"L","word":"W"},
		{"score":0.9,"word":"W2","sequence":"S"},
		{"score":0.9,"sequence":"S3"},
		{"score":0.9,"token_str":"  ","label":"L4"},
		{"score":0.9}
	]`
	got := Normalize([]byte(raw), "texte", 0, 10)
	want := []string{"L", "W2", "S3", "L4"}
	if len(got) != len(want) {
		t.Fatalf("expected %d corrections, got %+v", len(want), got)
	}
	for i := range want {
		if got[i].Suggestion != want[i] {
			t.Fatalf("index %d: expected %q, got %q", i, want[i], got[i].Suggestion)
		}
	}
}

func TestNormalizeRewrite(t *testing.T) {
	text := "je suis alle a la plage"
	for _, raw := range []string{
		`{"generated_text":"Je suis allé à la plage."}`,
		`[{"generated_text":"Je suis allé à la plage."}]`,
		`[{"translation_text":"Je suis allé à la plage."}]`,
	} {
		got := Normalize([]byte(raw), text, 0.99, 3)
		if len(got) != 1 {
			t.Fatalf("%s: expected one rewrite, got %+v", raw, got)
		}
		c := got[0]
		if c.Kind != model.KindFullRewrite || c.Confidence != RewriteConfidence {
			t.Fatalf("%s: unexpected correction %+v", raw, c)
		}
		if c.Suggestion != "Je suis allé à la plage." || c.Original != text {
			t.Fatalf("%s: unexpected texts %+v", raw, c)
		}
		if !c.WholeText() {
			t.Fatalf("%s: expected whole-text span, got %+v", raw, c.Span)
		}
	}
}

func TestNormalizeSuppressesNoOpRewrite(t *testing.T) {
	text := "Bonjour tout le monde."
	for _, raw := range []string{
		`{"generated_text":"Bonjour tout le monde."}`,
		`[{"generated_text":"  Bonjour tout le monde.  "}]`,
	} {
		if got := Normalize([]byte(raw), text, 0.7, 3); len(got) != 0 {
			t.Fatalf("%s: expected no corrections, got %+v", raw, got)
		}
	}
}

func TestNormalizeIsTotal(t *testing.T) {
	inputs := []string{"", "null", "[]", "{}", "true", `"text"`, `[1,2,3]`, `[[{"score":0.9}]]`, `{"generated_text":42}`, "{bad"}
	for _, raw := range inputs {
		got := Normalize([]byte(raw), "texte original", 0.5, 3)
		if got == nil {
			t.Fatalf("%q: expected empty slice, got nil", raw)
		}
		if len(got) != 0 {
			t.Fatalf("%q: expected no corrections, got %+v", raw, got)
		}
	}
}

func TestNormalizeCapZero(t *testing.T) {
	got := Normalize([]byte(`[{"score":0.9,"token_str":"x"}]`), "texte", 0, 0)
	if got == nil || len(got) != 0 {
		t.Fatalf("expected empty result for zero cap, got %+v", got)
	}
}

func TestNormalizeIsIdempotent(t *testing.T) {
	raw := []byte(`[{"score":0.9,"token_str":"a"},{"score":0.8,"token_str":"b"}]`)
	first := Normalize(raw, "texte", 0.5, 3)
	second := Normalize(raw, "texte", 0.5, 3)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("expected identical output, got %+v and %+v", first, second)
	}
}
