package stats

import "testing"

func TestFormatTableAlignsColumns(t *testing.T) {
	headers := []string{"Action", "Confidence", "Original"}
	rows := [][]string{
		{"accepted", "0.91", "partit"},
		{"ignored", "0.75", "été"},
	}
	rightAlign := map[int]bool{1: true}

	lines := formatTable(headers, rows, rightAlign)
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	if lines[0] != "Action   Confidence Original" {
		t.Fatalf("unexpected header line: %q", lines[0])
	}
	if lines[1] != "accepted       0.91 partit" {
		t.Fatalf("unexpected row line: %q", lines[1])
	}
	if lines[2] != "ignored        0.75 été" {
		t.Fatalf("unexpected row line: %q", lines[2])
	}
}

func TestTruncateCell(t *testing.T) {
	if got := TruncateCell("Il est\nparti", 20); got != "Il est parti" {
		t.Fatalf("unexpected flattening: %q", got)
	}
	got := TruncateCell("Bonjour tout le monde", 10)
	if displayWidth(got) > 10 {
		t.Fatalf("cell %q wider than 10", got)
	}
	if got != "Bonjour t…" {
		t.Fatalf("unexpected truncation: %q", got)
	}
}
