package stats

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/raphaelaulasgranger/correcteurOrtho/internal/model"
)

const sparkChars = " .:-=+*#%@"

// TrendWindow is the moving-average window of the acceptance trend.
const TrendWindow = 5

// AcceptanceRate is the share of decided corrections that were accepted.
func AcceptanceRate(s model.Stats) float64 {
	decided := s.AcceptedCount + s.IgnoredCount
	if decided <= 0 {
		return 0
	}
	return float64(s.AcceptedCount) / float64(decided)
}

// Pending is the number of presented corrections without a decision. It can
// only be estimated because markers superseded by a newer analysis are
// neither accepted nor ignored.
func Pending(s model.Stats) int64 {
	p := s.CorrectionsCount - s.AcceptedCount - s.IgnoredCount
	if p < 0 {
		return 0
	}
	return p
}

// AcceptanceSeries maps decisions given newest first to a chronological
// series of 100 (accepted) and 0 (ignored).
func AcceptanceSeries(decisions []model.Decision) []float64 {
	out := make([]float64, len(decisions))
	for i, d := range decisions {
		if d.Action == model.ActionAccepted {
			out[len(decisions)-1-i] = 100
		}
	}
	return out
}

// MovingAverage computes a rolling mean over the provided window size.
func MovingAverage(values []float64, window int) []float64 {
	if window <= 1 || len(values) == 0 {
		out := make([]float64, len(values))
		copy(out, values)
		return out
	}
	out := make([]float64, len(values))
	var sum float64
	for i := 0; i < len(values); i++ {
		sum += values[i]
		if i >= window {
			sum -= values[i-window]
		}
		den := float64(i + 1)
		if i >= window {
			den = float64(window)
		}
		out[i] = sum / den
	}
	return out
}

// Sparkline renders a single-line ASCII sparkline for the values.
func Sparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}
	minVal, maxVal := values[0], values[0]
	for _, v := range values[1:] {
		minVal = math.Min(minVal, v)
		maxVal = math.Max(maxVal, v)
	}
	if math.Abs(maxVal-minVal) < 1e-9 {
		return strings.Repeat(string(sparkChars[len(sparkChars)/2]), len(values))
	}
	var b strings.Builder
	for _, v := range values {
		pos := (v - minVal) / (maxVal - minVal)
		idx := int(math.Round(pos * float64(len(sparkChars)-1)))
		idx = max(0, min(idx, len(sparkChars)-1))
		b.WriteByte(sparkChars[idx])
	}
	return b.String()
}

// RenderSummary prints the counters and derived rates.
func RenderSummary(w io.Writer, r Report) error {
	s := r.Stats
	lines := []string{
		"Summary",
		fmt.Sprintf("Corrections: %d", s.CorrectionsCount),
		fmt.Sprintf("Accepted: %d", s.AcceptedCount),
		fmt.Sprintf("Ignored: %d", s.IgnoredCount),
		fmt.Sprintf("Pending: %d", Pending(s)),
	}
	if r.Decided() > 0 {
		lines = append(lines, fmt.Sprintf("Acceptance: %.2f%%", AcceptanceRate(s)*100))
	}
	if len(r.Recent) > 1 {
		trend := MovingAverage(AcceptanceSeries(r.Recent), TrendWindow)
		lines = append(lines, fmt.Sprintf("Trend: [%s]", Sparkline(trend)))
	}
	lines = append(lines, "")
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// RenderDecisions prints recent decisions, newest first.
func RenderDecisions(w io.Writer, decisions []model.Decision) error {
	if len(decisions) == 0 {
		_, err := fmt.Fprintln(w, "No decisions recorded.")
		return err
	}
	if _, err := fmt.Fprintln(w, "Recent Decisions"); err != nil {
		return err
	}
	headers := []string{"When", "Action", "Type", "Confidence", "Original", "Suggestion"}
	rows := make([][]string, 0, len(decisions))
	for _, d := range decisions {
		rows = append(rows, DecisionRow(d))
	}
	lines := formatTable(headers, rows, map[int]bool{3: true})
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintln(w, ""); err != nil {
		return err
	}
	return nil
}

// DecisionRow formats one decision as table cells.
func DecisionRow(d model.Decision) []string {
	return []string{
		d.DecidedAt.Local().Format("2006-01-02 15:04"),
		string(d.Action),
		string(d.Kind),
		fmt.Sprintf("%.2f", d.Confidence),
		TruncateCell(d.Original, MaxTextWidth),
		TruncateCell(d.Suggestion, MaxTextWidth),
	}
}
