// Package stats contains statistics calculations and reporting.
package stats

import (
	"context"

	"github.com/raphaelaulasgranger/correcteurOrtho/internal/model"
)

// DefaultRecent is the number of decisions loaded for a report.
const DefaultRecent = 20

// Source is the persistence a Report is built from.
type Source interface {
	Stats(ctx context.Context) (model.Stats, error)
	ListDecisions(ctx context.Context, limit int) ([]model.Decision, error)
}

// Report contains precomputed data for stats rendering.
type Report struct {
	Stats model.Stats
	// Recent holds the latest decisions, newest first.
	Recent []model.Decision
}

// BuildReport loads counters and the most recent decisions.
func BuildReport(ctx context.Context, src Source, recent int) (Report, error) {
	counters, err := src.Stats(ctx)
	if err != nil {
		return Report{}, err
	}
	if recent <= 0 {
		recent = DefaultRecent
	}
	decisions, err := src.ListDecisions(ctx, recent)
	if err != nil {
		return Report{}, err
	}
	return Report{Stats: counters, Recent: decisions}, nil
}

// Decided returns the number of accepted and ignored corrections.
func (r Report) Decided() int64 {
	return r.Stats.AcceptedCount + r.Stats.IgnoredCount
}
