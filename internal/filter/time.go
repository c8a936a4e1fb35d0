// Package filter holds the stateless record filters applied to each
// category before deduplication.
package filter

import (
	"time"

	"github.com/deusflow/newsdigest/internal/article"
	"github.com/deusflow/newsdigest/internal/logger"
)

// TimeFilter keeps records published inside a trailing window. The cutoff is
// fixed when the filter is built so every record of a run is judged against
// the same instant.
type TimeFilter struct {
	window time.Duration
	cutoff time.Time
}

// NewTimeFilter builds a filter whose cutoff is now minus window.
func NewTimeFilter(window time.Duration, now time.Time) *TimeFilter {
	return &TimeFilter{
		window: window,
		cutoff: now.Add(-window),
	}
}

// Cutoff returns the earliest publish time the filter accepts.
func (f *TimeFilter) Cutoff() time.Time {
	return f.cutoff
}

// IsValid reports whether a record published at published is kept.
// Unknown publish times are kept.
func (f *TimeFilter) IsValid(published *time.Time) bool {
	if published == nil {
		return true
	}
	return !published.Before(f.cutoff)
}

// Apply returns the records inside the window, in input order.
func (f *TimeFilter) Apply(records []article.Record) []article.Record {
	kept := make([]article.Record, 0, len(records))
	for _, r := range records {
		if f.IsValid(r.Published) {
			kept = append(kept, r)
			continue
		}
		logger.Debug("filtered by time", "title", r.Title, "published", r.Published, "cutoff", f.cutoff)
	}

	logger.Info("time filter", "passed", len(kept), "total", len(records))
	return kept
}
