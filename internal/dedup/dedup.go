// Package dedup removes repeated records. A Deduplicator owns its seen sets
// and is scoped either to one category or to the cross-category pass of one
// run; instances are never shared between scopes or runs.
package dedup

import (
	"github.com/deusflow/newsdigest/internal/article"
	"github.com/deusflow/newsdigest/internal/logger"
)

// WithinCategory drops records whose normalized title or raw link was already
// seen in the same category. The first occurrence in input order wins.
// It is not safe for concurrent use.
type WithinCategory struct {
	seenTitles map[string]struct{}
	seenLinks  map[string]struct{}
}

// NewWithinCategory returns a deduplicator with empty seen sets.
func NewWithinCategory() *WithinCategory {
	return &WithinCategory{
		seenTitles: make(map[string]struct{}),
		seenLinks:  make(map[string]struct{}),
	}
}

// Apply returns the unique records of records. Survivors have markup
// removed from title and snippet.
func (d *WithinCategory) Apply(records []article.Record) []article.Record {
	unique := make([]article.Record, 0, len(records))

	for _, r := range records {
		title := article.NormalizeTitle(r.Title)
		if _, dup := d.seenTitles[title]; dup {
			logger.Debug("duplicate title", "title", r.Title, "link", r.Link)
			continue
		}
		if _, dup := d.seenLinks[r.Link]; dup {
			logger.Debug("duplicate link", "title", r.Title, "link", r.Link)
			continue
		}

		r.Title = article.CleanMarkup(r.Title)
		r.Snippet = article.CleanMarkup(r.Snippet)

		unique = append(unique, r)
		d.seenTitles[title] = struct{}{}
		d.seenLinks[r.Link] = struct{}{}
	}

	logger.Info("deduplication", "unique", len(unique), "total", len(records))
	return unique
}

// CrossCategory tracks links across every category of a run.
type CrossCategory struct {
	seenLinks map[string]struct{}
}

// NewCrossCategory returns a cross-category deduplicator with an empty seen set.
func NewCrossCategory() *CrossCategory {
	return &CrossCategory{seenLinks: make(map[string]struct{})}
}

// Unique scans the categories in order and returns the first occurrence of
// each link. The per-category slices are read only; a story listed under two
// categories stays in both.
func (d *CrossCategory) Unique(order []string, categories map[string][]article.Record) []article.Record {
	var unique []article.Record

	for _, key := range order {
		for _, r := range categories[key] {
			if _, dup := d.seenLinks[r.Link]; dup {
				continue
			}
			d.seenLinks[r.Link] = struct{}{}
			unique = append(unique, r)
		}
	}

	logger.Info("cross-category deduplication", "unique", len(unique))
	return unique
}
