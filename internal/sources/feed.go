package sources

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/deusflow/newsdigest/internal/article"
	"github.com/deusflow/newsdigest/internal/logger"
)

// Feed matches keywords against the items of a fixed set of RSS/Atom feeds.
// The feeds are downloaded once, on the first search.
type Feed struct {
	urls   []string
	parser *gofeed.Parser

	once  sync.Once
	items []*gofeed.Item
	err   error
}

func NewFeed(urls []string) *Feed {
	return &Feed{
		urls:   urls,
		parser: gofeed.NewParser(),
	}
}

func (f *Feed) Kind() article.SourceKind { return article.SourceFeed }

// load downloads and parses all feeds. A failing feed is logged and skipped;
// only a run where every feed failed is an error.
func (f *Feed) load(ctx context.Context) {
	successCount := 0
	var errs []error
	for _, url := range f.urls {
		feed, err := f.parser.ParseURLWithContext(url, ctx)
		if err != nil {
			logger.Warn("Error parsing feed", "url", url, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", url, err))
			continue
		}
		f.items = append(f.items, feed.Items...)
		successCount++
		logger.Debug("Loaded feed", "url", url, "items", len(feed.Items))
	}
	logger.Info("Processed feeds", "ok", successCount, "total", len(f.urls))

	if successCount == 0 && len(f.urls) > 0 {
		f.err = fmt.Errorf("all feeds failed: %w", errors.Join(errs...))
	}
}

// Search returns up to limit items whose title or description contains
// keyword, newest first. Items without a date sort last.
func (f *Feed) Search(ctx context.Context, keyword string, limit int) ([]article.Record, error) {
	f.once.Do(func() { f.load(ctx) })
	if f.err != nil {
		return nil, f.err
	}

	needle := strings.ToLower(keyword)
	var matched []*gofeed.Item
	for _, item := range f.items {
		haystack := strings.ToLower(item.Title + " " + item.Description)
		if strings.Contains(haystack, needle) {
			matched = append(matched, item)
		}
	}

	sort.SliceStable(matched, func(i, j int) bool {
		ti, tj := itemTime(matched[i]), itemTime(matched[j])
		if ti == nil || tj == nil {
			return ti != nil && tj == nil
		}
		return ti.After(*tj)
	})
	if len(matched) > limit {
		matched = matched[:limit]
	}

	records := make([]article.Record, 0, len(matched))
	for _, item := range matched {
		rec := article.Record{
			Title:   item.Title,
			Link:    item.Link,
			Snippet: item.Description,
			Source:  article.SourceFeed,
		}
		if t := itemTime(item); t != nil {
			published := t.UTC()
			rec.Published = &published
		}
		records = append(records, rec)
	}
	return records, nil
}

func itemTime(item *gofeed.Item) *time.Time {
	if item.PublishedParsed != nil {
		return item.PublishedParsed
	}
	return item.UpdatedParsed
}
