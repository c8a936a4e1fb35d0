// Package pipeline collects records for every configured category and reduces
// them to a canonical, time-bounded, deduplicated set per category.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/deusflow/newsdigest/internal/article"
	"github.com/deusflow/newsdigest/internal/cache"
	"github.com/deusflow/newsdigest/internal/canonical"
	"github.com/deusflow/newsdigest/internal/dedup"
	"github.com/deusflow/newsdigest/internal/filter"
	"github.com/deusflow/newsdigest/internal/logger"
	"github.com/deusflow/newsdigest/internal/metrics"
)

var (
	ErrNoCategories      = errors.New("pipeline: no categories")
	ErrInvalidWindow     = errors.New("pipeline: time window must be positive")
	ErrMissingFilters    = errors.New("pipeline: blacklist and excluded keyword lists are required")
	ErrSourceNotWired    = errors.New("pipeline: no source registered for kind")
	ErrInvalidQueryLimit = errors.New("pipeline: per-query limit must be positive")
)

// Source is a search provider for one source kind. A failing call costs the
// keyword its results from that source and nothing else.
type Source interface {
	Kind() article.SourceKind
	Search(ctx context.Context, keyword string, limit int) ([]article.Record, error)
}

// Category is one topic to collect: its keywords in query order and the
// source kinds enabled for it in visiting order.
type Category struct {
	Key      string
	Name     string
	Keywords []string
	Kinds    []article.SourceKind
}

type Config struct {
	Categories       []Category
	Window           time.Duration
	PerQueryLimit    int
	BlacklistDomains []string
	ExcludedKeywords []string

	// Concurrency bounds parallel source calls inside a category. Values
	// below 2 run them one after another.
	Concurrency int
}

// Result is the output of one run. Categories keeps every surviving record
// under each category it was collected for; Unique is the cross-category
// view with each link once.
type Result struct {
	Order      []string
	Categories map[string][]article.Record
	Unique     []article.Record
}

// UniqueCount is the number of distinct links across all categories.
func (r *Result) UniqueCount() int {
	return len(r.Unique)
}

// Total is the sum of per-category record counts.
func (r *Result) Total() int {
	total := 0
	for _, records := range r.Categories {
		total += len(records)
	}
	return total
}

type Orchestrator struct {
	cfg     Config
	sources map[article.SourceKind]Source
	metrics *metrics.Metrics
	now     func() time.Time
}

type Option func(*Orchestrator)

// WithMetrics records counters on m instead of metrics.Global.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// WithClock replaces time.Now when computing the time filter cutoff.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// New checks cfg against the registered sources. Every configuration problem
// is reported here, before anything is collected.
func New(cfg Config, sources []Source, opts ...Option) (*Orchestrator, error) {
	if len(cfg.Categories) == 0 {
		return nil, ErrNoCategories
	}
	if cfg.Window <= 0 {
		return nil, ErrInvalidWindow
	}
	if cfg.PerQueryLimit <= 0 {
		return nil, ErrInvalidQueryLimit
	}
	if cfg.BlacklistDomains == nil || cfg.ExcludedKeywords == nil {
		return nil, ErrMissingFilters
	}

	o := &Orchestrator{
		cfg:     cfg,
		sources: make(map[article.SourceKind]Source, len(sources)),
		metrics: metrics.Global,
		now:     time.Now,
	}
	for _, s := range sources {
		o.sources[s.Kind()] = s
	}
	for _, cat := range cfg.Categories {
		for _, kind := range cat.Kinds {
			if _, ok := o.sources[kind]; !ok {
				return nil, fmt.Errorf("%w %q (category %s)", ErrSourceNotWired, kind, cat.Key)
			}
		}
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// Run collects every category in configuration order. It only fails when
// ctx ends; source failures are logged and skipped.
func (o *Orchestrator) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	logger.Info("=== Starting collection ===", "categories", len(o.cfg.Categories))

	// one cutoff, one content filter and one response cache per run
	timeFilter := filter.NewTimeFilter(o.cfg.Window, o.now())
	contentFilter := filter.NewContentFilter(o.cfg.BlacklistDomains, o.cfg.ExcludedKeywords)
	responses := cache.New()

	result := &Result{
		Order:      make([]string, 0, len(o.cfg.Categories)),
		Categories: make(map[string][]article.Record, len(o.cfg.Categories)),
	}

	for _, cat := range o.cfg.Categories {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		logger.Info("Collecting category", "category", cat.Key, "name", cat.Name)

		collected := o.collect(ctx, cat, responses)
		records := o.process(cat, collected, timeFilter, contentFilter)

		result.Order = append(result.Order, cat.Key)
		result.Categories[cat.Key] = records
		logger.Info("Category collected", "category", cat.Key, "articles", len(records))
	}

	result.Unique = dedup.NewCrossCategory().Unique(result.Order, result.Categories)
	o.metrics.SetUniqueArticles(len(result.Unique))
	o.metrics.RecordProcessingTime(time.Since(start))

	logger.Info("=== Collection finished ===",
		"unique", result.UniqueCount(),
		"total", result.Total(),
		"cache_hits", responses.Hits(),
		"duration", time.Since(start).Round(time.Millisecond))
	return result, nil
}

type query struct {
	keyword string
	kind    article.SourceKind
}

// collect runs every keyword against every enabled source and returns the
// records in keyword-then-source order, whatever order the calls finish in.
func (o *Orchestrator) collect(ctx context.Context, cat Category, responses *cache.Cache) []article.Record {
	queries := make([]query, 0, len(cat.Keywords)*len(cat.Kinds))
	for _, kw := range cat.Keywords {
		for _, kind := range cat.Kinds {
			queries = append(queries, query{keyword: kw, kind: kind})
		}
	}

	slots := make([][]article.Record, len(queries))
	if o.cfg.Concurrency < 2 {
		for i, q := range queries {
			slots[i] = o.search(ctx, q, responses)
		}
	} else {
		var g errgroup.Group
		g.SetLimit(o.cfg.Concurrency)
		for i, q := range queries {
			g.Go(func() error {
				slots[i] = o.search(ctx, q, responses)
				return nil
			})
		}
		_ = g.Wait()
	}

	var records []article.Record
	for _, s := range slots {
		records = append(records, s...)
	}
	return records
}

func (o *Orchestrator) search(ctx context.Context, q query, responses *cache.Cache) []article.Record {
	key := responses.GenerateKey(q.kind, q.keyword, o.cfg.PerQueryLimit)
	if records, ok := responses.Get(key); ok {
		logger.Debug("Cache hit", "source", q.kind, "keyword", q.keyword)
		return records
	}

	records, err := o.sources[q.kind].Search(ctx, q.keyword, o.cfg.PerQueryLimit)
	if err != nil {
		logger.Error("Source failed", "source", q.kind, "keyword", q.keyword, "error", err)
		o.metrics.IncrementSourceFailures()
		return nil
	}
	responses.Set(key, records)
	logger.Debug("Source returned", "source", q.kind, "keyword", q.keyword, "records", len(records))
	return records
}

// process runs the fixed stage order for one category: canonicalize, drop
// malformed records, time filter, content filter, within-category dedup.
func (o *Orchestrator) process(cat Category, collected []article.Record, tf *filter.TimeFilter, cf *filter.ContentFilter) []article.Record {
	o.metrics.AddCollected(len(collected))

	wellFormed := make([]article.Record, 0, len(collected))
	for _, r := range collected {
		if !r.Valid() {
			logger.Warn("Skipping malformed record", "category", cat.Key, "source", r.Source, "title", r.Title, "link", r.Link)
			o.metrics.IncrementMalformed()
			continue
		}
		r.Link = canonical.Canonicalize(r.Link, r.Source)
		wellFormed = append(wellFormed, r)
	}

	inWindow := tf.Apply(wellFormed)
	o.metrics.AddTimeFiltered(len(wellFormed) - len(inWindow))

	clean := cf.Apply(inWindow)
	o.metrics.AddContentFiltered(len(inWindow) - len(clean))

	unique := dedup.NewWithinCategory().Apply(clean)
	o.metrics.AddDuplicatesFiltered(len(clean) - len(unique))

	for i := range unique {
		unique[i].Category = cat.Key
	}
	return unique
}
