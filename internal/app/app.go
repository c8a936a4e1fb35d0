// Package app wires configuration, sources, the pipeline and the downstream
// consumers into one run.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/deusflow/newsdigest/internal/article"
	"github.com/deusflow/newsdigest/internal/config"
	"github.com/deusflow/newsdigest/internal/gemini"
	"github.com/deusflow/newsdigest/internal/logger"
	"github.com/deusflow/newsdigest/internal/metrics"
	"github.com/deusflow/newsdigest/internal/pipeline"
	"github.com/deusflow/newsdigest/internal/ratelimit"
	"github.com/deusflow/newsdigest/internal/report"
	"github.com/deusflow/newsdigest/internal/retry"
	"github.com/deusflow/newsdigest/internal/scraper"
	"github.com/deusflow/newsdigest/internal/sources"
	"github.com/deusflow/newsdigest/internal/storage"
	"github.com/deusflow/newsdigest/internal/summarize"
	"github.com/deusflow/newsdigest/internal/telegram"
)

type App struct {
	cfg  *config.Config
	cats *config.CategoriesConfig

	sources   []pipeline.Source
	generator summarize.Generator
	notifier  *telegram.Client
	extractor *scraper.Extractor
	metrics   *metrics.Metrics
	now       func() time.Time
}

type Option func(*App)

// WithSources replaces the sources built from configuration.
func WithSources(s ...pipeline.Source) Option {
	return func(a *App) { a.sources = s }
}

// WithGenerator replaces the Gemini client.
func WithGenerator(g summarize.Generator) Option {
	return func(a *App) { a.generator = g }
}

// WithNotifier replaces the Telegram client built from configuration.
func WithNotifier(n *telegram.Client) Option {
	return func(a *App) { a.notifier = n }
}

// WithMetrics records every counter of the run on m instead of metrics.Global.
func WithMetrics(m *metrics.Metrics) Option {
	return func(a *App) { a.metrics = m }
}

func WithClock(now func() time.Time) Option {
	return func(a *App) { a.now = now }
}

func New(cfg *config.Config, cats *config.CategoriesConfig, opts ...Option) (*App, error) {
	a := &App{cfg: cfg, cats: cats, metrics: metrics.Global, now: time.Now}
	for _, opt := range opts {
		opt(a)
	}
	if a.sources == nil {
		srcs, err := BuildSources(cfg, cats, sources.WithMetrics(a.metrics))
		if err != nil {
			return nil, err
		}
		a.sources = srcs
	}
	if a.notifier == nil && cfg.TelegramEnabled() {
		a.notifier = telegram.New(cfg.TelegramToken, cfg.TelegramChatID)
	}
	if cfg.ScrapeMaxArticles > 0 {
		a.extractor = scraper.New(&http.Client{Timeout: cfg.RequestTimeout}, cfg.ScrapeConcurrency)
	}
	return a, nil
}

// retryConfig starts from retry.DefaultConfig and applies the configured
// attempts and delay when they are set.
func retryConfig(cfg *config.Config) retry.RetryConfig {
	rc := retry.DefaultConfig()
	if cfg.RetryAttempts > 0 {
		rc.MaxAttempts = cfg.RetryAttempts
	}
	if cfg.RetryDelay > 0 {
		rc.Delay = cfg.RetryDelay
		rc.MaxDelay = 10 * cfg.RetryDelay
	}
	return rc
}

// BuildSources creates one source per kind enabled by any category. extra
// options are applied to every HTTP provider after the configured ones.
func BuildSources(cfg *config.Config, cats *config.CategoriesConfig, extra ...sources.Option) ([]pipeline.Source, error) {
	enabled := make(map[article.SourceKind]bool)
	for _, cat := range cats.Categories {
		for _, k := range cat.Kinds() {
			enabled[k] = true
		}
	}

	opts := append([]sources.Option{
		sources.WithHTTPClient(&http.Client{Timeout: cfg.RequestTimeout}),
		sources.WithRetry(retryConfig(cfg)),
	}, extra...)

	var out []pipeline.Source
	var naver *sources.Naver
	for _, kind := range article.Kinds {
		if !enabled[kind] {
			continue
		}
		switch {
		case kind.IsDomestic():
			if naver == nil {
				naver = sources.NewNaver(cfg.NaverClientID, cfg.NaverClientSecret, opts...)
			}
			src, err := naver.Source(kind)
			if err != nil {
				return nil, err
			}
			out = append(out, src)
		case kind == article.SourceGlobalSearch:
			out = append(out, sources.NewGoogle(cfg.GoogleAPIKey, cfg.SearchEngineID, opts...))
		case kind == article.SourceFeed:
			out = append(out, sources.NewFeed(cats.Feeds))
		}
	}
	return out, nil
}

// Names maps category keys to display names.
func Names(cats *config.CategoriesConfig) map[string]string {
	names := make(map[string]string, len(cats.Categories))
	for _, cat := range cats.Categories {
		names[cat.Key] = cat.DisplayName()
	}
	return names
}

// PipelineConfig translates the loaded configuration for the orchestrator.
func PipelineConfig(cfg *config.Config, cats *config.CategoriesConfig) pipeline.Config {
	pc := pipeline.Config{
		Window:           cfg.TimeWindow(),
		PerQueryLimit:    cfg.PerQueryLimit,
		BlacklistDomains: cats.Filters.BlacklistDomains,
		ExcludedKeywords: cats.Filters.ExcludedKeywords,
		Concurrency:      cfg.SourceConcurrency,
	}
	for _, cat := range cats.Categories {
		pc.Categories = append(pc.Categories, pipeline.Category{
			Key:      cat.Key,
			Name:     cat.DisplayName(),
			Keywords: cat.Keywords,
			Kinds:    cat.Kinds(),
		})
	}
	return pc
}

// Collect runs the collection pipeline only.
func (a *App) Collect(ctx context.Context) (*pipeline.Result, error) {
	orch, err := pipeline.New(PipelineConfig(a.cfg, a.cats), a.sources,
		pipeline.WithClock(a.now), pipeline.WithMetrics(a.metrics))
	if err != nil {
		return nil, fmt.Errorf("pipeline setup: %w", err)
	}
	return orch.Run(ctx)
}

// Run collects, analyzes, renders, archives and delivers one digest.
func (a *App) Run(ctx context.Context) error {
	started := a.now()
	res, err := a.Collect(ctx)
	if err != nil {
		return err
	}
	if res.Total() == 0 {
		logger.Warn("No articles collected")
	}

	names := Names(a.cats)
	analysis, err := a.analyze(ctx, res, names)
	if err != nil {
		return err
	}

	if err := report.WriteFile(a.cfg.ReportOutputPath, report.Build(res, names, analysis, started)); err != nil {
		return err
	}

	a.archive(res, analysis, started)

	if a.notifier != nil {
		msgs := telegram.FormatDigest(res, names, analysis, telegram.DigestOptions{Date: started})
		sent, err := a.notifier.SendAll(ctx, msgs)
		for i := 0; i < sent; i++ {
			a.metrics.IncrementMessagesSent()
		}
		if err != nil {
			return fmt.Errorf("telegram delivery: %w", err)
		}
	} else {
		logger.Info("Telegram not configured, skipping delivery")
	}

	a.metrics.SetLastRun()
	logger.Info("=== Run completed ===", "unique", res.UniqueCount(), "duration", a.now().Sub(started).Round(time.Millisecond))
	return nil
}

// analyze returns nil when summaries are disabled.
func (a *App) analyze(ctx context.Context, res *pipeline.Result, names map[string]string) (*summarize.Analysis, error) {
	gen := a.generator
	if gen == nil {
		if !a.cfg.SummariesEnabled() {
			logger.Info("GEMINI_API_KEY not set, skipping summaries")
			return nil, nil
		}
		client, err := gemini.NewClient(ctx, a.cfg.GeminiAPIKey, a.cfg.GeminiModel)
		if err != nil {
			return nil, err
		}
		defer client.Close()
		gen = client
	}

	s := summarize.New(gen, ratelimit.NewBudget(a.cfg.MaxGeminiRequests),
		summarize.WithRetry(retryConfig(a.cfg)),
		summarize.WithMaxArticles(a.cfg.MaxArticlesPerCategory),
		summarize.WithMetrics(a.metrics))
	return s.Analyze(ctx, res, names, a.extracts(ctx, res)), nil
}

// extracts fetches full text for the leading links of each category.
func (a *App) extracts(ctx context.Context, res *pipeline.Result) map[string]string {
	if a.extractor == nil {
		return nil
	}

	seen := make(map[string]bool)
	var urls []string
	for _, key := range res.Order {
		for i, r := range res.Categories[key] {
			if i >= a.cfg.ScrapeMaxArticles {
				break
			}
			if !seen[r.Link] {
				seen[r.Link] = true
				urls = append(urls, r.Link)
			}
		}
	}

	contents := a.extractor.ExtractAll(ctx, urls)
	out := make(map[string]string, len(contents))
	for link, c := range contents {
		out[link] = c.Content
	}
	return out
}

// archive failures are logged; they never fail the run.
func (a *App) archive(res *pipeline.Result, analysis *summarize.Analysis, started time.Time) {
	arch := storage.NewArchive(a.cfg.ArchiveDir, time.Duration(a.cfg.ArchiveTTLHours)*time.Hour)

	run := storage.NewRunRecord(started)
	run.Order = res.Order
	run.Categories = res.Categories
	run.UniqueCount = res.UniqueCount()
	if analysis != nil {
		run.Summaries = analysis.Summaries
		insight := analysis.Insight
		run.Insight = &insight
	}

	if _, err := arch.Save(run); err != nil {
		logger.Error("Failed to archive run", "error", err)
		return
	}
	if _, err := arch.Prune(a.now()); err != nil {
		logger.Warn("Failed to prune archive", "error", err)
	}
}

// History returns up to limit archived runs, newest first. A limit of zero
// returns all of them.
func (a *App) History(limit int) ([]*storage.RunRecord, error) {
	arch := storage.NewArchive(a.cfg.ArchiveDir, 0)
	paths, err := arch.List()
	if err != nil {
		return nil, err
	}

	var runs []*storage.RunRecord
	for i := len(paths) - 1; i >= 0; i-- {
		if limit > 0 && len(runs) >= limit {
			break
		}
		run, err := arch.Load(paths[i])
		if err != nil {
			logger.Warn("Skipping unreadable archive", "path", paths[i], "error", err)
			continue
		}
		runs = append(runs, run)
	}
	return runs, nil
}
