// Package summarize turns each category's records into short summaries and
// derives one strategic insight for the whole run through a text generator.
package summarize

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/deusflow/newsdigest/internal/article"
	"github.com/deusflow/newsdigest/internal/logger"
	"github.com/deusflow/newsdigest/internal/metrics"
	"github.com/deusflow/newsdigest/internal/pipeline"
	"github.com/deusflow/newsdigest/internal/ratelimit"
	"github.com/deusflow/newsdigest/internal/retry"
)

const (
	DefaultMaxArticles = 10

	// InsightFailedText stands in for the insight when generation fails.
	InsightFailedText = "Insight generation failed."

	serviceName   = "gemini"
	maxExtractLen = 1500
)

// Generator produces text for a prompt. Implementations are expected to
// answer with a JSON object.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Summary is one summarized article.
type Summary struct {
	Index   int    `json:"index"`
	Title   string `json:"title"`
	Summary string `json:"summary"`
	Link    string `json:"link"`
}

type Insight struct {
	StrategicInsight string   `json:"strategic_insight"`
	KeyFindings      []string `json:"key_findings"`
	Recommendations  []string `json:"recommendations"`
}

// Analysis is the summarizer output for one run.
type Analysis struct {
	Summaries map[string][]Summary
	Insight   Insight
}

// AnalysisError reports a generation step that failed after all attempts.
type AnalysisError struct {
	Stage    string
	Category string
	Err      error
}

func (e *AnalysisError) Error() string {
	if e.Category != "" {
		return fmt.Sprintf("%s failed for category %s: %v", e.Stage, e.Category, e.Err)
	}
	return fmt.Sprintf("%s failed: %v", e.Stage, e.Err)
}

func (e *AnalysisError) Unwrap() error {
	return e.Err
}

type Summarizer struct {
	gen         Generator
	budget      *ratelimit.Budget
	retry       retry.RetryConfig
	maxArticles int
	metrics     *metrics.Metrics
}

type Option func(*Summarizer)

func WithRetry(cfg retry.RetryConfig) Option {
	return func(s *Summarizer) { s.retry = cfg }
}

// WithMaxArticles caps how many records of a category are sent per prompt.
func WithMaxArticles(n int) Option {
	return func(s *Summarizer) {
		if n > 0 {
			s.maxArticles = n
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Summarizer) { s.metrics = m }
}

// New builds a summarizer. A nil budget means unlimited requests.
func New(gen Generator, budget *ratelimit.Budget, opts ...Option) *Summarizer {
	if budget == nil {
		budget = ratelimit.NewBudget(0)
	}
	s := &Summarizer{
		gen:    gen,
		budget: budget,
		retry:       retry.DefaultConfig(),
		maxArticles: DefaultMaxArticles,
		metrics:     metrics.Global,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Analyze summarizes every category of res and then derives the insight.
// Failures are logged and degrade to empty summaries or the failure text; a
// run is never aborted here. names maps category keys to display names;
// extracts maps links to full article text.
func (s *Summarizer) Analyze(ctx context.Context, res *pipeline.Result, names map[string]string, extracts map[string]string) *Analysis {
	logger.Info("=== Starting AI analysis ===")
	analysis := &Analysis{Summaries: make(map[string][]Summary, len(res.Order))}

	for _, key := range res.Order {
		records := res.Categories[key]
		if len(records) == 0 {
			analysis.Summaries[key] = []Summary{}
			continue
		}

		var summaries []Summary
		var err error
		if s.budget.Allow() {
			summaries, err = s.Summarize(ctx, displayName(names, key), records, extracts)
		} else {
			err = &AnalysisError{Stage: "summary", Category: key, Err: ratelimit.ErrBudgetExhausted}
		}
		if err != nil {
			logger.Error("Summary failed", "category", key, "error", err)
			s.metrics.IncrementSummaryFailures()
			summaries = []Summary{}
		} else {
			s.metrics.IncrementSummariesGenerated()
		}
		analysis.Summaries[key] = summaries
	}

	var insight Insight
	var err error
	if s.budget.Allow() {
		insight, err = s.Insights(ctx, res.Order, names, analysis.Summaries)
	} else {
		err = &AnalysisError{Stage: "insight", Err: ratelimit.ErrBudgetExhausted}
	}
	if err != nil {
		logger.Error("Insight generation failed", "error", err)
		s.metrics.IncrementSummaryFailures()
		insight = Insight{StrategicInsight: InsightFailedText, KeyFindings: []string{}, Recommendations: []string{}}
	}
	analysis.Insight = insight

	s.budget.PrintStats()
	return analysis
}

// Summarize asks for a two to three sentence summary of each of the first
// maxArticles records of a category.
func (s *Summarizer) Summarize(ctx context.Context, category string, records []article.Record, extracts map[string]string) ([]Summary, error) {
	if len(records) > s.maxArticles {
		records = records[:s.maxArticles]
	}

	prompt := fmt.Sprintf(`The following are news articles in the category %q.

%s
Summarize each article in 2-3 sentences and answer with JSON in exactly this shape:
{
  "summaries": [
    {"index": 1, "title": "article title", "summary": "summary text", "link": "article link"}
  ]
}
`, category, formatArticles(records, extracts))

	var out struct {
		Summaries []Summary `json:"summaries"`
	}
	if err := s.call(ctx, prompt, &out); err != nil {
		return nil, &AnalysisError{Stage: "summary", Category: category, Err: err}
	}
	if out.Summaries == nil {
		out.Summaries = []Summary{}
	}
	return out.Summaries, nil
}

// Insights derives the strategic insight from all category summaries.
func (s *Summarizer) Insights(ctx context.Context, order []string, names map[string]string, summaries map[string][]Summary) (Insight, error) {
	prompt := fmt.Sprintf(`You are a strategy analyst for a mobile carrier's roaming business.
Below are summaries of today's collected news:

%s
Based on them provide:
1. strategic_insight: what today's news means for the roaming business (1-2 paragraphs)
2. key_findings: important trends or changes (3-5 items)
3. recommendations: actions worth considering (2-3 items)

Answer with JSON:
{"strategic_insight": "...", "key_findings": ["..."], "recommendations": ["..."]}
`, formatSummaries(order, names, summaries))

	var insight Insight
	if err := s.call(ctx, prompt, &insight); err != nil {
		return Insight{}, &AnalysisError{Stage: "insight", Err: err}
	}
	if insight.KeyFindings == nil {
		insight.KeyFindings = []string{}
	}
	if insight.Recommendations == nil {
		insight.Recommendations = []string{}
	}
	return insight, nil
}

// call runs one generation under the retry policy. Every attempt spends
// budget; responses that are not a JSON object are retried.
func (s *Summarizer) call(ctx context.Context, prompt string, out any) error {
	return retry.WithRetry(ctx, s.retry, func() error {
		if err := s.budget.Use(serviceName); err != nil {
			return retry.Permanent(err)
		}
		text, err := s.gen.Generate(ctx, prompt)
		if err != nil {
			return err
		}
		if err := decodeObject(text, out); err != nil {
			logger.Warn("Unusable AI response", "error", err, "response", preview(text, 300))
			return err
		}
		return nil
	})
}

var errNotObject = errors.New("response is not a JSON object")

// decodeObject unmarshals a JSON object, tolerating a markdown code fence
// around it.
func decodeObject(text string, out any) error {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		text = strings.TrimSuffix(strings.TrimSpace(text), "```")
		text = strings.TrimSpace(text)
	}
	if !strings.HasPrefix(text, "{") {
		return errNotObject
	}
	if err := json.Unmarshal([]byte(text), out); err != nil {
		return fmt.Errorf("decode JSON response: %w", err)
	}
	return nil
}

func formatArticles(records []article.Record, extracts map[string]string) string {
	var sb strings.Builder
	for i, r := range records {
		fmt.Fprintf(&sb, "[%d] %s\nLink: %s\nSnippet: %s\n", i+1, r.Title, r.Link, r.Snippet)
		if text, ok := extracts[r.Link]; ok && text != "" {
			fmt.Fprintf(&sb, "Full text: %s\n", compact(text, maxExtractLen))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func formatSummaries(order []string, names map[string]string, summaries map[string][]Summary) string {
	var sb strings.Builder
	for _, key := range order {
		fmt.Fprintf(&sb, "## %s\n", displayName(names, key))
		for _, item := range summaries[key] {
			fmt.Fprintf(&sb, "- %s: %s\n", item.Title, item.Summary)
		}
	}
	return sb.String()
}

func displayName(names map[string]string, key string) string {
	if name := names[key]; name != "" {
		return name
	}
	return key
}

// compact collapses whitespace and cuts to maxChars runes, preferring a
// sentence end.
func compact(content string, maxChars int) string {
	content = strings.Join(strings.Fields(content), " ")
	if utf8.RuneCountInString(content) <= maxChars {
		return content
	}
	trimmed := string([]rune(content)[:maxChars])
	if idx := strings.LastIndex(trimmed, ". "); idx >= 0 && utf8.RuneCountInString(trimmed[:idx]) > maxChars/3 {
		trimmed = trimmed[:idx+1]
	}
	return trimmed + " [TRUNCATED]"
}

func preview(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}
