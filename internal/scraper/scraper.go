// Package scraper fetches article pages and extracts their body text to give
// the summarizer more than the search snippet.
package scraper

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/sync/errgroup"

	"github.com/deusflow/newsdigest/internal/logger"
)

const (
	DefaultTimeout = 15 * time.Second

	// minContentLength is the shortest body worth passing on.
	minContentLength = 100
	maxContentLength = 1800
)

// ArticleContent is full article content
type ArticleContent struct {
	Title   string
	Content string
	URL     string
}

// Doer is the subset of *http.Client the extractor uses.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

type Extractor struct {
	client      Doer
	concurrency int
}

// New returns an extractor running at most concurrency fetches at a time.
func New(client Doer, concurrency int) *Extractor {
	if client == nil {
		client = &http.Client{Timeout: DefaultTimeout}
	}
	if concurrency < 1 {
		concurrency = 1
	}
	return &Extractor{client: client, concurrency: concurrency}
}

// ExtractFullArticle gets full text of article by URL
func (e *Extractor) ExtractFullArticle(ctx context.Context, url string) (*ArticleContent, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; newsdigest/1.0)")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error loading page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error parsing HTML: %w", err)
	}

	content := cleanContent(extractContentBySource(doc, url))
	if content == "" {
		return nil, fmt.Errorf("can't get content")
	}

	return &ArticleContent{
		Title:   extractTitle(doc),
		Content: content,
		URL:     url,
	}, nil
}

// ExtractAll fetches urls concurrently and returns the usable bodies keyed by
// URL. Failures are logged and left out.
func (e *Extractor) ExtractAll(ctx context.Context, urls []string) map[string]*ArticleContent {
	var (
		mu     sync.Mutex
		result = make(map[string]*ArticleContent, len(urls))
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)
	for _, url := range urls {
		g.Go(func() error {
			article, err := e.ExtractFullArticle(gctx, url)
			if err != nil {
				logger.Warn("Can't get article content", "url", url, "error", err)
				return nil
			}
			if len(article.Content) < minContentLength {
				logger.Debug("Content too short", "url", url, "chars", len(article.Content))
				return nil
			}

			mu.Lock()
			result[url] = article
			mu.Unlock()
			logger.Debug("Got article content", "url", url, "chars", len(article.Content))
			return nil
		})
	}
	_ = g.Wait()

	logger.Info("Article extraction", "ok", len(result), "total", len(urls))
	return result
}

// Domestic portals keep the body in known containers; everything else goes
// through the generic selectors.
var siteSelectors = []struct {
	host      string
	selectors []string
}{
	{"news.naver.com", []string{"#dic_area", "#newsct_article", "#articleBodyContents"}},
	{"blog.naver.com", []string{".se-main-container", "#postViewArea"}},
	{"cafe.naver.com", []string{".se-main-container", "#tbody"}},
}

var genericSelectors = []string{
	"article p",
	".article p",
	".article-body p",
	".content p",
	".post-content p",
	".entry-content p",
	"main p",
	"#content p",
	"p",
}

// extractContentBySource gets content by news site
func extractContentBySource(doc *goquery.Document, url string) string {
	for _, site := range siteSelectors {
		if !strings.Contains(url, site.host) {
			continue
		}
		for _, selector := range site.selectors {
			if text := strings.TrimSpace(doc.Find(selector).First().Text()); text != "" {
				return text
			}
		}
	}
	return extractGenericContent(doc)
}

// extractGenericContent is universal parser for any site
func extractGenericContent(doc *goquery.Document) string {
	var paragraphs []string

	for _, selector := range genericSelectors {
		doc.Find(selector).Each(func(i int, s *goquery.Selection) {
			text := strings.TrimSpace(s.Text())
			if len(text) > 20 {
				paragraphs = append(paragraphs, text)
			}
		})
		if len(paragraphs) >= 3 { // If we find 3 paragraphs, it's enough
			break
		}
	}

	return strings.Join(paragraphs, "\n\n")
}

// extractTitle gets article title
func extractTitle(doc *goquery.Document) string {
	selectors := []string{
		"meta[property='og:title']",
		"h1",
		"title",
	}

	for _, selector := range selectors {
		sel := doc.Find(selector).First()
		title := strings.TrimSpace(sel.AttrOr("content", sel.Text()))
		if title != "" {
			return title
		}
	}

	return ""
}

var junkIndicators = []string{
	"cookie", "privacy policy", "subscribe", "sign in", "log in",
	"all rights reserved", "copyright", "무단전재", "재배포 금지",
}

// cleanContent joins lines into paragraphs, drops boilerplate lines and
// trims the result to whole paragraphs within maxContentLength.
func cleanContent(content string) string {
	if content == "" {
		return ""
	}

	var paragraphs []string
	var current strings.Builder
	flush := func() {
		p := strings.Join(strings.Fields(current.String()), " ")
		if len(p) > 30 {
			paragraphs = append(paragraphs, p)
		}
		current.Reset()
	}

	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if len(line) < 8 {
			flush()
			continue
		}

		lower := strings.ToLower(line)
		junk := false
		for _, indicator := range junkIndicators {
			if strings.Contains(lower, indicator) {
				junk = true
				break
			}
		}
		if junk {
			continue
		}

		if current.Len() > 0 {
			current.WriteString(" ")
		}
		current.WriteString(line)
		if strings.HasSuffix(line, ".") || strings.HasSuffix(line, "!") || strings.HasSuffix(line, "?") {
			flush()
		}
	}
	flush()

	var selected []string
	total := 0
	for _, p := range paragraphs {
		if total+len(p) > maxContentLength && len(selected) > 0 {
			break
		}
		selected = append(selected, p)
		total += len(p) + 2
	}

	return strings.Join(selected, "\n\n")
}
