package sources

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/deusflow/newsdigest/internal/article"
	"github.com/deusflow/newsdigest/internal/logger"
)

const (
	googleBaseURL = "https://www.googleapis.com/customsearch/v1"

	// googleMaxResults is the most results Custom Search returns per call.
	googleMaxResults = 10
)

// Google searches the web through a Custom Search engine. Results carry no
// publication time.
type Google struct {
	apiKey   string
	engineID string
	opts     options
}

func NewGoogle(apiKey, engineID string, opts ...Option) *Google {
	o := defaultOptions(googleBaseURL)
	for _, opt := range opts {
		opt(&o)
	}
	return &Google{apiKey: apiKey, engineID: engineID, opts: o}
}

func (g *Google) Kind() article.SourceKind { return article.SourceGlobalSearch }

type googleResponse struct {
	Items []struct {
		Title   string `json:"title"`
		Link    string `json:"link"`
		Snippet string `json:"snippet"`
	} `json:"items"`
}

func (g *Google) Search(ctx context.Context, keyword string, limit int) ([]article.Record, error) {
	if limit > googleMaxResults {
		limit = googleMaxResults
	}
	params := url.Values{}
	params.Set("key", g.apiKey)
	params.Set("cx", g.engineID)
	params.Set("q", keyword)
	params.Set("num", strconv.Itoa(limit))
	endpoint := g.opts.baseURL + "?" + params.Encode()

	var resp googleResponse
	err := fetchJSON(ctx, g.opts.client, g.opts.retry, func() (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("google search %q: %w", keyword, err)
	}

	records := make([]article.Record, 0, len(resp.Items))
	for _, item := range resp.Items {
		records = append(records, article.Record{
			Title:   item.Title,
			Link:    item.Link,
			Snippet: item.Snippet,
			Source:  article.SourceGlobalSearch,
		})
	}
	logger.Debug("Google search done", "keyword", keyword, "records", len(records))
	return records, nil
}
