package sources

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/deusflow/newsdigest/internal/article"
	"github.com/deusflow/newsdigest/internal/logger"
)

const (
	naverBaseURL = "https://openapi.naver.com/v1/search"

	// NaverMinInterval is the spacing the search API tolerates between calls.
	NaverMinInterval = 300 * time.Millisecond

	naverPostDateLayout = "20060102"
)

var naverEndpoints = map[article.SourceKind]string{
	article.SourceDomesticNews:  "news",
	article.SourceDomesticBlog:  "blog",
	article.SourceDomesticForum: "cafearticle",
}

// Naver is a client for the Naver search API. All sources built from one
// client share its request pacing.
type Naver struct {
	clientID     string
	clientSecret string
	opts         options
	limiter      *rate.Limiter
}

func NewNaver(clientID, clientSecret string, opts ...Option) *Naver {
	o := defaultOptions(naverBaseURL)
	o.interval = NaverMinInterval
	for _, opt := range opts {
		opt(&o)
	}

	limit := rate.Inf
	if o.interval > 0 {
		limit = rate.Every(o.interval)
	}
	return &Naver{
		clientID:     clientID,
		clientSecret: clientSecret,
		opts:         o,
		limiter:      rate.NewLimiter(limit, 1),
	}
}

// Source returns the search source for one of the domestic kinds.
func (n *Naver) Source(kind article.SourceKind) (*NaverSource, error) {
	endpoint, ok := naverEndpoints[kind]
	if !ok {
		return nil, fmt.Errorf("naver does not serve source kind %q", kind)
	}
	return &NaverSource{client: n, kind: kind, endpoint: endpoint}, nil
}

// NaverSource searches a single Naver endpoint.
type NaverSource struct {
	client   *Naver
	kind     article.SourceKind
	endpoint string
}

func (s *NaverSource) Kind() article.SourceKind { return s.kind }

type naverResponse struct {
	Items []naverItem `json:"items"`
}

type naverItem struct {
	Title       string `json:"title"`
	Link        string `json:"link"`
	Description string `json:"description"`
	PubDate     string `json:"pubDate"`
	PostDate    string `json:"postdate"`
}

// Search returns up to limit of the most recent results for keyword.
func (s *NaverSource) Search(ctx context.Context, keyword string, limit int) ([]article.Record, error) {
	n := s.client
	params := url.Values{}
	params.Set("query", keyword)
	params.Set("display", strconv.Itoa(limit))
	params.Set("sort", "date")
	endpoint := fmt.Sprintf("%s/%s.json?%s", n.opts.baseURL, s.endpoint, params.Encode())

	var resp naverResponse
	err := fetchJSON(ctx, n.opts.client, n.opts.retry, func() (*http.Request, error) {
		if err := n.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("X-Naver-Client-Id", n.clientID)
		req.Header.Set("X-Naver-Client-Secret", n.clientSecret)
		return req, nil
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("naver %s search %q: %w", s.endpoint, keyword, err)
	}

	records := make([]article.Record, 0, len(resp.Items))
	for _, item := range resp.Items {
		published, err := s.published(item)
		if err != nil {
			logger.Warn("Skipping item with unusable date", "source", s.kind, "link", item.Link, "error", err)
			n.opts.metrics.IncrementMalformed()
			continue
		}
		records = append(records, article.Record{
			Title:     item.Title,
			Link:      item.Link,
			Snippet:   item.Description,
			Source:    s.kind,
			Published: &published,
		})
	}
	logger.Debug("Naver search done", "source", s.kind, "keyword", keyword, "items", len(resp.Items), "records", len(records))
	return records, nil
}

// published reads pubDate for news and the day-granular postdate for blog
// and cafe results.
func (s *NaverSource) published(item naverItem) (time.Time, error) {
	if s.kind == article.SourceDomesticNews {
		if item.PubDate == "" {
			return time.Time{}, fmt.Errorf("missing pubDate")
		}
		return time.Parse(time.RFC1123Z, item.PubDate)
	}
	if item.PostDate == "" {
		return time.Time{}, fmt.Errorf("missing postdate")
	}
	return time.ParseInLocation(naverPostDateLayout, item.PostDate, time.UTC)
}
