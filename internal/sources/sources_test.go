package sources

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deusflow/newsdigest/internal/article"
	"github.com/deusflow/newsdigest/internal/metrics"
	"github.com/deusflow/newsdigest/internal/retry"
)

var fastRetry = retry.RetryConfig{MaxAttempts: 3, Delay: time.Millisecond, Backoff: false}

func newTestNaver(url string) *Naver {
	return NewNaver("id", "secret", WithBaseURL(url), WithRetry(fastRetry), WithMinInterval(0))
}

func TestNaverNewsSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/news.json", r.URL.Path)
		assert.Equal(t, "id", r.Header.Get("X-Naver-Client-Id"))
		assert.Equal(t, "secret", r.Header.Get("X-Naver-Client-Secret"))
		assert.Equal(t, "roaming", r.URL.Query().Get("query"))
		assert.Equal(t, "5", r.URL.Query().Get("display"))
		assert.Equal(t, "date", r.URL.Query().Get("sort"))

		fmt.Fprint(w, `{"items":[
			{"title":"<b>Roaming</b> news","link":"https://news.example.com/1","description":"d1","pubDate":"Mon, 02 Jan 2006 15:04:05 +0900"},
			{"title":"broken","link":"https://news.example.com/2","description":"d2","pubDate":"yesterday"}
		]}`)
	}))
	defer srv.Close()

	src, err := newTestNaver(srv.URL).Source(article.SourceDomesticNews)
	require.NoError(t, err)
	assert.Equal(t, article.SourceDomesticNews, src.Kind())

	records, err := src.Search(context.Background(), "roaming", 5)
	require.NoError(t, err)
	require.Len(t, records, 1)

	rec := records[0]
	assert.Equal(t, "<b>Roaming</b> news", rec.Title)
	assert.Equal(t, article.SourceDomesticNews, rec.Source)
	require.NotNil(t, rec.Published)
	assert.True(t, rec.Published.Equal(time.Date(2006, 1, 2, 6, 4, 5, 0, time.UTC)))
}

func TestNaverBlogPostDate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/blog.json", r.URL.Path)
		fmt.Fprint(w, `{"items":[
			{"title":"with date","link":"https://blog.naver.com/a/1","description":"x","postdate":"20240315"},
			{"title":"no date","link":"https://blog.naver.com/a/2","description":"y"}
		]}`)
	}))
	defer srv.Close()

	m := metrics.New()
	naver := NewNaver("id", "secret", WithBaseURL(srv.URL), WithRetry(fastRetry), WithMinInterval(0), WithMetrics(m))
	src, err := naver.Source(article.SourceDomesticBlog)
	require.NoError(t, err)

	records, err := src.Search(context.Background(), "eSIM", 5)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "with date", records[0].Title)
	assert.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), *records[0].Published)
	assert.Equal(t, int64(1), m.GetStats()["malformed_skipped"])
}

func TestNaverForumEndpoint(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/cafearticle.json", r.URL.Path)
		fmt.Fprint(w, `{"items":[]}`)
	}))
	defer srv.Close()

	src, err := newTestNaver(srv.URL).Source(article.SourceDomesticForum)
	require.NoError(t, err)
	records, err := src.Search(context.Background(), "5G", 5)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestNaverRejectsForeignKind(t *testing.T) {
	_, err := NewNaver("id", "secret").Source(article.SourceGlobalSearch)
	assert.Error(t, err)
}

func TestNaverStatusHandling(t *testing.T) {
	tests := []struct {
		name      string
		statuses  []int
		wantCalls int32
		check     func(t *testing.T, err error)
	}{
		{
			name:      "rate limited is not retried",
			statuses:  []int{http.StatusTooManyRequests},
			wantCalls: 1,
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrRateLimited)
			},
		},
		{
			name:      "client error is not retried",
			statuses:  []int{http.StatusUnauthorized},
			wantCalls: 1,
			check: func(t *testing.T, err error) {
				var statusErr *StatusError
				require.True(t, errors.As(err, &statusErr))
				assert.Equal(t, http.StatusUnauthorized, statusErr.StatusCode)
			},
		},
		{
			name:      "server error is retried until success",
			statuses:  []int{http.StatusBadGateway, http.StatusOK},
			wantCalls: 2,
			check: func(t *testing.T, err error) {
				assert.NoError(t, err)
			},
		},
		{
			name:      "server error exhausts attempts",
			statuses:  []int{500, 500, 500},
			wantCalls: 3,
			check: func(t *testing.T, err error) {
				var exhausted *retry.ExhaustedError
				assert.True(t, errors.As(err, &exhausted))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				n := atomic.AddInt32(&calls, 1)
				status := tt.statuses[int(n)-1]
				w.WriteHeader(status)
				if status == http.StatusOK {
					fmt.Fprint(w, `{"items":[]}`)
				}
			}))
			defer srv.Close()

			src, err := newTestNaver(srv.URL).Source(article.SourceDomesticNews)
			require.NoError(t, err)
			_, err = src.Search(context.Background(), "q", 5)
			tt.check(t, err)
			assert.Equal(t, tt.wantCalls, atomic.LoadInt32(&calls))
		})
	}
}

func TestNaverPacesRequests(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"items":[]}`)
	}))
	defer srv.Close()

	n := NewNaver("id", "secret", WithBaseURL(srv.URL), WithRetry(fastRetry), WithMinInterval(50*time.Millisecond))
	news, err := n.Source(article.SourceDomesticNews)
	require.NoError(t, err)
	blog, err := n.Source(article.SourceDomesticBlog)
	require.NoError(t, err)

	start := time.Now()
	_, err = news.Search(context.Background(), "a", 1)
	require.NoError(t, err)
	_, err = blog.Search(context.Background(), "a", 1)
	require.NoError(t, err)
	_, err = news.Search(context.Background(), "b", 1)
	require.NoError(t, err)

	assert.GreaterOrEqual(t, time.Since(start), 100*time.Millisecond)
}

func TestGoogleSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "key", q.Get("key"))
		assert.Equal(t, "cx", q.Get("cx"))
		assert.Equal(t, "roaming", q.Get("q"))
		assert.Equal(t, "10", q.Get("num"))
		fmt.Fprint(w, `{"items":[{"title":"Global roaming","link":"https://global.example.com/a","snippet":"s"}]}`)
	}))
	defer srv.Close()

	g := NewGoogle("key", "cx", WithBaseURL(srv.URL), WithRetry(fastRetry))
	assert.Equal(t, article.SourceGlobalSearch, g.Kind())

	records, err := g.Search(context.Background(), "roaming", 25)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Global roaming", records[0].Title)
	assert.Equal(t, "s", records[0].Snippet)
	assert.Nil(t, records[0].Published)
}

func TestGoogleMissingItems(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"searchInformation":{"totalResults":"0"}}`)
	}))
	defer srv.Close()

	records, err := NewGoogle("key", "cx", WithBaseURL(srv.URL), WithRetry(fastRetry)).Search(context.Background(), "none", 5)
	require.NoError(t, err)
	assert.Empty(t, records)
}

const testRSS = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel><title>Telecom</title>
<item><title>Old roaming plan</title><link>https://feed.example.com/old</link><description>older</description><pubDate>Mon, 01 Jan 2024 10:00:00 +0000</pubDate></item>
<item><title>Weather</title><link>https://feed.example.com/weather</link><description>sunny</description><pubDate>Tue, 02 Jan 2024 10:00:00 +0000</pubDate></item>
<item><title>Undated</title><link>https://feed.example.com/undated</link><description>about ROAMING fees</description></item>
<item><title>New Roaming deal</title><link>https://feed.example.com/new</link><description>newer</description><pubDate>Wed, 03 Jan 2024 10:00:00 +0000</pubDate></item>
</channel></rss>`

func TestFeedSearch(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		atomic.AddInt32(&hits, 1)
		w.Header().Set("Content-Type", "application/rss+xml")
		fmt.Fprint(w, testRSS)
	}))
	defer srv.Close()

	f := NewFeed([]string{srv.URL + "/missing", srv.URL + "/rss"})
	assert.Equal(t, article.SourceFeed, f.Kind())

	records, err := f.Search(context.Background(), "roaming", 10)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "https://feed.example.com/new", records[0].Link)
	assert.Equal(t, "https://feed.example.com/old", records[1].Link)
	assert.Equal(t, "https://feed.example.com/undated", records[2].Link)
	assert.Nil(t, records[2].Published)
	assert.Equal(t, article.SourceFeed, records[0].Source)

	limited, err := f.Search(context.Background(), "roaming", 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "https://feed.example.com/new", limited[0].Link)

	assert.Equal(t, int32(1), atomic.LoadInt32(&hits), "feeds are downloaded once")
}

func TestFeedAllFailing(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	f := NewFeed([]string{srv.URL + "/a"})
	_, err := f.Search(context.Background(), "x", 5)
	assert.Error(t, err)
}
