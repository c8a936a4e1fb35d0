package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deusflow/newsdigest/internal/article"
)

func writeCategories(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "categories.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

const validCategories = `
categories:
  zeta:
    name: Zeta first
    keywords: [roaming, eSIM]
    sources: [global-search, domestic-news]
  alpha:
    keywords: [5G]
    sources: [domestic-forum]
filters:
  blacklist_domains: [spam.example.com]
  excluded_keywords: [ad]
`

func TestLoadCategoriesPreservesOrder(t *testing.T) {
	cfg, err := LoadCategories(writeCategories(t, validCategories))
	require.NoError(t, err)

	assert.Equal(t, []string{"zeta", "alpha"}, cfg.Keys())
	assert.Equal(t, "Zeta first", cfg.Categories[0].DisplayName())
	assert.Equal(t, "alpha", cfg.Categories[1].DisplayName())
	assert.Equal(t, []string{"roaming", "eSIM"}, cfg.Categories[0].Keywords)
	assert.Equal(t, []string{"spam.example.com"}, cfg.Filters.BlacklistDomains)
}

func TestCategoryKindsFollowVisitOrder(t *testing.T) {
	cat := Category{Sources: []string{"feed", "global-search", "domestic-news"}}
	assert.Equal(t, []article.SourceKind{
		article.SourceDomesticNews,
		article.SourceGlobalSearch,
		article.SourceFeed,
	}, cat.Kinds())
}

func TestLoadCategoriesValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
		want error
	}{
		{
			name: "no categories",
			body: "categories: {}\nfilters:\n  blacklist_domains: []\n  excluded_keywords: []\n",
			want: ErrNoCategories,
		},
		{
			name: "missing filters",
			body: "categories:\n  a:\n    keywords: [x]\n    sources: [feed]\nfeeds: [http://f]\n",
			want: ErrMissingFilters,
		},
		{
			name: "missing blacklist",
			body: "categories:\n  a:\n    keywords: [x]\n    sources: [feed]\nfeeds: [http://f]\nfilters:\n  excluded_keywords: []\n",
			want: ErrMissingBlacklist,
		},
		{
			name: "null excluded keywords",
			body: "categories:\n  a:\n    keywords: [x]\n    sources: [feed]\nfeeds: [http://f]\nfilters:\n  blacklist_domains: []\n  excluded_keywords:\n",
			want: ErrMissingExcludedKeywords,
		},
		{
			name: "no keywords",
			body: "categories:\n  a:\n    sources: [feed]\nfeeds: [http://f]\nfilters:\n  blacklist_domains: []\n  excluded_keywords: []\n",
			want: ErrNoKeywords,
		},
		{
			name: "no sources",
			body: "categories:\n  a:\n    keywords: [x]\nfilters:\n  blacklist_domains: []\n  excluded_keywords: []\n",
			want: ErrNoSources,
		},
		{
			name: "feed without feeds",
			body: "categories:\n  a:\n    keywords: [x]\n    sources: [feed]\nfilters:\n  blacklist_domains: []\n  excluded_keywords: []\n",
			want: ErrNoFeeds,
		},
		{
			name: "duplicate key",
			body: "categories:\n  a:\n    keywords: [x]\n    sources: [feed]\n  a:\n    keywords: [y]\n    sources: [feed]\nfeeds: [http://f]\nfilters:\n  blacklist_domains: []\n  excluded_keywords: []\n",
			want: ErrDuplicateCategory,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadCategories(writeCategories(t, tt.body))
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestLoadCategoriesUnknownSource(t *testing.T) {
	body := "categories:\n  a:\n    keywords: [x]\n    sources: [carrier-pigeon]\nfilters:\n  blacklist_domains: []\n  excluded_keywords: []\n"
	_, err := LoadCategories(writeCategories(t, body))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "carrier-pigeon")
}

func TestLoadCategoriesEmptyFilterListsAllowed(t *testing.T) {
	body := "categories:\n  a:\n    keywords: [x]\n    sources: [feed]\nfeeds: [http://f]\nfilters:\n  blacklist_domains: []\n  excluded_keywords: []\n"
	cfg, err := LoadCategories(writeCategories(t, body))
	require.NoError(t, err)
	assert.Empty(t, cfg.Filters.BlacklistDomains)
	assert.NotNil(t, cfg.Filters.BlacklistDomains)
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("TIME_WINDOW_HOURS", "")
	t.Setenv("PER_QUERY_LIMIT", "")
	t.Setenv("TELEGRAM_TOKEN", "")
	t.Setenv("TELEGRAM_CHAT_ID", "")
	t.Setenv("REQUEST_TIMEOUT", "15s")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 24, cfg.TimeWindowHours)
	assert.Equal(t, 24*time.Hour, cfg.TimeWindow())
	assert.Equal(t, 5, cfg.PerQueryLimit)
	assert.Equal(t, 10, cfg.MaxArticlesPerCategory)
	assert.Equal(t, 15*time.Second, cfg.RequestTimeout)
	assert.False(t, cfg.TelegramEnabled())
}

func TestLoadRejectsNonPositiveWindow(t *testing.T) {
	t.Setenv("TIME_WINDOW_HOURS", "0")
	_, err := Load()
	assert.ErrorIs(t, err, ErrInvalidTimeWindow)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{TimeWindowHours: 24, PerQueryLimit: 5, MaxArticlesPerCategory: 10, SourceConcurrency: 1}
	}

	assert.NoError(t, base().Validate())

	c := base()
	c.PerQueryLimit = 0
	assert.ErrorIs(t, c.Validate(), ErrInvalidPerQueryLimit)

	c = base()
	c.SourceConcurrency = 0
	assert.ErrorIs(t, c.Validate(), ErrInvalidConcurrency)

	c = base()
	c.TelegramToken = "token"
	assert.ErrorIs(t, c.Validate(), ErrIncompleteTelegram)
}

func TestValidateCredentials(t *testing.T) {
	cats := &CategoriesConfig{Categories: Categories{
		{Key: "a", Keywords: []string{"x"}, Sources: []string{"domestic-blog"}},
		{Key: "b", Keywords: []string{"y"}, Sources: []string{"global-search"}},
	}}

	c := &Config{}
	assert.ErrorIs(t, c.ValidateCredentials(cats), ErrMissingNaverCredential)

	c.NaverClientID, c.NaverClientSecret = "id", "secret"
	assert.ErrorIs(t, c.ValidateCredentials(cats), ErrMissingGoogleCredential)

	c.GoogleAPIKey, c.SearchEngineID = "key", "cx"
	assert.NoError(t, c.ValidateCredentials(cats))

	feedOnly := &CategoriesConfig{Categories: Categories{{Key: "f", Keywords: []string{"x"}, Sources: []string{"feed"}}}}
	assert.NoError(t, (&Config{}).ValidateCredentials(feedOnly))
}
