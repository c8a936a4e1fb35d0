package filter

import (
	"strings"

	"github.com/deusflow/newsdigest/internal/article"
	"github.com/deusflow/newsdigest/internal/logger"
)

// Domestic blog and forum domains the news endpoint sometimes returns.
var domesticCommunityDomains = []string{
	"cafe.naver.com",
	"blog.naver.com",
}

// ContentFilter rejects records by link blacklist and excluded keywords.
// All matches are plain substring matches, so a keyword also matches inside
// longer words.
type ContentFilter struct {
	blacklist []string
	excluded  []string
}

// NewContentFilter lower-cases the excluded keywords; blacklist entries are
// matched as given.
func NewContentFilter(blacklist, excludedKeywords []string) *ContentFilter {
	f := &ContentFilter{
		blacklist: make([]string, 0, len(blacklist)),
		excluded:  make([]string, 0, len(excludedKeywords)),
	}
	for _, b := range blacklist {
		if b != "" {
			f.blacklist = append(f.blacklist, b)
		}
	}
	for _, kw := range excludedKeywords {
		if kw = strings.ToLower(kw); kw != "" {
			f.excluded = append(f.excluded, kw)
		}
	}
	return f
}

// Validate reports whether r passes every content check.
func (f *ContentFilter) Validate(r article.Record) bool {
	if r.Source == article.SourceDomesticNews && containsAny(r.Link, domesticCommunityDomains) {
		logger.Debug("filtered: community link on news endpoint", "link", r.Link)
		return false
	}

	if blocked, ok := firstContained(r.Link, f.blacklist); ok {
		logger.Debug("filtered: link blacklist", "pattern", blocked, "title", r.Title)
		return false
	}

	text := strings.ToLower(r.Title) + " " + strings.ToLower(r.Snippet)
	if kw, ok := firstContained(text, f.excluded); ok {
		logger.Debug("filtered: excluded keyword", "keyword", kw, "title", r.Title)
		return false
	}

	if kw, ok := firstContained(strings.ToLower(r.Link), f.excluded); ok {
		logger.Debug("filtered: excluded keyword in link", "keyword", kw, "link", r.Link)
		return false
	}

	return true
}

// Apply returns the records passing Validate, in input order.
func (f *ContentFilter) Apply(records []article.Record) []article.Record {
	kept := make([]article.Record, 0, len(records))
	for _, r := range records {
		if f.Validate(r) {
			kept = append(kept, r)
		}
	}

	logger.Info("content filter", "passed", len(kept), "total", len(records))
	return kept
}

func containsAny(s string, subs []string) bool {
	_, ok := firstContained(s, subs)
	return ok
}

func firstContained(s string, subs []string) (string, bool) {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return sub, true
		}
	}
	return "", false
}
