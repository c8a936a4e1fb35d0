// Package article defines the record shared by every source collector and the
// pipeline stages that filter and deduplicate it.
package article

import (
	"fmt"
	"time"
)

// SourceKind is the provider+content-type pairing a record was collected from.
type SourceKind string

const (
	SourceDomesticNews  SourceKind = "domestic-news"
	SourceDomesticBlog  SourceKind = "domestic-blog"
	SourceDomesticForum SourceKind = "domestic-forum"
	SourceGlobalSearch  SourceKind = "global-search"
	SourceFeed          SourceKind = "feed"
)

// Kinds lists every source kind in the order the pipeline visits them for a keyword.
var Kinds = []SourceKind{
	SourceDomesticNews,
	SourceDomesticBlog,
	SourceDomesticForum,
	SourceGlobalSearch,
	SourceFeed,
}

// ParseSourceKind maps a configured source name to its kind.
func ParseSourceKind(s string) (SourceKind, error) {
	for _, k := range Kinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown source kind %q", s)
}

// IsDomestic reports whether the kind comes from the domestic search provider.
func (k SourceKind) IsDomestic() bool {
	switch k {
	case SourceDomesticNews, SourceDomesticBlog, SourceDomesticForum:
		return true
	}
	return false
}

// Record is a single search result. Published is nil when the provider does
// not expose a timestamp. Category is assigned by the pipeline after filtering.
type Record struct {
	Title     string     `json:"title"`
	Link      string     `json:"link"`
	Snippet   string     `json:"snippet"`
	Source    SourceKind `json:"source"`
	Published *time.Time `json:"published,omitempty"`
	Category  string     `json:"category,omitempty"`
}

// Valid reports whether the record carries the fields every stage relies on.
func (r Record) Valid() bool {
	return r.Title != "" && r.Link != ""
}
