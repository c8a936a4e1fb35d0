// Package canonical rewrites provider landing and promotion URLs into a
// stable identity link so the same post reached through different wrappers
// deduplicates to one record.
package canonical

import (
	"net/url"
	"strings"

	"github.com/deusflow/newsdigest/internal/article"
)

// Blog hosts and the host their identity links are written on.
var blogHosts = map[string]string{
	"blog.naver.com":   "blog.naver.com",
	"m.blog.naver.com": "blog.naver.com",
}

var forumHosts = map[string]bool{
	"cafe.naver.com":   true,
	"m.cafe.naver.com": true,
}

// Path keywords of the forum platform itself; they never identify a forum or a post.
var forumStructuralTokens = map[string]bool{
	"cafe.naver.com": true,
	"nview":          true,
	"ca-fe":          true,
	"cafes":          true,
	"articles":       true,
}

// Canonicalize returns the identity link for a record collected from kind.
// Rules are tried in order and the first match wins; links that match no
// rule, cannot be parsed, or come from a non-domestic source are returned
// unchanged. Canonicalize(Canonicalize(l, k), k) == Canonicalize(l, k).
func Canonicalize(link string, kind article.SourceKind) string {
	if !kind.IsDomestic() {
		return link
	}

	u, err := url.Parse(link)
	if err != nil || u.Host == "" {
		return link
	}
	host := strings.ToLower(u.Host)

	if canonical, ok := blogPromotion(u, host); ok {
		return canonical
	}
	if canonical, ok := forumLanding(u, host); ok {
		return canonical
	}
	return link
}

// blogPromotion handles promotion and viewer pages that carry the author id
// and post id as query parameters.
func blogPromotion(u *url.URL, host string) (string, bool) {
	canonicalHost, ok := blogHosts[host]
	if !ok {
		return "", false
	}

	q := u.Query()
	if !strings.Contains(u.Path, "/Promotion") && !q.Has("blogId") {
		return "", false
	}

	blogID := q.Get("blogId")
	logNo := q.Get("logNo")
	if blogID == "" || logNo == "" {
		return "", false
	}
	return "https://" + canonicalHost + "/" + blogID + "/" + logNo, true
}

// forumLanding takes the first two non-structural path segments as the
// forum id and the post id. With fewer than two it does not guess.
func forumLanding(u *url.URL, host string) (string, bool) {
	if !isForumHost(host) {
		return "", false
	}

	var ids []string
	for _, part := range strings.Split(u.EscapedPath(), "/") {
		if part == "" || forumStructuralTokens[part] {
			continue
		}
		ids = append(ids, part)
		if len(ids) == 2 {
			return "https://" + host + "/" + ids[0] + "/" + ids[1], true
		}
	}
	return "", false
}

func isForumHost(host string) bool {
	return forumHosts[host] || strings.HasPrefix(host, "cafe.")
}
