package article

import (
	"regexp"
	"strings"
)

var (
	// Only real tags: a lone "<" or ">" in plain text is content.
	tagPattern = regexp.MustCompile(`</?[A-Za-z][^<>]*>`)

	entityReplacer = strings.NewReplacer(
		"&quot;", `"`,
		"&#34;", `"`,
		"&#39;", "'",
		"&apos;", "'",
	)

	quoteDropper = strings.NewReplacer(
		`"`, "",
		"\u201c", "",
		"\u201d", "",
	)
)

// CleanMarkup removes markup fragments search APIs leave in titles and
// snippets (highlight tags, quote entities). Applying it twice yields the
// same result as applying it once.
func CleanMarkup(s string) string {
	for {
		next := entityReplacer.Replace(tagPattern.ReplaceAllString(s, ""))
		if next == s {
			return next
		}
		s = next
	}
}

// NormalizeTitle builds the identity key used for title-based duplicate
// detection: markup stripped, double quotes dropped, lower-cased, every
// whitespace rune removed.
func NormalizeTitle(title string) string {
	stripped := quoteDropper.Replace(CleanMarkup(title))
	return strings.ToLower(strings.Join(strings.Fields(stripped), ""))
}
