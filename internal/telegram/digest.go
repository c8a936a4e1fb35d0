package telegram

import (
	"fmt"
	"html"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/deusflow/newsdigest/internal/pipeline"
	"github.com/deusflow/newsdigest/internal/summarize"
)

// Plain-text bounds applied before escaping, so that every rendered line
// stays well inside one message even when every rune expands to an entity.
const (
	maxTitleRunes   = 200
	maxInsightRunes = 600
	maxLinkRunes    = 500
)

// DigestOptions control how much of each category goes into the digest.
type DigestOptions struct {
	TopPerCategory int
	ReportLink     string
	Date           time.Time
}

// FormatDigest renders the run as Telegram HTML messages, each within
// MaxMessageRunes. Categories keep their configured order.
func FormatDigest(res *pipeline.Result, names map[string]string, analysis *summarize.Analysis, opts DigestOptions) []string {
	top := opts.TopPerCategory
	if top <= 0 {
		top = 3
	}

	var blocks []string
	header := fmt.Sprintf("<b>📰 Daily digest %s</b>\n%d unique articles", opts.Date.Format("2006-01-02"), res.UniqueCount())
	if analysis != nil && analysis.Insight.StrategicInsight != "" {
		header += "\n\n<i>" + html.EscapeString(clip(analysis.Insight.StrategicInsight, maxInsightRunes)) + "</i>"
	}
	blocks = append(blocks, header)

	for _, key := range res.Order {
		records := res.Categories[key]
		name := names[key]
		if name == "" {
			name = key
		}

		var sb strings.Builder
		fmt.Fprintf(&sb, "<b>%s</b> (%d)", html.EscapeString(clip(name, maxTitleRunes)), len(records))
		for i, r := range records {
			if i >= top {
				fmt.Fprintf(&sb, "\n… and %d more", len(records)-top)
				break
			}
			title := html.EscapeString(clip(r.Title, maxTitleRunes))
			if utf8.RuneCountInString(r.Link) > maxLinkRunes {
				fmt.Fprintf(&sb, "\n• %s", title)
				continue
			}
			fmt.Fprintf(&sb, "\n• <a href=\"%s\">%s</a>", html.EscapeString(r.Link), title)
		}
		blocks = append(blocks, sb.String())
	}

	if opts.ReportLink != "" {
		blocks = append(blocks, fmt.Sprintf("<a href=\"%s\">Full report</a>", html.EscapeString(opts.ReportLink)))
	}

	return pack(blocks, MaxMessageRunes)
}

// pack joins blocks into messages of at most limit runes. A single block
// longer than limit is split on line boundaries.
func pack(blocks []string, limit int) []string {
	var messages []string
	var current strings.Builder
	flush := func() {
		if current.Len() > 0 {
			messages = append(messages, current.String())
			current.Reset()
		}
	}

	for _, block := range blocks {
		for _, part := range split(block, limit) {
			sep := 0
			if current.Len() > 0 {
				sep = 2
			}
			if utf8.RuneCountInString(current.String())+sep+utf8.RuneCountInString(part) > limit {
				flush()
				sep = 0
			}
			if sep > 0 {
				current.WriteString("\n\n")
			}
			current.WriteString(part)
		}
	}
	flush()
	return messages
}

// split never cuts inside a line, since a cut could leave an unclosed tag.
// A line longer than limit is dropped.
func split(block string, limit int) []string {
	if utf8.RuneCountInString(block) <= limit {
		return []string{block}
	}
	var parts []string
	var current []string
	size := 0
	for _, line := range strings.Split(block, "\n") {
		n := utf8.RuneCountInString(line)
		if n > limit {
			continue
		}
		if size > 0 && size+1+n > limit {
			parts = append(parts, strings.Join(current, "\n"))
			current, size = nil, 0
		}
		if size > 0 {
			size++
		}
		current = append(current, line)
		size += n
	}
	if len(current) > 0 {
		parts = append(parts, strings.Join(current, "\n"))
	}
	return parts
}

func clip(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n-1]) + "…"
}
