// Package report renders the daily HTML report from the per-category
// records and their summaries.
package report

import (
	_ "embed"
	"fmt"
	"html/template"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/deusflow/newsdigest/internal/logger"
	"github.com/deusflow/newsdigest/internal/pipeline"
	"github.com/deusflow/newsdigest/internal/summarize"
)

const DefaultTitle = "Daily News Report"

//go:embed report.html.tmpl
var reportTemplate string

var tmpl = template.Must(template.New("report").Parse(reportTemplate))

type ArticleView struct {
	Title     string
	Link      string
	Domain    string
	Source    string
	Published string
	Snippet   string
}

type Section struct {
	Key       string
	Name      string
	Summaries []summarize.Summary
	Articles  []ArticleView
}

// Data is everything the template needs. Insight is nil when no analysis ran.
type Data struct {
	Title       string
	GeneratedAt time.Time
	UniqueCount int
	Total       int
	Insight     *summarize.Insight
	Sections    []Section
}

// Build assembles report data in category order. analysis may be nil.
func Build(res *pipeline.Result, names map[string]string, analysis *summarize.Analysis, generatedAt time.Time) *Data {
	d := &Data{
		Title:       DefaultTitle,
		GeneratedAt: generatedAt,
		UniqueCount: res.UniqueCount(),
		Total:       res.Total(),
		Sections:    make([]Section, 0, len(res.Order)),
	}
	if analysis != nil {
		insight := analysis.Insight
		d.Insight = &insight
	}

	for _, key := range res.Order {
		name := names[key]
		if name == "" {
			name = key
		}
		section := Section{Key: key, Name: name}
		if analysis != nil {
			section.Summaries = analysis.Summaries[key]
		}
		for _, r := range res.Categories[key] {
			view := ArticleView{
				Title:   r.Title,
				Link:    r.Link,
				Domain:  domainOf(r.Link),
				Source:  string(r.Source),
				Snippet: r.Snippet,
			}
			if r.Published != nil {
				view.Published = r.Published.Format("2006-01-02 15:04")
			}
			section.Articles = append(section.Articles, view)
		}
		d.Sections = append(d.Sections, section)
	}
	return d
}

// Render writes the HTML report to w.
func Render(w io.Writer, d *Data) error {
	if err := tmpl.Execute(w, d); err != nil {
		return fmt.Errorf("render report: %w", err)
	}
	return nil
}

// WriteFile renders the report to path, creating parent directories.
func WriteFile(path string, d *Data) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report file: %w", err)
	}
	if err := Render(f, d); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close report file: %w", err)
	}
	logger.Info("Report generated", "path", path)
	return nil
}

// domainOf returns the host of link without a www. prefix.
func domainOf(link string) string {
	u, err := url.Parse(link)
	if err != nil || u.Host == "" {
		return "unknown"
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}
