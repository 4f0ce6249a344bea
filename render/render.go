// Package render writes the digest as a static HTML page and an RSS feed.
package render

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gorilla/feeds"
	"github.com/yuin/goldmark"

	"github.com/c360studio/forumdigest/llm"
	"github.com/c360studio/forumdigest/store"
)

const pageTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Title}}</title>
<link rel="alternate" type="application/rss+xml" title="{{.Title}}" href="rss.xml">
<style>
body { max-width: 46rem; margin: 2rem auto; padding: 0 1rem; font-family: system-ui, sans-serif; line-height: 1.5; }
h1 { font-size: 1.5rem; }
article { margin-bottom: 2rem; border-bottom: 1px solid #ddd; padding-bottom: 1rem; }
time { color: #666; font-size: 0.85rem; }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
<p><time>Generated {{.Generated}}</time></p>
{{range .Topics}}
<article>
<h2><a href="{{.Link}}">{{.Title}}</a></h2>
<time>Last activity {{.LastPost}}</time>
{{.Body}}
</article>
{{end}}
</body>
</html>
`

// Options configures the rendered output.
type Options struct {
	// Title is the page and feed title.
	Title string

	// ForumBaseURL links each digest entry back to its topic.
	ForumBaseURL string
}

// Renderer turns stored digest entries into index.html and rss.xml.
type Renderer struct {
	opts   Options
	tmpl   *template.Template
	logger *slog.Logger
}

// NewRenderer creates a renderer. A nil logger uses slog.Default().
func NewRenderer(opts Options, logger *slog.Logger) *Renderer {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Title == "" {
		opts.Title = "Forum Digest"
	}
	return &Renderer{
		opts:   opts,
		tmpl:   template.Must(template.New("page").Parse(pageTemplate)),
		logger: logger,
	}
}

type topicView struct {
	Title    string
	Link     string
	LastPost string
	Body     template.HTML
}

type pageView struct {
	Title     string
	Generated string
	Topics    []topicView
}

// WriteDigest writes index.html and rss.xml for the given entries into dir,
// creating it if needed. Entries without a summary are rendered with a
// placeholder note so a partially-summarized run still publishes.
func (r *Renderer) WriteDigest(dir string, entries []store.DigestEntry, now time.Time) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	page := pageView{
		Title:     r.opts.Title,
		Generated: now.UTC().Format("2006-01-02 15:04 MST"),
	}
	feed := &feeds.Feed{
		Title:       r.opts.Title,
		Link:        &feeds.Link{Href: r.opts.ForumBaseURL},
		Description: "Automated summaries of recent forum activity",
		Created:     now,
	}

	for _, entry := range entries {
		md := r.summaryMarkdown(entry)
		link := topicLink(r.opts.ForumBaseURL, entry.TopicID)
		page.Topics = append(page.Topics, topicView{
			Title:    entry.Title,
			Link:     link,
			LastPost: entry.LastPostAt.UTC().Format("2006-01-02 15:04 MST"),
			Body:     renderMarkdown(md),
		})
		feed.Items = append(feed.Items, &feeds.Item{
			Title:       entry.Title,
			Link:        &feeds.Link{Href: link},
			Description: string(renderMarkdown(md)),
			Id:          fmt.Sprintf("%s#%d", link, entry.LastPostAt.Unix()),
			Created:     entry.LastPostAt,
		})
	}

	var buf bytes.Buffer
	if err := r.tmpl.Execute(&buf, page); err != nil {
		return fmt.Errorf("render page: %w", err)
	}
	htmlPath := filepath.Join(dir, "index.html")
	if err := os.WriteFile(htmlPath, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("write index.html: %w", err)
	}

	rss, err := feed.ToRss()
	if err != nil {
		return fmt.Errorf("build rss: %w", err)
	}
	rssPath := filepath.Join(dir, "rss.xml")
	if err := os.WriteFile(rssPath, []byte(rss), 0644); err != nil {
		return fmt.Errorf("write rss.xml: %w", err)
	}

	r.logger.Info("digest written", "dir", dir, "topics", len(entries))
	return nil
}

// summaryMarkdown turns a stored summary payload into markdown. A missing or
// unparseable payload falls back to a placeholder so rendering never fails on
// one bad row.
func (r *Renderer) summaryMarkdown(entry store.DigestEntry) string {
	if entry.Summary == "" {
		return "_Not yet summarized._"
	}
	var summary llm.Summary
	if err := json.Unmarshal([]byte(entry.Summary), &summary); err != nil {
		r.logger.Warn("stored summary is not valid JSON", "topic_id", entry.TopicID, "error", err)
		return "_Not yet summarized._"
	}

	var b strings.Builder
	b.WriteString("**")
	b.WriteString(summary.Headline)
	b.WriteString("**\n\n")
	for _, bullet := range summary.Bullets {
		b.WriteString("- ")
		b.WriteString(bullet)
		b.WriteByte('\n')
	}
	return b.String()
}

func topicLink(baseURL string, topicID int64) string {
	return fmt.Sprintf("%s/t/%d", strings.TrimRight(baseURL, "/"), topicID)
}

// renderMarkdown converts markdown text to HTML using goldmark.
func renderMarkdown(md string) template.HTML {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(md), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(md))
	}
	return template.HTML(buf.String())
}
