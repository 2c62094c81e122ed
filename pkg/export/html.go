package export

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"github.com/akashpandey/Reddit-Fetch/pkg/reddit"
)

// htmlPage is the static bookmark page. Comments get a distinct visual
// treatment from posts.
const htmlPage = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Reddit Saved Items</title>
<style>
  body { font-family: -apple-system, "Segoe UI", Roboto, sans-serif; background: #f6f7f8; margin: 0; padding: 2rem; color: #1a1a1b; }
  header { margin-bottom: 1.5rem; }
  h1 { font-size: 1.4rem; margin: 0 0 0.25rem; }
  .summary { color: #7c7c7c; font-size: 0.85rem; }
  ul { list-style: none; padding: 0; max-width: 56rem; }
  li { background: #fff; border: 1px solid #ccc; border-radius: 4px; margin-bottom: 0.6rem; padding: 0.75rem 1rem; }
  li.comment { border-left: 4px solid #0079d3; background: #f0f6fb; }
  li.post { border-left: 4px solid #ff4500; }
  a { color: #0079d3; text-decoration: none; font-weight: 600; }
  a:hover { text-decoration: underline; }
  .meta { color: #7c7c7c; font-size: 0.8rem; margin-top: 0.25rem; }
  .badge { display: inline-block; font-size: 0.7rem; text-transform: uppercase; padding: 0.1rem 0.4rem; border-radius: 3px; color: #fff; margin-right: 0.5rem; }
  .post .badge { background: #ff4500; }
  .comment .badge { background: #0079d3; }
  blockquote { margin: 0.5rem 0 0; padding: 0.25rem 0.75rem; border-left: 3px solid #ccc; color: #444; font-size: 0.9rem; }
</style>
</head>
<body>
<header>
  <h1>Reddit Saved Items</h1>
  <div class="summary">{{.Count}} items &middot; generated {{.GeneratedAt}}</div>
</header>
<ul>
{{- range .Items}}
  <li class="{{.Type}}">
    <span class="badge">{{.Type}}</span><a href="{{.URL}}">{{.Title}}</a>
    <div class="meta">r/{{.Subreddit}} &middot; u/{{.Author}} &middot; {{.Score}} points &middot; {{.Created}}</div>
    {{- if .BodyPreview}}
    <blockquote>{{.BodyPreview}}</blockquote>
    {{- end}}
  </li>
{{- end}}
</ul>
</body>
</html>
`

var htmlTemplate = template.Must(template.New("saved").Parse(htmlPage))

type htmlEntry struct {
	Type        string
	Title       string
	URL         string
	Subreddit   string
	Author      string
	Score       int
	Created     string
	BodyPreview string
}

type htmlContext struct {
	Count       int
	GeneratedAt string
	Items       []htmlEntry
}

// writeHTML renders the merged collection into the static page,
// atomically like the JSON artifact.
func (e *Exporter) writeHTML(items []reddit.SavedItem) error {
	ctx := htmlContext{
		Count:       len(items),
		GeneratedAt: time.Now().Format("2006-01-02 15:04:05 MST"),
		Items:       make([]htmlEntry, 0, len(items)),
	}

	for _, item := range items {
		ctx.Items = append(ctx.Items, htmlEntry{
			Type:        item.Type,
			Title:       item.Title,
			URL:         item.URL,
			Subreddit:   item.Subreddit,
			Author:      item.Author,
			Score:       item.Score,
			Created:     time.Unix(item.CreatedUTC, 0).UTC().Format("2006-01-02"),
			BodyPreview: item.BodyPreview,
		})
	}

	var buf bytes.Buffer
	if err := htmlTemplate.Execute(&buf, ctx); err != nil {
		return fmt.Errorf("failed to render HTML page: %w", err)
	}

	return e.writeAtomic(e.HTMLPath(), buf.Bytes())
}
