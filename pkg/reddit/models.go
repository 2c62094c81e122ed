package reddit

import "strings"

// Item kinds as they appear in the exported collection.
const (
	KindPost    = "post"
	KindComment = "comment"
)

// bodyPreviewLimit caps the comment excerpt carried into the export.
const bodyPreviewLimit = 300

// SavedItem is one saved post or comment. Fullname is the primary key:
// globally unique, stable across runs.
type SavedItem struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Subreddit   string `json:"subreddit"`
	CreatedUTC  int64  `json:"created_utc"`
	Fullname    string `json:"fullname"`
	Type        string `json:"type"`
	Author      string `json:"author"`
	Score       int    `json:"score"`
	BodyPreview string `json:"body_preview,omitempty"`
}

// IsComment reports whether the item is a saved comment.
func (i SavedItem) IsComment() bool {
	return i.Type == KindComment
}

// listing is Reddit's Listing envelope for the saved-items endpoint.
type listing struct {
	Kind string      `json:"kind"`
	Data listingData `json:"data"`
}

type listingData struct {
	After    string  `json:"after"`
	Dist     int     `json:"dist"`
	Children []thing `json:"children"`
}

// thing is one child of a listing: kind "t3" is a post, "t1" a comment.
type thing struct {
	Kind string    `json:"kind"`
	Data thingData `json:"data"`
}

type thingData struct {
	Name       string  `json:"name"`
	Title      string  `json:"title"`
	LinkTitle  string  `json:"link_title"`
	Subreddit  string  `json:"subreddit"`
	Author     string  `json:"author"`
	URL        string  `json:"url"`
	Permalink  string  `json:"permalink"`
	Score      int     `json:"score"`
	Body       string  `json:"body"`
	CreatedUTC float64 `json:"created_utc"`
}

// toSavedItem flattens a listing child into the export shape. Comments
// carry the parent post's title and a body excerpt; their URL is the
// comment permalink.
func (t thing) toSavedItem() SavedItem {
	item := SavedItem{
		Fullname:   t.Data.Name,
		Subreddit:  t.Data.Subreddit,
		Author:     t.Data.Author,
		Score:      t.Data.Score,
		CreatedUTC: int64(t.Data.CreatedUTC),
	}

	switch t.Kind {
	case "t1":
		item.Type = KindComment
		item.Title = t.Data.LinkTitle
		item.URL = permalinkURL(t.Data.Permalink)
		item.BodyPreview = previewOf(t.Data.Body)
	default:
		item.Type = KindPost
		item.Title = t.Data.Title
		item.URL = t.Data.URL
		if item.URL == "" {
			item.URL = permalinkURL(t.Data.Permalink)
		}
	}

	return item
}

func permalinkURL(permalink string) string {
	if permalink == "" {
		return ""
	}
	return BaseURL + permalink
}

func previewOf(body string) string {
	body = strings.TrimSpace(body)
	if len(body) <= bodyPreviewLimit {
		return body
	}
	return body[:bodyPreviewLimit] + "..."
}
