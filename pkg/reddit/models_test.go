package reddit

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToSavedItemPost(t *testing.T) {
	raw := `{
		"kind": "t3",
		"data": {
			"name": "t3_abc",
			"title": "Go 1.23 released",
			"subreddit": "golang",
			"author": "gopher",
			"url": "https://go.dev/blog/go1.23",
			"permalink": "/r/golang/comments/abc/go_123_released/",
			"score": 420,
			"created_utc": 1724630400.0
		}
	}`

	var child thing
	require.NoError(t, json.Unmarshal([]byte(raw), &child))

	item := child.toSavedItem()
	assert.Equal(t, KindPost, item.Type)
	assert.Equal(t, "t3_abc", item.Fullname)
	assert.Equal(t, "Go 1.23 released", item.Title)
	assert.Equal(t, "https://go.dev/blog/go1.23", item.URL)
	assert.Equal(t, "golang", item.Subreddit)
	assert.Equal(t, "gopher", item.Author)
	assert.Equal(t, 420, item.Score)
	assert.Equal(t, int64(1724630400), item.CreatedUTC)
	assert.Empty(t, item.BodyPreview)
	assert.False(t, item.IsComment())
}

func TestToSavedItemSelfPostFallsBackToPermalink(t *testing.T) {
	child := thing{Kind: "t3", Data: thingData{
		Name:      "t3_self",
		Title:     "discussion",
		Permalink: "/r/golang/comments/self/discussion/",
	}}

	item := child.toSavedItem()
	assert.Equal(t, "https://www.reddit.com/r/golang/comments/self/discussion/", item.URL)
}

func TestToSavedItemComment(t *testing.T) {
	child := thing{Kind: "t1", Data: thingData{
		Name:      "t1_xyz",
		LinkTitle: "Go 1.23 released",
		Subreddit: "golang",
		Author:    "reviewer",
		Permalink: "/r/golang/comments/abc/go_123_released/t1_xyz/",
		Body:      "The new iterator support is great.",
	}}

	item := child.toSavedItem()
	assert.Equal(t, KindComment, item.Type)
	assert.True(t, item.IsComment())
	assert.Equal(t, "Go 1.23 released", item.Title, "comments carry the parent post title")
	assert.Equal(t, "https://www.reddit.com/r/golang/comments/abc/go_123_released/t1_xyz/", item.URL)
	assert.Equal(t, "The new iterator support is great.", item.BodyPreview)
}

func TestToSavedItemCommentBodyTruncated(t *testing.T) {
	child := thing{Kind: "t1", Data: thingData{
		Name: "t1_long",
		Body: strings.Repeat("x", 1000),
	}}

	item := child.toSavedItem()
	assert.Len(t, item.BodyPreview, bodyPreviewLimit+len("..."))
	assert.True(t, strings.HasSuffix(item.BodyPreview, "..."))
}

func TestSavedItemsURL(t *testing.T) {
	url := SavedItemsURL(OAuthBaseURL, "gopher", "t3_cursor", 50)
	assert.Equal(t, "https://oauth.reddit.com/user/gopher/saved?after=t3_cursor&limit=50&raw_json=1", url)
}

func TestSavedItemsURLClampsLimit(t *testing.T) {
	assert.Contains(t, SavedItemsURL(OAuthBaseURL, "u", "", 0), "limit=100")
	assert.Contains(t, SavedItemsURL(OAuthBaseURL, "u", "", 500), "limit=100")
}

func TestAuthorizeURL(t *testing.T) {
	url := AuthorizeURL("my-client", "http://localhost:8080", "state-1")

	assert.True(t, strings.HasPrefix(url, "https://www.reddit.com/api/v1/authorize?"))
	assert.Contains(t, url, "client_id=my-client")
	assert.Contains(t, url, "response_type=code")
	assert.Contains(t, url, "duration=permanent")
	assert.Contains(t, url, "scope=identity+history+read+save")
	assert.Contains(t, url, "state=state-1")
}
