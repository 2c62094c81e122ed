package reddit

import (
	"fmt"
	"net/url"
)

const (
	// BaseURL is Reddit's public site, used for permalinks.
	BaseURL = "https://www.reddit.com"

	// OAuthBaseURL is the host authenticated API calls go through.
	OAuthBaseURL = "https://oauth.reddit.com"

	// AuthorizeEndpoint is the interactive authorization page.
	AuthorizeEndpoint = "/api/v1/authorize"

	// DefaultPageSize is the listing page size when none is configured.
	DefaultPageSize = 100

	// MaxPageSize is the largest page Reddit serves.
	MaxPageSize = 100
)

// SavedItemsURL builds the saved-items listing URL for a user, with an
// optional pagination cursor (the fullname returned as "after" by the
// previous page).
func SavedItemsURL(baseURL, username, after string, limit int) string {
	if limit <= 0 {
		limit = DefaultPageSize
	} else if limit > MaxPageSize {
		limit = MaxPageSize
	}

	params := url.Values{}
	params.Set("limit", fmt.Sprintf("%d", limit))
	params.Set("raw_json", "1")
	if after != "" {
		params.Set("after", after)
	}

	return fmt.Sprintf("%s/user/%s/saved?%s", baseURL, url.PathEscape(username), params.Encode())
}

// AuthorizeURL builds the one-time interactive authorization URL.
func AuthorizeURL(clientID, redirectURI, state string) string {
	params := url.Values{}
	params.Set("client_id", clientID)
	params.Set("response_type", "code")
	params.Set("state", state)
	params.Set("redirect_uri", redirectURI)
	params.Set("duration", "permanent")
	params.Set("scope", "identity history read save")

	return BaseURL + AuthorizeEndpoint + "?" + params.Encode()
}
