// Package reddit provides the API client and domain types for retrieving
// a user's saved items.
//
// The Client wraps http.Client and maps response statuses onto the
// engine's typed errors. The PageFetcher drives the paginated
// /user/<name>/saved listing: it asks the token source for a valid access
// token before every page, paces requests through a rate limiter, retries
// transient failures within a bounded budget, and handles a mid-fetch 401
// by forcing exactly one token refresh.
package reddit
