package errors

import (
	"errors"
	"fmt"
	"time"
)

// Kind classifies the errors the sync engine can surface.
type Kind string

const (
	// KindNoTokens means no persisted credential record exists; the user
	// must run the interactive authorization flow first.
	KindNoTokens Kind = "no_tokens"
	// KindRefreshFailed means the refresh exchange was rejected by Reddit
	// (revoked grant, bad app credentials). Fatal for the run.
	KindRefreshFailed Kind = "refresh_failed"
	// KindRateLimited means the retry budget for 429 responses ran out.
	KindRateLimited Kind = "rate_limited"
	// KindUnreachable means transient network failures exhausted their
	// retry budget.
	KindUnreachable Kind = "unreachable"
	// KindStateCorrupt means a persisted token or boundary file could not
	// be parsed. The run aborts rather than guessing a recovery.
	KindStateCorrupt Kind = "state_corrupt"
	// KindUnauthorized means Reddit rejected the access token on an API
	// call. The page fetcher forces one refresh and retries once before
	// letting this surface.
	KindUnauthorized Kind = "unauthorized"
	// KindParsing means a response body could not be decoded.
	KindParsing Kind = "parsing"
	KindUnknown Kind = "unknown"
)

// Error is a typed sync-engine error carrying the originating HTTP status
// where one applies (0 otherwise).
type Error struct {
	Kind    Kind
	Message string
	Code    int
	Err     error
	// RetryAfter is the server-suggested wait before retrying, when the
	// response carried one (rate limits). Zero otherwise.
	RetryAfter time.Duration
}

func (e *Error) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("%s error (code %d): %s", e.Kind, e.Code, e.Message)
	}
	return fmt.Sprintf("%s error: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a typed error.
func New(kind Kind, code int, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates a typed error preserving the cause for errors.Is/As chains.
func Wrap(kind Kind, code int, err error, msg string) *Error {
	return &Error{Kind: kind, Code: code, Message: msg, Err: err}
}

// IsKind reports whether err (or anything it wraps) is a typed error of
// the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}

// IsRetryable reports whether an error kind is worth retrying locally.
// Auth and state errors always propagate to the top of the run.
func IsRetryable(kind Kind) bool {
	switch kind {
	case KindRateLimited, KindUnreachable:
		return true
	default:
		return false
	}
}

// IsFatal reports whether an error kind must abort the run without
// mutating the boundary or the export artifact.
func IsFatal(kind Kind) bool {
	switch kind {
	case KindNoTokens, KindRefreshFailed, KindUnauthorized, KindStateCorrupt:
		return true
	default:
		return false
	}
}

// IsRetryableStatusCode checks if an HTTP status code indicates a
// retryable condition.
func IsRetryableStatusCode(statusCode int) bool {
	switch statusCode {
	case 0: // network error, no response
		return true
	case 429:
		return true
	default:
		return statusCode >= 500
	}
}
