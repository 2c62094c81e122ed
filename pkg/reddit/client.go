package reddit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	errs "github.com/akashpandey/Reddit-Fetch/pkg/errors"
	"github.com/akashpandey/Reddit-Fetch/pkg/logger"
)

// Client wraps an http.Client for authenticated Reddit API calls. It maps
// response statuses onto the engine's typed errors; retry policy lives in
// the PageFetcher above it.
type Client struct {
	httpClient *http.Client
	userAgent  string
	logger     logger.Logger
}

// NewClient creates a Reddit API client. Reddit rejects requests without
// a descriptive User-Agent, so one is mandatory.
func NewClient(timeout time.Duration, userAgent string, log logger.Logger) *Client {
	if log == nil {
		log = logger.GetLogger()
	}

	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		userAgent:  userAgent,
		logger:     log,
	}
}

// SetHTTPClient replaces the underlying HTTP client, for tests.
func (c *Client) SetHTTPClient(httpClient *http.Client) {
	c.httpClient = httpClient
}

// GetJSON performs an authenticated GET and decodes the JSON response
// into target.
func (c *Client) GetJSON(ctx context.Context, url, accessToken string, target interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return errs.Wrap(errs.KindUnknown, 0, err, "failed to create request")
	}
	req.Header.Set("Authorization", "bearer "+accessToken)
	req.Header.Set("User-Agent", c.userAgent)

	start := time.Now()
	c.logger.DebugWithFields("sending HTTP request", map[string]interface{}{
		"method": req.Method,
		"url":    req.URL.String(),
	})

	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)

	if err != nil {
		c.logger.ErrorWithFields("HTTP request failed", map[string]interface{}{
			"method":   req.Method,
			"url":      req.URL.String(),
			"error":    err.Error(),
			"duration": duration,
		})
		return errs.Wrap(errs.KindUnreachable, 0, err, "network error")
	}
	defer resp.Body.Close()

	c.logger.DebugWithFields("HTTP request completed", map[string]interface{}{
		"method":   req.Method,
		"url":      req.URL.String(),
		"status":   resp.StatusCode,
		"duration": duration,
	})

	if err := c.checkResponseStatus(resp); err != nil {
		return err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errs.Wrap(errs.KindUnreachable, resp.StatusCode, err, "failed to read response body")
	}

	if err := json.Unmarshal(body, target); err != nil {
		preview := string(body)
		if len(preview) > 200 {
			preview = preview[:200] + "..."
		}
		c.logger.ErrorWithFields("failed to parse JSON response", map[string]interface{}{
			"url":          url,
			"status":       resp.StatusCode,
			"error":        err.Error(),
			"body_preview": preview,
		})
		return errs.Wrap(errs.KindParsing, resp.StatusCode, err, "failed to parse JSON")
	}

	return nil
}

// checkResponseStatus maps HTTP statuses onto typed errors.
func (c *Client) checkResponseStatus(resp *http.Response) error {
	switch {
	case resp.StatusCode == http.StatusOK:
		return nil

	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		c.logger.WarnWithFields("authorization rejected", map[string]interface{}{
			"status": resp.StatusCode,
			"url":    resp.Request.URL.String(),
		})
		return errs.New(errs.KindUnauthorized, resp.StatusCode, "access token rejected")

	case resp.StatusCode == http.StatusTooManyRequests:
		retryAfter := parseRetryAfter(resp)
		c.logger.WarnWithFields("rate limit exceeded", map[string]interface{}{
			"status":      resp.StatusCode,
			"url":         resp.Request.URL.String(),
			"retry_after": retryAfter,
		})
		return &errs.Error{
			Kind:       errs.KindRateLimited,
			Message:    "rate limit exceeded",
			Code:       resp.StatusCode,
			RetryAfter: retryAfter,
		}

	case resp.StatusCode >= 500:
		c.logger.ErrorWithFields("server error", map[string]interface{}{
			"status": resp.StatusCode,
			"url":    resp.Request.URL.String(),
		})
		return errs.New(errs.KindUnreachable, resp.StatusCode, "server error")

	default:
		c.logger.ErrorWithFields("unexpected API error", map[string]interface{}{
			"status": resp.StatusCode,
			"url":    resp.Request.URL.String(),
		})
		return errs.New(errs.KindUnknown, resp.StatusCode,
			"unexpected status code: %d", resp.StatusCode)
	}
}

// parseRetryAfter reads the server's suggested wait from the Retry-After
// or the X-Ratelimit-Reset header. Returns 0 when neither is usable.
func parseRetryAfter(resp *http.Response) time.Duration {
	for _, header := range []string{"Retry-After", "X-Ratelimit-Reset"} {
		if v := resp.Header.Get(header); v != "" {
			if secs, err := strconv.ParseFloat(v, 64); err == nil && secs > 0 {
				return time.Duration(secs * float64(time.Second))
			}
		}
	}
	return 0
}

// String implements fmt.Stringer for debug logging.
func (c *Client) String() string {
	return fmt.Sprintf("reddit.Client(ua=%s)", c.userAgent)
}
