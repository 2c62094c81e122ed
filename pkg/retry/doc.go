// Package retry provides bounded retry with backoff for the Reddit API
// calls made during a sync run.
//
// Transient failures (timeouts, 5xx, 429) are retried with exponential
// backoff and jitter; a 429 carrying a Retry-After header can override the
// computed delay through Config.OnRetry. Auth and state-corruption errors
// are never retried.
//
//	cfg := retry.DefaultConfig()
//	cfg.Context = ctx
//	err := retry.Do(func() error {
//		return client.GetJSON(ctx, url, &out)
//	}, cfg)
package retry
