// Package httputil fetches trial datasets over HTTP.
//
// [Client] wraps net/http with:
//
//   - response caching through any [cache.Cache] backend
//   - retries with exponential backoff for network errors, 5xx responses
//     and 429 rate limiting ([Retry])
//   - request and response events for the observability HTTP hooks
//
// Usage:
//
//	c := httputil.NewClient(httputil.WithCache(fc, time.Hour))
//	body, err := c.Get(ctx, "http://localhost:5000/trials/1/2/diff")
//
// Cached responses are keyed by URL, namespaced under "trials".
package httputil
