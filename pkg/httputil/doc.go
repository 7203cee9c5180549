// Package httputil provides the HTTP plumbing used by remote image providers.
//
// # Overview
//
//   - [Client]: rate-limited JSON and download client with retries
//   - [Cache]: JSON-typed, namespaced view over a [cache.Cache]
//   - [Retry]: automatic retry with exponential backoff
//
// # Retry
//
// [Retry] only retries errors wrapped in [RetryableError]. [Client] wraps
// network errors, 5xx responses and 429 rate limit responses that way, and
// waits at least as long as the server's Retry-After header asks:
//
//	err := httputil.Retry(ctx, 3, time.Second, func() error {
//	    return doRequest()
//	})
//
// # Caching
//
// [Cache] stores upstream lookups (for example, a page title resolved to an
// image URL) so repeated builds do not hit the remote API:
//
//	c := httputil.NewCache(backend, keyer, "wiki", cache.TTLHTTP)
//	var url string
//	if ok, _ := c.Get(ctx, "Water", &url); !ok {
//	    url = lookup()
//	    _ = c.Set(ctx, "Water", url)
//	}
package httputil
