// Package cache provides the in-memory TTL cache for built responses and the
// file watcher that keeps cached static files consistent with the disk.
//
// Expiry is checked lazily on access. A maximum entry count with
// least-recently-used eviction bounds memory. All operations are safe for
// concurrent use.
//
// Example:
//
//	c := cache.New(cache.Options{TTL: time.Minute, MaxEntries: 300})
//	c.Set("/srv/static/app.js", resp)
//	if m, ok := c.Get("/srv/static/app.js"); ok {
//		resp = m.Clone()
//	}
package cache
