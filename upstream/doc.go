// Package upstream memoizes GitHub lookups behind an expiring cache.
//
// A [Request] names a [Kind] and carries its query parameters; the cache
// key is derived from both with parameters sorted. [Proxy.Fetch] serves
// hits without touching GitHub, collapses concurrent misses for one key,
// and never caches failures or empty answers.
package upstream
