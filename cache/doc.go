// Package cache provides an in-memory, expiring key-value store.
//
// [Expiring] holds values of one type per instance with a time-to-live per
// entry. Expiry is lazy: an entry older than its TTL is reported as a miss
// and removed on the next read, or by [Expiring.SweepExpired]. A miss never
// tells the caller whether the key was absent or merely stale.
//
// [QueryKey] derives deterministic keys from a request shape, and
// [Memoizer] wraps a loader so that successful results are cached while
// errors are not.
package cache
