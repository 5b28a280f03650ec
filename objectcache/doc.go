// Package objectcache stores successful response representations keyed by
// request key, remembers which resource types each one contains, and decides
// staleness from a TTL and explicit invalidation.
//
// Invalidation marks entries stale instead of deleting them, so a
// stale-while-revalidate reader can still serve the old representation while a
// refetch is in flight. Remove deletes outright.
//
// Storage is pluggable: MemoryStore for a single process, redis.EntryStore
// when several processes share one cache.
package objectcache
