// Package cache holds successful resolutions and coalesces concurrent
// resolutions of the same address.
//
// A Cache is a table keyed by the normalized address. Only resolved
// results are stored: an exhausted cascade is never cached, so the next
// request retries every strategy. The table is bounded by entry count and
// may expire entries after a TTL; both bounds come from
// hashicorp/golang-lru's expirable LRU.
//
// Do is the join-or-start primitive. The first caller for a key runs the
// cascade; callers that arrive while it runs wait for the same result. The
// cascade runs on a context detached from the first caller, so a caller
// that gives up only stops waiting. The result is stored before waiters
// are released, which means no second cascade for the key can start in
// between.
//
// An optional Backing mirrors puts, invalidations and clears into durable
// storage (the SQLite store of internal/database) and is consulted on a
// miss. Backing errors are logged and never fail a lookup.
//
// Stats reports hits, misses, shared flights and the entry count for the
// metrics package.
package cache
