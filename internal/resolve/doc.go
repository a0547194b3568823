// Package resolve runs the strategy cascade that turns an address into a
// reachable target.
//
// A Resolver classifies the input, consults its cache, and on a miss tries
// its transport adapters one at a time in a fixed priority order. The first
// adapter to succeed wins; later adapters are never consulted even if they
// would also succeed. Web addresses and content addresses use separate
// adapter lists. Free-text queries are turned into a search redirect without
// any network request.
//
// Concurrent resolutions of the same address share one cascade. Results of
// cascades that exhausted every adapter are returned to the caller but never
// cached.
package resolve
