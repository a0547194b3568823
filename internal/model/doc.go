// Package model defines the data shared by the resolver, the cache, the
// history store and the report writers.
//
// The main types are:
//   - Result: the terminal outcome of one resolution
//   - Attempt: one strategy invocation within a resolution
//   - Summary: an aggregate over a batch of results
//   - FallbackPage: the escape hatches offered when resolution fails
//
// All types serialize to JSON for report output and database storage.
package model
