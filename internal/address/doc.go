// Package address classifies raw user input into one of the address kinds
// the resolver understands.
//
// Four kinds exist:
//   - Web: an ordinary http(s) address such as "example.com/page"
//   - ContentLocator: a content-addressed locator such as "ipfs://bafy..."
//   - PseudoDomain: a name under a private suffix (".prv" by default) that
//     needs an indirect lookup before it can be fetched
//   - Query: anything else, treated as a search query
//
// Classification never fails. Malformed input degrades to Query and the
// resulting Address carries Degraded=true so callers can tell the difference
// between a deliberate search and input that could not be parsed.
//
// Explicit content prefixes and pseudo-domain suffixes are checked before the
// "contains a dot" heuristic, so "wiki.prv" is a PseudoDomain and never Web.
package address
