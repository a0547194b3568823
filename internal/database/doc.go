// Package database provides SQLite storage for waypoint.
//
// The Store keeps two kinds of data in a single file:
//   - successful resolutions, backing the in-memory resolution cache so
//     results survive restarts
//   - a resolution history with every attempt, for diagnostics
//
// Exhausted resolutions appear in the history but never in the cache table.
// The driver is modernc.org/sqlite, which needs no cgo.
package database
