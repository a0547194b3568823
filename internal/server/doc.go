// Package server exposes the resolver over HTTP.
//
// Routes:
//
//	GET    /healthz                   liveness
//	GET    /resolve?address=...       resolve an address; exhausted results carry a fallback page
//	GET    /fallback?address=&reason= fallback page for a render block reported by a client
//	GET    /cache                     cache statistics and keys
//	DELETE /cache[?address=...]       clear the cache or invalidate one address
//	GET    /metrics                   Prometheus metrics, when configured
//
// All responses are JSON except /metrics. Every route allows cross-origin
// requests so browser extensions can call the service. Run serves a
// handler until its context ends and then shuts down gracefully.
package server
