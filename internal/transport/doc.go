// Package transport implements the resolution transports that the resolver
// tries in order: a direct request, a DNS-over-HTTPS bypass, host
// fragmentation, proxy relays, onion gateways and content gateways.
//
// Every adapter satisfies the Adapter interface. Attempt must come back
// within the deadline it is given; Run enforces this for adapters that
// block on the network, abandoning work that ignores its context.
// Ordinary network trouble is never returned as a Go error. It is reported
// as a failed Outcome carrying one of ErrTimeout, ErrNetwork or
// ErrInapplicable.
package transport
