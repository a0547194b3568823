// Package tor connects the onion gateway to the Tor network.
//
// Client speaks to an existing SOCKS5 proxy and produces the probers used by
// "socks5://" onion gateway entries. EmbeddedTor starts a private daemon
// through tornago for hosts without a local Tor service.
package tor
