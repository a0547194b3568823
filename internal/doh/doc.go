// Package doh is a small DNS-over-HTTPS (RFC 8484) client.
//
// Queries are packed with miekg/dns and sent as POST bodies with the
// application/dns-message content type. The client answers A, AAAA and TXT
// lookups, which is all the resolver needs to bypass local name resolution
// and to follow DNSLink records.
//
// A Client satisfies both transport.HostResolver and naming.TXTResolver.
package doh
