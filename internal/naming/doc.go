// Package naming maps pseudo-domain names to content locators.
//
// A name is looked up in the static registry first. When the registry has
// no entry, the resolver follows DNSLink: it fetches TXT records of
// "_dnslink.<name>" (or of "_dnslink.<label>.<zone>" when a zone is
// configured) and takes the first "dnslink=/ipfs/..." or "dnslink=/ipns/..."
// value.
//
// TXT lookups go through the TXTResolver interface, normally the DoH
// clients of internal/doh, tried in order until one answers.
package naming
