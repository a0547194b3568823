package address

import (
	"errors"
	"net"
	"net/url"
	"strings"

	"golang.org/x/net/idna"
)

// DefaultPseudoSuffix is the private suffix recognized when none is configured.
const DefaultPseudoSuffix = ".prv"

// QueryPlaceholder marks where search templates take the query text.
const QueryPlaceholder = "{query}"

// ErrClassificationDegraded marks input that could not be parsed as its
// apparent kind and was routed to search instead. It is informational only.
var ErrClassificationDegraded = errors.New("address degraded to search query")

// contentPrefixes maps accepted content prefixes to their namespace.
// Longer prefixes come first so "dweb:/ipfs/" wins over "/ipfs/".
var contentPrefixes = []struct {
	prefix    string
	namespace string
}{
	{"dweb:/ipfs/", "ipfs"},
	{"dweb:/ipns/", "ipns"},
	{"ipfs://", "ipfs"},
	{"ipns://", "ipns"},
	{"/ipfs/", "ipfs"},
	{"/ipns/", "ipns"},
}

// Address is a classified, normalized address. It is immutable once built.
type Address struct {
	// Raw is the trimmed input as the user supplied it.
	Raw string `json:"raw"`

	// Normalized is the canonical form. It doubles as the cache key, so it
	// never carries a URL fragment.
	Normalized string `json:"normalized"`

	// Kind is the derived address kind.
	Kind Kind `json:"kind"`

	// Host is set for Web and PseudoDomain addresses. It is lowercase and
	// in ASCII (punycode) form, without a port.
	Host string `json:"host,omitempty"`

	// Port is the explicit non-default port of a Web address, if any.
	Port string `json:"port,omitempty"`

	// Scheme is "http" or "https" for Web addresses.
	Scheme string `json:"scheme,omitempty"`

	// Locator is the content path for ContentLocator addresses,
	// e.g. "/ipfs/bafy.../index.html". For PseudoDomain addresses it holds
	// the path portion that follows the name.
	Locator string `json:"locator,omitempty"`

	// Degraded is true when malformed input fell through to Query.
	Degraded bool `json:"degraded,omitempty"`
}

// Key returns the cache key for the address.
func (a Address) Key() string {
	return a.Normalized
}

// String returns the normalized form.
func (a Address) String() string {
	return a.Normalized
}

// Err returns ErrClassificationDegraded for degraded addresses and nil otherwise.
func (a Address) Err() error {
	if a.Degraded {
		return ErrClassificationDegraded
	}
	return nil
}

// IsOnion reports whether the address targets an onion service host.
func (a Address) IsOnion() bool {
	return a.Kind == KindWeb && strings.HasSuffix(a.Host, OnionSuffix)
}

// HostPort returns the host with the explicit port appended when present.
func (a Address) HostPort() string {
	return joinHost(a.Host, a.Port)
}

// RequestURI returns the path and query of a Web address, never empty.
func (a Address) RequestURI() string {
	if a.Kind != KindWeb {
		return ""
	}
	rest := strings.TrimPrefix(a.Normalized, a.Scheme+"://"+a.HostPort())
	if rest == "" {
		return "/"
	}
	return rest
}

// WithHost returns the Web URL of the address with the host replaced.
// The replacement keeps scheme, port, path and query.
func (a Address) WithHost(host string) string {
	hostPort := joinHost(host, a.Port)
	rest := a.RequestURI()
	if rest == "/" {
		rest = ""
	}
	return a.Scheme + "://" + hostPort + rest
}

// SearchURL renders a search target for the address using the template.
// The placeholder "{query}" is replaced with the escaped query text; when the
// template has no placeholder the text is appended.
func (a Address) SearchURL(template string) string {
	escaped := url.QueryEscape(a.Raw)
	if strings.Contains(template, QueryPlaceholder) {
		return strings.ReplaceAll(template, QueryPlaceholder, escaped)
	}
	return template + escaped
}

// Classifier turns raw input into an Address.
type Classifier struct {
	// suffixes are the pseudo-domain suffixes, each with a leading dot.
	suffixes []string
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithPseudoSuffixes replaces the recognized pseudo-domain suffixes.
// A missing leading dot is added. Empty values are ignored.
func WithPseudoSuffixes(suffixes ...string) Option {
	return func(c *Classifier) {
		c.suffixes = c.suffixes[:0]
		for _, s := range suffixes {
			s = strings.ToLower(strings.TrimSpace(s))
			if s == "" || s == "." {
				continue
			}
			if !strings.HasPrefix(s, ".") {
				s = "." + s
			}
			c.suffixes = append(c.suffixes, s)
		}
	}
}

// NewClassifier creates a Classifier. Without options it recognizes ".prv".
func NewClassifier(opts ...Option) *Classifier {
	c := &Classifier{
		suffixes: []string{DefaultPseudoSuffix},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Suffixes returns a copy of the recognized pseudo-domain suffixes.
func (c *Classifier) Suffixes() []string {
	out := make([]string, len(c.suffixes))
	copy(out, c.suffixes)
	return out
}

var defaultClassifier = NewClassifier()

// Classify classifies raw with the default pseudo-domain suffix.
func Classify(raw string) Address {
	return defaultClassifier.Classify(raw)
}

// Classify derives the kind of raw and normalizes it. It never fails.
//
// Precedence: content prefix, then pseudo-domain suffix, then the dotted
// heuristic for Web, then Query.
func (c *Classifier) Classify(raw string) Address {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return degraded(trimmed)
	}

	if addr, ok := classifyContent(trimmed); ok {
		return addr
	}

	if strings.ContainsAny(trimmed, " \t\r\n") {
		return query(trimmed)
	}

	if addr, ok := c.classifyPseudo(trimmed); ok {
		return addr
	}

	return classifyWeb(trimmed)
}

func query(text string) Address {
	return Address{
		Raw:        text,
		Normalized: text,
		Kind:       KindQuery,
	}
}

func degraded(text string) Address {
	a := query(text)
	a.Degraded = true
	return a
}

func classifyContent(text string) (Address, bool) {
	lower := strings.ToLower(text)
	for _, p := range contentPrefixes {
		if !strings.HasPrefix(lower, p.prefix) {
			continue
		}
		rest := strings.TrimLeft(text[len(p.prefix):], "/")
		if rest == "" || strings.ContainsAny(rest, " \t\r\n") {
			return degraded(text), true
		}
		locator := "/" + p.namespace + "/" + rest
		return Address{
			Raw:        text,
			Normalized: p.namespace + "://" + rest,
			Kind:       KindContentLocator,
			Locator:    locator,
		}, true
	}
	return Address{}, false
}

func (c *Classifier) classifyPseudo(text string) (Address, bool) {
	rest := text
	lower := strings.ToLower(rest)
	for _, scheme := range []string{"https://", "http://"} {
		if strings.HasPrefix(lower, scheme) {
			rest = rest[len(scheme):]
			break
		}
	}

	host, path := rest, ""
	if i := strings.IndexAny(rest, "/?#"); i >= 0 {
		host, path = rest[:i], rest[i:]
	}
	host = strings.TrimSuffix(strings.ToLower(host), ".")
	if i := strings.IndexByte(path, '#'); i >= 0 {
		path = path[:i]
	}

	for _, suffix := range c.suffixes {
		if !strings.HasSuffix(host, suffix) {
			continue
		}
		if name := strings.TrimSuffix(host, suffix); name == "" || strings.HasSuffix(name, ".") {
			return degraded(text), true
		}
		return Address{
			Raw:        text,
			Normalized: host + path,
			Kind:       KindPseudoDomain,
			Host:       host,
			Locator:    path,
		}, true
	}
	return Address{}, false
}

func classifyWeb(text string) Address {
	explicitScheme := strings.Contains(text, "://")
	candidate := text
	if !explicitScheme {
		if !strings.Contains(text, ".") {
			return query(text)
		}
		candidate = "https://" + text
	}

	u, err := url.Parse(candidate)
	if err != nil {
		return degraded(text)
	}

	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return degraded(text)
	}

	host := strings.TrimSuffix(u.Hostname(), ".")
	if host == "" {
		return degraded(text)
	}
	if !explicitScheme && !strings.Contains(host, ".") {
		return query(text)
	}

	asciiHost, ok := normalizeHost(host)
	if !ok {
		return degraded(text)
	}

	port := u.Port()
	if (scheme == "https" && port == "443") || (scheme == "http" && port == "80") {
		port = ""
	}

	hostPort := joinHost(asciiHost, port)

	rest := u.EscapedPath()
	if rest == "/" && u.RawQuery == "" {
		rest = ""
	}
	if u.RawQuery != "" {
		rest += "?" + u.RawQuery
	}

	return Address{
		Raw:        text,
		Normalized: scheme + "://" + hostPort + rest,
		Kind:       KindWeb,
		Host:       asciiHost,
		Port:       port,
		Scheme:     scheme,
	}
}

// normalizeHost lowercases host and converts it to its ASCII form.
// IP literals are returned unchanged.
func normalizeHost(host string) (string, bool) {
	if ip := net.ParseIP(host); ip != nil {
		return ip.String(), true
	}
	ascii, err := idna.Lookup.ToASCII(host)
	if err == nil {
		return strings.ToLower(ascii), true
	}
	for _, r := range host {
		if r > 0x7f || r == '%' {
			return "", false
		}
	}
	return strings.ToLower(host), true
}

// joinHost returns host with port appended, bracketing IPv6 literals.
func joinHost(host, port string) string {
	if port != "" {
		return net.JoinHostPort(host, port)
	}
	if strings.Contains(host, ":") {
		return "[" + host + "]"
	}
	return host
}

// IsIPLiteral reports whether host is an IPv4 or IPv6 literal.
func IsIPLiteral(host string) bool {
	return net.ParseIP(strings.Trim(host, "[]")) != nil
}
