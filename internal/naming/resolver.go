package naming

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

const (
	// DNSLinkPrefix is the TXT record label prefix.
	DNSLinkPrefix = "_dnslink."

	// DNSLinkValuePrefix precedes the locator inside a TXT value.
	DNSLinkValuePrefix = "dnslink="
)

// Errors returned by Resolve.
var (
	// ErrNotFound is returned when neither the registry nor DNSLink knows the name.
	ErrNotFound = errors.New("name not found")

	// ErrInvalidDNSLink is returned for TXT values that are not DNSLink records.
	ErrInvalidDNSLink = errors.New("invalid dnslink record")
)

// TXTResolver fetches TXT records.
type TXTResolver interface {
	LookupTXT(ctx context.Context, name string) ([]string, error)
}

// Resolver resolves pseudo-domain names.
type Resolver struct {
	registry  map[string]string
	resolvers []TXTResolver
	zone      string
	suffixes  []string
	logger    *slog.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithRegistry sets static name to locator entries. Names are matched
// case-insensitively.
func WithRegistry(entries map[string]string) Option {
	return func(r *Resolver) {
		for name, locator := range entries {
			r.registry[strings.ToLower(name)] = normalizeLocator(locator)
		}
	}
}

// WithTXTResolvers sets the resolvers used for DNSLink, tried in order.
func WithTXTResolvers(resolvers ...TXTResolver) Option {
	return func(r *Resolver) {
		r.resolvers = append(r.resolvers, resolvers...)
	}
}

// WithZone publishes pseudo names under a real DNS zone: "wiki.prv" is
// looked up as "_dnslink.wiki.<zone>". suffixes are the pseudo suffixes to
// strip before the zone is appended.
func WithZone(zone string, suffixes ...string) Option {
	return func(r *Resolver) {
		r.zone = strings.Trim(strings.ToLower(zone), ".")
		r.suffixes = suffixes
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) {
		r.logger = logger
	}
}

// NewResolver creates a Resolver.
func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{
		registry: make(map[string]string),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	return r
}

// Resolve returns the content locator of name, e.g. "/ipfs/bafy...".
func (r *Resolver) Resolve(ctx context.Context, name string) (string, error) {
	name = strings.TrimSuffix(strings.ToLower(name), ".")

	if locator, ok := r.registry[name]; ok {
		r.logger.Debug("name resolved from registry", "name", name, "locator", locator)
		return locator, nil
	}

	if len(r.resolvers) == 0 {
		return "", fmt.Errorf("%s: %w", name, ErrNotFound)
	}

	record := DNSLinkPrefix + r.recordName(name)
	var errs []error
	for _, res := range r.resolvers {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		txts, err := res.LookupTXT(ctx, record)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		for _, txt := range txts {
			locator, err := ParseDNSLink(txt)
			if err != nil {
				continue
			}
			r.logger.Debug("name resolved from dnslink", "name", name, "record", record, "locator", locator)
			return locator, nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", record, ErrInvalidDNSLink))
	}

	return "", fmt.Errorf("%s: %w: %w", name, ErrNotFound, errors.Join(errs...))
}

// recordName maps a pseudo name into the configured zone.
func (r *Resolver) recordName(name string) string {
	if r.zone == "" {
		return name
	}
	for _, s := range r.suffixes {
		s = strings.ToLower(s)
		if !strings.HasPrefix(s, ".") {
			s = "." + s
		}
		if strings.HasSuffix(name, s) {
			return strings.TrimSuffix(name, s) + "." + r.zone
		}
	}
	return name + "." + r.zone
}

// normalizeLocator rewrites "ipfs://x" and "ipns://x" into path form.
func normalizeLocator(locator string) string {
	for _, ns := range []string{"ipfs", "ipns"} {
		if rest, ok := strings.CutPrefix(locator, ns+"://"); ok {
			return "/" + ns + "/" + rest
		}
	}
	return locator
}

// ParseDNSLink extracts the locator from a TXT value such as
// "dnslink=/ipfs/bafy...". Only /ipfs/ and /ipns/ paths are accepted.
func ParseDNSLink(txt string) (string, error) {
	value := strings.TrimSpace(txt)
	if !strings.HasPrefix(value, DNSLinkValuePrefix) {
		return "", ErrInvalidDNSLink
	}
	locator := strings.TrimPrefix(value, DNSLinkValuePrefix)

	parts := strings.SplitN(strings.TrimPrefix(locator, "/"), "/", 3)
	if len(parts) < 2 || parts[1] == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidDNSLink, txt)
	}
	if parts[0] != "ipfs" && parts[0] != "ipns" {
		return "", fmt.Errorf("%w: unsupported namespace %q", ErrInvalidDNSLink, parts[0])
	}
	return "/" + strings.TrimPrefix(locator, "/"), nil
}
