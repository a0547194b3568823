package transport

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/nao1215/waypoint/internal/address"
)

// RelayTemplate describes how a relay embeds the target address.
type RelayTemplate int

const (
	// RelayQuery appends the URL-escaped target to the base,
	// e.g. "https://relay.example/?url=" + escaped.
	RelayQuery RelayTemplate = iota

	// RelayPath appends the raw target to the base,
	// e.g. "https://relay.example/" + target.
	RelayPath
)

// String returns the template name used in configuration.
func (t RelayTemplate) String() string {
	switch t {
	case RelayQuery:
		return "query"
	case RelayPath:
		return "path"
	default:
		return "unknown"
	}
}

// ParseRelayTemplate parses "query" or "path". An empty string is "query".
func ParseRelayTemplate(s string) (RelayTemplate, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "query":
		return RelayQuery, nil
	case "path":
		return RelayPath, nil
	default:
		return RelayQuery, fmt.Errorf("unknown relay template %q", s)
	}
}

// Relay is one proxy relay endpoint.
type Relay struct {
	Base     string
	Template RelayTemplate
}

// Wrap returns the relay address that fetches target.
func (r Relay) Wrap(target string) string {
	if r.Template == RelayPath {
		return r.Base + target
	}
	return r.Base + url.QueryEscape(target)
}

// RelayURLs wraps target with every relay, preserving order.
func RelayURLs(relays []Relay, target string) []string {
	urls := make([]string, 0, len(relays))
	for _, r := range relays {
		urls = append(urls, r.Wrap(target))
	}
	return urls
}

// ProxyRelay fetches the address through each relay in order and stops at
// the first that answers.
type ProxyRelay struct {
	relays        []Relay
	prober        Prober
	contentPrefix string
}

// RelayOption configures a ProxyRelay.
type RelayOption func(*ProxyRelay)

// WithContentGateway sets the gateway base used to turn a content locator
// into a fetchable address before relaying it.
func WithContentGateway(base string) RelayOption {
	return func(p *ProxyRelay) {
		p.contentPrefix = strings.TrimRight(base, "/")
	}
}

// NewProxyRelay creates the proxy-relay adapter.
func NewProxyRelay(prober Prober, relays []Relay, opts ...RelayOption) *ProxyRelay {
	p := &ProxyRelay{
		relays: relays,
		prober: prober,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name implements Adapter.
func (p *ProxyRelay) Name() string { return StrategyRelay }

// Applies implements Adapter.
func (p *ProxyRelay) Applies(addr address.Address) bool {
	if len(p.relays) == 0 {
		return false
	}
	switch addr.Kind {
	case address.KindWeb:
		return true
	case address.KindContentLocator:
		return p.contentPrefix != ""
	default:
		return false
	}
}

// Target returns the address handed to relays for addr.
func (p *ProxyRelay) Target(addr address.Address) string {
	if addr.Kind == address.KindContentLocator {
		return p.contentPrefix + addr.Locator
	}
	return addr.Normalized
}

// Attempt implements Adapter.
func (p *ProxyRelay) Attempt(ctx context.Context, addr address.Address, deadline time.Duration) Outcome {
	if !p.Applies(addr) {
		return Failuref(ErrInapplicable, "no relay route for %s address", addr.Kind)
	}
	target := p.Target(addr)
	return Run(ctx, deadline, func(ctx context.Context) Outcome {
		var errs []error
		for _, r := range p.relays {
			if ctx.Err() != nil {
				break
			}
			relayed := r.Wrap(target)
			if err := p.prober.Probe(ctx, Target{URL: relayed}); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", r.Base, err))
				continue
			}
			return Outcome{Locator: relayed, Via: r.Base}
		}
		if len(errs) == 0 {
			return Failuref(ErrNetwork, "relays abandoned")
		}
		return Failuref(ErrNetwork, "%v", errors.Join(errs...))
	})
}
