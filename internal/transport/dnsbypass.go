package transport

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nao1215/waypoint/internal/address"
)

// maxBypassAddrs is how many resolved addresses are tried per resolver.
const maxBypassAddrs = 2

// HostResolver looks up host addresses through an alternative name service.
type HostResolver interface {
	// Name identifies the resolver in outcomes and logs.
	Name() string

	// LookupHost returns the IP addresses of host, IPv4 first.
	LookupHost(ctx context.Context, host string) ([]string, error)
}

// DNSBypass resolves the host through alternative resolvers, in order,
// and requests the resolved IP while presenting the original host name.
type DNSBypass struct {
	resolvers []HostResolver
	prober    Prober
}

// NewDNSBypass creates the name-resolution-bypass adapter.
func NewDNSBypass(prober Prober, resolvers ...HostResolver) *DNSBypass {
	return &DNSBypass{
		resolvers: resolvers,
		prober:    prober,
	}
}

// Name implements Adapter.
func (b *DNSBypass) Name() string { return StrategyDNSBypass }

// Applies implements Adapter. Onion hosts and IP literals have nothing to
// resolve.
func (b *DNSBypass) Applies(addr address.Address) bool {
	return addr.Kind == address.KindWeb &&
		len(b.resolvers) > 0 &&
		!addr.IsOnion() &&
		!address.IsIPLiteral(addr.Host)
}

// Attempt implements Adapter. On success the locator names the IP and the
// outcome Host carries the original host.
func (b *DNSBypass) Attempt(ctx context.Context, addr address.Address, deadline time.Duration) Outcome {
	if !b.Applies(addr) {
		return Failuref(ErrInapplicable, "no resolvable host in %s address", addr.Kind)
	}
	return Run(ctx, deadline, func(ctx context.Context) Outcome {
		var errs []error
		for _, r := range b.resolvers {
			if ctx.Err() != nil {
				break
			}

			ips, err := r.LookupHost(ctx, addr.Host)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", r.Name(), err))
				continue
			}
			if len(ips) == 0 {
				errs = append(errs, fmt.Errorf("%s: no addresses for %s", r.Name(), addr.Host))
				continue
			}

			for _, ip := range ips[:min(len(ips), maxBypassAddrs)] {
				locator := addr.WithHost(ip)
				if err := b.prober.Probe(ctx, Target{URL: locator, Host: addr.HostPort()}); err != nil {
					errs = append(errs, fmt.Errorf("%s %s: %w", r.Name(), ip, err))
					continue
				}
				return Outcome{
					Locator: locator,
					Host:    addr.HostPort(),
					Via:     r.Name(),
				}
			}
		}
		if len(errs) == 0 {
			return Failuref(ErrNetwork, "lookup of %s abandoned", addr.Host)
		}
		return Failuref(ErrNetwork, "%v", errors.Join(errs...))
	})
}
