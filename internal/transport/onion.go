package transport

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nao1215/waypoint/internal/address"
)

// socksScheme marks onion gateway entries that are SOCKS5 proxies.
const socksScheme = "socks5://"

// OnionRoute is one way to reach an onion service.
type OnionRoute struct {
	// Label names the route in outcomes.
	Label string

	// Suffix, when set, rewrites "<name>.onion" to "<name>.onion.<Suffix>".
	Suffix string

	// Prober, when set, probes the literal onion address. It is normally an
	// HTTPProber dialing through a Tor SOCKS5 proxy.
	Prober Prober
}

// SOCKSProberFactory builds a prober that dials through the SOCKS5 proxy at
// addr ("host:port").
type SOCKSProberFactory func(addr string) (Prober, error)

// ParseOnionRoutes turns gateway entries into routes, preserving order.
// "socks5://host:port" entries become proxy routes built with socks;
// anything else is a rewrite suffix such as "onion.ws".
func ParseOnionRoutes(entries []string, socks SOCKSProberFactory) ([]OnionRoute, error) {
	routes := make([]OnionRoute, 0, len(entries))
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		if strings.HasPrefix(strings.ToLower(entry), socksScheme) {
			if socks == nil {
				return nil, fmt.Errorf("onion gateway %s: no SOCKS5 support configured", entry)
			}
			prober, err := socks(entry[len(socksScheme):])
			if err != nil {
				return nil, fmt.Errorf("onion gateway %s: %w", entry, err)
			}
			routes = append(routes, OnionRoute{Label: entry, Prober: prober})
			continue
		}

		suffix := strings.ToLower(entry)
		suffix = strings.TrimPrefix(suffix, "https://")
		suffix = strings.TrimPrefix(suffix, "http://")
		suffix = strings.TrimPrefix(suffix, "*.")
		suffix = strings.Trim(suffix, "./")
		if suffix == "" {
			return nil, fmt.Errorf("onion gateway %q has no suffix", entry)
		}
		routes = append(routes, OnionRoute{Label: suffix, Suffix: suffix})
	}
	return routes, nil
}

// OnionGateway reaches onion services through proxies or clearnet
// gateways, in order, stopping at the first that answers.
type OnionGateway struct {
	routes []OnionRoute
	prober Prober
}

// NewOnionGateway creates the anonymity-gateway adapter. prober checks
// rewritten clearnet addresses.
func NewOnionGateway(prober Prober, routes []OnionRoute) *OnionGateway {
	return &OnionGateway{
		routes: routes,
		prober: prober,
	}
}

// Name implements Adapter.
func (g *OnionGateway) Name() string { return StrategyOnionGateway }

// Applies implements Adapter.
func (g *OnionGateway) Applies(addr address.Address) bool {
	return addr.IsOnion() && len(g.routes) > 0
}

// Attempt implements Adapter.
func (g *OnionGateway) Attempt(ctx context.Context, addr address.Address, deadline time.Duration) Outcome {
	if !g.Applies(addr) {
		return Failuref(ErrInapplicable, "%s is not an onion host", addr.Host)
	}
	if !address.IsValidV3Onion(addr.Host) {
		return Failuref(ErrNetwork, "%s is not a valid v3 onion address", addr.Host)
	}

	return Run(ctx, deadline, func(ctx context.Context) Outcome {
		var errs []error
		for _, route := range g.routes {
			if ctx.Err() != nil {
				break
			}

			locator, prober := addr.Normalized, route.Prober
			if route.Suffix != "" {
				locator = addr.WithHost(addr.Host + "." + route.Suffix)
				prober = g.prober
			}

			if err := prober.Probe(ctx, Target{URL: locator}); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", route.Label, err))
				continue
			}
			return Outcome{Locator: locator, Via: route.Label}
		}
		if len(errs) == 0 {
			return Failuref(ErrNetwork, "onion routes abandoned")
		}
		return Failuref(ErrNetwork, "%v", errors.Join(errs...))
	})
}
