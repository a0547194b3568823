package transport

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nao1215/waypoint/internal/address"
)

// ContentGateway fetches content locators through HTTP gateways in order.
type ContentGateway struct {
	bases  []string
	prober Prober
}

// NewContentGateway creates the content-gateway adapter. Bases are gateway
// roots such as "https://ipfs.io"; the locator path is appended to them.
func NewContentGateway(prober Prober, bases ...string) *ContentGateway {
	trimmed := make([]string, 0, len(bases))
	for _, b := range bases {
		if b = strings.TrimRight(strings.TrimSpace(b), "/"); b != "" {
			trimmed = append(trimmed, b)
		}
	}
	return &ContentGateway{
		bases:  trimmed,
		prober: prober,
	}
}

// Name implements Adapter.
func (c *ContentGateway) Name() string { return StrategyContentGateway }

// Applies implements Adapter.
func (c *ContentGateway) Applies(addr address.Address) bool {
	return addr.Kind == address.KindContentLocator && len(c.bases) > 0
}

// GatewayURLs returns the gateway address of locator for every base.
func (c *ContentGateway) GatewayURLs(locator string) []string {
	urls := make([]string, 0, len(c.bases))
	for _, b := range c.bases {
		urls = append(urls, b+locator)
	}
	return urls
}

// Attempt implements Adapter.
func (c *ContentGateway) Attempt(ctx context.Context, addr address.Address, deadline time.Duration) Outcome {
	if !c.Applies(addr) {
		return Failuref(ErrInapplicable, "%s address has no content locator", addr.Kind)
	}
	return Run(ctx, deadline, func(ctx context.Context) Outcome {
		var errs []error
		for i, u := range c.GatewayURLs(addr.Locator) {
			if ctx.Err() != nil {
				break
			}
			if err := c.prober.Probe(ctx, Target{URL: u}); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", c.bases[i], err))
				continue
			}
			return Outcome{Locator: u, Via: c.bases[i]}
		}
		if len(errs) == 0 {
			return Failuref(ErrNetwork, "gateways abandoned")
		}
		return Failuref(ErrNetwork, "%v", errors.Join(errs...))
	})
}
