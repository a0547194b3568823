package resolve

import (
	"time"

	"github.com/nao1215/waypoint/internal/transport"
)

// Timeouts holds the deadline of each strategy.
type Timeouts struct {
	Direct         time.Duration
	DNSBypass      time.Duration
	Fragment       time.Duration
	Relay          time.Duration
	OnionGateway   time.Duration
	ContentGateway time.Duration
	Naming         time.Duration
}

// DefaultTimeouts returns the default deadlines. Direct fails fast; relays
// and gateways add a hop and get longer.
func DefaultTimeouts() Timeouts {
	return Timeouts{
		Direct:         3 * time.Second,
		DNSBypass:      4 * time.Second,
		Fragment:       3 * time.Second,
		Relay:          5 * time.Second,
		OnionGateway:   5 * time.Second,
		ContentGateway: 5 * time.Second,
		Naming:         4 * time.Second,
	}
}

// For returns the deadline of strategy. Unknown strategies get the direct
// deadline.
func (t Timeouts) For(strategy string) time.Duration {
	switch strategy {
	case transport.StrategyDNSBypass:
		return t.DNSBypass
	case transport.StrategyFragment:
		return t.Fragment
	case transport.StrategyRelay:
		return t.Relay
	case transport.StrategyOnionGateway:
		return t.OnionGateway
	case transport.StrategyContentGateway:
		return t.ContentGateway
	case transport.StrategyNaming:
		return t.Naming
	default:
		return t.Direct
	}
}

// Max returns the longest single deadline.
func (t Timeouts) Max() time.Duration {
	m := t.Direct
	for _, d := range []time.Duration{t.DNSBypass, t.Fragment, t.Relay, t.OnionGateway, t.ContentGateway, t.Naming} {
		if d > m {
			m = d
		}
	}
	return m
}
