package transport

import (
	"context"
	"strings"
	"time"

	"github.com/nao1215/waypoint/internal/address"
	"golang.org/x/net/idna"
)

// DefaultBoundaryToken is inserted in front of the host. U+00AD (soft
// hyphen) is removed by UTS #46 mapping, so the host still resolves to the
// same name while naive hostname matching sees a different string.
const DefaultBoundaryToken = "\u00ad"

// Fragment rewrites the address by inserting a boundary token right after
// the scheme separator. Success is presumptive: the rewritten address is
// handed to the consumer without a request.
type Fragment struct {
	token string
}

// FragmentOption configures a Fragment adapter.
type FragmentOption func(*Fragment)

// WithBoundaryToken replaces the inserted token.
func WithBoundaryToken(token string) FragmentOption {
	return func(f *Fragment) {
		if token != "" {
			f.token = token
		}
	}
}

// NewFragment creates the fragmentation adapter.
func NewFragment(opts ...FragmentOption) *Fragment {
	f := &Fragment{token: DefaultBoundaryToken}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Name implements Adapter.
func (f *Fragment) Name() string { return StrategyFragment }

// Applies implements Adapter. IP literals and onion hosts are left alone.
func (f *Fragment) Applies(addr address.Address) bool {
	return addr.Kind == address.KindWeb &&
		!addr.IsOnion() &&
		!address.IsIPLiteral(addr.Host)
}

// Attempt implements Adapter. The rewrite is rejected when the mutated host
// does not map back to the original under IDNA lookup rules.
func (f *Fragment) Attempt(_ context.Context, addr address.Address, _ time.Duration) Outcome {
	if !f.Applies(addr) {
		return Failuref(ErrInapplicable, "host of %s address cannot be fragmented", addr.Kind)
	}

	mapped, err := idna.Lookup.ToASCII(f.token + addr.Host)
	if err != nil {
		return Failuref(ErrNetwork, "fragmented host is not resolvable: %v", err)
	}
	if !strings.EqualFold(mapped, addr.Host) {
		return Failuref(ErrNetwork, "fragmented host maps to %q, not %q", mapped, addr.Host)
	}

	prefix := addr.Scheme + "://"
	return Outcome{
		Locator:     prefix + f.token + strings.TrimPrefix(addr.Normalized, prefix),
		Host:        addr.HostPort(),
		Presumptive: true,
	}
}
