package transport

import (
	"context"
	"time"

	"github.com/nao1215/waypoint/internal/address"
)

// Direct requests the literal web address.
type Direct struct {
	prober Prober
}

// NewDirect creates the direct adapter.
func NewDirect(prober Prober) *Direct {
	return &Direct{prober: prober}
}

// Name implements Adapter.
func (d *Direct) Name() string { return StrategyDirect }

// Applies implements Adapter.
func (d *Direct) Applies(addr address.Address) bool {
	return addr.Kind == address.KindWeb
}

// Attempt implements Adapter.
func (d *Direct) Attempt(ctx context.Context, addr address.Address, deadline time.Duration) Outcome {
	if !d.Applies(addr) {
		return Failuref(ErrInapplicable, "%s address", addr.Kind)
	}
	return Run(ctx, deadline, func(ctx context.Context) Outcome {
		if err := d.prober.Probe(ctx, Target{URL: addr.Normalized}); err != nil {
			return Failure(err)
		}
		return Success(addr.Normalized)
	})
}
