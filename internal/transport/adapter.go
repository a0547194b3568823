package transport

import (
	"context"
	"errors"
	"time"

	"github.com/nao1215/waypoint/internal/address"
)

// Strategy names reported in attempts and results.
const (
	StrategyDirect         = "direct"
	StrategyDNSBypass      = "dns-bypass"
	StrategyFragment       = "fragment"
	StrategyRelay          = "proxy-relay"
	StrategyOnionGateway   = "onion-gateway"
	StrategyContentGateway = "content-gateway"
	StrategyNaming         = "naming"
)

// Adapter is one resolution transport.
//
// The resolver calls Applies before every Attempt and calls Attempt only
// when it returns true. Attempt never panics and never returns a partial
// success: the Outcome either names a reachable Locator or carries an Err.
// An Attempt that cannot finish within deadline reports ErrTimeout. One whose
// ctx is canceled returns promptly with a failure. Most
// adapters wrap their work in Run to get both behaviors.
//
// Implementations must be safe for concurrent use. One adapter serves
// every in-flight cascade.
type Adapter interface {
	// Name returns the strategy name of the adapter.
	Name() string

	// Applies reports whether the adapter handles addr at all.
	// Inapplicable adapters are skipped without consuming their deadline.
	Applies(addr address.Address) bool

	// Attempt tries to reach addr and must return within deadline.
	Attempt(ctx context.Context, addr address.Address, deadline time.Duration) Outcome
}

// Run executes fn with a context bounded by deadline and returns its outcome.
// If fn has not returned when the deadline passes, Run returns an ErrTimeout
// failure immediately and the goroutine running fn is abandoned; its result
// is discarded. A non-positive deadline leaves only ctx in charge.
//
// A failure produced after the bounded context expired is reported as a
// timeout, so callers see one reason regardless of where fn noticed.
func Run(ctx context.Context, deadline time.Duration, fn func(ctx context.Context) Outcome) Outcome {
	if deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, deadline)
		defer cancel()
	}

	resultCh := make(chan Outcome, 1)
	go func() {
		resultCh <- fn(ctx)
	}()

	select {
	case out := <-resultCh:
		if !out.OK() && !errors.Is(out.Err, ErrTimeout) && errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return Failuref(ErrTimeout, "%s elapsed: %v", deadline, out.Err)
		}
		return out
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return Failuref(ErrTimeout, "%s elapsed", deadline)
		}
		return Failuref(ErrNetwork, "%v", ctx.Err())
	}
}
