package resolve

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nao1215/waypoint/internal/address"
	"github.com/nao1215/waypoint/internal/cache"
	"github.com/nao1215/waypoint/internal/model"
	"github.com/nao1215/waypoint/internal/transport"
)

const (
	// DefaultSearchTemplate is the search target for free-text queries.
	DefaultSearchTemplate = "https://duckduckgo.com/?q={query}"

	// StrategySearch is reported for search redirects.
	StrategySearch = "search"
)

// Namer maps a pseudo-domain name to a content locator.
type Namer interface {
	Resolve(ctx context.Context, name string) (string, error)
}

// Resolver runs the strategy cascade.
//
// An address is classified first. Queries resolve at once to a search URL
// and never touch the network or the cache. Every other kind is looked up
// in the cache by its normalized form; on a miss the cascade runs under
// cache.Cache.Do, so concurrent requests for one address share a single
// run.
//
// The cascade tries adapters in their configured order and stops at the
// first success. Web addresses use the web adapters; content locators use
// the content adapters. A pseudo domain is first mapped to a content
// locator by the Namer and then continues through the content adapters.
// Each attempt is bounded by its strategy's deadline from Timeouts, and
// adapters that are disabled or do not apply are skipped without spending
// it. When every adapter fails the Result is exhausted and carries every
// attempt in order; exhausted results are never cached.
//
// It is safe for concurrent use.
type Resolver struct {
	classifier     *address.Classifier
	web            []transport.Adapter
	content        []transport.Adapter
	namer          Namer
	cache          *cache.Cache
	observers      observers
	timeouts       Timeouts
	searchTemplate string
	disabled       map[string]bool
	logger         *slog.Logger
	now            func() time.Time
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithClassifier sets the classifier used for raw input.
func WithClassifier(c *address.Classifier) Option {
	return func(r *Resolver) {
		if c != nil {
			r.classifier = c
		}
	}
}

// WithWebAdapters sets the cascade for web addresses, in priority order.
func WithWebAdapters(adapters ...transport.Adapter) Option {
	return func(r *Resolver) {
		r.web = adapters
	}
}

// WithContentAdapters sets the cascade for content addresses, in priority order.
func WithContentAdapters(adapters ...transport.Adapter) Option {
	return func(r *Resolver) {
		r.content = adapters
	}
}

// WithNamer sets the naming step run before the content cascade for
// pseudo-domains.
func WithNamer(n Namer) Option {
	return func(r *Resolver) {
		r.namer = n
	}
}

// WithCache sets the result cache.
func WithCache(c *cache.Cache) Option {
	return func(r *Resolver) {
		if c != nil {
			r.cache = c
		}
	}
}

// WithObservers adds cascade observers.
func WithObservers(obs ...Observer) Option {
	return func(r *Resolver) {
		for _, o := range obs {
			if o != nil {
				r.observers = append(r.observers, o)
			}
		}
	}
}

// WithTimeouts sets per-strategy deadlines.
func WithTimeouts(t Timeouts) Option {
	return func(r *Resolver) {
		r.timeouts = t
	}
}

// WithSearchTemplate sets the search target used for queries.
func WithSearchTemplate(template string) Option {
	return func(r *Resolver) {
		if template != "" {
			r.searchTemplate = template
		}
	}
}

// WithDisabled turns off strategies by name. Disabled strategies are
// reported as skipped.
func WithDisabled(strategies ...string) Option {
	return func(r *Resolver) {
		for _, s := range strategies {
			r.disabled[s] = true
		}
	}
}

// WithClock overrides the clock used for attempt timing.
func WithClock(now func() time.Time) Option {
	return func(r *Resolver) {
		if now != nil {
			r.now = now
		}
	}
}

// New creates a Resolver. Without adapters every web or content address
// exhausts immediately.
func New(opts ...Option) *Resolver {
	r := &Resolver{
		classifier:     address.NewClassifier(),
		timeouts:       DefaultTimeouts(),
		searchTemplate: DefaultSearchTemplate,
		disabled:       make(map[string]bool),
		logger:         slog.Default(),
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.cache == nil {
		r.cache = cache.New(cache.WithLogger(r.logger))
	}
	return r
}

// Classify classifies raw with the resolver's classifier.
func (r *Resolver) Classify(raw string) address.Address {
	return r.classifier.Classify(raw)
}

// Cache returns the result cache.
func (r *Resolver) Cache() *cache.Cache {
	return r.cache
}

// StrategyNames returns the enabled strategies of both cascades in order.
func (r *Resolver) StrategyNames() []string {
	var names []string
	if r.namer != nil && !r.disabled[transport.StrategyNaming] {
		names = append(names, transport.StrategyNaming)
	}
	seen := make(map[string]bool)
	for _, a := range append(append([]transport.Adapter{}, r.web...), r.content...) {
		if name := a.Name(); !seen[name] && !r.disabled[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	return names
}

// Resolve resolves raw to a reachable target.
//
// Exhaustion is not an error: it is returned as a Result whose Err wraps
// model.ErrCascadeExhausted. The returned error is non-nil only when ctx
// ends while the caller waits on a cascade shared with other callers; the
// cascade itself keeps running and its result is still cached.
func (r *Resolver) Resolve(ctx context.Context, raw string) (model.Result, error) {
	addr := r.classifier.Classify(raw)

	if addr.Kind == address.KindQuery {
		if addr.Degraded {
			r.logger.Debug("classification degraded", "address", addr.Raw)
		}
		res := model.Result{
			Address:    addr,
			Status:     model.StatusResolved,
			Target:     addr.SearchURL(r.searchTemplate),
			Strategy:   StrategySearch,
			Kind:       model.ContentSearch,
			ResolvedAt: r.now(),
		}
		r.observers.result(res)
		return res, nil
	}

	key := addr.Key()
	if res, ok := r.cache.Get(ctx, key); ok {
		r.logger.Debug("cache hit", "address", key, "strategy", res.Strategy)
		r.observers.result(res)
		return res, nil
	}

	res, leader, err := r.cache.Do(ctx, key, func(ctx context.Context) model.Result {
		res := r.cascade(ctx, addr)
		r.observers.result(res)
		return res
	})
	if err != nil {
		return model.Result{Address: addr}, fmt.Errorf("resolve %s: %w", key, err)
	}
	if !leader {
		r.logger.Debug("joined in-flight resolution", "address", key)
	}
	return res, nil
}

func (r *Resolver) cascade(ctx context.Context, addr address.Address) model.Result {
	r.logger.Debug("starting cascade", "address", addr.Normalized, "kind", addr.Kind.String())

	var attempts []model.Attempt
	target := addr
	adapters := r.web
	kind := model.ContentPage
	var named string

	if addr.Kind.IsContent() {
		adapters = r.content
		kind = model.ContentAddressed
	}

	if addr.Kind == address.KindPseudoDomain {
		attempt, resolved, ok := r.runNaming(ctx, addr)
		if attempt != nil {
			attempts = append(attempts, *attempt)
		}
		if !ok {
			return r.exhausted(addr, attempts)
		}
		target = resolved
		named = resolved.Locator
	}

	for _, a := range adapters {
		name := a.Name()
		if r.disabled[name] || !a.Applies(target) {
			r.logger.Debug("strategy skipped", "strategy", name, "address", target.Normalized)
			r.observers.skip(addr, name)
			continue
		}

		attempt, out := r.run(ctx, addr, name, func(ctx context.Context, deadline time.Duration) transport.Outcome {
			return a.Attempt(ctx, target, deadline)
		})
		attempts = append(attempts, attempt)
		if !out.OK() {
			continue
		}

		res := model.Result{
			Address:     addr,
			Status:      model.StatusResolved,
			Target:      out.Locator,
			Host:        out.Host,
			Strategy:    name,
			Kind:        kind,
			Via:         out.Via,
			Presumptive: out.Presumptive,
			Locator:     named,
			Attempts:    attempts,
			ResolvedAt:  r.now(),
		}
		r.logger.Info("resolved",
			"address", addr.Normalized,
			"strategy", name,
			"target", res.Target,
			"attempts", len(attempts),
		)
		return res
	}

	return r.exhausted(addr, attempts)
}

// runNaming maps a pseudo-domain to its content address. It returns a nil
// attempt when naming is disabled.
func (r *Resolver) runNaming(ctx context.Context, addr address.Address) (*model.Attempt, address.Address, bool) {
	if r.disabled[transport.StrategyNaming] {
		r.observers.skip(addr, transport.StrategyNaming)
		return nil, address.Address{}, false
	}

	attempt, out := r.run(ctx, addr, transport.StrategyNaming, func(ctx context.Context, deadline time.Duration) transport.Outcome {
		if r.namer == nil {
			return transport.Failuref(transport.ErrInapplicable, "no naming resolver configured")
		}
		return transport.Run(ctx, deadline, func(ctx context.Context) transport.Outcome {
			locator, err := r.namer.Resolve(ctx, addr.Host)
			if err != nil {
				return transport.Failuref(transport.ErrNetwork, "%v", err)
			}
			named := r.classifier.Classify(locator + addr.Locator)
			if named.Kind != address.KindContentLocator {
				return transport.Failuref(transport.ErrNetwork, "%s named %q, not a content locator", addr.Host, locator)
			}
			return transport.Success(named.Locator)
		})
	})
	if !out.OK() {
		return &attempt, address.Address{}, false
	}
	return &attempt, r.classifier.Classify(out.Locator), true
}

func (r *Resolver) run(
	ctx context.Context,
	addr address.Address,
	strategy string,
	fn func(ctx context.Context, deadline time.Duration) transport.Outcome,
) (model.Attempt, transport.Outcome) {
	start := r.now()
	out := fn(ctx, r.timeouts.For(strategy))

	attempt := model.Attempt{
		Strategy: strategy,
		Start:    start,
		Duration: r.now().Sub(start),
		Success:  out.OK(),
		Locator:  out.Locator,
		Reason:   out.Reason(),
		TimedOut: out.IsTimeout(),
	}
	if out.OK() {
		r.logger.Debug("strategy succeeded", "strategy", strategy, "address", addr.Normalized, "duration", attempt.Duration)
	} else {
		r.logger.Debug("strategy failed", "strategy", strategy, "address", addr.Normalized, "reason", attempt.Reason)
	}
	r.observers.attempt(addr, attempt)
	return attempt, out
}

func (r *Resolver) exhausted(addr address.Address, attempts []model.Attempt) model.Result {
	res := model.Result{
		Address:    addr,
		Status:     model.StatusExhausted,
		Attempts:   attempts,
		ResolvedAt: r.now(),
	}
	r.logger.Warn("resolution exhausted",
		"address", addr.Normalized,
		"attempts", len(attempts),
	)
	return res
}

// Invalidate drops the cached result for raw.
func (r *Resolver) Invalidate(ctx context.Context, raw string) {
	r.cache.Invalidate(ctx, r.classifier.Classify(raw).Key())
}

// ClearCache drops every cached result.
func (r *Resolver) ClearCache(ctx context.Context) {
	r.cache.Clear(ctx)
}
