package resolve

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/waypoint/internal/model"
)

// DefaultConcurrency is the number of addresses ResolveMany works on at once.
const DefaultConcurrency = 8

// ResolveMany resolves several addresses concurrently, at most concurrency
// at a time (DefaultConcurrency when non-positive). Results are returned in
// input order. Duplicate addresses share one cascade.
//
// The error is set when ctx ends before every address was resolved; the
// results gathered so far are still returned and unfinished slots hold only
// the classified address.
func (r *Resolver) ResolveMany(ctx context.Context, raws []string, concurrency int) ([]model.Result, error) {
	results := make([]model.Result, len(raws))
	done := make([]bool, len(raws))
	err := r.ResolveEach(ctx, raws, concurrency, func(res model.Result, index int) {
		results[index] = res
		done[index] = true
	})
	for i := range results {
		if !done[i] {
			results[i].Address = r.classifier.Classify(raws[i])
		}
	}
	return results, err
}

// ResolveEach resolves several addresses concurrently and calls fn as each
// one finishes. fn is called from worker goroutines with the index of the
// address in raws; it must be safe for concurrent use unless it only writes
// to its own index.
func (r *Resolver) ResolveEach(
	ctx context.Context,
	raws []string,
	concurrency int,
	fn func(res model.Result, index int),
) error {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	r.logger.Debug("starting batch resolution",
		"total", len(raws),
		"concurrency", concurrency,
	)
	start := time.Now()

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i, raw := range raws {
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			res, err := r.Resolve(ctx, raw)
			if err != nil {
				return err
			}
			fn(res, i)
			return nil
		})
	}

	err := g.Wait()
	r.logger.Debug("batch resolution complete",
		"total", len(raws),
		"elapsed", time.Since(start),
	)
	return err
}
