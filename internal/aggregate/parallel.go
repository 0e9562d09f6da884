package aggregate

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// RunShards runs the same pass over several independent sources (for example
// newline-aligned byte ranges of one file) concurrently. Each shard owns its
// Distribution; they are merged only after every shard has finished. The
// merged counts equal a sequential Run over the concatenated sources.
//
// OnSkip, if set on the Engine, is called from several goroutines.
func (e *Engine) RunShards(ctx context.Context, srcs []LineSource, pred Predicate, key KeyFunc) (Result, error) {
	results := make([]Result, len(srcs))
	g, gctx := errgroup.WithContext(ctx)
	for i, src := range srcs {
		i, src := i, src
		g.Go(func() error {
			r, err := e.Run(gctx, src, pred, key)
			results[i] = r
			return err
		})
	}
	err := g.Wait()

	var out Result
	dists := make([]Distribution, 0, len(results))
	for _, r := range results {
		out.Stats.Add(r.Stats)
		dists = append(dists, r.Dist)
	}
	if out.Skipped == nil {
		out.Skipped = map[string]int{}
	}
	out.Dist = Merge(dists...)
	return out, err
}
