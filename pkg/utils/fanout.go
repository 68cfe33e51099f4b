package utils

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// OrderedMap runs fn for every element of in concurrently and returns the
// results in input order, regardless of completion order. The first error
// cancels the context passed to the remaining calls and is returned alone;
// no partial result is ever returned. limit <= 0 means no bound.
func OrderedMap[T, R any](ctx context.Context, in []T, limit int, fn func(ctx context.Context, i int, item T) (R, error)) ([]R, error) {
	g, gctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}

	out := make([]R, len(in))
	for i, item := range in {
		g.Go(func() error {
			r, err := fn(gctx, i, item)
			if err != nil {
				return err
			}
			out[i] = r
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
