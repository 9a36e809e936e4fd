package consistency

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// CollectValueSetsParallel computes the same mapping as CollectValueSets by
// splitting the rows into contiguous partitions, accumulating each one in
// its own goroutine and merging the partial mappings by set union. Union is
// associative and commutative per key, so the result does not depend on the
// partitioning or on goroutine scheduling.
func CollectValueSetsParallel[K comparable, V comparable](ctx context.Context, keys []K, values []V, partitions int, opts ...Option[V]) (map[K]Set[V], error) {
	if err := checkLengths(len(keys), len(values)); err != nil {
		return nil, err
	}
	if partitions <= 1 || len(keys) < partitions*2 {
		return CollectValueSets(keys, values, opts...)
	}

	o := buildOptions(opts)
	type partial struct {
		sets       map[K]Set[V]
		hasMissing map[K]bool
	}
	parts := make([]partial, partitions)
	chunk := (len(keys) + partitions - 1) / partitions

	g, gctx := errgroup.WithContext(ctx)
	for p := 0; p < partitions; p++ {
		lo := p * chunk
		hi := min(lo+chunk, len(keys))
		if lo >= hi {
			continue
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			sets := make(map[K]Set[V])
			var hasMissing map[K]bool
			err := protect(func() {
				hasMissing = accumulate(sets, nil, keys[lo:hi], values[lo:hi], o)
			})
			if err != nil {
				return err
			}
			parts[p] = partial{sets: sets, hasMissing: hasMissing}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := make(map[K]Set[V])
	mergedMissing := make(map[K]bool)
	for _, part := range parts {
		for k, s := range part.sets {
			dst, ok := merged[k]
			if !ok {
				merged[k] = s
				mergedMissing[k] = part.hasMissing[k]
				continue
			}
			for v := range s {
				if o.isMissing(v) {
					if mergedMissing[k] {
						continue
					}
					mergedMissing[k] = true
				}
				dst.Add(v)
			}
		}
	}
	return merged, nil
}
