package jfuzz

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// BatchStats summarizes a GenerateBatch run.
type BatchStats struct {
	Generated  int
	Duplicates int
	Bytes      int64
}

// GenerateBatch generates count programs for the seeds base.Seed,
// base.Seed+1, ... with at most workers sessions running at once (0 means
// one per CPU). Each session stays single-threaded. emit receives the
// programs in seed order; a program whose body repeats an earlier one is
// counted as a duplicate and not emitted. Seeds are processed in windows of
// twice the worker count, and a window's programs are released once
// emitted.
func GenerateBatch(ctx context.Context, base Options, count, workers int, emit func(*Program) error) (BatchStats, error) {
	var stats BatchStats
	if count <= 0 {
		return stats, nil
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > count {
		workers = count
	}
	base = base.normalize()

	window := 2 * workers
	seen := make(map[uint64]uint64, count)
	for start := 0; start < count; start += window {
		n := min(window, count-start)
		progs, err := generateWindow(ctx, base, start, n, workers)
		if err != nil {
			return stats, err
		}
		for _, p := range progs {
			fp := p.Fingerprint()
			if first, dup := seen[fp]; dup {
				stats.Duplicates++
				base.Logger.Debug("batch.duplicate", "seed", p.Seed, "same_as", first)
				continue
			}
			seen[fp] = p.Seed
			if err := emit(p); err != nil {
				return stats, err
			}
			stats.Generated++
			stats.Bytes += int64(len(p.Source))
		}
	}
	base.Logger.Info("batch.done", "generated", stats.Generated, "duplicates", stats.Duplicates, "workers", workers)
	return stats, nil
}

// generateWindow runs the n seeds following base.Seed+start.
func generateWindow(ctx context.Context, base Options, start, n, workers int) ([]*Program, error) {
	progs := make([]*Program, n)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range progs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			opts := base
			opts.Seed = base.Seed + uint64(start+i)
			p, err := Generate(opts)
			if err != nil {
				return err
			}
			progs[i] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return progs, nil
}
