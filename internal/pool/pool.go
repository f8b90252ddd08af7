package pool

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/EricRabil/vue-cli/internal/parallel"
)

// Pool runs tasks on a bounded number of goroutines. It stands in for the
// bundler's worker dispatch when files are classified outside a build.
type Pool struct {
	workers int
}

// New returns a pool running at most workers tasks at a time. Non-positive
// counts fall back to DefaultWorkers.
func New(workers int) *Pool {
	if workers <= 0 {
		workers = DefaultWorkers()
	}
	return &Pool{workers: workers}
}

// FromDecision sizes a pool the way the dispatcher would for d: a single worker
// when parallel compilation is off, the explicit count when one was given, and
// the default otherwise.
func FromDecision(d parallel.Decision) *Pool {
	if !d.Enabled {
		return New(1)
	}
	if d.Workers != nil {
		return New(*d.Workers)
	}
	return New(0)
}

// DefaultWorkers is one less than the number of CPUs, and at least one.
func DefaultWorkers() int {
	return max(runtime.NumCPU()-1, 1)
}

func (p *Pool) Workers() int {
	return p.workers
}

// Run calls fn for every item. Results are stored by index so the output order
// matches items regardless of scheduling. The first error cancels the remaining
// tasks and is returned.
func Run[T, R any](ctx context.Context, p *Pool, items []T, fn func(context.Context, T) (R, error)) ([]R, error) {
	out := make([]R, len(items))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)

	for i, item := range items {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			r, err := fn(ctx, item)
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
