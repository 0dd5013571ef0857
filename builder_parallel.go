package bdzhash

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"

	bdzerrors "github.com/tamirms/bdzhash/errors"
	"github.com/tamirms/bdzhash/internal/bdz"
	"github.com/tamirms/bdzhash/internal/hashfn"
	"golang.org/x/sync/errgroup"
)

// attemptResult is the outcome of the first successful build attempt.
type attemptResult struct {
	attempt int
	seed    uint64
	labels  []byte
}

// seedSearch runs build attempts over a key set until one peels.
//
// Attempt k always hashes with bdz.AttemptSeed(cfg.seed, k), and the
// accepted attempt is the lowest-numbered one that succeeds. Sequential and
// parallel searches therefore return the same result.
type seedSearch struct {
	keys  KeySource
	r     uint32
	hash  hashfn.Func
	cfg   *buildConfig
	nkeys int
}

func newSeedSearch(keys KeySource, r uint32, hash hashfn.Func, cfg *buildConfig) *seedSearch {
	return &seedSearch{
		keys:  keys,
		r:     r,
		hash:  hash,
		cfg:   cfg,
		nkeys: keys.NumKeys(),
	}
}

// run dispatches to the sequential or parallel search.
func (s *seedSearch) run(ctx context.Context) (*attemptResult, error) {
	if s.cfg.maxAttempts <= 0 {
		return nil, fmt.Errorf("%w: max attempts %d must be positive", bdzerrors.ErrInvalidArgument, s.cfg.maxAttempts)
	}
	if s.cfg.workers > 1 {
		return s.runParallel(ctx)
	}
	return s.runSequential(ctx)
}

// runSequential tries attempts in order on a single reused solver.
func (s *seedSearch) runSequential(ctx context.Context) (*attemptResult, error) {
	solver := bdz.NewSolver(s.keys, s.r, s.hash)
	var lastErr error
	for k := range s.cfg.maxAttempts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		seed := bdz.AttemptSeed(s.cfg.seed, k)
		labels, err := solver.Solve(seed)
		if err == nil {
			return &attemptResult{attempt: k, seed: seed, labels: labels}, nil
		}
		if !errors.Is(err, bdzerrors.ErrCyclicGraph) {
			return nil, err
		}
		lastErr = err
		s.logFailure(k, err)
	}
	return nil, s.exhausted(lastErr)
}

// runParallel runs attempts on cfg.workers goroutines. Each worker owns a
// solver. Attempts numbered above the best success so far are skipped.
func (s *seedSearch) runParallel(ctx context.Context) (*attemptResult, error) {
	workers := min(s.cfg.workers, s.cfg.maxAttempts)
	solvers := make(chan *bdz.Solver, workers)
	for range workers {
		solvers <- bdz.NewSolver(s.keys, s.r, s.hash)
	}

	var (
		mu      sync.Mutex
		best    *attemptResult
		lastErr error
	)
	var bestAttempt atomic.Int64
	bestAttempt.Store(math.MaxInt64)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for k := range s.cfg.maxAttempts {
		if int64(k) > bestAttempt.Load() || gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if int64(k) > bestAttempt.Load() {
				return nil
			}
			if err := gctx.Err(); err != nil {
				return err
			}
			solver := <-solvers
			defer func() { solvers <- solver }()

			seed := bdz.AttemptSeed(s.cfg.seed, k)
			labels, err := solver.Solve(seed)
			if err != nil {
				if !errors.Is(err, bdzerrors.ErrCyclicGraph) {
					return err
				}
				s.logFailure(k, err)
				mu.Lock()
				lastErr = err
				mu.Unlock()
				return nil
			}

			mu.Lock()
			defer mu.Unlock()
			if best == nil || k < best.attempt {
				best = &attemptResult{attempt: k, seed: seed, labels: labels}
				bestAttempt.Store(int64(k))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if best == nil {
		return nil, s.exhausted(lastErr)
	}
	return best, nil
}

// logFailure records a cyclic attempt at Debug level.
func (s *seedSearch) logFailure(attempt int, err error) {
	s.cfg.logger.Debug("acyclic graph creation failure",
		"attempt", attempt,
		"remaining", s.cfg.maxAttempts-attempt-1,
		"keys", s.nkeys,
		"error", err)
}

// exhausted wraps the last attempt error in ErrRetryLimitExceeded.
func (s *seedSearch) exhausted(lastErr error) error {
	return fmt.Errorf("%w after %d attempts (c=%v): %w",
		bdzerrors.ErrRetryLimitExceeded, s.cfg.maxAttempts, s.cfg.loadFactor, lastErr)
}
