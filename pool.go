package rapfiles

import (
	"context"
	"runtime"

	"golang.org/x/sync/semaphore"
)

// pool is the background execution bridge every blocking filesystem call is
// handed to. A weighted semaphore bounds the number of in-flight OS calls;
// the caller suspends at the hand-off and resumes when the call completes.
//
// Cancellation semantics: the context is honored only while waiting for a
// pool slot. Once a call has been dispatched it runs to completion even if
// the caller stops waiting for its result; abandoning the wait does not
// abort the underlying OS call. Repeatedly abandoning slow calls therefore
// leaks pool slots for as long as those calls take to finish — timeout
// policy belongs to a layer above this one.
type pool struct {
	sem *semaphore.Weighted
}

func newPool(workers int) *pool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &pool{sem: semaphore.NewWeighted(int64(workers))}
}

type result[T any] struct {
	v   T
	err error
}

// dispatch runs fn on the pool and blocks the caller until it completes or
// ctx is done. fn always runs to completion once started; if the caller
// abandons the wait, fn's result is discarded. The result channel is
// buffered so the worker never blocks on an abandoned caller.
func dispatch[T any](ctx context.Context, p *pool, fn func() (T, error)) (T, error) {
	var zero T
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return zero, err
	}

	ch := make(chan result[T], 1)
	go func() {
		defer p.sem.Release(1)
		v, err := fn()
		ch <- result[T]{v: v, err: err}
	}()

	select {
	case r := <-ch:
		return r.v, r.err
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}
