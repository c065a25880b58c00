// Package race provides a first-of-N completion combinator.
//
// First starts every branch and returns the outcome of whichever settles
// first. The outcome channel is buffered for all branches, so losers never
// block, and their results are dropped without being read. Losers observe
// cancellation of the context they were given.
package race

import (
	"context"
	"errors"
	"time"
)

// ErrNoBranches is returned by First when called without branches.
var ErrNoBranches = errors.New("race: no branches")

// Branch is one contender in a race.
type Branch[T any] func(ctx context.Context) (T, error)

type outcome[T any] struct {
	value T
	err   error
}

// First runs all branches concurrently and returns the first outcome,
// success or error. If ctx ends before any branch settles, ctx.Err() is
// returned.
func First[T any](ctx context.Context, branches ...Branch[T]) (T, error) {
	var zero T
	if len(branches) == 0 {
		return zero, ErrNoBranches
	}

	raceCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	settled := make(chan outcome[T], len(branches))
	for _, b := range branches {
		go func(b Branch[T]) {
			v, err := b(raceCtx)
			settled <- outcome[T]{value: v, err: err}
		}(b)
	}

	select {
	case o := <-settled:
		return o.value, o.err
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// After returns a branch that fails with err once d has elapsed.
func After[T any](d time.Duration, err error) Branch[T] {
	return func(ctx context.Context) (T, error) {
		var zero T
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-timer.C:
			return zero, err
		case <-ctx.Done():
			return zero, ctx.Err()
		}
	}
}
