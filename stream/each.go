package stream

import "context"

// Pending is the completion signal of an asynchronous side effect.
// It completes when a value is received (nil means success) or when the
// channel is closed. A nil Pending is already complete.
type Pending <-chan error

// Async runs fn in its own goroutine and returns its completion.
func Async(ctx context.Context, fn func(context.Context) error) Pending {
	ch := make(chan error, 1)
	go func() {
		ch <- fn(ctx)
	}()
	return ch
}

// Done returns a Pending that has already completed with err.
func Done(err error) Pending {
	ch := make(chan error, 1)
	ch <- err
	return ch
}

// Wait blocks until p completes or ctx is done.
func (p Pending) Wait(ctx context.Context) error {
	if p == nil {
		return nil
	}
	select {
	case err := <-p:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Each calls fn for every value in order and yields nothing. The output
// completes once the input is drained. Use Run to drive it.
func Each[T any](fn func(context.Context, T) error) Transform[T, struct{}] {
	return func(src Iterator[T]) Iterator[struct{}] {
		return &eachIter[T]{source: src, fn: fn}
	}
}

// EachP is like Each, but fn starts an asynchronous side effect. The next
// value is not pulled until the previous Pending completed, so calls to fn
// never overlap.
func EachP[T any](fn func(context.Context, T) Pending) Transform[T, struct{}] {
	return func(src Iterator[T]) Iterator[struct{}] {
		return &eachIter[T]{source: src, fn: func(ctx context.Context, v T) error {
			return fn(ctx, v).Wait(ctx)
		}}
	}
}

type eachIter[T any] struct {
	source Iterator[T]
	fn     func(context.Context, T) error
	latch
	done bool
}

func (it *eachIter[T]) Next(ctx context.Context) (result struct{}, ok bool, err error) {
	if it.err != nil || it.done {
		return result, false, it.err
	}
	for {
		val, ok, err := it.source.Next(ctx)
		if err != nil {
			return result, false, it.fail(err)
		}
		if !ok {
			it.done = true
			return result, false, nil
		}
		if err := it.fn(ctx, val); err != nil {
			return result, false, it.fail(err)
		}
	}
}

func (it *eachIter[T]) Close() error { return it.source.Close() }
