package stream

import "context"

// Predicate reports whether a value should be kept.
type Predicate[T any] func(context.Context, T) (bool, error)

// Where adapts an infallible boolean function to a Predicate.
func Where[T any](fn func(T) bool) Predicate[T] {
	return func(_ context.Context, v T) (bool, error) {
		return fn(v), nil
	}
}

// Not negates a predicate. Errors pass through.
func Not[T any](pred Predicate[T]) Predicate[T] {
	return func(ctx context.Context, v T) (bool, error) {
		keep, err := pred(ctx, v)
		if err != nil {
			return false, err
		}
		return !keep, nil
	}
}

// Map transforms each value using fn.
func Map[I, O any](fn func(context.Context, I) (O, error)) Transform[I, O] {
	return func(src Iterator[I]) Iterator[O] {
		return &mapIter[I, O]{source: src, fn: fn}
	}
}

// Filter keeps only values that satisfy pred, in their original order.
func Filter[T any](pred Predicate[T]) Transform[T, T] {
	return func(src Iterator[T]) Iterator[T] {
		return &filterIter[T]{source: src, pred: pred}
	}
}

// Reject drops values that satisfy pred. It yields exactly the values
// Filter(pred) would drop.
func Reject[T any](pred Predicate[T]) Transform[T, T] {
	return Filter(Not(pred))
}

// Tap calls fn for each value, then passes the value through unchanged.
// If fn fails, the value is not yielded.
func Tap[T any](fn func(context.Context, T) error) Transform[T, T] {
	return func(src Iterator[T]) Iterator[T] {
		return &tapIter[T]{source: src, fn: fn}
	}
}

// --- Iterator implementations ---

type mapIter[I, O any] struct {
	source Iterator[I]
	fn     func(context.Context, I) (O, error)
	latch
}

func (it *mapIter[I, O]) Next(ctx context.Context) (result O, ok bool, err error) {
	if it.err != nil {
		return result, false, it.err
	}
	val, ok, err := it.source.Next(ctx)
	if err != nil {
		return result, false, it.fail(err)
	}
	if !ok {
		return result, false, nil
	}
	out, err := it.fn(ctx, val)
	if err != nil {
		return result, false, it.fail(err)
	}
	return out, true, nil
}

func (it *mapIter[I, O]) Close() error { return it.source.Close() }

type filterIter[T any] struct {
	source Iterator[T]
	pred   Predicate[T]
	latch
}

func (it *filterIter[T]) Next(ctx context.Context) (result T, ok bool, err error) {
	if it.err != nil {
		return result, false, it.err
	}
	for {
		val, ok, err := it.source.Next(ctx)
		if err != nil {
			return result, false, it.fail(err)
		}
		if !ok {
			return result, false, nil
		}
		keep, err := it.pred(ctx, val)
		if err != nil {
			return result, false, it.fail(err)
		}
		if keep {
			return val, true, nil
		}
	}
}

func (it *filterIter[T]) Close() error { return it.source.Close() }

type tapIter[T any] struct {
	source Iterator[T]
	fn     func(context.Context, T) error
	latch
}

func (it *tapIter[T]) Next(ctx context.Context) (result T, ok bool, err error) {
	if it.err != nil {
		return result, false, it.err
	}
	val, ok, err := it.source.Next(ctx)
	if err != nil {
		return result, false, it.fail(err)
	}
	if !ok {
		return result, false, nil
	}
	if err := it.fn(ctx, val); err != nil {
		return result, false, it.fail(err)
	}
	return val, true, nil
}

func (it *tapIter[T]) Close() error { return it.source.Close() }
