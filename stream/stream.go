package stream

import (
	"bufio"
	"context"
	"io"
)

// Iterator provides pull-based sequential access to a stream of values.
type Iterator[T any] interface {
	// Next returns the next value. Returns (zero, false, nil) when exhausted.
	Next(ctx context.Context) (T, bool, error)
	// Close releases any resources held by the iterator.
	Close() error
}

// Transform turns one iterator into another. Calling it must not pull.
type Transform[I, O any] func(Iterator[I]) Iterator[O]

// Pipe composes two transforms. Pipe(f, g)(src) is g(f(src)).
func Pipe[A, B, C any](f Transform[A, B], g Transform[B, C]) Transform[A, C] {
	return func(src Iterator[A]) Iterator[C] {
		return g(f(src))
	}
}

// latch records the first failure of a stage so it is reported on every
// later pull.
type latch struct {
	err error
}

func (l *latch) fail(err error) error {
	l.err = err
	return err
}

// --- Sources ---

// FromSlice returns an iterator over items.
func FromSlice[T any](items []T) Iterator[T] {
	return &sliceIter[T]{items: items}
}

// FromFunc returns an iterator that calls next for every pull.
// next reports (zero, false, nil) once it has nothing left.
func FromFunc[T any](next func(context.Context) (T, bool, error)) Iterator[T] {
	return &funcIter[T]{next: next}
}

// FromChan returns an iterator that receives from ch until it is closed.
// A pull blocked on ch returns ctx.Err() when ctx is cancelled.
func FromChan[T any](ch <-chan T) Iterator[T] {
	return &chanIter[T]{ch: ch}
}

// DefaultMaxLineSize is the longest line Lines accepts without WithMaxLineSize.
const DefaultMaxLineSize = 1 << 20

// LineOption configures Lines.
type LineOption func(*lineOptions)

type lineOptions struct {
	maxLineSize int
}

// WithMaxLineSize sets the longest line, in bytes, that Lines accepts.
// A longer line fails the iterator with bufio.ErrTooLong.
func WithMaxLineSize(n int) LineOption {
	return func(o *lineOptions) {
		if n > 0 {
			o.maxLineSize = n
		}
	}
}

// Lines returns an iterator yielding r line by line, without line endings.
// Close closes r if it implements io.Closer.
func Lines(r io.Reader, opts ...LineOption) Iterator[string] {
	o := lineOptions{maxLineSize: DefaultMaxLineSize}
	for _, opt := range opts {
		opt(&o)
	}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, min(bufio.MaxScanTokenSize, o.maxLineSize)), o.maxLineSize)
	return &lineIter{r: r, scanner: scanner}
}

// --- Terminals ---

// Collect pulls every value from it and returns them as a slice. On failure
// it returns the values pulled so far together with the error.
func Collect[T any](ctx context.Context, it Iterator[T]) ([]T, error) {
	defer it.Close()
	var result []T
	for {
		val, ok, err := it.Next(ctx)
		if err != nil {
			return result, err
		}
		if !ok {
			return result, nil
		}
		result = append(result, val)
	}
}

// Run pulls it to completion and discards the values.
func Run[T any](ctx context.Context, it Iterator[T]) error {
	defer it.Close()
	for {
		_, ok, err := it.Next(ctx)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
	}
}

// --- Internal iterators ---

type sliceIter[T any] struct {
	items []T
	index int
}

func (it *sliceIter[T]) Next(_ context.Context) (T, bool, error) {
	if it.index >= len(it.items) {
		var zero T
		return zero, false, nil
	}
	val := it.items[it.index]
	it.index++
	return val, true, nil
}

func (it *sliceIter[T]) Close() error { return nil }

type funcIter[T any] struct {
	next func(context.Context) (T, bool, error)
	latch
	done bool
}

func (it *funcIter[T]) Next(ctx context.Context) (result T, ok bool, err error) {
	if it.err != nil || it.done {
		return result, false, it.err
	}
	val, ok, err := it.next(ctx)
	if err != nil {
		return result, false, it.fail(err)
	}
	if !ok {
		it.done = true
		return result, false, nil
	}
	return val, true, nil
}

func (it *funcIter[T]) Close() error { return nil }

type chanIter[T any] struct {
	ch <-chan T
}

func (it *chanIter[T]) Next(ctx context.Context) (result T, ok bool, err error) {
	select {
	case val, open := <-it.ch:
		if !open {
			return result, false, nil
		}
		return val, true, nil
	case <-ctx.Done():
		return result, false, ctx.Err()
	}
}

func (it *chanIter[T]) Close() error { return nil }

type lineIter struct {
	r       io.Reader
	scanner *bufio.Scanner
}

func (it *lineIter) Next(_ context.Context) (string, bool, error) {
	if it.scanner.Scan() {
		return it.scanner.Text(), true, nil
	}
	return "", false, it.scanner.Err()
}

func (it *lineIter) Close() error {
	if c, ok := it.r.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
