package stream

import (
	"context"
	"fmt"

	"github.com/kbukum/streamkit/errors"
)

// Group is a run of consecutive elements emitted by Batch.
type Group[T any] struct {
	// Seq is the zero-based position of the group among all groups of a run.
	Seq int
	// Items holds the elements in input order.
	Items []T
}

// Batch collects consecutive values into groups of size elements. When the
// input completes, a non-empty remainder is emitted as one final, smaller
// group. An empty input produces no groups.
//
// size must be at least 1.
func Batch[T any](size int) (Transform[T, Group[T]], error) {
	if size < 1 {
		return nil, errors.InvalidInput("size", fmt.Sprintf("batch size must be at least 1, got %d", size)).
			WithDetail("size", size)
	}
	return func(src Iterator[T]) Iterator[Group[T]] {
		return &batchIter[T]{source: src, size: size}
	}, nil
}

// MustBatch is like Batch but panics if size is invalid.
func MustBatch[T any](size int) Transform[T, Group[T]] {
	t, err := Batch[T](size)
	if err != nil {
		panic(err)
	}
	return t
}

// Flatten undoes Batch: it yields the items of every group in order.
func Flatten[T any]() Transform[Group[T], T] {
	return func(src Iterator[Group[T]]) Iterator[T] {
		return &flattenIter[T]{source: src}
	}
}

type batchIter[T any] struct {
	source Iterator[T]
	size   int
	chunk  []T
	seq    int
	latch
	done bool
}

func (it *batchIter[T]) Next(ctx context.Context) (result Group[T], ok bool, err error) {
	if it.err != nil || it.done {
		return result, false, it.err
	}
	for {
		val, ok, err := it.source.Next(ctx)
		if err != nil {
			// Buffered values are dropped together with the failed run.
			it.chunk = nil
			return result, false, it.fail(err)
		}
		if !ok {
			it.done = true
			if len(it.chunk) == 0 {
				return result, false, nil
			}
			return it.emit(), true, nil
		}
		if it.chunk == nil {
			it.chunk = make([]T, 0, it.size)
		}
		it.chunk = append(it.chunk, val)
		if len(it.chunk) == it.size {
			return it.emit(), true, nil
		}
	}
}

func (it *batchIter[T]) emit() Group[T] {
	g := Group[T]{Seq: it.seq, Items: it.chunk}
	it.chunk = nil
	it.seq++
	return g
}

func (it *batchIter[T]) Close() error { return it.source.Close() }

type flattenIter[T any] struct {
	source  Iterator[Group[T]]
	current []T
	latch
}

func (it *flattenIter[T]) Next(ctx context.Context) (result T, ok bool, err error) {
	if it.err != nil {
		return result, false, it.err
	}
	for len(it.current) == 0 {
		g, ok, err := it.source.Next(ctx)
		if err != nil {
			return result, false, it.fail(err)
		}
		if !ok {
			return result, false, nil
		}
		it.current = g.Items
	}
	val := it.current[0]
	it.current = it.current[1:]
	return val, true, nil
}

func (it *flattenIter[T]) Close() error { return it.source.Close() }
