package stream

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"
)

// probeIter yields items, optionally failing at failAt, and records pulls.
type probeIter[T any] struct {
	items  []T
	failAt int
	err    error
	pulls  int
	closed bool
}

func newProbe[T any](items ...T) *probeIter[T] {
	return &probeIter[T]{items: items, failAt: -1}
}

func (it *probeIter[T]) Next(_ context.Context) (T, bool, error) {
	var zero T
	idx := it.pulls
	it.pulls++
	if idx == it.failAt {
		return zero, false, it.err
	}
	if idx >= len(it.items) {
		return zero, false, nil
	}
	return it.items[idx], true, nil
}

func (it *probeIter[T]) Close() error {
	it.closed = true
	return nil
}

func intSliceEqual(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func strSliceEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

var errBoom = errors.New("boom")

func TestFromSlice_Collect(t *testing.T) {
	got, err := Collect(context.Background(), FromSlice([]int{1, 2, 3}))
	if err != nil {
		t.Fatal(err)
	}
	if want := []int{1, 2, 3}; !intSliceEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestCollect_ClosesIterator(t *testing.T) {
	src := newProbe(1, 2)
	if _, err := Collect[int](context.Background(), src); err != nil {
		t.Fatal(err)
	}
	if !src.closed {
		t.Error("expected Collect to close the iterator")
	}
}

func TestFromFunc(t *testing.T) {
	n := 0
	it := FromFunc(func(context.Context) (int, bool, error) {
		if n == 3 {
			return 0, false, nil
		}
		n++
		return n, true, nil
	})
	got, err := Collect(context.Background(), it)
	if err != nil {
		t.Fatal(err)
	}
	if want := []int{1, 2, 3}; !intSliceEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestFromFunc_StopsAfterCompletion(t *testing.T) {
	calls := 0
	it := FromFunc(func(context.Context) (int, bool, error) {
		calls++
		return 0, false, nil
	})
	ctx := context.Background()
	it.Next(ctx)
	it.Next(ctx)
	if calls != 1 {
		t.Errorf("expected generator to be called once, got %d", calls)
	}
}

func TestFromChan(t *testing.T) {
	ch := make(chan string, 3)
	ch <- "a"
	ch <- "b"
	close(ch)
	got, err := Collect(context.Background(), FromChan(ch))
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"a", "b"}; !strSliceEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestFromChan_ContextCancelled(t *testing.T) {
	ch := make(chan int)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, ok, err := FromChan(ch).Next(ctx)
	if ok {
		t.Fatal("expected no value")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}

type closeRecorder struct {
	io.Reader
	closed bool
}

func (c *closeRecorder) Close() error {
	c.closed = true
	return nil
}

func TestLines(t *testing.T) {
	r := &closeRecorder{Reader: strings.NewReader("alpha\nbeta\r\n\ngamma")}
	got, err := Collect(context.Background(), Lines(r))
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"alpha", "beta", "", "gamma"}; !strSliceEqual(got, want) {
		t.Errorf("got %q, want %q", got, want)
	}
	if !r.closed {
		t.Error("expected reader to be closed")
	}
}

func TestLines_LongLine(t *testing.T) {
	long := strings.Repeat("x", 100*1024)
	got, err := Collect(context.Background(), Lines(strings.NewReader("a\n"+long+"\nb\n")))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := []string{"a", long, "b"}; !strSliceEqual(got, want) {
		t.Errorf("got %d lines, want %d", len(got), len(want))
	}
}

func TestLines_MaxLineSize(t *testing.T) {
	got, err := Collect(context.Background(), Lines(strings.NewReader("ok\n"+strings.Repeat("x", 64)+"\n"), WithMaxLineSize(16)))
	if !errors.Is(err, bufio.ErrTooLong) {
		t.Fatalf("expected bufio.ErrTooLong, got %v", err)
	}
	if want := []string{"ok"}; !strSliceEqual(got, want) {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestRun(t *testing.T) {
	src := newProbe(1, 2, 3)
	if err := Run[int](context.Background(), src); err != nil {
		t.Fatal(err)
	}
	if src.pulls != 4 {
		t.Errorf("expected 4 pulls (3 values + completion), got %d", src.pulls)
	}
	if !src.closed {
		t.Error("expected Run to close the iterator")
	}
}

func TestRun_Error(t *testing.T) {
	src := newProbe(1, 2, 3)
	src.failAt, src.err = 1, errBoom
	if err := Run[int](context.Background(), src); !errors.Is(err, errBoom) {
		t.Errorf("expected boom, got %v", err)
	}
}

func TestPipe(t *testing.T) {
	double := Map(func(_ context.Context, n int) (int, error) { return n * 2, nil })
	label := Map(func(_ context.Context, n int) (string, error) { return fmt.Sprintf("#%d", n), nil })

	got, err := Collect(context.Background(), Pipe(double, label)(FromSlice([]int{1, 2})))
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"#2", "#4"}; !strSliceEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestTransforms_DoNotPullOnConstruction(t *testing.T) {
	src := newProbe(1, 2, 3)
	keep := Where(func(int) bool { return true })
	id := func(_ context.Context, n int) (int, error) { return n, nil }
	noop := func(context.Context, int) error { return nil }

	_ = Each(noop)(Tap(noop)(Reject(Not(keep))(Filter(keep)(Map(id)(src)))))
	_ = MustBatch[int](2)(src)
	_ = EachP(func(context.Context, int) Pending { return nil })(src)

	if src.pulls != 0 {
		t.Errorf("expected no pulls before the output is consumed, got %d", src.pulls)
	}
}

func TestPull_OneUpstreamPullPerYield(t *testing.T) {
	src := newProbe(1, 2, 3, 4)
	double := Map(func(_ context.Context, n int) (int, error) { return n * 2, nil })
	it := Tap(func(context.Context, int) error { return nil })(double(src))

	ctx := context.Background()
	for i := 1; i <= 2; i++ {
		if _, ok, err := it.Next(ctx); !ok || err != nil {
			t.Fatalf("pull %d: ok=%v err=%v", i, ok, err)
		}
		if src.pulls != i {
			t.Errorf("after %d downstream pulls, upstream pulled %d times", i, src.pulls)
		}
	}
}

func TestClose_ForwardsUpstream(t *testing.T) {
	src := newProbe(1, 2, 3)
	groups := MustBatch[int](2)(src)
	it := Map(func(_ context.Context, g Group[int]) (int, error) { return len(g.Items), nil })(groups)

	if _, _, err := it.Next(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := it.Close(); err != nil {
		t.Fatal(err)
	}
	if !src.closed {
		t.Error("expected Close to reach the source")
	}
}
