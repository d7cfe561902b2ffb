// Package stream provides composable, pull-based stream transforms.
//
// A Transform maps one lazy Iterator to another. Stages are built by
// constructors (Batch, Map, Filter, Reject, Tap, Each, EachP) and composed by
// plain function application:
//
//	evens := stream.Filter(stream.Where(func(n int) bool { return n%2 == 0 }))
//	groups := stream.MustBatch[int](2)
//	out := groups(evens(stream.FromSlice([]int{1, 2, 3, 4, 5, 6})))
//	got, err := stream.Collect(ctx, out)
//
// Calling a Transform does no work. Values move only when the outermost
// iterator is pulled, one element at a time, so a slow consumer stalls the
// whole chain. Batch is the only stage that holds more than one element, and
// never more than its configured size.
//
// Errors from the upstream iterator or from a stage callback end the output
// at that position. They are returned unchanged and every later Next returns
// the same error.
//
// # Terminals
//
//   - Collect: pull everything into a slice
//   - Run: pull to completion, discarding values (drives Each and EachP)
//
// Each and EachP are terminal stages: their output never yields a value, it
// only completes once the input is drained.
package stream
