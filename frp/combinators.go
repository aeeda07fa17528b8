package frp

import "sync/atomic"

// Map transforms every value s fires through f, producing a derived
// stream. f runs synchronously inside propagation, on the goroutine that
// drained the transaction; it must not call back into Send.
func Map[A, B any](s *Stream[A], f func(A) B) (*Stream[B], error) {
	out := newStream[B](s.engine)
	_, _, err := s.engine.link(s.node, out.node, func(t *Transaction, v interface{}) {
		t.prioritized(out.node, f(v.(A)))
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Filter produces a derived stream that only fires for values of s for
// which pred returns true.
func Filter[T any](s *Stream[T], pred func(T) bool) (*Stream[T], error) {
	out := newStream[T](s.engine)
	_, _, err := s.engine.link(s.node, out.node, func(t *Transaction, v interface{}) {
		val := v.(T)
		if pred(val) {
			t.prioritized(out.node, val)
		}
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Merge combines two streams of the same type into one that fires
// whenever either does. If both fire within the same transaction,
// combine resolves the two values into the single value the merged
// stream fires with: the merged stream's node coalesces, so inputs that
// fire before it is visited produce one firing.
//
// a and b must belong to the same Engine: each engine owns its own
// transaction lock and rank graph, so a node reachable from two engines
// would have its rank and firings raced by both independently.
func Merge[T any](a, b *Stream[T], combine CombineFunc[T]) (*Stream[T], error) {
	if a.engine != b.engine {
		return nil, ErrCrossEngine
	}
	out := newStream[T](a.engine)
	out.node.setCoalesce(erasedCombine(combine))

	if _, _, err := a.engine.link(a.node, out.node, func(t *Transaction, v interface{}) {
		t.prioritized(out.node, v.(T))
	}); err != nil {
		return nil, err
	}
	if _, _, err := b.engine.link(b.node, out.node, func(t *Transaction, v interface{}) {
		t.prioritized(out.node, v.(T))
	}); err != nil {
		return nil, err
	}
	return &out, nil
}

// Snapshot produces a stream that fires whenever s does, combining each
// value with c's value as of the start of the transaction (cells never
// appear to change mid-propagation to a snapshot reacting to the same
// transaction that updates them).
//
// s and c must belong to the same Engine (see Merge's doc comment).
func Snapshot[A, B, C any](s *Stream[A], c *Cell[B], f func(A, B) C) (*Stream[C], error) {
	if s.engine != c.engine {
		return nil, ErrCrossEngine
	}
	out := newStream[C](s.engine)
	_, _, err := s.engine.link(s.node, out.node, func(t *Transaction, v interface{}) {
		a := v.(A)
		b := c.sampleIn(t)
		t.prioritized(out.node, f(a, b))
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// MapCell produces a derived cell that recomputes f whenever c changes.
func MapCell[A, B any](c *Cell[A], f func(A) B) (*Cell[B], error) {
	mapped, err := Map(c.Updates(), f)
	if err != nil {
		return nil, err
	}
	return Hold(mapped, f(c.Sample()))
}

// LiftCell2 produces a derived cell that recomputes f whenever either ca
// or cb changes, combining their current values. ca and cb must belong
// to the same Engine (see Merge's doc comment); ErrCrossEngine surfaces
// from the Snapshot/Merge calls this is built on otherwise.
func LiftCell2[A, B, C any](ca *Cell[A], cb *Cell[B], f func(A, B) C) (*Cell[C], error) {
	fromA, err := Snapshot(ca.Updates(), cb, func(a A, b B) C { return f(a, b) })
	if err != nil {
		return nil, err
	}
	fromB, err := Snapshot(cb.Updates(), ca, func(b B, a A) C { return f(a, b) })
	if err != nil {
		return nil, err
	}
	merged, err := Merge(fromA, fromB, func(_, newer C) C { return newer })
	if err != nil {
		return nil, err
	}
	return Hold(merged, f(ca.Sample(), cb.Sample()))
}

// Once produces a stream that fires only for the first occurrence of s,
// then detaches itself from s entirely.
func Once[T any](s *Stream[T]) (*Stream[T], error) {
	out := newStream[T](s.engine)
	var fired atomic.Bool
	var edgeID uint64

	_, edge, err := s.engine.link(s.node, out.node, func(t *Transaction, v interface{}) {
		if !fired.CompareAndSwap(false, true) {
			return
		}
		t.prioritized(out.node, v.(T))
		t.post(func(*Transaction) {
			s.node.unlink(edgeID)
		})
	})
	if err != nil {
		return nil, err
	}
	edgeID = edge.id
	return &out, nil
}
