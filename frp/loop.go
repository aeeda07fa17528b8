package frp

// StreamLoop[T] is a forward reference to a Stream[T] that doesn't exist
// yet: it lets a graph be built where a stream's definition needs to
// depend on something defined later in the same transaction (C7), most
// commonly a feedback path. Listen/Map/Filter/Merge can all be called on
// it like any other Stream[T] before Loop binds the real stream; those
// edges are simply forwarded once binding happens.
//
// The defining stream passed to Loop must not itself depend, via a
// listened/Updates stream edge, on anything downstream of this loop —
// that would be a genuine graph cycle rather than a resolvable forward
// reference, and rank regeneration will report ErrCycleDetected. Reading
// a CellLoop's Sample() to build the defining stream is always safe: it
// is a direct memory read, not a graph edge.
type StreamLoop[T any] struct {
	Stream[T]
	txn    *Transaction
	loopID uint64
	bound  bool
}

// NewStreamLoop creates a placeholder stream that must be bound via Loop
// before the transaction it was created in closes.
func NewStreamLoop[T any](t *Transaction) *StreamLoop[T] {
	id := t.engine.nextLoopID()
	t.registerLoop(id, "StreamLoop")
	return &StreamLoop[T]{
		Stream: Stream[T]{engine: t.engine, node: newNode()},
		txn:    t,
		loopID: id,
	}
}

// Loop binds the placeholder to a concrete stream: every future firing
// of real is forwarded as a firing of the loop. Calling Loop twice
// returns ErrDoubleLoop.
func (sl *StreamLoop[T]) Loop(real *Stream[T]) error {
	if sl.bound {
		return ErrDoubleLoop
	}
	sl.bound = true
	sl.txn.closeLoop(sl.loopID)

	_, _, err := sl.engine.link(real.node, sl.node, func(t *Transaction, v interface{}) {
		t.prioritized(sl.node, v.(T))
	})
	return err
}

// CellLoop[T] is a forward reference to a Cell[T]. Sample works
// immediately, returning the zero value of T until Loop binds a real
// cell, at which point it tracks that cell's value going forward.
type CellLoop[T any] struct {
	Cell[T]
	txn    *Transaction
	loopID uint64
	bound  bool
}

// NewCellLoop creates a placeholder cell that must be bound via Loop
// before the transaction it was created in closes.
func NewCellLoop[T any](t *Transaction) *CellLoop[T] {
	id := t.engine.nextLoopID()
	t.registerLoop(id, "CellLoop")
	var zero T
	updatesNode := newNode()
	return &CellLoop[T]{
		Cell: Cell[T]{
			engine:  t.engine,
			value:   zero,
			updates: Stream[T]{engine: t.engine, node: updatesNode},
		},
		txn:    t,
		loopID: id,
	}
}

// Loop binds the placeholder to a concrete cell: it adopts real's current
// value immediately, and from then on tracks every value real's Updates
// stream fires.
func (cl *CellLoop[T]) Loop(real *Cell[T]) error {
	if cl.bound {
		return ErrDoubleLoop
	}
	cl.bound = true
	cl.txn.closeLoop(cl.loopID)

	cl.mu.Lock()
	cl.value = real.Sample()
	cl.mu.Unlock()

	updatesNode := cl.updates.node
	_, _, err := cl.engine.link(real.updates.node, updatesNode, func(t *Transaction, v interface{}) {
		val := v.(T)
		t.last(func(*Transaction) {
			cl.mu.Lock()
			cl.value = val
			cl.mu.Unlock()
		})
		t.prioritized(updatesNode, val)
	})
	return err
}
