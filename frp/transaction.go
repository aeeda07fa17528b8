package frp

import (
	"time"

	"github.com/cascadelabs/reactive-go/frp/emit"
)

// txnPhase tracks where in its lifecycle a transaction currently is.
// Constructors and combinators use it to decide which queue a deferred
// action belongs on (e.g. Cell value commits must happen in the "last"
// phase, after every listener has seen the pre-transaction value).
type txnPhase int

const (
	phaseOpen txnPhase = iota
	phasePropagating
	phaseLast
	phasePost
	phaseClosed
)

// Transaction is the single unit of atomic propagation (C3). It is
// created and fully drained by Engine.RunTransaction; all other code
// that needs transaction access receives an already-open *Transaction
// and calls Transaction.Run on it rather than trying to open a new one,
// since Engine.mu is not reentrant.
type Transaction struct {
	id     string
	engine *Engine
	phase  txnPhase

	queue        *workQueue
	resortNeeded bool
	pending      map[*node]*entry

	lastFns []func(*Transaction)
	postFns []func(*Transaction)

	openLoops map[uint64]string
}

func newTransaction(e *Engine) *Transaction {
	return &Transaction{
		id:        newTxnID(),
		engine:    e,
		phase:     phaseOpen,
		queue:     newWorkQueue(),
		pending:   make(map[*node]*entry),
		openLoops: make(map[uint64]string),
	}
}

// Run executes fn against an already-open transaction. It does not open,
// drain, or close anything: it exists so combinators and Stream/Cell
// methods that are handed a *Transaction (because they're running inside
// one already, e.g. from a listener callback building more graph) don't
// need a separate code path from top-level construction.
func (t *Transaction) Run(fn func(*Transaction) error) error {
	return fn(t)
}

// prioritized enqueues a node firing for the propagating phase, ordered
// by the node's rank so that R1 (topological order within a transaction)
// holds. Firing a node means invoking every target.run currently attached
// to it (see fireNode); a target's run is free to call prioritized again
// to schedule a downstream firing, which is how values flow through a
// chain of combinators within one transaction.
//
// Without a coalesce function, a node fires once per push: sending twice
// to the same sink within one transaction delivers two separate firings,
// in order, to its listeners (§4.5 — firings is a list, not a slot). Only
// a node with an explicit coalesce function (installed by Merge, or by a
// Cell's backing subscription) collapses multiple pushes within the same
// transaction into the single reduced value its coalesce fn produces
// (§4.3, I2).
func (t *Transaction) prioritized(n *node, value interface{}) {
	if n.coalesce != nil {
		if e, ok := t.pending[n]; ok {
			e.value = n.coalesce(e.value, value)
			n.updateLastFiring(e.value)
			return
		}
		e := t.queue.push(n, value)
		t.pending[n] = e
		n.recordFiring(t, value)
		return
	}
	t.queue.push(n, value)
	n.recordFiring(t, value)
}

// last defers fn to run once, after the propagating phase has fully
// drained but before post. Cells use this to commit their sampled value
// from the pending next-value (so every listener observes the
// pre-transaction value during propagating, per the spec's Cell update
// ordering rule).
func (t *Transaction) last(fn func(*Transaction)) {
	t.lastFns = append(t.lastFns, fn)
}

// post defers fn to run once, after last. Used for side effects that
// must happen outside of propagation proper, such as releasing resources
// tied to a completed transaction.
func (t *Transaction) post(fn func(*Transaction)) {
	t.postFns = append(t.postFns, fn)
}

// setNeedsRegenerating flags that a rank changed since entries currently
// sitting in the queue took their rank snapshot, so the queue must be
// resorted before the next pop.
func (t *Transaction) setNeedsRegenerating() {
	t.resortNeeded = true
}

// registerLoop records an open StreamLoop/CellLoop placeholder so the
// transaction can detect, at close time, one that was never bound via
// Loop (P1/P2).
func (t *Transaction) registerLoop(id uint64, desc string) {
	t.openLoops[id] = desc
}

func (t *Transaction) closeLoop(id uint64) {
	delete(t.openLoops, id)
}

func (t *Transaction) checkLoopsClosed() error {
	if len(t.openLoops) > 0 {
		return ErrLoopNotClosed
	}
	return nil
}

// drain runs the propagating phase to completion, then last, then post,
// advancing t.phase as it goes. Every entry.run is invoked with the
// engine's inCallback counter held up, so that any Send attempted from
// inside a listener fails fast with ErrSendFromCallback instead of
// deadlocking on Engine.mu.
func (t *Transaction) drain() error {
	start := time.Now()
	t.phase = phasePropagating
	t.engine.emit(emit.Event{TxnID: t.id, Phase: emit.PhasePropagating, Msg: "propagating_start"})

	for {
		if t.resortNeeded {
			t.queue.resort()
			t.resortNeeded = false
		}
		e := t.queue.pop()
		if e == nil {
			break
		}
		delete(t.pending, e.node)
		if t.engine.metrics != nil {
			t.engine.metrics.queueDepth.Set(float64(t.queue.Len()))
		}
		t.runGuarded(e.node, e.value)
	}

	if t.engine.metrics != nil {
		t.engine.metrics.observePropagation(start)
	}

	t.phase = phaseLast
	t.engine.emit(emit.Event{TxnID: t.id, Phase: emit.PhaseLast, Msg: "last_start"})
	for _, fn := range t.lastFns {
		t.runGuardedFn(fn)
	}

	t.phase = phasePost
	t.engine.emit(emit.Event{TxnID: t.id, Phase: emit.PhasePost, Msg: "post_start"})
	for _, fn := range t.postFns {
		t.runGuardedFn(fn)
	}

	t.phase = phaseClosed
	return nil
}

// fireNode invokes every target currently attached to n with value. A
// target's run may itself call t.prioritized to schedule a downstream
// firing; the snapshot taken here means a target added mid-fire by that
// same firing doesn't also get invoked in this pass (E2).
func fireNode(t *Transaction, n *node, value interface{}) {
	for _, tgt := range n.snapshotTargets() {
		tgt.run(t, value)
	}
}

func (t *Transaction) runGuarded(n *node, value interface{}) {
	t.engine.inCallback.Add(1)
	defer t.engine.inCallback.Add(-1)
	n.markDispatched()
	fireNode(t, n, value)
}

func (t *Transaction) runGuardedFn(fn func(*Transaction)) {
	t.engine.inCallback.Add(1)
	defer t.engine.inCallback.Add(-1)
	fn(t)
}
