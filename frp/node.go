package frp

import "sync"

// action is the type-erased closure carried by a target. Stream[T] wraps
// a typed handler in one of these at link time and unwraps the value with
// a type assertion when it fires; this keeps the node graph itself
// monomorphic while the public Stream[T]/Cell[T] API stays generic.
type action func(t *Transaction, value interface{})

// target is an immutable edge record: (downstream node, action, id).
// Equality is by id. Targets are added via node.link and removed via
// node.unlink.
type target struct {
	id   uint64
	node *node
	run  action
}

// node is a propagation vertex identified by its pointer identity. It
// carries a rank (R1: for every edge u -> v, rank(u) < rank(v)) and the
// set of outgoing targets reached by firing it.
//
// A node's own mutex guards rank and targets independently of the
// engine's transaction lock: unlisten (C4) must be safe to call from any
// thread without first opening a transaction, so edge-set mutation can't
// rely solely on the transaction lock being held.
type node struct {
	mu      sync.Mutex
	rank    int
	targets []*target

	// coalesce combines two values destined for this node when it is
	// scheduled to fire more than once within the same transaction (a
	// diamond in the graph, or an explicit Merge). Nil means the node has
	// no coalescing contract: each push fires independently, in order,
	// the way an ordinary stream fed by two separate sends within one
	// transaction produces two separate firings.
	coalesce func(old, newer interface{}) interface{}

	// firings holds every value this node has fired within the current
	// transaction (§3 Stream: "firings ... cleared at transaction end").
	// It exists so a listener attached mid-transaction, after values have
	// already fired, can still be delivered those firings in order (the
	// late-attach contract, §4.5) instead of silently missing them.
	firings []interface{}

	// dispatched counts how many of firings have actually been popped off
	// the queue and delivered to this node's listener set so far this
	// transaction. Because propagation is deferred until the whole
	// transaction body finishes building the graph, a listener attached
	// before its target's entry pops sees it naturally (fireNode reads
	// targets live at pop time); only firings at index < dispatched are
	// "in the past" from a newly-attached listener's point of view and
	// need an explicit replay (see replayFirings). Without this count, a
	// listener attached before drain would be double-delivered: once
	// naturally when the real entry pops, and once more by a naive
	// replay-everything implementation.
	dispatched int
}

func newNode() *node {
	return &node{}
}

// setCoalesce installs the combining function used when this node is
// pushed more than once within a single transaction.
func (n *node) setCoalesce(fn func(old, newer interface{}) interface{}) {
	n.mu.Lock()
	n.coalesce = fn
	n.mu.Unlock()
}

// Rank returns the node's current rank.
func (n *node) Rank() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.rank
}

// snapshotTargets returns a copy of the node's outgoing edges, safe to
// iterate without holding the node's lock.
func (n *node) snapshotTargets() []*target {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]*target, len(n.targets))
	copy(out, n.targets)
	return out
}

// unlink removes the target with the given id, if present. Idempotent.
func (n *node) unlink(id uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for i, t := range n.targets {
		if t.id == id {
			n.targets = append(n.targets[:i], n.targets[i+1:]...)
			return
		}
	}
}

// findTarget returns the live target with the given id, or nil if it has
// been unlinked. Used by replayFirings so a replayed firing dispatched to
// an edge that was unlistened before it drained is filtered out rather
// than delivered (L1: unlisten is effective even against already-queued
// work).
func (n *node) findTarget(id uint64) *target {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, t := range n.targets {
		if t.id == id {
			return t
		}
	}
	return nil
}

// recordFiring appends v to n's transient firings list, registering a
// last-phase callback to clear it the first time n fires in a given
// transaction. Called once per independent push (see
// Transaction.prioritized); a coalesced push that folds into an already-
// pending entry updates the recorded value in place instead via
// updateLastFiring, so firings always mirrors what queued entries
// will actually deliver.
func (n *node) recordFiring(t *Transaction, v interface{}) {
	n.mu.Lock()
	first := len(n.firings) == 0
	n.firings = append(n.firings, v)
	n.mu.Unlock()

	if first {
		t.last(func(*Transaction) {
			n.mu.Lock()
			n.firings = n.firings[:0]
			n.dispatched = 0
			n.mu.Unlock()
		})
	}
}

// markDispatched records that one more of n's queued firings has just
// been popped and delivered to n's (live, at-the-time) listener set.
func (n *node) markDispatched() {
	n.mu.Lock()
	n.dispatched++
	n.mu.Unlock()
}

// updateLastFiring overwrites the most recently recorded firing in
// place, used when a coalesce function folds a new push into the pending
// entry rather than scheduling an independent one.
func (n *node) updateLastFiring(v interface{}) {
	n.mu.Lock()
	if len(n.firings) > 0 {
		n.firings[len(n.firings)-1] = v
	}
	n.mu.Unlock()
}

// replayFirings delivers every value n has already dispatched in the
// current transaction to the single newly-linked edge, preserving order
// and respecting any unlisten that arrives before the replay drains. It
// builds one throwaway relay node carrying just that edge, at the edge's
// own rank, rather than re-prioritizing n itself — re-firing n would
// redeliver to every listener already attached, not just the new one
// (§4.5 late-attach semantics, I5).
//
// Only the first n.dispatched firings are replayed: any firing still
// sitting in the queue, not yet popped, will reach the new edge on its
// own once it does pop, since fireNode reads n's target list live at pop
// time. Replaying those too would double-deliver them.
func (n *node) replayFirings(t *Transaction, edge *target) {
	n.mu.Lock()
	already := n.dispatched
	if already == 0 || already > len(n.firings) {
		already = 0
	}
	pending := make([]interface{}, already)
	copy(pending, n.firings[:already])
	n.mu.Unlock()
	if len(pending) == 0 {
		return
	}

	edgeID := edge.id
	relay := newNode()
	relay.rank = edge.node.Rank()
	relay.targets = []*target{{
		id:   edgeID,
		node: edge.node,
		run: func(tx *Transaction, v interface{}) {
			if live := n.findTarget(edgeID); live != nil {
				live.run(tx, v)
			}
		},
	}}
	for _, v := range pending {
		t.prioritized(relay, v)
	}
}

// link inserts an edge from source to downstream carrying run, and
// reports whether it forced a rank regeneration (E1). link itself does
// not open a transaction: Listen reaches it from inside one, while
// combinator constructors call it with no transaction open.
//
// If a bump happens while a transaction is actively draining on this
// goroutine (e.currentTxn is set — a listener callback attaching a new
// edge via Listen/a combinator), the affected node may already have a
// stale-rank entry sitting in that transaction's queue (queue.push
// snapshots rank at push time). link flags the open transaction for a
// resort so drain refreshes every queued entry's rank before its next
// pop, restoring Q1/G1 ordering instead of delivering out of rank order.
func (e *Engine) link(source, downstream *node, run action) (bumped bool, edge *target, err error) {
	id := e.nextEdgeID()
	edge = &target{id: id, node: downstream, run: run}

	source.mu.Lock()
	source.targets = append(source.targets, edge)
	source.mu.Unlock()

	if source.Rank() >= downstream.Rank() {
		bumped = true
		if err = e.regenerateRank(downstream, source.Rank()+1, 0); err != nil {
			return bumped, edge, err
		}
		if e.metrics != nil {
			e.metrics.rankRegenerations.Inc()
		}
		if t := e.currentTxn.Load(); t != nil {
			t.setNeedsRegenerating()
		}
	}
	return bumped, edge, nil
}

// regenerateRank bumps n's rank to at least minRank and recursively
// propagates the bump to n's descendants until R1 is restored. depth
// bounds the recursion so a true graph cycle (rather than one broken by a
// loop placeholder's delayed edge) is reported as ErrCycleDetected
// instead of recursing forever.
func (e *Engine) regenerateRank(n *node, minRank int, depth int) error {
	if depth > e.maxRegenDepth {
		e.poison()
		return ErrCycleDetected
	}

	n.mu.Lock()
	if n.rank >= minRank {
		n.mu.Unlock()
		return nil
	}
	if minRank > e.maxRank {
		n.mu.Unlock()
		e.poison()
		return ErrRankOverflow
	}
	n.rank = minRank
	targets := make([]*target, len(n.targets))
	copy(targets, n.targets)
	n.mu.Unlock()

	for _, t := range targets {
		if err := e.regenerateRank(t.node, n.rank+1, depth+1); err != nil {
			return err
		}
	}
	return nil
}
