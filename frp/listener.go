package frp

import "sync/atomic"

// Listener is the handle returned by Stream.Listen and Cell.Listen. The
// source node's edge holds the handler itself, so the handler keeps
// firing until Unlisten is called, whether or not the caller keeps the
// Listener value. Hold (or an engine built WithStrongRetention)
// additionally records the listener in the engine's keep-alive set,
// which is what the active-listeners metric counts.
//
// Unlisten is idempotent and safe to call from any goroutine without an
// open transaction, since it only touches the source node's own mutex
// (see node.unlink), not the engine-wide transaction lock.
type Listener struct {
	id         uint64
	engine     *Engine
	source     *node
	edgeID     uint64
	unlistened atomic.Bool
}

func newListener(e *Engine, source *node, edgeID uint64) *Listener {
	l := &Listener{id: e.nextListenerID(), engine: e, source: source, edgeID: edgeID}
	if e.strongDefault {
		e.holdStrong(l)
	}
	return l
}

// Unlisten detaches the listener from its source. Calling it more than
// once, or concurrently, is safe: only the first call has any effect.
func (l *Listener) Unlisten() {
	if !l.unlistened.CompareAndSwap(false, true) {
		return
	}
	l.source.unlink(l.edgeID)
	l.engine.releaseStrong(l)
}

// Hold makes the listener strong: the engine keeps a reference to it for
// the engine's own lifetime, so the caller can discard its Listener value
// without the listener being collected. Unlisten still detaches it.
func (l *Listener) Hold() *Listener {
	l.engine.holdStrong(l)
	return l
}
