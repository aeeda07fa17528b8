// Package frp implements a push-based functional reactive programming
// runtime: streams and cells composed into a graph, propagated atomically
// inside transactions.
package frp

import "errors"

// ErrSendFromCallback is returned when Send (or any transaction-opening
// call) is invoked while a listener handler is executing. Listeners must
// not originate new external events; doing so is a programming error.
var ErrSendFromCallback = errors.New("frp: send invoked from within a listener callback")

// ErrLoopNotClosed is returned when a transaction closes with a
// StreamLoop or CellLoop that was created but never bound via Loop.
var ErrLoopNotClosed = errors.New("frp: forward-reference loop was never closed")

// ErrDoubleLoop is returned when Loop is called twice on the same
// StreamLoop or CellLoop placeholder.
var ErrDoubleLoop = errors.New("frp: loop already closed")

// ErrRankOverflow is returned when rank regeneration would push a node's
// rank past the engine's configured ceiling. Fatal: the engine that
// raises it is poisoned and refuses further transactions.
var ErrRankOverflow = errors.New("frp: rank overflow during regeneration")

// ErrCycleDetected is returned when rank regeneration recurses past the
// engine's configured depth bound, indicating a true graph cycle was
// linked outside of a loop placeholder. Fatal: the engine that raises it
// is poisoned.
var ErrCycleDetected = errors.New("frp: cycle detected during rank regeneration")

// ErrSampleOutsideTransaction is returned by Cell.TrySample when the
// engine is built WithStrictSampling and TrySample is called with no
// transaction open. Off by default. Cell.Sample never returns it: it
// always returns the cell's current value.
var ErrSampleOutsideTransaction = errors.New("frp: sample called outside a transaction")

// ErrEnginePoisoned is returned by RunTransaction, and so by Send, Listen
// and every other call that opens a transaction, on an engine that has
// already raised ErrRankOverflow or ErrCycleDetected. Combinator
// constructors do not check it. A poisoned
// engine's graph is in an unknown topological state and must not be used
// further.
var ErrEnginePoisoned = errors.New("frp: engine is poisoned and can no longer run transactions")

// ErrCrossEngine is returned by combinators that take two streams or
// cells (Merge, Snapshot, LiftCell2) when their arguments belong to different
// Engine instances. Each engine owns an independent transaction lock and
// rank graph; linking across them would race both silently instead of
// failing loudly.
var ErrCrossEngine = errors.New("frp: combinator given streams or cells from different engines")
