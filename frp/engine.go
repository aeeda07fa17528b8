package frp

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/cascadelabs/reactive-go/frp/emit"
)

// Engine owns the propagation graph and is the sole entry point for
// opening a transaction. Listen and every send run while RunTransaction
// holds mu. Combinator constructors (Map, Filter, Merge, Snapshot, Hold,
// Once) link their edges without opening a transaction, and
// Listener.Unlisten unlinks without one; both rely on each node's own
// per-node mutex instead (see node.go).
type Engine struct {
	mu sync.Mutex

	// inCallback counts listener callbacks currently executing on any
	// goroutine. RunTransaction checks it before attempting to acquire mu
	// so that a callback calling back into Send fails fast with
	// ErrSendFromCallback instead of deadlocking on the non-reentrant mu.
	inCallback atomic.Int32

	poisoned atomic.Bool

	emitter emit.Emitter
	metrics *PrometheusMetrics

	maxRank        int
	maxRegenDepth  int
	strongDefault  bool
	strictSampling bool
	txnActive      atomic.Bool

	// currentTxn holds the transaction presently being drained by
	// RunTransaction, for the duration of that call only. Stream.Listen
	// consults it so a Listen performed from code that is itself running
	// inside an open transaction (e.g. the spec's "runTransaction { s.send(7);
	// s.listen(h) }" scenario) joins that transaction directly instead of
	// trying to reopen Engine.mu, which a single goroutine can't do twice.
	currentTxn atomic.Pointer[Transaction]

	edgeID     atomic.Uint64
	listenerID atomic.Uint64
	loopID     atomic.Uint64

	keepMu    sync.Mutex
	keepAlive map[uint64]*Listener
}

// New constructs an Engine. Options configure observability, rank
// ceilings, and default listener retention.
func New(options ...Option) (*Engine, error) {
	cfg := defaultConfig()
	for _, opt := range options {
		if opt == nil {
			continue
		}
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}
	return &Engine{
		emitter:        cfg.emitter,
		metrics:        cfg.metrics,
		maxRank:        cfg.maxRank,
		maxRegenDepth:  cfg.maxRegenDepth,
		strongDefault:  cfg.strongDefault,
		strictSampling: cfg.strictSampling,
		keepAlive:      make(map[uint64]*Listener),
	}, nil
}

func (e *Engine) nextEdgeID() uint64 {
	return e.edgeID.Add(1)
}

func (e *Engine) nextListenerID() uint64 {
	return e.listenerID.Add(1)
}

func (e *Engine) nextLoopID() uint64 {
	return e.loopID.Add(1)
}

// Poisoned reports whether the engine has raised ErrRankOverflow or
// ErrCycleDetected and will refuse all further transactions.
func (e *Engine) Poisoned() bool {
	return e.poisoned.Load()
}

func (e *Engine) poison() {
	e.poisoned.Store(true)
}

// RunTransaction opens a new transaction, runs fn with it, drains all
// pending work (propagating phase, then last, then post), and closes it.
// It is the only method that acquires e.mu: every other internal access
// to the graph happens either through an already-open *Transaction value
// passed down the call stack, or through a node's own mutex.
//
// RunTransaction is reentrant (§4.3 Nesting, §6): a call made while a
// transaction is already open on this engine — e.g. Accum's internal
// RunTransaction invoked from inside a caller's own RunTransaction body —
// joins that transaction via Transaction.Run instead of trying to
// re-acquire the non-reentrant e.mu, which would deadlock a single
// goroutine against itself. Only the outermost call drains and closes.
//
// If called from inside a listener callback (detected via inCallback
// without attempting to lock), it returns ErrSendFromCallback immediately
// rather than joining or blocking: a callback originating a new external
// event is a programming error (§4.3 InCallback guard), not a legitimate
// nested transaction.
func (e *Engine) RunTransaction(fn func(*Transaction) error) error {
	if e.Poisoned() {
		return ErrEnginePoisoned
	}
	if e.inCallback.Load() > 0 {
		return ErrSendFromCallback
	}
	if t := e.currentTxn.Load(); t != nil {
		return t.Run(fn)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.txnActive.Store(true)
	defer e.txnActive.Store(false)

	t := newTransaction(e)
	e.currentTxn.Store(t)
	defer e.currentTxn.Store(nil)
	if e.metrics != nil {
		e.metrics.transactionsTotal.Inc()
	}
	e.emit(emit.Event{TxnID: t.id, Phase: emit.PhaseOpen, Msg: "transaction_open"})

	if err := fn(t); err != nil {
		e.emit(emit.Event{TxnID: t.id, Phase: emit.PhaseClosed, Msg: "transaction_aborted",
			Meta: map[string]interface{}{"error": err.Error()}})
		return err
	}

	if err := t.drain(); err != nil {
		return err
	}

	if err := t.checkLoopsClosed(); err != nil {
		return err
	}

	e.emit(emit.Event{TxnID: t.id, Phase: emit.PhaseClosed, Msg: "transaction_closed"})
	return nil
}

func (e *Engine) emit(ev emit.Event) {
	if e.emitter != nil {
		e.emitter.Emit(ev)
	}
}

func newTxnID() string {
	return uuid.NewString()
}

func (e *Engine) holdStrong(l *Listener) {
	e.keepMu.Lock()
	defer e.keepMu.Unlock()
	e.keepAlive[l.id] = l
	if e.metrics != nil {
		e.metrics.activeListeners.Inc()
	}
}

func (e *Engine) releaseStrong(l *Listener) {
	e.keepMu.Lock()
	defer e.keepMu.Unlock()
	if _, ok := e.keepAlive[l.id]; ok {
		delete(e.keepAlive, l.id)
		if e.metrics != nil {
			e.metrics.activeListeners.Dec()
		}
	}
}
