package frp

import (
	"errors"
	"testing"

	"github.com/cascadelabs/reactive-go/frp/emit"
)

func TestRunTransactionEmitsLifecyclePhases(t *testing.T) {
	rec := emit.NewBufferedEmitter()
	e, err := New(WithEmitter(rec))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	var txnID string
	if err := e.RunTransaction(func(txn *Transaction) error {
		txnID = txn.id
		return nil
	}); err != nil {
		t.Fatalf("RunTransaction: %v", err)
	}

	hist := rec.History(txnID)
	if len(hist) < 2 {
		t.Fatalf("expected at least open+close events, got %d", len(hist))
	}
	if hist[0].Phase != emit.PhaseOpen {
		t.Errorf("expected first event to be PhaseOpen, got %v", hist[0].Phase)
	}
	if hist[len(hist)-1].Phase != emit.PhaseClosed {
		t.Errorf("expected last event to be PhaseClosed, got %v", hist[len(hist)-1].Phase)
	}
}

func TestRunTransactionPropagatesCallbackError(t *testing.T) {
	e, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	sentinel := errors.New("boom")

	err = e.RunTransaction(func(*Transaction) error {
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected sentinel error, got %v", err)
	}
}

func TestPoisonedEngineRefusesTransactions(t *testing.T) {
	e, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	e.poison()

	if err := e.RunTransaction(func(*Transaction) error { return nil }); err != ErrEnginePoisoned {
		t.Fatalf("expected ErrEnginePoisoned, got %v", err)
	}
}

// TestRunTransactionIsReentrant covers §4.3's nesting rule directly:
// a RunTransaction call made from inside an already-open transaction's
// body must join that transaction instead of deadlocking on the
// non-reentrant engine lock. Only the outermost call drains.
func TestRunTransactionIsReentrant(t *testing.T) {
	e, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	var innerTxnID, outerTxnID string
	err = e.RunTransaction(func(outer *Transaction) error {
		outerTxnID = outer.id
		return e.RunTransaction(func(inner *Transaction) error {
			innerTxnID = inner.id
			return nil
		})
	})
	if err != nil {
		t.Fatalf("RunTransaction: %v", err)
	}
	if innerTxnID != outerTxnID {
		t.Fatalf("expected nested RunTransaction to join the outer transaction, got inner=%q outer=%q", innerTxnID, outerTxnID)
	}
}

// TestAccumInsideRunTransactionDoesNotDeadlock is the concrete regression
// case the maintainer flagged: Accum opens its own RunTransaction
// internally, so calling it from inside a caller's RunTransaction body
// must join rather than hang forever on e.mu.
func TestAccumInsideRunTransactionDoesNotDeadlock(t *testing.T) {
	e, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	deltas := NewStreamSink[int](e)

	var sum *Cell[int]
	err = e.RunTransaction(func(*Transaction) error {
		var err error
		sum, err = Accum(e, &deltas.Stream, 0, func(delta, total int) int { return total + delta })
		return err
	})
	if err != nil {
		t.Fatalf("RunTransaction with nested Accum: %v", err)
	}
	if err := deltas.Send(5); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if sum.Sample() != 5 {
		t.Fatalf("expected sum 5, got %d", sum.Sample())
	}
}

func TestSendFromCallbackIsRejected(t *testing.T) {
	e, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	sink := NewStreamSink[int](e)

	var gotErr error
	l, err := sink.Listen(func(int) {
		gotErr = sink.Send(1)
	})
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer l.Unlisten()

	if err := sink.Send(1); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if gotErr != ErrSendFromCallback {
		t.Fatalf("expected ErrSendFromCallback, got %v", gotErr)
	}
}
