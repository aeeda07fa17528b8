package emit

import (
	"context"
	"testing"
)

// compile-time interface satisfaction checks, mirroring how the teacher
// pins down implementations against the Emitter contract.
var (
	_ Emitter = (*NullEmitter)(nil)
	_ Emitter = (*LogEmitter)(nil)
	_ Emitter = (*BufferedEmitter)(nil)
	_ Emitter = (*OTelEmitter)(nil)
)

// fanoutEmitter forwards events to multiple backends, used by tests that
// want both a BufferedEmitter (for assertions) and a LogEmitter (for
// visibility when a test fails).
type fanoutEmitter struct {
	emitters []Emitter
}

func (f *fanoutEmitter) Emit(event Event) {
	for _, e := range f.emitters {
		e.Emit(event)
	}
}

func (f *fanoutEmitter) EmitBatch(ctx context.Context, events []Event) error {
	for _, e := range f.emitters {
		if err := e.EmitBatch(ctx, events); err != nil {
			return err
		}
	}
	return nil
}

func (f *fanoutEmitter) Flush(ctx context.Context) error {
	for _, e := range f.emitters {
		if err := e.Flush(ctx); err != nil {
			return err
		}
	}
	return nil
}

func TestFanoutEmitterForwardsToAll(t *testing.T) {
	a, b := NewBufferedEmitter(), NewBufferedEmitter()
	f := &fanoutEmitter{emitters: []Emitter{a, b}}

	f.Emit(Event{TxnID: "t-1", Msg: "send"})

	if len(a.History("t-1")) != 1 || len(b.History("t-1")) != 1 {
		t.Fatalf("expected both emitters to receive the event, got a=%d b=%d",
			len(a.History("t-1")), len(b.History("t-1")))
	}
}
