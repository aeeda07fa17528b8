package emit

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func TestLogEmitterTextMode(t *testing.T) {
	var buf bytes.Buffer
	e := NewLogEmitter(&buf, false)
	e.Emit(Event{TxnID: "t-1", Phase: PhasePropagating, NodeID: "n-1", Msg: "send"})

	out := buf.String()
	if !strings.Contains(out, "[send]") {
		t.Errorf("expected message prefix in output, got %q", out)
	}
	if !strings.Contains(out, "txnID=t-1") {
		t.Errorf("expected txnID in output, got %q", out)
	}
}

func TestLogEmitterJSONMode(t *testing.T) {
	var buf bytes.Buffer
	e := NewLogEmitter(&buf, true)
	e.Emit(Event{TxnID: "t-1", Phase: PhaseLast, NodeID: "n-2", Msg: "rank_bumped"})

	var decoded map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("expected valid JSON line, got error: %v (output: %q)", err, buf.String())
	}
	if decoded["txnID"] != "t-1" {
		t.Errorf("expected txnID=t-1, got %v", decoded["txnID"])
	}
}

func TestLogEmitterNilWriterDefaultsToStdout(t *testing.T) {
	e := NewLogEmitter(nil, false)
	if e.writer == nil {
		t.Fatal("expected writer to default to os.Stdout, got nil")
	}
}

func TestLogEmitterEmitBatchPreservesOrder(t *testing.T) {
	var buf bytes.Buffer
	e := NewLogEmitter(&buf, true)
	events := []Event{
		{TxnID: "t-1", Msg: "first"},
		{TxnID: "t-1", Msg: "second"},
	}
	if err := e.EmitBatch(context.Background(), events); err != nil {
		t.Fatalf("EmitBatch returned error: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if !strings.Contains(lines[0], "first") || !strings.Contains(lines[1], "second") {
		t.Errorf("expected events in emission order, got %v", lines)
	}
}
