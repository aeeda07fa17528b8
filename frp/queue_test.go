package frp

import "testing"

func TestWorkQueuePopsByRankThenFIFO(t *testing.T) {
	high := newNode()
	high.rank = 5
	low := newNode()
	low.rank = 1

	q := newWorkQueue()
	q.push(high, "first-high")
	q.push(low, "first-low")
	q.push(low, "second-low")

	first := q.pop()
	if first.node != low || first.value != "first-low" {
		t.Fatalf("expected (low, first-low) first, got (%v, %v)", first.node, first.value)
	}
	second := q.pop()
	if second.node != low || second.value != "second-low" {
		t.Fatalf("expected (low, second-low) second, got (%v, %v)", second.node, second.value)
	}
	third := q.pop()
	if third.node != high {
		t.Fatalf("expected high-rank entry last")
	}
	if q.pop() != nil {
		t.Fatal("expected queue empty")
	}
}

func TestWorkQueueResortAfterRankChange(t *testing.T) {
	a := newNode()
	a.rank = 1
	b := newNode()
	b.rank = 2

	q := newWorkQueue()
	q.push(a, "a")
	q.push(b, "b")

	// Simulate a rank regeneration bumping a above b after both were queued.
	a.rank = 5
	q.resort()

	first := q.pop()
	if first.node != b {
		t.Fatalf("expected b to pop first after resort, got %v", first.node)
	}
}

func TestWorkQueuePushReturnsMutableEntry(t *testing.T) {
	n := newNode()
	q := newWorkQueue()
	e := q.push(n, 1)
	e.value = 2
	popped := q.pop()
	if popped.value != 2 {
		t.Fatalf("expected mutated value 2, got %v", popped.value)
	}
}
