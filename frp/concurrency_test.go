package frp

import (
	"context"
	"sync"
	"testing"

	"golang.org/x/sync/semaphore"
)

// TestConcurrentSendsAreSerialized stress-tests many goroutines calling
// Send on the same sink at once: every transaction must run to
// completion atomically, so the listener's running total must equal the
// sum of every value sent exactly once.
func TestConcurrentSendsAreSerialized(t *testing.T) {
	e, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	sink := NewStreamSink[int](e)

	var mu sync.Mutex
	sum := 0
	l, err := sink.Listen(func(v int) {
		mu.Lock()
		sum += v
		mu.Unlock()
	})
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer l.Unlisten()

	const goroutines = 32
	sem := semaphore.NewWeighted(8)
	var wg sync.WaitGroup
	ctx := context.Background()

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(v int) {
			defer wg.Done()
			if err := sem.Acquire(ctx, 1); err != nil {
				t.Errorf("Acquire: %v", err)
				return
			}
			defer sem.Release(1)
			if err := sink.Send(v); err != nil {
				t.Errorf("Send(%d): %v", v, err)
			}
		}(1)
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	if sum != goroutines {
		t.Fatalf("expected sum %d, got %d", goroutines, sum)
	}
}

// TestConcurrentListenAndUnlisten exercises Unlisten being called from a
// different goroutine than the one driving Send, confirming it never
// needs to open a transaction.
func TestConcurrentListenAndUnlisten(t *testing.T) {
	e, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	sink := NewStreamSink[int](e)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l, err := sink.Listen(func(int) {})
			if err != nil {
				t.Errorf("Listen: %v", err)
				return
			}
			l.Unlisten()
		}()
	}
	wg.Wait()

	if err := sink.Send(1); err != nil {
		t.Fatalf("Send: %v", err)
	}
}
