package frp

import "sync"

// Cell[T] is a time-varying value of type T (C6): it always has a
// current value, readable synchronously via Sample, and an underlying
// stream of the values it has taken on, readable via Updates.
//
// value is guarded by its own mutex rather than the engine's transaction
// lock, so Sample can be called from any goroutine at any time, including
// from inside a listener callback where opening a transaction is
// forbidden.
type Cell[T any] struct {
	engine *Engine

	mu    sync.RWMutex
	value T

	updates Stream[T]
}

// Hold derives a Cell from a stream of values and an initial value: the
// cell holds initial until s first fires, then holds each value s fires
// from then on. The commit to the cell's value happens in the
// transaction's "last" phase, so every listener reacting to the same
// firing during propagating sees the pre-transaction value if it samples
// the cell (the standard FRP "cells change no earlier than the end of
// the transaction that caused them to" rule).
func Hold[T any](s *Stream[T], initial T) (*Cell[T], error) {
	updatesNode := newNode()
	// Last value wins: several firings of s in one transaction reach the
	// cell's updates stream as a single firing of the final value.
	updatesNode.setCoalesce(func(_, newer interface{}) interface{} { return newer })
	c := &Cell[T]{engine: s.engine, value: initial, updates: Stream[T]{engine: s.engine, node: updatesNode}}

	_, _, err := s.engine.link(s.node, updatesNode, func(t *Transaction, v interface{}) {
		val := v.(T)
		t.last(func(*Transaction) {
			c.mu.Lock()
			c.value = val
			c.mu.Unlock()
		})
		t.prioritized(updatesNode, val)
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Sample returns the cell's current value. Safe to call from any
// goroutine, transaction or not.
func (c *Cell[T]) Sample() T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.value
}

// TrySample is Sample with an additional check: if the engine was built
// WithStrictSampling and no transaction is currently open, it returns
// ErrSampleOutsideTransaction instead of the value. Sample itself never
// performs this check and always succeeds.
func (c *Cell[T]) TrySample() (T, error) {
	if c.engine.strictSampling && !c.engine.txnActive.Load() {
		var zero T
		return zero, ErrSampleOutsideTransaction
	}
	return c.Sample(), nil
}

// sampleIn returns the cell's current value as observed from inside a
// running transaction. Identical to Sample: a transaction never mutates
// the value directly, only schedules its commit for the last phase, so
// the value observed mid-propagation is always the pre-transaction one.
func (c *Cell[T]) sampleIn(_ *Transaction) T {
	return c.Sample()
}

// Updates returns the stream of values the cell has taken on. It does
// not fire for the cell's initial value, only for subsequent changes.
func (c *Cell[T]) Updates() *Stream[T] {
	return &c.updates
}

// Listen invokes handler immediately with the cell's current value, and
// again every time the cell's value changes thereafter.
func (c *Cell[T]) Listen(handler func(T)) (*Listener, error) {
	l, err := c.updates.Listen(handler)
	if err != nil {
		return nil, err
	}
	handler(c.Sample())
	return l, nil
}

// CellSink is an externally-mutable Cell[T]: Send pushes a new value
// directly, the way StreamSink does for a plain stream.
type CellSink[T any] struct {
	*StreamSink[T]
	cell *Cell[T]
}

// NewCellSink creates a cell seeded with initial that can be updated by
// calling Send.
func NewCellSink[T any](e *Engine, initial T) (*CellSink[T], error) {
	sink := NewStreamSink[T](e)
	cell, err := Hold[T](&sink.Stream, initial)
	if err != nil {
		return nil, err
	}
	return &CellSink[T]{StreamSink: sink, cell: cell}, nil
}

// Cell returns the underlying read-only Cell view.
func (cs *CellSink[T]) Cell() *Cell[T] { return cs.cell }

// Sample returns the cell's current value.
func (cs *CellSink[T]) Sample() T { return cs.cell.Sample() }
