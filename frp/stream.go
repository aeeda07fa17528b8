package frp

// Stream[T] is a discrete sequence of events of type T (C5). It wraps a
// single graph node; firing the node with a value of type T is exactly
// what it means for the stream to "happen" at that value during a
// transaction.
type Stream[T any] struct {
	engine *Engine
	node   *node
}

func newStream[T any](e *Engine) Stream[T] {
	return Stream[T]{engine: e, node: newNode()}
}

// Engine returns the engine the stream was built against.
func (s *Stream[T]) Engine() *Engine { return s.engine }

// sendIn schedules a firing of this stream's node within an already-open
// transaction. StreamSink's Send and SendIn use this to feed values into
// the stream.
func (s *Stream[T]) sendIn(t *Transaction, v T) {
	t.prioritized(s.node, v)
}

// Listen attaches handler to every future firing of the stream. The
// handler stays attached until Unlisten is called on the returned
// Listener; dropping the Listener value does not detach it. An engine
// built WithStrongRetention also records every new listener in its
// keep-alive set.
//
// Listen opens a transaction (or joins one already open on the calling
// goroutine, e.g. when called from inside Engine.RunTransaction) the way
// the spec's §4.5 describes. If values have already fired on this stream
// earlier in that same transaction, the new listener is delivered each of
// them, in order, before Listen returns (the late-attach contract, I5) —
// a stream attached to in a past, already-closed transaction has no
// memory of that transaction's firings and simply misses them, since
// firings are cleared at transaction end.
func (s *Stream[T]) Listen(handler func(T)) (*Listener, error) {
	run := func(_ *Transaction, v interface{}) { handler(v.(T)) }

	if t := s.engine.currentTxn.Load(); t != nil {
		return s.listenIn(t, run)
	}

	var l *Listener
	if err := s.engine.RunTransaction(func(t *Transaction) error {
		var err error
		l, err = s.listenIn(t, run)
		return err
	}); err != nil {
		return nil, err
	}
	return l, nil
}

// listenIn links handler's edge against an already-open transaction and
// replays any of this stream's firings that happened earlier in that same
// transaction to the new edge alone (not to every listener already
// attached — see node.replayFirings).
func (s *Stream[T]) listenIn(t *Transaction, run action) (*Listener, error) {
	sink := newNode()
	_, edge, err := s.engine.link(s.node, sink, run)
	if err != nil {
		return nil, err
	}
	s.node.replayFirings(t, edge)
	return newListener(s.engine, s.node, edge.id), nil
}

// StreamSink is an externally-fed Stream[T]: the one true entry point
// through which code outside the engine pushes new values into the
// graph.
type StreamSink[T any] struct {
	Stream[T]
}

// NewStreamSink creates a stream that Send pushes external values into.
func NewStreamSink[T any](e *Engine) *StreamSink[T] {
	return &StreamSink[T]{Stream: newStream[T](e)}
}

// Send opens a new transaction, fires the sink with v, and drains the
// resulting propagation before returning. Returns ErrSendFromCallback if
// called from inside a listener handler, and ErrEnginePoisoned if the
// engine has detected a cycle or rank overflow.
func (s *StreamSink[T]) Send(v T) error {
	return s.engine.RunTransaction(func(t *Transaction) error {
		s.sendIn(t, v)
		return nil
	})
}

// SendIn fires the sink within an already-open transaction, for callers
// composing several sends into one atomic propagation via
// Engine.RunTransaction directly.
func (s *StreamSink[T]) SendIn(t *Transaction, v T) {
	s.sendIn(t, v)
}
