package frp

// Accum folds f over every value s fires, starting from initial, and
// exposes the running total as a Cell[B]. It is built on a CellLoop: f's
// second argument is sampled from the accumulator's own prior value, a
// forward reference resolved by binding the loop to the cell the fold
// itself produces.
func Accum[A, B any](e *Engine, s *Stream[A], initial B, f func(A, B) B) (*Cell[B], error) {
	var result *Cell[B]
	err := e.RunTransaction(func(t *Transaction) error {
		loop := NewCellLoop[B](t)

		snapped, err := Snapshot(s, &loop.Cell, func(a A, b B) B { return f(a, b) })
		if err != nil {
			return err
		}
		held, err := Hold(snapped, initial)
		if err != nil {
			return err
		}
		if err := loop.Loop(held); err != nil {
			return err
		}
		result = held
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Collect is Accum for callers who only want the stream of running
// totals rather than a cell, e.g. to Merge it with other streams.
func Collect[A, B any](e *Engine, s *Stream[A], initial B, f func(A, B) B) (*Stream[B], error) {
	c, err := Accum(e, s, initial, f)
	if err != nil {
		return nil, err
	}
	return c.Updates(), nil
}
