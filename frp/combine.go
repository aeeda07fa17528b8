package frp

// CombineFunc[T] resolves two simultaneous firings of the same stream
// within one transaction into a single value, for Merge. Adapted from
// the teacher's state Reducer: both fold two values of the same type
// into one, but a CombineFunc folds two occurrences of an event rather
// than an accumulator and a delta.
type CombineFunc[T any] func(a, b T) T

// erasedCombine adapts a typed CombineFunc into the node-level coalesce
// hook, which operates on the type-erased interface{} values carried by
// queue entries.
func erasedCombine[T any](f CombineFunc[T]) func(old, newer interface{}) interface{} {
	return func(old, newer interface{}) interface{} {
		return f(old.(T), newer.(T))
	}
}
