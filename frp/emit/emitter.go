package emit

import "context"

// Emitter receives and processes observability events from the reactive
// engine.
//
// Emitters enable pluggable observability backends:
//   - Logging: stdout, files.
//   - Distributed tracing: OpenTelemetry.
//   - In-memory history for tests.
//
// Implementations should be:
//   - Non-blocking: must not slow down transaction propagation.
//   - Thread-safe: the engine may call Emit from the goroutine that opened
//     any transaction, which can vary between transactions.
//   - Resilient: never panic.
type Emitter interface {
	// Emit sends an observability event to the configured backend.
	//
	// Emit must not block transaction propagation and must not panic.
	Emit(event Event)

	// EmitBatch sends multiple events in a single operation, preserving
	// their relative order.
	EmitBatch(ctx context.Context, events []Event) error

	// Flush ensures all buffered events are sent to the backend. Safe to
	// call multiple times.
	Flush(ctx context.Context) error
}
