// Package operation dispatches named remote operations and tracks their
// per-operation state.
//
// The package has three parts:
//   - Registry: the fixed table mapping an operation name to its HTTP path,
//     input fields, payload builder and user-facing error message
//   - Store: one State per operation (input, status, result or error),
//     read and written by UI collaborators and the Invoker
//   - Invoker: reads the current input, calls the transport, and records
//     the outcome in the Store
//
// Adding an operation means adding a Definition to the registry; the
// Invoker and Store need no changes.
//
// Failures from the transport never leave Invoke. They become a Failed state
// carrying the definition's fixed ErrorMessage, and the full diagnostic goes
// to the logger. An unknown operation name is a programming error and is
// returned immediately.
//
// Invocations of different operations run concurrently and independently.
// When the same operation is invoked again before the previous call
// completes, the newer invocation owns the state: the older response is
// discarded when it arrives (see ErrStaleRequest).
package operation
