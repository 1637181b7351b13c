// Package audit implements metadata sanitization and async event dispatching for
// security-relevant operations.
//
// # Components
//
//   - [Sanitize]: redacts sensitive fields from an arbitrary metadata tree.
//   - [Sink]: interface for event consumers.
//   - [Dispatcher]: buffered async relay with drop-if-full / block-if-full semantics.
//     Sink errors and panics are reported to a callback and never reach the producer.
//
// # Architecture boundaries
//
// This package owns redaction, event buffering and sink delivery. It does NOT decide
// which events to emit; that responsibility belongs to the Engine.
//
// # What this package must NOT do
//
//   - Filter or suppress events based on business logic.
//   - Import goGuard or any sibling internal package.
//   - Perform network I/O beyond what a caller-supplied Sink does.
package audit
