// Package flows contains pure-function orchestrators for the multi-step MFA
// operations of the Engine.
//
// Each flow function accepts a typed dependency struct of funcs and returns results
// without side-effects beyond those dependencies. The orchestrator owns state and
// quota; flows only sequence provider calls.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import goGuard (to avoid import cycles).
//   - Perform I/O directly; all I/O is mediated through dependency funcs.
package flows
