// Package rate provides the fixed-window admission primitives behind the goGuard
// rate limiter: the [Store] contract, an in-process [MemoryStore], and a shared
// [RedisStore].
//
// # Window semantics
//
// Fixed-window counters keyed by (principal, endpoint). The first hit, or the first
// hit after the window's reset instant, replaces the entry with count=1. A hit with
// count >= limit is denied and leaves the entry unchanged. Bursts straddling a reset
// can admit up to 2x the limit; this is accepted.
//
// # Atomicity
//
//   - [MemoryStore] serializes each key through a sharded mutex.
//   - [RedisStore] evaluates the whole decision in one Lua script.
//
// # What this package must NOT do
//
//   - Decide what happens on store failure (the engine fails open and logs).
//   - Read principals from context.
//   - Be imported outside the goGuard module.
package rate
