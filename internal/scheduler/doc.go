// Package scheduler runs independent tasks with bounded concurrency.
//
// Every task reports exactly one completion, success or failure. A failing
// or panicking task never cancels its siblings. Cancelling the context
// stops new tasks from starting: they complete immediately with the
// context error, while tasks already running are allowed to drain.
//
// Progress callbacks are serialized, and Completed increases by exactly one
// per call.
package scheduler
