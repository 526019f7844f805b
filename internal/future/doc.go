// Package future provides a single-shot asynchronous completion primitive.
//
// A Completion settles exactly once, either with a value or an error, and
// exposes a channel so waiters can compose it with contexts and other
// completions. Waiters are never invoked inline from the call that settles
// a completion; they observe settlement from their own goroutine.
package future
