// Package session holds the aggregate state of one scan.
//
// A Session is created with the full candidate set and then fed one outcome
// per candidate, from any number of goroutines, through OnResult. Every write
// is serialized by the session's mutex, so the final counters do not depend
// on delivery order. When the last candidate is recorded the session becomes
// Completed, Done is closed, and the completion hook fires exactly once.
// A completed session is read-only.
package session
