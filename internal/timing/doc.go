// Package timing implements frame-polled precision timers.
//
// A Timer never trusts a single scheduled callback. The host calls Tick once
// per display refresh and the timer re-measures elapsed time against its
// original start reading, so lateness of any one frame never accumulates
// across phases. Sequence chains timers end to end and collects their
// metrics.
//
// Nothing in this package blocks or spawns goroutines, and none of it is safe
// for concurrent use: every call is expected to come from the host's render
// loop.
package timing
