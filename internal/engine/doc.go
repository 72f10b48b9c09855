// Package engine implements the vidsheet playback engine.
//
// The engine consumes a compiled plan (see package compiler) and drives one
// media source per command index against wall-clock time, with pause, seek,
// rewind/fast-forward and resume-mid-segment semantics.
//
// ARCHITECTURE:
//
// Single-Writer Event Loop:
// All playback state is owned by the goroutine running Engine.Run. Host
// calls (Start, Pause, Seek, ...), timer firings and the sources-ready
// signal are all events on one FIFO queue. This ensures:
// - Frames are strictly serialized: every source command for frame N is
// issued before frame N's timer is armed
// - No locking around source handles (the engine is their sole writer)
// - Deterministic behavior under a virtual clock
//
// Event Processing Flow:
// 1. Host call or timer callback enqueues an event
// 2. Engine.Run() dequeues events one at a time
// 3. process() routes to the handler (call, frame due, readout, ready)
// 4. Handlers issue source commands and arm the next timer
//
// Timers:
// Timer callbacks never touch state; they enqueue an event stamped with the
// generation that armed them. Pause, Stop, Seek and the end of the plan bump
// the generation, so a timer that was already in flight is ignored. The frame
// timer and the position readout are always canceled together.
//
// CRITICAL PATTERNS:
//
// Drift-free timing:
// The wall-clock anchor (anchorTime, anchorOffset) is re-based at every frame
// boundary, so error does not accumulate across many short frames.
//
// Guards, not errors:
// Start requests that cannot proceed (sources not ready, empty plan, already
// playing) are no-ops reported in Outcome. Go errors are reserved for the
// engine lifecycle (ErrEngineStopped, context cancellation).
package engine
