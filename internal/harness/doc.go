// Package harness runs playback scenarios against the real engine.
//
// A scenario names a project (inline commands or a project file), drives the
// engine through a list of host calls on a virtual clock, and asserts on the
// recorded trace, the source transport calls and the final state.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: overlap
//	description: "Later command takes over the screen at 2s"
//	commands:
//	  - {position_ms: 0, end_ms: 4000}
//	  - {position_ms: 2000, end_ms: 4000}
//	steps:
//	  - start: {resume_ms: 0}
//	    expect: {started: true, state: playing}
//	  - advance_ms: 2000
//	    expect: {frame_start: 2000}
//	  - pause: true
//	    expect: {state: paused, position_ms: 2000}
//	assertions:
//	  - type: dispatch_count
//	    count: 2
//	  - type: visible_order
//	    visible: [0, 1]
//	  - type: source_call
//	    source: 1
//	    call: "seek(0)"
//	  - type: final_state
//	    state: paused
//
// # Steps
//
// Each step sets exactly one of: start, pause, stop, seek_ms, rewind_ms,
// fast_forward_ms, advance_ms, ready. advance_ms moves the virtual clock one
// timer at a time and lets the engine settle after each. ready marks every
// source ready (scenarios with sources_ready: false start unready).
//
// # Assertion Types
//
//   - dispatch_count: number of frame dispatches
//   - visible_order: visible command index of every dispatch, in order
//   - source_call: a source received a call (exactly count times if given)
//   - transition_order: "reason:state" of every transition, in order
//   - final_state: engine state and position after the last step
//
// # Deterministic Testing
//
// Every scenario runs with a fresh engine, a virtual clock starting at a
// fixed epoch and a fixed session ID, so traces are identical across runs
// and can be compared against golden files.
package harness
