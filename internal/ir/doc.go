// Package ir provides the value types shared by the plan compiler and the
// playback engine.
//
// This package contains type definitions and pure helpers only. All other
// internal packages import ir; ir imports nothing internal.
//
// Key design constraints:
//   - Commands are value snapshots. The timeline owns the records; the
//     compiler and engine only ever hold clones (see Command.Clone).
//   - Master-timeline values are float64 milliseconds. Rate division yields
//     fractional values and boundaries are compared with exact equality, so
//     no helper in this package rounds.
//   - All JSON tags use snake_case.
package ir
