// Package viz provides terminal-based monitoring for spinup runs.
//
// The package implements a convergence watcher using the Bubble Tea
// framework:
//
//   - [WatchModel]: TUI polling a statistics file once per second and
//     charting each tracer's layer mean against solver iteration
//   - [SparklineChart]: one-line history used by the stats table
//
// # Key Bindings
//
//	Space - Pause/Resume polling
//	R     - Reload now
//	Up/K  - Shallower layer
//	Down/J - Deeper layer
//	Q     - Quit
//
// The watcher holds no file handle between polls, so a solver rewriting
// the statistics file and renaming it into place is picked up cleanly.
package viz
