// Package tracer holds the in-memory state of tracer modules and projects
// it into array files: state dumps, restart pairs, history records, and
// per-iteration statistics.
//
//   - [ModuleDef]: a named module and its ordered [TracerDef] entries
//   - [Source]: where initial values come from ([ZeroSource],
//     [InitIterateSource], [FileSource])
//   - [State]: grid-aware module state (values + dimensions + shared axis)
//   - [RestartState]: gridless variant with paired snapshot variables
//
// # Dump Protocol
//
// Array files are written in two phases: every participating state
// declares its dimensions and variables first, then values are written.
// [WriteDumpFile] drives the protocol for any mix of states sharing one
// file; a state asked to dump in an order the protocol forbids fails
// rather than guessing.
//
// # History and Statistics
//
// A forward run produces a (tracer, time, depth) series. The history
// record stores the raw series and its reductions: time mean (endpoints
// half-weighted, since both cycle endpoints are recorded), anomaly,
// standard deviation, end-minus-start delta, and depth integral. The
// statistics record reduces each history to one iteration's time mean per
// layer, appended across iterations for convergence monitoring.
package tracer
