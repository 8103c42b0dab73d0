// Package forward integrates tracer modules through one cycle of a
// vertical column model, producing the (tracer, time, depth) series the
// history diagnostics are derived from.
//
//   - [Params]: diffusivities, mixed-layer depth, restoring rate, and the
//     step/sample counts of a cycle
//   - [Column]: per-module tendency (diffusion plus surface restoring)
//   - [Stepper]: classic fourth-order Runge-Kutta with reused scratch
//   - [Run]: integrate a module state and record the sample series
//
// Diffusive fluxes vanish at the surface and the bottom, so a tracer with
// no surface restoring conserves its depth integral exactly; restored
// tracers exchange mass through the surface layer only.
package forward
