// Package grid provides the 1-D vertical axis that tracer state lives on.
//
// An axis is built once at the start of a run and read-only afterwards:
//
//   - [Defn]: parametric definition (layer count, span, thickness ratio)
//   - [Axis]: edges plus the geometry derived from them
//
// Edges are the fundamental quantity. Midpoints, thicknesses, and their
// reciprocals are always recomputed from edges, never read back from a
// file, so a dumped axis reloads to bit-identical geometry.
//
// # Layer Stretching
//
// Generated axes space their layers with a quintic stretching polynomial
// that is odd about the grid center, so thicknesses sum exactly to the
// axis span while the thickest layer exceeds the thinnest by the requested
// ratio:
//
//	defn := grid.DefaultDefn("depth")
//	ax, _ := grid.New(defn)
//	total, _ := ax.IntegralMidVec(vals)
package grid
