package grid

import (
	"fmt"

	"github.com/ctessum/sparse"
	"gonum.org/v1/gonum/floats"

	"oceanspin/internal/ncio"
)

// Axis is a 1-D vertical grid of N layers bounded by N+1 strictly
// increasing edges. It is constructed once, from a definition or a file,
// and read-only afterwards; tracer state holds a shared reference.
type Axis struct {
	Name  string
	Units string

	// Edges holds the N+1 layer boundaries, the fundamental quantity all
	// other geometry derives from.
	Edges []float64

	Mid       []float64 // layer midpoints
	Delta     []float64 // layer thicknesses
	DeltaR    []float64 // reciprocal thicknesses
	DeltaMid  []float64 // midpoint-to-midpoint spacings (N-1)
	DeltaMidR []float64 // reciprocal spacings

	// DefnValues records the generating parameters, empty for an axis
	// loaded from a file that carries none.
	DefnValues string
}

// New generates an axis from a parametric definition.
func New(defn *Defn) (*Axis, error) {
	if err := defn.Validate(); err != nil {
		return nil, err
	}
	ax := &Axis{
		Name:       defn.Axisname,
		Units:      defn.Units,
		Edges:      genEdges(defn),
		DefnValues: defn.String(),
	}
	if err := ax.derive(); err != nil {
		return nil, err
	}
	return ax, nil
}

// genEdges distributes nlevs layer thicknesses over the axis span.
// Thickness at sample i is delta_avg + stretch*S(x_i) on x evenly spaced
// in [-1, 1], where S(x) = 0.125*x*(15 + x^2*(3x^2 - 10)) is an odd
// quintic with S(±1) = ±1 and flat first and second derivatives there.
// Oddness makes the sampled stretch sum to zero, so the cumulative sum of
// thicknesses lands on edge_end up to rounding; the ±1 end samples make
// max(delta)/min(delta) equal delta_ratio_max exactly.
func genEdges(defn *Defn) []float64 {
	n := defn.Nlevs
	edges := make([]float64, n+1)
	edges[0] = defn.EdgeStart
	if n == 1 {
		// A single layer cannot stretch; it spans the axis outright.
		edges[1] = defn.EdgeEnd
		return edges
	}

	deltaAvg := (defn.EdgeEnd - defn.EdgeStart) / float64(n)
	stretch := deltaAvg * (defn.DeltaRatioMax - 1) / (defn.DeltaRatioMax + 1)

	coord := make([]float64, n)
	floats.Span(coord, -1, 1)
	delta := make([]float64, n)
	for i, x := range coord {
		s := 0.125 * x * (15 + x*x*(3*x*x-10))
		delta[i] = deltaAvg + stretch*s
	}
	floats.CumSum(delta, delta)
	for i, c := range delta {
		edges[i+1] = defn.EdgeStart + c
	}
	return edges
}

// Load reads an axis from an array file: edges come from the
// <axisname>_edges variable and everything else is derived from them.
func Load(path, axisname string) (*Axis, error) {
	if axisname == "" {
		return nil, fmt.Errorf("%w: axisname required to load an axis from %s",
			ErrBadDefn, path)
	}
	ds, err := ncio.Open(path)
	if err != nil {
		return nil, err
	}
	defer ds.Close()

	edgesVar := axisname + "_edges"
	edges, err := ds.Get(edgesVar)
	if err != nil {
		return nil, err
	}
	ax := &Axis{Name: axisname, Edges: edges}
	if v, ok := ds.Attr(edgesVar, "units"); ok {
		ax.Units, _ = ncio.AttrString(v)
	}
	if v, ok := ds.Attr("", "defn_values"); ok {
		ax.DefnValues, _ = ncio.AttrString(v)
	}
	if err := ax.derive(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return ax, nil
}

// derive computes the geometry that follows from the edges.
func (a *Axis) derive() error {
	n := len(a.Edges) - 1
	if n < 1 {
		return fmt.Errorf("%w: axis %s has %d edges, need at least 2",
			ErrBadDefn, a.Name, len(a.Edges))
	}
	a.Mid = make([]float64, n)
	a.Delta = make([]float64, n)
	a.DeltaR = make([]float64, n)
	for i := 0; i < n; i++ {
		d := a.Edges[i+1] - a.Edges[i]
		if d <= 0 {
			return fmt.Errorf("%w: edges[%d]=%g, edges[%d]=%g",
				ErrNotIncreasing, i, a.Edges[i], i+1, a.Edges[i+1])
		}
		a.Mid[i] = 0.5 * (a.Edges[i] + a.Edges[i+1])
		a.Delta[i] = d
		a.DeltaR[i] = 1.0 / d
	}
	a.DeltaMid = make([]float64, n-1)
	a.DeltaMidR = make([]float64, n-1)
	for i := 0; i < n-1; i++ {
		a.DeltaMid[i] = a.Mid[i+1] - a.Mid[i]
		a.DeltaMidR[i] = 1.0 / a.DeltaMid[i]
	}
	return nil
}

// Len returns the number of layers.
func (a *Axis) Len() int { return len(a.Edges) - 1 }

// IntegralMidVec integrates one profile sampled at layer midpoints: the
// thickness-weighted sum over layers.
func (a *Axis) IntegralMidVec(vals []float64) (float64, error) {
	if len(vals) != a.Len() {
		return 0, fmt.Errorf("grid: integral over axis %s: have %d values, want %d",
			a.Name, len(vals), a.Len())
	}
	return floats.Dot(a.Delta, vals), nil
}

// IntegralMid integrates over the trailing dimension of vals, which must
// match the axis length; leading dimensions (tracer, time) are carried
// through to the result.
func (a *Axis) IntegralMid(vals *sparse.DenseArray) (*sparse.DenseArray, error) {
	if len(vals.Shape) < 2 {
		return nil, fmt.Errorf("grid: integral over axis %s: need at least 2 dimensions, got %d",
			a.Name, len(vals.Shape))
	}
	n := vals.Shape[len(vals.Shape)-1]
	if n != a.Len() {
		return nil, fmt.Errorf("grid: integral over axis %s: trailing dimension is %d, want %d",
			a.Name, n, a.Len())
	}
	out := sparse.ZerosDense(vals.Shape[:len(vals.Shape)-1]...)
	for i := range out.Elements {
		out.Elements[i] = floats.Dot(a.Delta, vals.Elements[i*n:(i+1)*n])
	}
	return out, nil
}
