package forward

import (
	"fmt"

	"github.com/ctessum/sparse"

	"oceanspin/internal/tracer"
)

// Run integrates a module state through one cycle and returns the
// (tracer, Nsamples+1, depth) series with both cycle endpoints recorded.
// The state is advanced in place: after Run it holds the final values,
// ready to seed the next iteration.
func Run(st *tracer.State, p Params) (*sparse.DenseArray, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	ax := st.Axis()
	cnt, n := st.TracerCnt(), ax.Len()
	if len(st.Vals.Shape) != 2 || st.Vals.Shape[0] != cnt || st.Vals.Shape[1] != n {
		return nil, fmt.Errorf("forward: module %s: state shaped %v, want [%d %d]",
			st.Name(), st.Vals.Shape, cnt, n)
	}

	c := NewColumn(ax, st.Def(), p)
	dt := p.Duration / float64(p.Nsteps)
	if err := c.CheckStability(dt); err != nil {
		return nil, fmt.Errorf("forward: module %s: %w", st.Name(), err)
	}

	series := sparse.ZerosDense(cnt, p.Nsamples+1, n)
	record := func(sample int) {
		for ti := 0; ti < cnt; ti++ {
			dst := series.Elements[(ti*(p.Nsamples+1)+sample)*n:]
			copy(dst[:n], st.TracerVals(ti))
		}
	}

	record(0)
	stepper := NewStepper()
	stepsPerSample := p.Nsteps / p.Nsamples
	x := st.Vals.Elements
	for sample := 1; sample <= p.Nsamples; sample++ {
		for k := 0; k < stepsPerSample; k++ {
			stepper.Step(c, x, dt)
		}
		record(sample)
	}
	return series, nil
}
