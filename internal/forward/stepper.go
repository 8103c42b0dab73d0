package forward

// Stepper advances flattened tracer states with the classic fourth-order
// Runge-Kutta scheme, reusing scratch buffers across steps.
type Stepper struct {
	k1, k2, k3, k4 []float64
	scratch        []float64
}

func NewStepper() *Stepper {
	return &Stepper{}
}

func (r *Stepper) ensureScratch(n int) {
	if len(r.k1) != n {
		r.k1 = make([]float64, n)
		r.k2 = make([]float64, n)
		r.k3 = make([]float64, n)
		r.k4 = make([]float64, n)
		r.scratch = make([]float64, n)
	}
}

// Step advances x by dt in place.
func (r *Stepper) Step(c *Column, x []float64, dt float64) {
	n := len(x)
	r.ensureScratch(n)

	c.deriv(x, r.k1)
	for i := 0; i < n; i++ {
		r.scratch[i] = x[i] + dt*0.5*r.k1[i]
	}
	c.deriv(r.scratch, r.k2)
	for i := 0; i < n; i++ {
		r.scratch[i] = x[i] + dt*0.5*r.k2[i]
	}
	c.deriv(r.scratch, r.k3)
	for i := 0; i < n; i++ {
		r.scratch[i] = x[i] + dt*r.k3[i]
	}
	c.deriv(r.scratch, r.k4)

	dt6 := dt / 6.0
	for i := 0; i < n; i++ {
		x[i] += dt6 * (r.k1[i] + 2*r.k2[i] + 2*r.k3[i] + r.k4[i])
	}
}
