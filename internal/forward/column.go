package forward

import (
	"fmt"

	"oceanspin/internal/grid"
	"oceanspin/internal/tracer"
)

// Column is a vertical diffusion and surface-restoring model for the
// tracers of one module. Diffusive fluxes vanish at both boundaries; the
// surface layer of a tracer with an initial profile is additionally
// restored toward that profile's shallowest value.
type Column struct {
	ax    *grid.Axis
	kappa []float64 // diffusivity at the N-1 interior interfaces

	restoreRate []float64 // per-tracer surface restoring rate, 0 when unrestored
	restoreVal  []float64 // per-tracer surface target
}

// NewColumn builds the column model for one module on its axis.
func NewColumn(ax *grid.Axis, def *tracer.ModuleDef, p Params) *Column {
	c := &Column{
		ax:          ax,
		kappa:       make([]float64, ax.Len()-1),
		restoreRate: make([]float64, def.TracerCnt()),
		restoreVal:  make([]float64, def.TracerCnt()),
	}
	for k := range c.kappa {
		// Interface k sits at the edge between layers k and k+1.
		if ax.Edges[k+1] < p.MLDepth {
			c.kappa[k] = p.KappaML
		} else {
			c.kappa[k] = p.KappaBG
		}
	}
	for i := range def.Tracers {
		tr := &def.Tracers[i]
		profile := tr
		if !tr.HasInitProfile() && tr.Shadows != "" {
			if shadowed, ok := def.Tracer(tr.Shadows); ok {
				profile = shadowed
			}
		}
		if profile.HasInitProfile() {
			c.restoreRate[i] = p.RestoreRate
			c.restoreVal[i] = profile.InitVals[0]
		}
	}
	return c
}

// TracerCnt returns the number of tracer columns the model advances.
func (c *Column) TracerCnt() int { return len(c.restoreRate) }

// Tendency writes the time derivative of the ti'th tracer column into out.
func (c *Column) Tendency(ti int, vals, out []float64) {
	n := c.ax.Len()
	for i := 0; i < n; i++ {
		// Fluxes are positive downward; the boundary faces carry none.
		var fin, fout float64
		if i > 0 {
			fin = -c.kappa[i-1] * (vals[i] - vals[i-1]) * c.ax.DeltaMidR[i-1]
		}
		if i < n-1 {
			fout = -c.kappa[i] * (vals[i+1] - vals[i]) * c.ax.DeltaMidR[i]
		}
		out[i] = (fin - fout) * c.ax.DeltaR[i]
	}
	out[0] += c.restoreRate[ti] * (c.restoreVal[ti] - vals[0])
}

// deriv writes the tendency of every tracer column of the flattened
// (tracer, depth) state.
func (c *Column) deriv(vals, out []float64) {
	n := c.ax.Len()
	for ti := 0; ti < len(c.restoreRate); ti++ {
		c.Tendency(ti, vals[ti*n:(ti+1)*n], out[ti*n:(ti+1)*n])
	}
}

// CheckStability verifies the explicit diffusion number for step size dt:
// kappa*dt/(dz*dz_mid) must stay at or below one half at every interface.
func (c *Column) CheckStability(dt float64) error {
	for k, kap := range c.kappa {
		dr := c.ax.DeltaR[k]
		if c.ax.DeltaR[k+1] > dr {
			dr = c.ax.DeltaR[k+1]
		}
		nu := kap * dt * c.ax.DeltaMidR[k] * dr
		if nu > 0.5 {
			return fmt.Errorf("%w: %.3f at interface %d; reduce the step size",
				ErrUnstable, nu, k)
		}
	}
	return nil
}
