package forward

import (
	"errors"
	"fmt"
)

// ErrUnstable indicates a step size too large for explicit diffusion on
// the given grid.
var ErrUnstable = errors.New("forward: diffusion number exceeds stability limit")

// Params configure one forward cycle. Lengths are in the axis units
// (meters for the depth profile), times in days, diffusivities in m2/day.
type Params struct {
	KappaBG     float64 `yaml:"kappa_bg"`     // background diffusivity below the mixed layer
	KappaML     float64 `yaml:"kappa_ml"`     // mixed-layer diffusivity
	MLDepth     float64 `yaml:"ml_depth"`     // mixed-layer depth
	RestoreRate float64 `yaml:"restore_rate"` // surface restoring rate (1/day)
	Duration    float64 `yaml:"duration"`     // cycle length (days)
	Nsteps      int     `yaml:"nsteps"`       // integration steps per cycle
	Nsamples    int     `yaml:"nsamples"`     // recorded intervals per cycle
}

// DefaultParams returns a one-year cycle at quarter-day steps with a
// 50 m mixed layer.
func DefaultParams() Params {
	return Params{
		KappaBG:     1.0,
		KappaML:     50.0,
		MLDepth:     50.0,
		RestoreRate: 0.1,
		Duration:    365.0,
		Nsteps:      1460,
		Nsamples:    73,
	}
}

// Validate reports the first inconsistent parameter.
func (p Params) Validate() error {
	if p.KappaBG < 0 || p.KappaML < 0 {
		return fmt.Errorf("forward: diffusivities must be >= 0, got bg %g, ml %g",
			p.KappaBG, p.KappaML)
	}
	if p.MLDepth < 0 {
		return fmt.Errorf("forward: ml_depth must be >= 0, got %g", p.MLDepth)
	}
	if p.RestoreRate < 0 {
		return fmt.Errorf("forward: restore_rate must be >= 0, got %g", p.RestoreRate)
	}
	if p.Duration <= 0 {
		return fmt.Errorf("forward: duration must be positive, got %g", p.Duration)
	}
	if p.Nsteps < 1 || p.Nsamples < 1 {
		return fmt.Errorf("forward: nsteps %d and nsamples %d must be >= 1",
			p.Nsteps, p.Nsamples)
	}
	if p.Nsteps%p.Nsamples != 0 {
		return fmt.Errorf("forward: nsteps %d must be a multiple of nsamples %d",
			p.Nsteps, p.Nsamples)
	}
	return nil
}

// SampleTimes returns the Nsamples+1 recorded instants of a cycle,
// including both endpoints.
func (p Params) SampleTimes() []float64 {
	times := make([]float64, p.Nsamples+1)
	for i := range times {
		times[i] = p.Duration * float64(i) / float64(p.Nsamples)
	}
	return times
}
