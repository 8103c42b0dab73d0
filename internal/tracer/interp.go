package tracer

import "sort"

// Interp linearly interpolates the sample points (xp, fp) at each x.
// Points outside the sampled range take the nearest endpoint value. xp
// must be strictly increasing and fp the same length.
func Interp(x, xp, fp []float64) []float64 {
	out := make([]float64, len(x))
	for i, xi := range x {
		out[i] = interp1(xi, xp, fp)
	}
	return out
}

func interp1(x float64, xp, fp []float64) float64 {
	n := len(xp)
	switch {
	case n == 0:
		return 0
	case x <= xp[0]:
		return fp[0]
	case x >= xp[n-1]:
		return fp[n-1]
	}
	j := sort.SearchFloat64s(xp, x)
	if xp[j] == x {
		return fp[j]
	}
	w := (x - xp[j-1]) / (xp[j] - xp[j-1])
	return fp[j-1] + w*(fp[j]-fp[j-1])
}
