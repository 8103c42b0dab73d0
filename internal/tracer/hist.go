package tracer

import (
	"fmt"
	"math"

	"github.com/ctessum/sparse"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"oceanspin/internal/ncio"
)

// histTimeDim is the time dimension of history records.
const histTimeDim = "time"

// HistTimeWeights returns the time-mean weights of a history record with
// timelen samples: uniform 1/(timelen-1) with the first and last samples
// at half weight, because the record holds both endpoints of the cycle.
// The weights sum to one.
func HistTimeWeights(timelen int) ([]float64, error) {
	if timelen < 2 {
		return nil, fmt.Errorf("tracer: history needs at least 2 time samples, got %d", timelen)
	}
	w := make([]float64, timelen)
	for i := range w {
		w[i] = 1.0 / float64(timelen-1)
	}
	w[0] *= 0.5
	w[timelen-1] *= 0.5
	return w, nil
}

// HistDims returns the dimensions of a history record with timelen samples.
func (s *State) HistDims(timelen int) ncio.Dims {
	return ncio.Dims{
		{Name: histTimeDim, Len: timelen},
		{Name: s.axis.Name, Len: s.axis.Len()},
	}
}

// HistVarsMetadata returns the declarations of the per-tracer history
// variables: the raw series plus its five reductions. Each declaration
// gets its own copy of the tracer's attributes with the derivation noted
// in long_name.
func (s *State) HistVarsMetadata() []ncio.VarDef {
	timeDepth := []string{histTimeDim, s.axis.Name}
	depth := []string{s.axis.Name}
	timeOnly := []string{histTimeDim}

	defs := make([]ncio.VarDef, 0, 6*len(s.def.Tracers))
	for i := range s.def.Tracers {
		tr := &s.def.Tracers[i]

		attrs := tr.Attrs()
		attrs["cell_methods"] = "time: point"
		defs = append(defs, ncio.VarDef{Name: tr.Name, Dims: timeDepth, Attrs: attrs})

		attrs = tr.Attrs()
		attrs["long_name"] = tr.LongName + ", mean in time"
		defs = append(defs, ncio.VarDef{Name: tr.Name + "_time_mean", Dims: depth, Attrs: attrs})

		attrs = tr.Attrs()
		attrs["long_name"] = tr.LongName + ", anomaly in time"
		defs = append(defs, ncio.VarDef{Name: tr.Name + "_time_anom", Dims: timeDepth, Attrs: attrs})

		attrs = tr.Attrs()
		attrs["long_name"] = tr.LongName + ", std dev in time"
		defs = append(defs, ncio.VarDef{Name: tr.Name + "_time_std", Dims: depth, Attrs: attrs})

		attrs = tr.Attrs()
		attrs["long_name"] = tr.LongName + ", end state minus start state"
		defs = append(defs, ncio.VarDef{Name: tr.Name + "_time_delta", Dims: depth, Attrs: attrs})

		attrs = tr.Attrs()
		attrs["long_name"] = tr.LongName + ", depth integral"
		attrs["units"] = ncio.UnitsFormat("( " + tr.Units + " ) ( " + s.axis.Units + " )")
		defs = append(defs, ncio.VarDef{Name: tr.Name + "_depth_int", Dims: timeOnly, Attrs: attrs})
	}
	return defs
}

// WriteHistVars computes and writes the history projections of a
// (tracer, time, depth) series: the raw values, the time-weighted mean,
// the anomaly about it, the weighted standard deviation, the end-minus-
// start delta, and the thickness-weighted depth integral per sample.
func (s *State) WriteHistVars(f *ncio.File, series *sparse.DenseArray) error {
	if len(series.Shape) != 3 {
		return fmt.Errorf("tracer: module %s: history series must be (tracer, time, %s), got rank %d",
			s.def.Name, s.axis.Name, len(series.Shape))
	}
	cnt, timelen, nlevs := series.Shape[0], series.Shape[1], series.Shape[2]
	if cnt != s.TracerCnt() {
		return fmt.Errorf("tracer: module %s: series has %d tracers, want %d",
			s.def.Name, cnt, s.TracerCnt())
	}
	if nlevs != s.axis.Len() {
		return fmt.Errorf("tracer: module %s: series has %d layers, want %d",
			s.def.Name, nlevs, s.axis.Len())
	}
	weights, err := HistTimeWeights(timelen)
	if err != nil {
		return err
	}

	col := make([]float64, timelen)
	mean := make([]float64, nlevs)
	std := make([]float64, nlevs)
	anom := make([]float64, timelen*nlevs)
	delta := make([]float64, nlevs)
	depthInt := make([]float64, timelen)

	for i, name := range s.def.TracerNames() {
		raw := series.Elements[i*timelen*nlevs : (i+1)*timelen*nlevs]
		if err := f.Put(name, raw); err != nil {
			return err
		}

		for d := 0; d < nlevs; d++ {
			for ti := 0; ti < timelen; ti++ {
				col[ti] = raw[ti*nlevs+d]
			}
			mean[d] = stat.Mean(col, weights)
			std[d] = math.Sqrt(stat.MomentAbout(2, col, mean[d], weights))
		}
		if err := f.Put(name+"_time_mean", mean); err != nil {
			return err
		}

		for ti := 0; ti < timelen; ti++ {
			floats.SubTo(anom[ti*nlevs:(ti+1)*nlevs], raw[ti*nlevs:(ti+1)*nlevs], mean)
		}
		if err := f.Put(name+"_time_anom", anom); err != nil {
			return err
		}
		if err := f.Put(name+"_time_std", std); err != nil {
			return err
		}

		floats.SubTo(delta, raw[(timelen-1)*nlevs:], raw[:nlevs])
		if err := f.Put(name+"_time_delta", delta); err != nil {
			return err
		}

		for ti := 0; ti < timelen; ti++ {
			v, err := s.axis.IntegralMidVec(raw[ti*nlevs : (ti+1)*nlevs])
			if err != nil {
				return err
			}
			depthInt[ti] = v
		}
		if err := f.Put(name+"_depth_int", depthInt); err != nil {
			return err
		}
	}
	return nil
}

// HistSeries pairs a module state with the (tracer, time, depth) series a
// forward run produced for it.
type HistSeries struct {
	State  *State
	Series *sparse.DenseArray
}

// WriteHistFile writes one history record holding the series of one or
// more module states: the time coordinate, each state's axis geometry,
// and each module's raw and derived variables. All series must have
// len(times) samples.
func WriteHistFile(path, caller string, times []float64, runs []HistSeries) error {
	f, err := ncio.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.StampHistory("tracer.WriteHistFile", caller); err != nil {
		return err
	}
	if err := f.AddDim(histTimeDim, len(times)); err != nil {
		return err
	}
	err = f.AddVar(ncio.VarDef{
		Name: histTimeDim,
		Dims: []string{histTimeDim},
		Attrs: ncio.Attrs{
			"long_name": "elapsed time in cycle",
			"units":     "days",
		},
	})
	if err != nil {
		return err
	}
	for _, r := range runs {
		if err := f.AddDims(r.State.HistDims(len(times))); err != nil {
			return err
		}
		if err := r.State.axis.DefineTo(f); err != nil {
			return err
		}
		if err := f.AddVars(r.State.HistVarsMetadata()); err != nil {
			return err
		}
	}
	if err := f.EndDefine(); err != nil {
		return err
	}

	if err := f.Put(histTimeDim, times); err != nil {
		return err
	}
	wroteAxis := make(map[string]bool)
	for _, r := range runs {
		if name := r.State.axis.Name; !wroteAxis[name] {
			wroteAxis[name] = true
			if err := r.State.axis.WriteTo(f); err != nil {
				return err
			}
		}
		if err := r.State.WriteHistVars(f, r.Series); err != nil {
			return err
		}
	}
	return f.Close()
}
