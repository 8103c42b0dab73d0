package tracer

import (
	"errors"
	"fmt"
	"os"

	"gonum.org/v1/gonum/stat"

	"oceanspin/internal/ncio"
)

// Dimension names of stats records. Every tracer variable is stored over
// (iteration, region, depth).
const (
	StatsIterDim   = "iteration"
	StatsRegionDim = "region"
)

const (
	fillValueAttr   = "_FillValue"
	cellMethodsAttr = "cell_methods"
)

// StatsDims returns the module-specific dimensions of the stats record,
// sized from an open history record.
func (s *State) StatsDims(hist *ncio.Dataset) (ncio.Dims, error) {
	n, ok := hist.DimLen(s.axis.Name)
	if !ok {
		return nil, fmt.Errorf("tracer: module %s: history %s has no %s dimension",
			s.def.Name, hist.Path(), s.axis.Name)
	}
	return ncio.Dims{{Name: s.axis.Name, Len: n}}, nil
}

// StatsVarsMetadata returns the declarations of this module's stats
// variables: the depth coordinate copied from the history record with the
// fill marker dropped, and one variable per tracer over (iteration,
// region, depth) carrying the history variable's type and attributes
// minus the cell-methods note.
func (s *State) StatsVarsMetadata(hist *ncio.Dataset) ([]ncio.VarDef, error) {
	defs := make([]ncio.VarDef, 0, 1+len(s.def.Tracers))

	attrs := hist.VarAttrs(s.axis.Name)
	delete(attrs, fillValueAttr)
	defs = append(defs, ncio.VarDef{
		Name:  s.axis.Name,
		Dims:  []string{s.axis.Name},
		Attrs: attrs,
	})

	iterDims := []string{StatsIterDim, StatsRegionDim, s.axis.Name}
	for _, name := range s.def.TracerNames() {
		tn, err := hist.TypeName(name)
		if err != nil {
			return nil, err
		}
		attrs := hist.VarAttrs(name)
		delete(attrs, cellMethodsAttr)
		defs = append(defs, ncio.VarDef{Name: name, Type: tn, Dims: iterDims, Attrs: attrs})
	}
	return defs, nil
}

// StatsVarsIterInvariant returns the stats values that do not change
// between iterations: the depth coordinate.
func (s *State) StatsVarsIterInvariant(hist *ncio.Dataset) (map[string][]float64, error) {
	vals, err := hist.Get(s.axis.Name)
	if err != nil {
		return nil, err
	}
	return map[string][]float64{s.axis.Name: vals}, nil
}

// StatsVarsVals returns one iteration's stats values per tracer: the
// time-weighted mean of the history series over the single region.
// Region counts other than one are not implemented.
func (s *State) StatsVarsVals(hist *ncio.Dataset, regionCnt int) (map[string][]float64, error) {
	if regionCnt != 1 {
		return nil, fmt.Errorf("%w: region_cnt > 1 (got %d)", ErrNotImplemented, regionCnt)
	}
	timelen, ok := hist.DimLen(histTimeDim)
	if !ok {
		return nil, fmt.Errorf("tracer: module %s: history %s has no %s dimension",
			s.def.Name, hist.Path(), histTimeDim)
	}
	weights, err := HistTimeWeights(timelen)
	if err != nil {
		return nil, err
	}

	res := make(map[string][]float64, s.TracerCnt())
	col := make([]float64, timelen)
	for _, name := range s.def.TracerNames() {
		raw, err := hist.GetDense(name)
		if err != nil {
			return nil, err
		}
		nlevs := raw.Shape[len(raw.Shape)-1]
		mean := make([]float64, nlevs)
		for d := 0; d < nlevs; d++ {
			for ti := 0; ti < timelen; ti++ {
				col[ti] = raw.Elements[ti*nlevs+d]
			}
			mean[d] = stat.Mean(col, weights)
		}
		res[name] = mean
	}
	return res, nil
}

// AppendStats derives one iteration of stats values from a history record
// and appends them to the stats file at statsPath, creating it when
// absent. The classic container cannot grow a dimension in place, so
// appending rewrites the file with one more iteration and renames the
// result over the old file.
func AppendStats(statsPath, histPath, caller string, regionCnt int, states ...*State) error {
	if len(states) == 0 {
		return errors.New("tracer: no module states to append stats for")
	}
	hist, err := ncio.Open(histPath)
	if err != nil {
		return err
	}
	defer hist.Close()

	// The new iteration's values, computed before any file is touched.
	newVals := make(map[string][]float64)
	for _, s := range states {
		vals, err := s.StatsVarsVals(hist, regionCnt)
		if err != nil {
			return err
		}
		for name, v := range vals {
			newVals[name] = v
		}
	}

	// Prior iterations, when the stats file already exists.
	iters := 0
	prev := make(map[string][]float64)
	if _, err := os.Stat(statsPath); err == nil {
		old, err := ncio.Open(statsPath)
		if err != nil {
			return err
		}
		n, ok := old.DimLen(StatsIterDim)
		if !ok {
			old.Close()
			return fmt.Errorf("tracer: stats file %s has no %s dimension", statsPath, StatsIterDim)
		}
		iters = n
		for _, s := range states {
			for _, name := range s.TracerNames() {
				v, err := old.Get(name)
				if err != nil {
					old.Close()
					return err
				}
				prev[name] = v
			}
		}
		if err := old.Close(); err != nil {
			return err
		}
	}

	tmp := statsPath + ".tmp"
	f, err := ncio.Create(tmp)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.StampHistory("tracer.AppendStats", caller); err != nil {
		return err
	}
	err = f.AddDims(ncio.Dims{
		{Name: StatsIterDim, Len: iters + 1},
		{Name: StatsRegionDim, Len: regionCnt},
	})
	if err != nil {
		return err
	}
	for _, s := range states {
		dims, err := s.StatsDims(hist)
		if err != nil {
			return err
		}
		if err := f.AddDims(dims); err != nil {
			return err
		}
		defs, err := s.StatsVarsMetadata(hist)
		if err != nil {
			return err
		}
		for _, def := range defs {
			if f.HasVar(def.Name) {
				// Modules sharing an axis share its coordinate.
				continue
			}
			if err := f.AddVar(def); err != nil {
				return err
			}
		}
	}
	if err := f.EndDefine(); err != nil {
		return err
	}

	written := make(map[string]bool)
	for _, s := range states {
		inv, err := s.StatsVarsIterInvariant(hist)
		if err != nil {
			return err
		}
		for name, vals := range inv {
			if written[name] {
				continue
			}
			written[name] = true
			if err := f.Put(name, vals); err != nil {
				return err
			}
		}
		for _, name := range s.TracerNames() {
			vals := newVals[name]
			if old, ok := prev[name]; ok {
				if len(old) != iters*regionCnt*len(vals) {
					return fmt.Errorf("tracer: stats file %s: variable %s holds %d values, want %d",
						statsPath, name, len(old), iters*regionCnt*len(vals))
				}
				err := f.PutSlab(name, []int{0, 0, 0}, []int{iters, regionCnt, len(vals)}, old)
				if err != nil {
					return err
				}
			}
			err := f.PutSlab(name, []int{iters, 0, 0}, []int{iters + 1, regionCnt, len(vals)}, vals)
			if err != nil {
				return err
			}
		}
	}
	if err := f.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp, statsPath); err != nil {
		return fmt.Errorf("tracer: move stats into place: %w", err)
	}
	return nil
}
