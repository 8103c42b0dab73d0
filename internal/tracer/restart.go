package tracer

import (
	"fmt"

	"github.com/ctessum/sparse"

	"oceanspin/internal/ncio"
)

// Snapshot suffixes of restart-style files, which carry a current and a
// previous-iterate copy of every tracer.
const (
	SnapCur = "_CUR"
	SnapOld = "_OLD"
)

// RestartState is the gridless variant of a module state, read from and
// written to restart-style files whose tracer variables carry snapshot
// suffixes. It owns values and dimensions only; no axis is attached.
type RestartState struct {
	def  *ModuleDef
	Vals *sparse.DenseArray
	Dims ncio.Dims
}

// NewRestart wraps in-memory values as a restart state. vals must be
// shaped (tracer count, dims...).
func NewRestart(def *ModuleDef, vals *sparse.DenseArray, dims ncio.Dims) (*RestartState, error) {
	if err := def.Validate(); err != nil {
		return nil, err
	}
	want := append([]int{def.TracerCnt()}, dims.Lens()...)
	if len(vals.Shape) != len(want) {
		return nil, fmt.Errorf("tracer: module %s: restart values have rank %d, want %d",
			def.Name, len(vals.Shape), len(want))
	}
	for i, w := range want {
		if vals.Shape[i] != w {
			return nil, fmt.Errorf("tracer: module %s: restart values shaped %v, want %v",
				def.Name, vals.Shape, want)
		}
	}
	return &RestartState{def: def, Vals: vals, Dims: dims}, nil
}

// LoadRestart reads the current-snapshot variables of every tracer.
func LoadRestart(def *ModuleDef, path string) (*RestartState, error) {
	if err := def.Validate(); err != nil {
		return nil, err
	}
	ds, err := ncio.Open(path)
	if err != nil {
		return nil, err
	}
	defer ds.Close()
	vals, dims, err := readModuleVals(ds, def, SnapCur)
	if err != nil {
		return nil, err
	}
	return &RestartState{def: def, Vals: vals, Dims: dims}, nil
}

// Name returns the tracer module name.
func (s *RestartState) Name() string { return s.def.Name }

// TracerNames returns the tracer names in storage order.
func (s *RestartState) TracerNames() []string { return s.def.TracerNames() }

// TracerVals returns the value slab of the i'th tracer.
func (s *RestartState) TracerVals(i int) []float64 {
	stride := s.Dims.Size()
	return s.Vals.Elements[i*stride : (i+1)*stride]
}

// Dump performs one phase of writing the restart state. Both snapshot
// variables of a tracer receive the same in-memory values: the previous
// iterate is not tracked separately between dumps, only read back by
// whoever consumes the file.
func (s *RestartState) Dump(f *ncio.File, phase Phase) error {
	switch phase {
	case PhaseDefine:
		if err := f.AddDims(s.Dims); err != nil {
			return err
		}
		for _, name := range s.def.TracerNames() {
			for _, suffix := range []string{SnapCur, SnapOld} {
				err := f.AddVar(ncio.VarDef{Name: name + suffix, Dims: s.Dims.Names()})
				if err != nil {
					return err
				}
			}
		}
		return nil
	case PhaseWrite:
		for i, name := range s.def.TracerNames() {
			for _, suffix := range []string{SnapCur, SnapOld} {
				if err := f.Put(name+suffix, s.TracerVals(i)); err != nil {
					return err
				}
			}
		}
		return nil
	default:
		return fmt.Errorf("%w %q for module %s", ErrBadPhase, string(phase), s.def.Name)
	}
}
