package tracer

import (
	"fmt"

	"github.com/ctessum/sparse"

	"oceanspin/internal/grid"
	"oceanspin/internal/ncio"
)

// Phase tags the two steps of the dump protocol.
type Phase string

const (
	PhaseDefine Phase = "define"
	PhaseWrite  Phase = "write"
)

// State is the in-memory state of one tracer module: a dense array with
// tracer as the leading index, the trailing spatial dimensions, and the
// axis the values live on. The axis is shared, read-only context; State
// never mutates it.
type State struct {
	def  *ModuleDef
	axis *grid.Axis

	Vals *sparse.DenseArray
	Dims ncio.Dims
}

// New builds the state of one tracer module, resolving values through src.
func New(def *ModuleDef, src Source, ax *grid.Axis) (*State, error) {
	if err := def.Validate(); err != nil {
		return nil, err
	}
	vals, dims, err := src.ReadVals(def, ax)
	if err != nil {
		return nil, err
	}
	return &State{def: def, axis: ax, Vals: vals, Dims: dims}, nil
}

// Name returns the tracer module name.
func (s *State) Name() string { return s.def.Name }

// Def returns the module definition.
func (s *State) Def() *ModuleDef { return s.def }

// Axis returns the spatial axis the state is defined on.
func (s *State) Axis() *grid.Axis { return s.axis }

// TracerCnt returns the number of tracers.
func (s *State) TracerCnt() int { return s.def.TracerCnt() }

// TracerNames returns the tracer names in storage order.
func (s *State) TracerNames() []string { return s.def.TracerNames() }

// TracerVals returns the value slab of the i'th tracer.
func (s *State) TracerVals(i int) []float64 {
	stride := s.Dims.Size()
	return s.Vals.Elements[i*stride : (i+1)*stride]
}

// Dump performs one phase of writing the state to an open file. The
// define phase declares the state and axis dimensions, the axis geometry
// variables when the file does not already carry them, and one variable
// per tracer. The write phase fills the axis geometry and tracer values.
func (s *State) Dump(f *ncio.File, phase Phase) error {
	switch phase {
	case PhaseDefine:
		if err := f.AddDims(s.Dims); err != nil {
			return err
		}
		if err := s.axis.DefineTo(f); err != nil {
			return err
		}
		for i := range s.def.Tracers {
			tr := &s.def.Tracers[i]
			err := f.AddVar(ncio.VarDef{Name: tr.Name, Dims: s.Dims.Names(), Attrs: tr.Attrs()})
			if err != nil {
				return err
			}
		}
		return nil
	case PhaseWrite:
		if err := s.axis.WriteTo(f); err != nil {
			return err
		}
		for i := range s.def.Tracers {
			if err := f.Put(s.def.Tracers[i].Name, s.TracerVals(i)); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("%w %q for module %s", ErrBadPhase, string(phase), s.def.Name)
	}
}

// Dumper is anything that can participate in the two-phase dump protocol.
type Dumper interface {
	Dump(f *ncio.File, phase Phase) error
}

// WriteDumpFile writes one or more module states into a single array
// file, running every define phase before any values are written. States
// sharing an axis share its dimensions and geometry variables.
func WriteDumpFile(path, caller string, states ...Dumper) error {
	f, err := ncio.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.StampHistory("tracer.WriteDumpFile", caller); err != nil {
		return err
	}
	for _, s := range states {
		if err := s.Dump(f, PhaseDefine); err != nil {
			return err
		}
	}
	if err := f.EndDefine(); err != nil {
		return err
	}
	for _, s := range states {
		if err := s.Dump(f, PhaseWrite); err != nil {
			return err
		}
	}
	return f.Close()
}
