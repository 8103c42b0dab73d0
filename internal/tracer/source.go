package tracer

import (
	"fmt"

	"github.com/ctessum/sparse"

	"oceanspin/internal/grid"
	"oceanspin/internal/ncio"
)

// Source supplies the initial values of a module state. Each variant
// resolves values its own way; all return a dense array with tracer as
// the leading index plus the trailing spatial dimensions.
type Source interface {
	ReadVals(def *ModuleDef, ax *grid.Axis) (*sparse.DenseArray, ncio.Dims, error)
}

// ZeroSource starts every tracer at zero on the axis layers.
type ZeroSource struct{}

func (ZeroSource) ReadVals(def *ModuleDef, ax *grid.Axis) (*sparse.DenseArray, ncio.Dims, error) {
	vals := sparse.ZerosDense(def.TracerCnt(), ax.Len())
	return vals, ncio.Dims{{Name: ax.Name, Len: ax.Len()}}, nil
}

// InitIterateSource generates an initial iterate: each tracer's profile is
// interpolated onto the axis midpoints from its own control points, or
// from those of the tracer it shadows.
type InitIterateSource struct{}

func (InitIterateSource) ReadVals(def *ModuleDef, ax *grid.Axis) (*sparse.DenseArray, ncio.Dims, error) {
	n := ax.Len()
	vals := sparse.ZerosDense(def.TracerCnt(), n)
	for i := range def.Tracers {
		tr := &def.Tracers[i]
		profile := tr
		if !tr.HasInitProfile() && tr.Shadows != "" {
			if shadowed, ok := def.Tracer(tr.Shadows); ok {
				profile = shadowed
			}
		}
		if !profile.HasInitProfile() {
			return nil, nil, fmt.Errorf("%w for tracer %s in module %s",
				ErrNoInitProfile, tr.Name, def.Name)
		}
		copy(vals.Elements[i*n:(i+1)*n], Interp(ax.Mid, profile.InitDepths, profile.InitVals))
	}
	return vals, ncio.Dims{{Name: ax.Name, Len: ax.Len()}}, nil
}

// FileSource reads tracer values from an existing array file holding one
// variable per tracer.
type FileSource struct {
	Path string
}

func (s FileSource) ReadVals(def *ModuleDef, ax *grid.Axis) (*sparse.DenseArray, ncio.Dims, error) {
	ds, err := ncio.Open(s.Path)
	if err != nil {
		return nil, nil, err
	}
	defer ds.Close()
	return readModuleVals(ds, def, "")
}

// readModuleVals reads one variable per tracer (name plus suffix) into a
// single dense array with tracer leading. Every tracer must be stored
// over one identical dimension tuple of rank at most maxRank.
func readModuleVals(ds *ncio.Dataset, def *ModuleDef, suffix string) (*sparse.DenseArray, ncio.Dims, error) {
	names := def.TracerNames()
	dims, err := ds.VarDims(names[0] + suffix)
	if err != nil {
		return nil, nil, err
	}
	for _, name := range names[1:] {
		d, err := ds.VarDims(name + suffix)
		if err != nil {
			return nil, nil, err
		}
		if !d.Equal(dims) {
			return nil, nil, fmt.Errorf("%w: module %s, file %s",
				ErrDimsMismatch, def.Name, ds.Path())
		}
	}
	if len(dims) > maxRank {
		return nil, nil, fmt.Errorf("%w: module %s, file %s, rank %d",
			ErrRank, def.Name, ds.Path(), len(dims))
	}
	shape := append([]int{len(names)}, dims.Lens()...)
	vals := sparse.ZerosDense(shape...)
	stride := dims.Size()
	for i, name := range names {
		v, err := ds.Get(name + suffix)
		if err != nil {
			return nil, nil, err
		}
		copy(vals.Elements[i*stride:(i+1)*stride], v)
	}
	return vals, dims, nil
}
