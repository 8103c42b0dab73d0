package grid

import (
	"oceanspin/internal/ncio"
)

func (a *Axis) boundsVar() string { return a.Name + "_bounds" }
func (a *Axis) edgesVar() string  { return a.Name + "_edges" }
func (a *Axis) deltaVar() string  { return a.Name + "_delta" }

// DumpDims returns the dimensions the axis geometry is declared over.
func (a *Axis) DumpDims() ncio.Dims {
	return ncio.Dims{
		{Name: a.Name, Len: a.Len()},
		{Name: "nbnds", Len: 2},
		{Name: a.edgesVar(), Len: a.Len() + 1},
	}
}

// DumpVars returns the declarations of the axis geometry variables: the
// midpoint coordinate with its bounds, the edges, and the thicknesses.
func (a *Axis) DumpVars() []ncio.VarDef {
	return []ncio.VarDef{
		{
			Name: a.Name,
			Dims: []string{a.Name},
			Attrs: ncio.Attrs{
				"long_name": a.Name + " layer midpoints",
				"units":     a.Units,
				"bounds":    a.boundsVar(),
			},
		},
		{
			Name:  a.boundsVar(),
			Dims:  []string{a.Name, "nbnds"},
			Attrs: ncio.Attrs{"long_name": a.Name + " layer bounds"},
		},
		{
			Name: a.edgesVar(),
			Dims: []string{a.edgesVar()},
			Attrs: ncio.Attrs{
				"long_name": a.Name + " layer edges",
				"units":     a.Units,
			},
		},
		{
			Name: a.deltaVar(),
			Dims: []string{a.Name},
			Attrs: ncio.Attrs{
				"long_name": a.Name + " layer thickness",
				"units":     a.Units,
			},
		},
	}
}

// DefineTo declares the axis dimensions, and its variables when the file
// does not already carry them. Several module states dumped into one file
// share a single set of axis variables.
func (a *Axis) DefineTo(f *ncio.File) error {
	if err := f.AddDims(a.DumpDims()); err != nil {
		return err
	}
	if f.HasVar(a.Name) {
		return nil
	}
	return f.AddVars(a.DumpVars())
}

// WriteTo writes the axis geometry values.
func (a *Axis) WriteTo(f *ncio.File) error {
	if err := f.Put(a.Name, a.Mid); err != nil {
		return err
	}
	n := a.Len()
	bounds := make([]float64, 2*n)
	for i := 0; i < n; i++ {
		bounds[2*i] = a.Edges[i]
		bounds[2*i+1] = a.Edges[i+1]
	}
	if err := f.Put(a.boundsVar(), bounds); err != nil {
		return err
	}
	if err := f.Put(a.edgesVar(), a.Edges); err != nil {
		return err
	}
	return f.Put(a.deltaVar(), a.Delta)
}

// Dump writes the axis to its own array file, with the generating
// parameters (when known) as a file-level attribute. caller names the
// operation requesting the dump and is recorded in the file history.
func (a *Axis) Dump(path, caller string) error {
	f, err := ncio.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.StampHistory("grid.Axis.Dump", caller); err != nil {
		return err
	}
	if a.DefnValues != "" {
		if err := f.SetGlobalAttr("defn_values", a.DefnValues); err != nil {
			return err
		}
	}
	if err := a.DefineTo(f); err != nil {
		return err
	}
	if err := f.EndDefine(); err != nil {
		return err
	}
	if err := a.WriteTo(f); err != nil {
		return err
	}
	return f.Close()
}
