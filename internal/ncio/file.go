package ncio

import (
	"fmt"
	"os"
	"time"

	"github.com/ctessum/cdf"
)

// File is a write handle. It is created in the define phase, where the
// schema (dimensions, variables, global attributes) is declared, and moves
// to the data phase on [File.EndDefine]; values can only be written after
// that. Close releases the descriptor on all paths.
type File struct {
	path   string
	ff     *os.File
	cf     *cdf.File
	dims   Dims
	vars   []VarDef
	varIdx map[string]int
	global Attrs
}

// Create opens path for writing, truncating any existing file, and returns
// a File in the define phase.
func Create(path string) (*File, error) {
	ff, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("ncio: create %s: %w", path, err)
	}
	return &File{
		path:   path,
		ff:     ff,
		varIdx: make(map[string]int),
		global: make(Attrs),
	}, nil
}

// Path returns the file path.
func (f *File) Path() string { return f.path }

// InDefine reports whether the file is still in the define phase.
func (f *File) InDefine() bool { return f.cf == nil }

// DimLen returns the declared length of a dimension.
func (f *File) DimLen(name string) (int, bool) {
	for _, d := range f.dims {
		if d.Name == name {
			return d.Len, true
		}
	}
	return 0, false
}

// AddDim declares a dimension. Re-declaring with the same length is
// allowed and does nothing; a conflicting length is an error.
func (f *File) AddDim(name string, length int) error {
	if f.cf != nil {
		return fmt.Errorf("ncio: add dimension %s: %w", name, ErrDefineOver)
	}
	if length < 1 {
		return fmt.Errorf("ncio: add dimension %s: length %d < 1", name, length)
	}
	if have, ok := f.DimLen(name); ok {
		if have != length {
			return fmt.Errorf("%w: %s is %d, want %d", ErrDimExists, name, have, length)
		}
		return nil
	}
	f.dims = append(f.dims, Dim{Name: name, Len: length})
	return nil
}

// AddDims declares several dimensions with AddDim semantics.
func (f *File) AddDims(dims Dims) error {
	for _, d := range dims {
		if err := f.AddDim(d.Name, d.Len); err != nil {
			return err
		}
	}
	return nil
}

// HasVar reports whether a variable has been declared.
func (f *File) HasVar(name string) bool {
	_, ok := f.varIdx[name]
	return ok
}

// AddVar declares a variable. All of its dimensions must already be
// declared.
func (f *File) AddVar(v VarDef) error {
	if f.cf != nil {
		return fmt.Errorf("ncio: add variable %s: %w", v.Name, ErrDefineOver)
	}
	if f.HasVar(v.Name) {
		return fmt.Errorf("%w: %s", ErrVarExists, v.Name)
	}
	for _, d := range v.Dims {
		if _, ok := f.DimLen(d); !ok {
			return fmt.Errorf("ncio: variable %s: dimension %s not declared", v.Name, d)
		}
	}
	if v.Attrs == nil {
		v.Attrs = make(Attrs)
	} else {
		v.Attrs = v.Attrs.Copy()
	}
	f.varIdx[v.Name] = len(f.vars)
	f.vars = append(f.vars, v)
	return nil
}

// AddVars declares several variables in order.
func (f *File) AddVars(vs []VarDef) error {
	for _, v := range vs {
		if err := f.AddVar(v); err != nil {
			return err
		}
	}
	return nil
}

// SetGlobalAttr sets a file-level attribute.
func (f *File) SetGlobalAttr(key string, val any) error {
	if f.cf != nil {
		return fmt.Errorf("ncio: set attribute %s: %w", key, ErrDefineOver)
	}
	f.global[key] = val
	return nil
}

// StampHistory records provenance in the file-level "history" attribute:
// who generated the file and from where.
func (f *File) StampHistory(what, caller string) error {
	stamp := fmt.Sprintf("%s: generated by %s called from %s",
		time.Now().Format("2006-01-02 15:04:05"), what, caller)
	return f.SetGlobalAttr("history", stamp)
}

// EndDefine commits the declared schema to disk and switches the file to
// the data phase.
func (f *File) EndDefine() error {
	if f.cf != nil {
		return fmt.Errorf("ncio: end define %s: %w", f.path, ErrDefineOver)
	}
	h := cdf.NewHeader(f.dims.Names(), f.dims.Lens())
	for _, k := range f.global.SortedKeys() {
		h.AddAttribute("", k, attrValue(f.global[k]))
	}
	for _, v := range f.vars {
		h.AddVariable(v.Name, v.Dims, exemplar(v.Type))
		for _, k := range v.Attrs.SortedKeys() {
			h.AddAttribute(v.Name, k, attrValue(v.Attrs[k]))
		}
	}
	h.Define()
	cf, err := cdf.Create(f.ff, h)
	if err != nil {
		return fmt.Errorf("ncio: define %s: %w", f.path, err)
	}
	f.cf = cf
	return nil
}

// Put writes the full contents of a declared variable. vals are converted
// to the variable's declared type.
func (f *File) Put(name string, vals []float64) error {
	if f.cf == nil {
		return fmt.Errorf("ncio: put %s: %w", name, ErrDefineOpen)
	}
	if _, ok := f.varIdx[name]; !ok {
		return fmt.Errorf("%w: %s", ErrNoVar, name)
	}
	end := f.cf.Header.Lengths(name)
	start := make([]int, len(end))
	return f.write(name, start, end, vals)
}

// PutSlab writes vals into the hyperslab [start, end) of a declared
// variable. Slab bounds follow the variable's dimension order.
func (f *File) PutSlab(name string, start, end []int, vals []float64) error {
	if f.cf == nil {
		return fmt.Errorf("ncio: put %s: %w", name, ErrDefineOpen)
	}
	if _, ok := f.varIdx[name]; !ok {
		return fmt.Errorf("%w: %s", ErrNoVar, name)
	}
	lens := f.cf.Header.Lengths(name)
	if len(start) != len(lens) || len(end) != len(lens) {
		return fmt.Errorf("ncio: put %s: slab rank %d, variable rank %d",
			name, len(start), len(lens))
	}
	for j, l := range lens {
		if start[j] < 0 || end[j] > l || start[j] >= end[j] {
			return fmt.Errorf("ncio: put %s: slab [%d,%d) outside dimension of length %d",
				name, start[j], end[j], l)
		}
	}
	return f.write(name, start, end, vals)
}

// write converts vals to the variable's declared type and writes them into
// the [start, end) range.
func (f *File) write(name string, start, end []int, vals []float64) error {
	n := 1
	for j := range end {
		n *= end[j] - start[j]
	}
	if len(vals) != n {
		return fmt.Errorf("ncio: put %s: have %d values, want %d", name, len(vals), n)
	}
	w := f.cf.Writer(name, start, end)
	var err error
	switch f.vars[f.varIdx[name]].Type {
	case "f4":
		buf := make([]float32, len(vals))
		for j, v := range vals {
			buf[j] = float32(v)
		}
		_, err = w.Write(buf)
	case "i4":
		buf := make([]int32, len(vals))
		for j, v := range vals {
			buf[j] = int32(v)
		}
		_, err = w.Write(buf)
	default:
		_, err = w.Write(vals)
	}
	if err != nil {
		return fmt.Errorf("ncio: put %s: %w", name, err)
	}
	return nil
}

// Close finalizes the record count and releases the descriptor. Safe to
// call more than once.
func (f *File) Close() error {
	if f.ff == nil {
		return nil
	}
	var nerr error
	if f.cf != nil {
		nerr = cdf.UpdateNumRecs(f.ff)
	}
	cerr := f.ff.Close()
	f.ff = nil
	if nerr != nil {
		return fmt.Errorf("ncio: close %s: %w", f.path, nerr)
	}
	if cerr != nil {
		return fmt.Errorf("ncio: close %s: %w", f.path, cerr)
	}
	return nil
}
