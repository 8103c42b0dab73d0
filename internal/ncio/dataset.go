package ncio

import (
	"fmt"
	"os"

	"github.com/ctessum/cdf"
	"github.com/ctessum/sparse"
)

// Dataset is a read handle over an existing array file.
type Dataset struct {
	path string
	ff   *os.File
	cf   *cdf.File
	dims Dims
}

// Open opens path for reading.
func Open(path string) (*Dataset, error) {
	ff, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("ncio: open %s: %w", path, err)
	}
	cf, err := cdf.Open(ff)
	if err != nil {
		ff.Close()
		return nil, fmt.Errorf("ncio: open %s: %w", path, err)
	}
	d := &Dataset{path: path, ff: ff, cf: cf}
	seen := make(map[string]bool)
	for _, v := range cf.Header.Variables() {
		names := cf.Header.Dimensions(v)
		lens := cf.Header.Lengths(v)
		for i, name := range names {
			if !seen[name] {
				seen[name] = true
				d.dims = append(d.dims, Dim{Name: name, Len: lens[i]})
			}
		}
	}
	return d, nil
}

// Close releases the descriptor. Safe to call more than once.
func (d *Dataset) Close() error {
	if d.ff == nil {
		return nil
	}
	err := d.ff.Close()
	d.ff = nil
	if err != nil {
		return fmt.Errorf("ncio: close %s: %w", d.path, err)
	}
	return nil
}

// Path returns the file path.
func (d *Dataset) Path() string { return d.path }

// Variables returns the variable names in file order.
func (d *Dataset) Variables() []string {
	return d.cf.Header.Variables()
}

// HasVar reports whether the file contains a variable.
func (d *Dataset) HasVar(name string) bool {
	for _, v := range d.cf.Header.Variables() {
		if v == name {
			return true
		}
	}
	return false
}

// Dims returns the dimensions referenced by the file's variables, in
// first-use order.
func (d *Dataset) Dims() Dims {
	return append(Dims(nil), d.dims...)
}

// DimLen returns the length of a dimension.
func (d *Dataset) DimLen(name string) (int, bool) {
	for _, dim := range d.dims {
		if dim.Name == name {
			return dim.Len, true
		}
	}
	return 0, false
}

// VarDims returns a variable's dimension tuple.
func (d *Dataset) VarDims(name string) (Dims, error) {
	if !d.HasVar(name) {
		return nil, fmt.Errorf("%w: %s in %s", ErrNoVar, name, d.path)
	}
	names := d.cf.Header.Dimensions(name)
	lens := d.cf.Header.Lengths(name)
	dims := make(Dims, len(names))
	for i, n := range names {
		dims[i] = Dim{Name: n, Len: lens[i]}
	}
	return dims, nil
}

// Attr returns one attribute of a variable, or a file-level attribute for
// an empty variable name.
func (d *Dataset) Attr(varName, key string) (any, bool) {
	v := d.cf.Header.GetAttribute(varName, key)
	return v, v != nil
}

// VarAttrs returns all attributes of a variable as a fresh map.
func (d *Dataset) VarAttrs(name string) Attrs {
	attrs := make(Attrs)
	for _, k := range d.cf.Header.Attributes(name) {
		attrs[k] = d.cf.Header.GetAttribute(name, k)
	}
	return attrs
}

// GlobalAttrs returns all file-level attributes.
func (d *Dataset) GlobalAttrs() Attrs {
	return d.VarAttrs("")
}

// TypeName returns a variable's on-disk element type as a short name
// ("f8", "f4", "i4").
func (d *Dataset) TypeName(name string) (string, error) {
	if !d.HasVar(name) {
		return "", fmt.Errorf("%w: %s in %s", ErrNoVar, name, d.path)
	}
	r := d.cf.Reader(name, nil, nil)
	t := typeName(r.Zero(1))
	if t == "" {
		return "", fmt.Errorf("ncio: variable %s in %s: unsupported element type", name, d.path)
	}
	return t, nil
}

// Get reads the full contents of a variable as float64s.
func (d *Dataset) Get(name string) ([]float64, error) {
	dense, err := d.GetDense(name)
	if err != nil {
		return nil, err
	}
	return dense.Elements, nil
}

// GetDense reads the full contents of a variable into a dense array shaped
// by the variable's dimensions.
func (d *Dataset) GetDense(name string) (*sparse.DenseArray, error) {
	dims, err := d.VarDims(name)
	if err != nil {
		return nil, err
	}
	r := d.cf.Reader(name, nil, nil)
	buf := r.Zero(dims.Size())
	if _, err := r.Read(buf); err != nil {
		return nil, fmt.Errorf("ncio: read %s from %s: %w", name, d.path, err)
	}
	out := sparse.ZerosDense(dims.Lens()...)
	switch b := buf.(type) {
	case []float64:
		copy(out.Elements, b)
	case []float32:
		for i, v := range b {
			out.Elements[i] = float64(v)
		}
	case []int32:
		for i, v := range b {
			out.Elements[i] = float64(v)
		}
	default:
		return nil, fmt.Errorf("ncio: read %s from %s: unsupported element type", name, d.path)
	}
	return out, nil
}
