package grid

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Default profile for a "depth" axis: 30 layers spanning the upper 900 m
// with a 5:1 thickness ratio between the deepest and shallowest layer.
const (
	DepthUnits         = "m"
	DepthNlevs         = 30
	DepthEdgeStart     = 0.0
	DepthEdgeEnd       = 900.0
	DepthDeltaRatioMax = 5.0
)

var (
	// ErrBadDefn indicates an incomplete or inconsistent axis definition.
	ErrBadDefn = errors.New("grid: invalid axis definition")
	// ErrNotIncreasing indicates axis edges that do not strictly increase.
	ErrNotIncreasing = errors.New("grid: axis edges must be strictly increasing")
)

// Defn is a parametric axis definition. Layer thicknesses vary smoothly
// about their average, with the ratio of the thickest to the thinnest
// layer fixed by DeltaRatioMax.
type Defn struct {
	Axisname      string  `yaml:"axisname"`
	Units         string  `yaml:"units"`
	Nlevs         int     `yaml:"nlevs"`
	EdgeStart     float64 `yaml:"edge_start"`
	EdgeEnd       float64 `yaml:"edge_end"`
	DeltaRatioMax float64 `yaml:"delta_ratio_max"`
}

// DefaultDefn returns the definition profile for the named axis. The
// "depth" profile is fully populated; other names return a skeleton whose
// remaining fields must be filled before use.
func DefaultDefn(axisname string) *Defn {
	d := &Defn{Axisname: axisname}
	if axisname == "depth" {
		d.Units = DepthUnits
		d.Nlevs = DepthNlevs
		d.EdgeStart = DepthEdgeStart
		d.EdgeEnd = DepthEdgeEnd
		d.DeltaRatioMax = DepthDeltaRatioMax
	}
	return d
}

// ParseDefn decodes a YAML axis definition. Unknown keys are rejected
// unless permissive is set.
func ParseDefn(data []byte, permissive bool) (*Defn, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	if !permissive {
		dec.KnownFields(true)
	}
	d := new(Defn)
	if err := dec.Decode(d); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadDefn, err)
	}
	return d, nil
}

// WithDefaults returns a copy with unset fields filled from the profile
// named by Axisname. Both edges are treated as one field: they default
// together or not at all, so an explicit edge_start of zero survives.
func (d *Defn) WithDefaults() *Defn {
	base := DefaultDefn(d.Axisname)
	out := *d
	if out.Units == "" {
		out.Units = base.Units
	}
	if out.Nlevs == 0 {
		out.Nlevs = base.Nlevs
	}
	if out.EdgeStart == 0 && out.EdgeEnd == 0 {
		out.EdgeStart, out.EdgeEnd = base.EdgeStart, base.EdgeEnd
	}
	if out.DeltaRatioMax == 0 {
		out.DeltaRatioMax = base.DeltaRatioMax
	}
	return &out
}

// Validate reports the first unset or inconsistent field.
func (d *Defn) Validate() error {
	if d.Axisname == "" {
		return fmt.Errorf("%w: axisname not set", ErrBadDefn)
	}
	if d.Units == "" {
		return fmt.Errorf("%w: units not set for axis %s", ErrBadDefn, d.Axisname)
	}
	if d.Nlevs < 1 {
		return fmt.Errorf("%w: nlevs must be >= 1, got %d", ErrBadDefn, d.Nlevs)
	}
	if d.EdgeEnd <= d.EdgeStart {
		return fmt.Errorf("%w: edge_end %g must exceed edge_start %g",
			ErrBadDefn, d.EdgeEnd, d.EdgeStart)
	}
	if d.DeltaRatioMax < 1.0 {
		return fmt.Errorf("%w: delta_ratio_max must be >= 1.0, got %g",
			ErrBadDefn, d.DeltaRatioMax)
	}
	return nil
}

// String renders the definition as the key=value lines recorded as
// provenance in dumped axis files.
func (d *Defn) String() string {
	return strings.Join([]string{
		"axisname=" + d.Axisname,
		"units=" + d.Units,
		fmt.Sprintf("nlevs=%d", d.Nlevs),
		fmt.Sprintf("edge_start=%g", d.EdgeStart),
		fmt.Sprintf("edge_end=%g", d.EdgeEnd),
		fmt.Sprintf("delta_ratio_max=%g", d.DeltaRatioMax),
	}, "\n")
}
