package tracer

import (
	"errors"
	"fmt"

	"oceanspin/internal/ncio"
)

var (
	// ErrDimsMismatch indicates tracers of one module stored over
	// differing dimension tuples.
	ErrDimsMismatch = errors.New("tracer: not all tracer variables have the same dimensions")
	// ErrRank indicates stored values with more spatial dimensions than
	// inner products are implemented for.
	ErrRank = errors.New("tracer: too many dimensions for inner-product computation")
	// ErrBadPhase indicates an unknown dump phase tag.
	ErrBadPhase = errors.New("tracer: unknown dump phase")
	// ErrNoInitProfile indicates a tracer with no initial-profile control
	// points of its own and no shadowed tracer supplying them.
	ErrNoInitProfile = errors.New("tracer: no initial profile")
	// ErrNotImplemented marks configurations the statistics pipeline does
	// not support.
	ErrNotImplemented = errors.New("tracer: not implemented")
)

// maxRank bounds the spatial rank of stored tracer values.
const maxRank = 3

// TracerDef describes one tracer of a module: display attributes plus,
// optionally, control points for generating an initial profile or the name
// of a sibling tracer whose profile it shadows.
type TracerDef struct {
	Name       string    `yaml:"name"`
	LongName   string    `yaml:"long_name"`
	Units      string    `yaml:"units"`
	InitDepths []float64 `yaml:"init_iterate_val_depths,omitempty"`
	InitVals   []float64 `yaml:"init_iterate_vals,omitempty"`
	Shadows    string    `yaml:"shadows,omitempty"`
}

// Attrs returns the tracer's display attributes as a fresh map, so derived
// metadata can edit its copy freely.
func (t *TracerDef) Attrs() ncio.Attrs {
	return ncio.Attrs{"long_name": t.LongName, "units": t.Units}
}

// HasInitProfile reports whether the tracer carries its own control points.
func (t *TracerDef) HasInitProfile() bool {
	return len(t.InitVals) > 0
}

// ModuleDef names a tracer module and its ordered tracers. Order is the
// storage order of values in a State.
type ModuleDef struct {
	Name    string      `yaml:"name"`
	Tracers []TracerDef `yaml:"tracers"`
}

// TracerCnt returns the number of tracers in the module.
func (m *ModuleDef) TracerCnt() int { return len(m.Tracers) }

// TracerNames returns the tracer names in module order.
func (m *ModuleDef) TracerNames() []string {
	names := make([]string, len(m.Tracers))
	for i := range m.Tracers {
		names[i] = m.Tracers[i].Name
	}
	return names
}

// Tracer looks up a tracer by name.
func (m *ModuleDef) Tracer(name string) (*TracerDef, bool) {
	for i := range m.Tracers {
		if m.Tracers[i].Name == name {
			return &m.Tracers[i], true
		}
	}
	return nil, false
}

// Validate checks the module definition for internal consistency.
func (m *ModuleDef) Validate() error {
	if m.Name == "" {
		return errors.New("tracer: module name not set")
	}
	if len(m.Tracers) == 0 {
		return fmt.Errorf("tracer: module %s has no tracers", m.Name)
	}
	seen := make(map[string]bool, len(m.Tracers))
	for i := range m.Tracers {
		tr := &m.Tracers[i]
		if tr.Name == "" {
			return fmt.Errorf("tracer: module %s: tracer %d has no name", m.Name, i)
		}
		if seen[tr.Name] {
			return fmt.Errorf("tracer: module %s: duplicate tracer %s", m.Name, tr.Name)
		}
		seen[tr.Name] = true
		if len(tr.InitDepths) != len(tr.InitVals) {
			return fmt.Errorf("tracer: module %s: tracer %s: %d profile depths for %d values",
				m.Name, tr.Name, len(tr.InitDepths), len(tr.InitVals))
		}
		for j := 1; j < len(tr.InitDepths); j++ {
			if tr.InitDepths[j] <= tr.InitDepths[j-1] {
				return fmt.Errorf("tracer: module %s: tracer %s: profile depths must increase",
					m.Name, tr.Name)
			}
		}
		if tr.Shadows != "" {
			if _, ok := m.Tracer(tr.Shadows); !ok {
				return fmt.Errorf("tracer: module %s: tracer %s shadows unknown tracer %s",
					m.Name, tr.Name, tr.Shadows)
			}
		}
	}
	return nil
}
