// Package config holds the model configuration: where the run lives,
// how the vertical axis is obtained, which tracer modules are enabled,
// and the forward-model parameters.
package config

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"oceanspin/internal/forward"
	"oceanspin/internal/grid"
	"oceanspin/internal/tracer"
)

const (
	DefaultAxisname  = "depth"
	DefaultRegionCnt = 1
)

// Config is the top-level model configuration. Zero axis fields resolve
// to the built-in depth profile.
type Config struct {
	Workdir   string             `yaml:"workdir"`
	RegionCnt int                `yaml:"region_cnt"`
	Axis      AxisSource         `yaml:"axis"`
	Modules   []tracer.ModuleDef `yaml:"tracer_modules"`
	Forward   forward.Params     `yaml:"forward"`
}

// AxisSource selects where the vertical axis comes from: an existing
// axis file, an inline parametric definition, or (neither set) the
// default profile for Axisname. File and Defn are mutually exclusive.
type AxisSource struct {
	Axisname string     `yaml:"axisname,omitempty"`
	File     string     `yaml:"file,omitempty"`
	Defn     *grid.Defn `yaml:"defn,omitempty"`
}

func DefaultConfig() *Config {
	return &Config{
		RegionCnt: DefaultRegionCnt,
		Modules: []tracer.ModuleDef{
			IAgeModule(),
			PhosphorusModule(),
		},
		Forward: forward.DefaultParams(),
	}
}

// Load reads a config file on top of the defaults. Unknown keys are
// rejected so a typo in an axis defn surfaces as an error instead of
// silently falling back to the default profile.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Resolve constructs the axis the configuration describes.
func (s *AxisSource) Resolve() (*grid.Axis, error) {
	if s.File != "" && s.Defn != nil {
		return nil, fmt.Errorf("config: axis file and axis defn are mutually exclusive")
	}
	name := s.Axisname
	if name == "" {
		name = DefaultAxisname
	}
	if s.File != "" {
		return grid.Load(s.File, name)
	}
	if s.Defn != nil {
		d := *s.Defn
		if d.Axisname == "" {
			d.Axisname = name
		} else if s.Axisname != "" && d.Axisname != s.Axisname {
			return nil, fmt.Errorf("config: axisname %q conflicts with defn axisname %q",
				s.Axisname, d.Axisname)
		}
		return grid.New(d.WithDefaults())
	}
	return grid.New(grid.DefaultDefn(name))
}

// Validate checks everything that can be checked without touching the
// filesystem. Tracer names must be unique across modules because all
// modules share one variable namespace in dumped files.
func (c *Config) Validate() error {
	if c.RegionCnt < 1 {
		return fmt.Errorf("config: region_cnt must be >= 1, got %d", c.RegionCnt)
	}
	if c.Axis.File != "" && c.Axis.Defn != nil {
		return fmt.Errorf("config: axis file and axis defn are mutually exclusive")
	}
	if len(c.Modules) == 0 {
		return fmt.Errorf("config: no tracer modules configured")
	}
	seen := make(map[string]string)
	for i := range c.Modules {
		m := &c.Modules[i]
		if err := m.Validate(); err != nil {
			return err
		}
		for _, name := range m.TracerNames() {
			if prev, ok := seen[name]; ok {
				return fmt.Errorf("config: tracer %s defined in both %s and %s",
					name, prev, m.Name)
			}
			seen[name] = m.Name
		}
	}
	return c.Forward.Validate()
}

// Module returns the enabled module named name.
func (c *Config) Module(name string) (*tracer.ModuleDef, bool) {
	for i := range c.Modules {
		if c.Modules[i].Name == name {
			return &c.Modules[i], true
		}
	}
	return nil, false
}

// TracerCnt is the total tracer count across all enabled modules.
func (c *Config) TracerCnt() int {
	n := 0
	for i := range c.Modules {
		n += c.Modules[i].TracerCnt()
	}
	return n
}
