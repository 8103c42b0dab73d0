package config

import (
	"sort"

	"oceanspin/internal/forward"
	"oceanspin/internal/tracer"
)

// IAgeModule is the ideal-age test module: one tracer initialized to
// zero everywhere and aged by the forward model.
func IAgeModule() tracer.ModuleDef {
	return tracer.ModuleDef{
		Name: "iage",
		Tracers: []tracer.TracerDef{
			{Name: "iage", LongName: "ideal age", Units: "years",
				InitDepths: []float64{0.0, 900.0}, InitVals: []float64{0.0, 0.0}},
		},
	}
}

// PhosphorusModule is the phosphorus cycling test module. pop has no
// profile of its own and shadows dop at initialization.
func PhosphorusModule() tracer.ModuleDef {
	return tracer.ModuleDef{
		Name: "phosphorus",
		Tracers: []tracer.TracerDef{
			{Name: "po4", LongName: "phosphate", Units: "mmol m-3",
				InitDepths: []float64{0.0, 100.0, 900.0}, InitVals: []float64{0.2, 1.0, 2.5}},
			{Name: "dop", LongName: "dissolved organic phosphorus", Units: "mmol m-3",
				InitDepths: []float64{0.0, 100.0, 900.0}, InitVals: []float64{0.5, 0.2, 0.1}},
			{Name: "pop", LongName: "particulate organic phosphorus", Units: "mmol m-3",
				Shadows: "dop"},
		},
	}
}

var Presets = map[string]*Config{
	"iage": {
		RegionCnt: 1,
		Modules:   []tracer.ModuleDef{IAgeModule()},
		Forward:   forward.DefaultParams(),
	},
	"phosphorus": {
		RegionCnt: 1,
		Modules:   []tracer.ModuleDef{PhosphorusModule()},
		Forward:   forward.DefaultParams(),
	},
	"spinup": {
		RegionCnt: 1,
		Modules:   []tracer.ModuleDef{IAgeModule(), PhosphorusModule()},
		Forward: forward.Params{
			KappaBG: 1.0, KappaML: 50.0, MLDepth: 50.0, RestoreRate: 0.1,
			Duration: 365.0, Nsteps: 2920, Nsamples: 73,
		},
	},
}

func GetPreset(name string) *Config {
	cfg, ok := Presets[name]
	if !ok {
		return nil
	}
	return cfg
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
