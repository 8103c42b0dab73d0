package grid

import (
	"errors"
	"strings"
	"testing"
)

func TestDefaultDefnDepth(t *testing.T) {
	d := DefaultDefn("depth")
	if d.Units != "m" || d.Nlevs != 30 || d.EdgeStart != 0.0 ||
		d.EdgeEnd != 900.0 || d.DeltaRatioMax != 5.0 {
		t.Errorf("depth defaults = %+v", d)
	}
	if err := d.Validate(); err != nil {
		t.Errorf("depth defaults should validate: %v", err)
	}
}

func TestDefaultDefnOther(t *testing.T) {
	d := DefaultDefn("sigma")
	if d.Axisname != "sigma" {
		t.Errorf("axisname = %q, want sigma", d.Axisname)
	}
	if err := d.Validate(); !errors.Is(err, ErrBadDefn) {
		t.Errorf("skeleton defn should fail validation, got %v", err)
	}
}

func TestDefnValidate(t *testing.T) {
	valid := func() *Defn { return DefaultDefn("depth") }
	tests := []struct {
		name string
		mod  func(*Defn)
	}{
		{"no axisname", func(d *Defn) { d.Axisname = "" }},
		{"no units", func(d *Defn) { d.Units = "" }},
		{"zero nlevs", func(d *Defn) { d.Nlevs = 0 }},
		{"negative nlevs", func(d *Defn) { d.Nlevs = -3 }},
		{"edges reversed", func(d *Defn) { d.EdgeStart, d.EdgeEnd = 900, 0 }},
		{"edges equal", func(d *Defn) { d.EdgeEnd = d.EdgeStart }},
		{"ratio below one", func(d *Defn) { d.DeltaRatioMax = 0.5 }},
	}
	for _, tt := range tests {
		d := valid()
		tt.mod(d)
		if err := d.Validate(); !errors.Is(err, ErrBadDefn) {
			t.Errorf("%s: got %v, want ErrBadDefn", tt.name, err)
		}
	}
}

func TestWithDefaults(t *testing.T) {
	d := &Defn{Axisname: "depth", Nlevs: 4}
	got := d.WithDefaults()
	if got.Nlevs != 4 {
		t.Errorf("explicit nlevs overwritten: %d", got.Nlevs)
	}
	if got.Units != "m" || got.EdgeEnd != 900.0 || got.DeltaRatioMax != 5.0 {
		t.Errorf("defaults not filled: %+v", got)
	}
	if d.Units != "" {
		t.Error("WithDefaults mutated its receiver")
	}
}

func TestParseDefn(t *testing.T) {
	good := []byte("axisname: depth\nnlevs: 10\nedge_start: 0.0\nedge_end: 500.0\n")
	d, err := ParseDefn(good, false)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if d.Axisname != "depth" || d.Nlevs != 10 || d.EdgeEnd != 500.0 {
		t.Errorf("parsed defn = %+v", d)
	}

	bad := []byte("axisname: depth\nnlevels: 10\n")
	if _, err := ParseDefn(bad, false); !errors.Is(err, ErrBadDefn) {
		t.Errorf("unknown key: got %v, want ErrBadDefn", err)
	}
	if _, err := ParseDefn(bad, true); err != nil {
		t.Errorf("permissive parse: %v", err)
	}
}

func TestDefnString(t *testing.T) {
	s := DefaultDefn("depth").String()
	for _, want := range []string{
		"axisname=depth", "units=m", "nlevs=30",
		"edge_start=0", "edge_end=900", "delta_ratio_max=5",
	} {
		if !strings.Contains(s, want) {
			t.Errorf("provenance missing %q:\n%s", want, s)
		}
	}
	if got := len(strings.Split(s, "\n")); got != 6 {
		t.Errorf("provenance has %d lines, want 6", got)
	}
}
