package tracer

import (
	"errors"
	"math"
	"path/filepath"
	"testing"

	"oceanspin/internal/grid"
	"oceanspin/internal/ncio"
)

func testAxis(t *testing.T, nlevs int) *grid.Axis {
	t.Helper()
	ax, err := grid.New(&grid.Defn{Axisname: "depth", Units: "m", Nlevs: nlevs,
		EdgeStart: 0.0, EdgeEnd: float64(nlevs) * 30.0, DeltaRatioMax: 1.0})
	if err != nil {
		t.Fatal(err)
	}
	return ax
}

func phosphorusDef() *ModuleDef {
	return &ModuleDef{
		Name: "phosphorus",
		Tracers: []TracerDef{
			{Name: "po4", LongName: "phosphate", Units: "mmol m-3",
				InitDepths: []float64{0, 100, 900}, InitVals: []float64{0.2, 1.0, 2.5}},
			{Name: "dop", LongName: "dissolved organic phosphorus", Units: "mmol m-3",
				InitDepths: []float64{0, 100, 900}, InitVals: []float64{0.5, 0.2, 0.1}},
			{Name: "pop", LongName: "particulate organic phosphorus", Units: "mmol m-3",
				Shadows: "dop"},
		},
	}
}

func TestModuleDefValidate(t *testing.T) {
	tests := []struct {
		name string
		mod  func(*ModuleDef)
	}{
		{"no name", func(m *ModuleDef) { m.Name = "" }},
		{"no tracers", func(m *ModuleDef) { m.Tracers = nil }},
		{"unnamed tracer", func(m *ModuleDef) { m.Tracers[0].Name = "" }},
		{"duplicate tracer", func(m *ModuleDef) { m.Tracers[1].Name = "po4" }},
		{"profile length mismatch", func(m *ModuleDef) { m.Tracers[0].InitVals = []float64{1} }},
		{"profile depths not increasing", func(m *ModuleDef) {
			m.Tracers[0].InitDepths = []float64{0, 900, 100}
		}},
		{"unknown shadow", func(m *ModuleDef) { m.Tracers[2].Shadows = "ghost" }},
	}
	for _, tt := range tests {
		m := phosphorusDef()
		tt.mod(m)
		if err := m.Validate(); err == nil {
			t.Errorf("%s: expected validation error", tt.name)
		}
	}
	if err := phosphorusDef().Validate(); err != nil {
		t.Errorf("valid def rejected: %v", err)
	}
}

func TestZeroSource(t *testing.T) {
	ax := testAxis(t, 4)
	st, err := New(phosphorusDef(), ZeroSource{}, ax)
	if err != nil {
		t.Fatal(err)
	}
	if st.TracerCnt() != 3 {
		t.Errorf("tracer count = %d, want 3", st.TracerCnt())
	}
	wantDims := ncio.Dims{{Name: "depth", Len: 4}}
	if !st.Dims.Equal(wantDims) {
		t.Errorf("dims = %v, want %v", st.Dims, wantDims)
	}
	for i, v := range st.Vals.Elements {
		if v != 0 {
			t.Fatalf("vals[%d] = %v, want 0", i, v)
		}
	}
}

func TestInitIterateSource(t *testing.T) {
	ax := testAxis(t, 4) // uniform layers: midpoints 15, 45, 75, 105
	st, err := New(phosphorusDef(), InitIterateSource{}, ax)
	if err != nil {
		t.Fatal(err)
	}
	// po4 interpolates 0.2 -> 1.0 over the first 100 m: at 15 m the value
	// is 0.2 + 0.15*0.8 = 0.32.
	if got := st.TracerVals(0)[0]; math.Abs(got-0.32) > 1e-12 {
		t.Errorf("po4 surface = %v, want 0.32", got)
	}
	// pop shadows dop, so their profiles match exactly.
	dop, pop := st.TracerVals(1), st.TracerVals(2)
	for i := range dop {
		if dop[i] != pop[i] {
			t.Errorf("layer %d: pop = %v, dop = %v", i, pop[i], dop[i])
		}
	}
}

func TestInitIterateSourceNoProfile(t *testing.T) {
	def := &ModuleDef{Name: "bare", Tracers: []TracerDef{
		{Name: "x", LongName: "x", Units: "1"},
	}}
	_, err := New(def, InitIterateSource{}, testAxis(t, 3))
	if !errors.Is(err, ErrNoInitProfile) {
		t.Errorf("got %v, want ErrNoInitProfile", err)
	}
}

func TestDumpFileSourceRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.nc")
	ax := testAxis(t, 4)
	def := phosphorusDef()
	st, err := New(def, InitIterateSource{}, ax)
	if err != nil {
		t.Fatal(err)
	}
	if err := WriteDumpFile(path, "test", st); err != nil {
		t.Fatalf("dump: %v", err)
	}

	got, err := New(def, FileSource{Path: path}, ax)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if !got.Dims.Equal(st.Dims) {
		t.Errorf("dims = %v, want %v", got.Dims, st.Dims)
	}
	for i := range st.Vals.Elements {
		if got.Vals.Elements[i] != st.Vals.Elements[i] {
			t.Fatalf("vals[%d] = %v, want %v", i, got.Vals.Elements[i], st.Vals.Elements[i])
		}
	}

	// The dump carries the axis geometry alongside the tracers.
	ds, err := ncio.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer ds.Close()
	for _, v := range []string{"depth", "depth_bounds", "depth_edges", "depth_delta", "po4", "dop", "pop"} {
		if !ds.HasVar(v) {
			t.Errorf("dump missing variable %s", v)
		}
	}
	attrs := ds.VarAttrs("po4")
	if attrs["long_name"] != "phosphate" || attrs["units"] != "mmol m-3" {
		t.Errorf("po4 attrs = %v", attrs)
	}
}

func TestMultiModuleDump(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.nc")
	ax := testAxis(t, 4)
	iage := &ModuleDef{Name: "iage", Tracers: []TracerDef{
		{Name: "iage", LongName: "ideal age", Units: "years",
			InitDepths: []float64{0, 900}, InitVals: []float64{0, 0}},
	}}
	st1, err := New(iage, ZeroSource{}, ax)
	if err != nil {
		t.Fatal(err)
	}
	st2, err := New(phosphorusDef(), InitIterateSource{}, ax)
	if err != nil {
		t.Fatal(err)
	}
	if err := WriteDumpFile(path, "test", st1, st2); err != nil {
		t.Fatalf("dump: %v", err)
	}

	back1, err := New(iage, FileSource{Path: path}, ax)
	if err != nil {
		t.Fatalf("reload iage: %v", err)
	}
	back2, err := New(phosphorusDef(), FileSource{Path: path}, ax)
	if err != nil {
		t.Fatalf("reload phosphorus: %v", err)
	}
	if back1.Vals.Elements[0] != 0 {
		t.Error("iage values lost")
	}
	if back2.Vals.Elements[0] != st2.Vals.Elements[0] {
		t.Error("phosphorus values lost")
	}
}

func TestFileSourceDimsMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.nc")
	f, err := ncio.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	f.AddDims(ncio.Dims{{Name: "depth", Len: 3}, {Name: "zlev", Len: 4}})
	f.AddVar(ncio.VarDef{Name: "a", Dims: []string{"depth"}})
	f.AddVar(ncio.VarDef{Name: "b", Dims: []string{"zlev"}})
	if err := f.EndDefine(); err != nil {
		t.Fatal(err)
	}
	f.Put("a", []float64{1, 2, 3})
	f.Put("b", []float64{1, 2, 3, 4})
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}

	def := &ModuleDef{Name: "m", Tracers: []TracerDef{
		{Name: "a", LongName: "a", Units: "1"},
		{Name: "b", LongName: "b", Units: "1"},
	}}
	_, err = New(def, FileSource{Path: path}, testAxis(t, 3))
	if !errors.Is(err, ErrDimsMismatch) {
		t.Errorf("got %v, want ErrDimsMismatch", err)
	}
}

func TestFileSourceRankLimit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rank4.nc")
	f, err := ncio.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	f.AddDims(ncio.Dims{{Name: "w", Len: 2}, {Name: "x", Len: 2}, {Name: "y", Len: 2}, {Name: "z", Len: 2}})
	f.AddVar(ncio.VarDef{Name: "a", Dims: []string{"w", "x", "y", "z"}})
	if err := f.EndDefine(); err != nil {
		t.Fatal(err)
	}
	f.Put("a", make([]float64, 16))
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}

	def := &ModuleDef{Name: "m", Tracers: []TracerDef{{Name: "a", LongName: "a", Units: "1"}}}
	_, err = New(def, FileSource{Path: path}, testAxis(t, 2))
	if !errors.Is(err, ErrRank) {
		t.Errorf("got %v, want ErrRank", err)
	}
}

func TestDumpUnknownPhase(t *testing.T) {
	ax := testAxis(t, 2)
	st, err := New(phosphorusDef(), ZeroSource{}, ax)
	if err != nil {
		t.Fatal(err)
	}
	f, err := ncio.Create(filepath.Join(t.TempDir(), "x.nc"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := st.Dump(f, Phase("commit")); !errors.Is(err, ErrBadPhase) {
		t.Errorf("got %v, want ErrBadPhase", err)
	}
}

func TestRestartRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "restart.nc")
	ax := testAxis(t, 3)
	def := phosphorusDef()
	st, err := New(def, InitIterateSource{}, ax)
	if err != nil {
		t.Fatal(err)
	}
	rs, err := NewRestart(def, st.Vals, st.Dims)
	if err != nil {
		t.Fatal(err)
	}
	if err := WriteDumpFile(path, "test", rs); err != nil {
		t.Fatalf("dump: %v", err)
	}

	// Both snapshots of every tracer are present and identical.
	ds, err := ncio.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer ds.Close()
	for _, name := range def.TracerNames() {
		cur, err := ds.Get(name + SnapCur)
		if err != nil {
			t.Fatalf("get %s_CUR: %v", name, err)
		}
		old, err := ds.Get(name + SnapOld)
		if err != nil {
			t.Fatalf("get %s_OLD: %v", name, err)
		}
		for i := range cur {
			if cur[i] != old[i] {
				t.Fatalf("%s snapshots differ at %d", name, i)
			}
		}
	}

	back, err := LoadRestart(def, path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !back.Dims.Equal(st.Dims) {
		t.Errorf("dims = %v, want %v", back.Dims, st.Dims)
	}
	for i := range st.Vals.Elements {
		if back.Vals.Elements[i] != st.Vals.Elements[i] {
			t.Fatalf("vals[%d] = %v, want %v", i, back.Vals.Elements[i], st.Vals.Elements[i])
		}
	}
}

func TestNewRestartShapeCheck(t *testing.T) {
	ax := testAxis(t, 3)
	st, err := New(phosphorusDef(), ZeroSource{}, ax)
	if err != nil {
		t.Fatal(err)
	}
	_, err = NewRestart(phosphorusDef(), st.Vals, ncio.Dims{{Name: "depth", Len: 5}})
	if err == nil {
		t.Error("expected shape mismatch error")
	}
}
