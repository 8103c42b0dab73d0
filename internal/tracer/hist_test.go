package tracer

import (
	"math"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ctessum/sparse"

	"oceanspin/internal/ncio"
)

func TestHistTimeWeights(t *testing.T) {
	w, err := HistTimeWeights(5)
	if err != nil {
		t.Fatal(err)
	}
	want := []float64{0.125, 0.25, 0.25, 0.25, 0.125}
	for i := range want {
		if w[i] != want[i] {
			t.Errorf("w[%d] = %v, want %v", i, w[i], want[i])
		}
	}
	sum := 0.0
	for _, v := range w {
		sum += v
	}
	if sum != 1.0 {
		t.Errorf("weights sum to %v, want 1", sum)
	}

	if _, err := HistTimeWeights(1); err == nil {
		t.Error("expected error for a single sample")
	}
	if _, err := HistTimeWeights(0); err == nil {
		t.Error("expected error for zero samples")
	}
}

func TestHistVarsMetadata(t *testing.T) {
	ax := testAxis(t, 3)
	st, err := New(phosphorusDef(), ZeroSource{}, ax)
	if err != nil {
		t.Fatal(err)
	}
	defs := st.HistVarsMetadata()
	if len(defs) != 18 {
		t.Fatalf("got %d vars, want 18 (6 per tracer)", len(defs))
	}

	byName := make(map[string]ncio.VarDef)
	for _, d := range defs {
		byName[d.Name] = d
	}

	raw := byName["po4"]
	if raw.Attrs["cell_methods"] != "time: point" {
		t.Errorf("raw cell_methods = %v", raw.Attrs["cell_methods"])
	}
	if len(raw.Dims) != 2 || raw.Dims[0] != "time" || raw.Dims[1] != "depth" {
		t.Errorf("raw dims = %v", raw.Dims)
	}

	mean := byName["po4_time_mean"]
	if mean.Attrs["long_name"] != "phosphate, mean in time" {
		t.Errorf("mean long_name = %v", mean.Attrs["long_name"])
	}
	if len(mean.Dims) != 1 || mean.Dims[0] != "depth" {
		t.Errorf("mean dims = %v", mean.Dims)
	}
	if _, ok := mean.Attrs["cell_methods"]; ok {
		t.Error("derived var inherited cell_methods")
	}

	anom := byName["po4_time_anom"]
	if len(anom.Dims) != 2 {
		t.Errorf("anom dims = %v", anom.Dims)
	}
	if !strings.HasSuffix(anom.Attrs["long_name"].(string), ", anomaly in time") {
		t.Errorf("anom long_name = %v", anom.Attrs["long_name"])
	}

	delta := byName["po4_time_delta"]
	if !strings.HasSuffix(delta.Attrs["long_name"].(string), ", end state minus start state") {
		t.Errorf("delta long_name = %v", delta.Attrs["long_name"])
	}

	dint := byName["po4_depth_int"]
	if dint.Attrs["units"] != "(mmol m-3) (m)" {
		t.Errorf("depth_int units = %v", dint.Attrs["units"])
	}
	if len(dint.Dims) != 1 || dint.Dims[0] != "time" {
		t.Errorf("depth_int dims = %v", dint.Dims)
	}

	// Each declaration owns its attribute map.
	raw.Attrs["units"] = "changed"
	if byName["po4_time_mean"].Attrs["units"] == "changed" {
		t.Error("attribute maps aliased between declarations")
	}
}

// rampSeries builds a (tracers, 5, nlevs) series whose value at every
// depth is the 1-based time index, offset per tracer.
func rampSeries(tracers, nlevs int) *sparse.DenseArray {
	s := sparse.ZerosDense(tracers, 5, nlevs)
	for tr := 0; tr < tracers; tr++ {
		for ti := 0; ti < 5; ti++ {
			for d := 0; d < nlevs; d++ {
				s.Elements[(tr*5+ti)*nlevs+d] = float64(ti+1) + 10.0*float64(tr)
			}
		}
	}
	return s
}

func TestWriteHistVarsRamp(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hist.nc")
	ax := testAxis(t, 3)
	def := &ModuleDef{Name: "pair", Tracers: []TracerDef{
		{Name: "a", LongName: "tracer a", Units: "mmol m-3"},
		{Name: "b", LongName: "tracer b", Units: "mmol m-3"},
	}}
	st, err := New(def, ZeroSource{}, ax)
	if err != nil {
		t.Fatal(err)
	}
	series := rampSeries(2, 3)
	times := []float64{0, 91.25, 182.5, 273.75, 365}
	err = WriteHistFile(path, "test", times, []HistSeries{{State: st, Series: series}})
	if err != nil {
		t.Fatalf("write hist: %v", err)
	}

	ds, err := ncio.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer ds.Close()

	// Values [1..5] with endpoint-halved weights average to 3 and span 4.
	mean, err := ds.Get("a_time_mean")
	if err != nil {
		t.Fatal(err)
	}
	for d, v := range mean {
		if math.Abs(v-3.0) > 1e-12 {
			t.Errorf("a_time_mean[%d] = %v, want 3", d, v)
		}
	}
	delta, err := ds.Get("a_time_delta")
	if err != nil {
		t.Fatal(err)
	}
	for d, v := range delta {
		if math.Abs(v-4.0) > 1e-12 {
			t.Errorf("a_time_delta[%d] = %v, want 4", d, v)
		}
	}

	// The second tracer is offset by 10, so its mean is 13.
	meanB, err := ds.Get("b_time_mean")
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(meanB[0]-13.0) > 1e-12 {
		t.Errorf("b_time_mean[0] = %v, want 13", meanB[0])
	}

	// Anomalies are the ramp about its mean; std is time-invariant per
	// depth: sqrt(0.125*4 + 0.25*(1+0+1) + 0.125*4) = sqrt(1.5).
	anom, err := ds.GetDense("a_time_anom")
	if err != nil {
		t.Fatal(err)
	}
	wantAnom := []float64{-2, -1, 0, 1, 2}
	for ti := 0; ti < 5; ti++ {
		for d := 0; d < 3; d++ {
			if got := anom.Get(ti, d); math.Abs(got-wantAnom[ti]) > 1e-12 {
				t.Errorf("anom[%d,%d] = %v, want %v", ti, d, got, wantAnom[ti])
			}
		}
	}
	std, err := ds.Get("a_time_std")
	if err != nil {
		t.Fatal(err)
	}
	wantStd := math.Sqrt(1.5)
	for d, v := range std {
		if math.Abs(v-wantStd) > 1e-12 {
			t.Errorf("a_time_std[%d] = %v, want %v", d, v, wantStd)
		}
	}

	// Uniform 30 m layers: depth integral is 90 times the sample value.
	dint, err := ds.Get("a_depth_int")
	if err != nil {
		t.Fatal(err)
	}
	for ti, v := range dint {
		want := 90.0 * float64(ti+1)
		if math.Abs(v-want) > 1e-10 {
			t.Errorf("a_depth_int[%d] = %v, want %v", ti, v, want)
		}
	}

	// The record carries the time coordinate and the axis geometry.
	tc, err := ds.Get("time")
	if err != nil {
		t.Fatal(err)
	}
	if tc[4] != 365 {
		t.Errorf("time[4] = %v, want 365", tc[4])
	}
	if !ds.HasVar("depth_edges") {
		t.Error("hist record missing axis geometry")
	}
}

func TestWriteHistVarsConstantSeries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hist.nc")
	ax := testAxis(t, 2)
	def := &ModuleDef{Name: "one", Tracers: []TracerDef{
		{Name: "c", LongName: "constant", Units: "1"},
	}}
	st, err := New(def, ZeroSource{}, ax)
	if err != nil {
		t.Fatal(err)
	}
	series := sparse.ZerosDense(1, 4, 2)
	for i := range series.Elements {
		series.Elements[i] = 7.5
	}
	times := []float64{0, 10, 20, 30}
	err = WriteHistFile(path, "test", times, []HistSeries{{State: st, Series: series}})
	if err != nil {
		t.Fatal(err)
	}

	ds, err := ncio.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer ds.Close()
	checks := []struct {
		name string
		want float64
	}{
		{"c_time_mean", 7.5},
		{"c_time_anom", 0},
		{"c_time_std", 0},
		{"c_time_delta", 0},
	}
	for _, c := range checks {
		vals, err := ds.Get(c.name)
		if err != nil {
			t.Fatalf("get %s: %v", c.name, err)
		}
		for i, v := range vals {
			if math.Abs(v-c.want) > 1e-12 {
				t.Errorf("%s[%d] = %v, want %v", c.name, i, v, c.want)
			}
		}
	}
}

func TestWriteHistVarsShapeChecks(t *testing.T) {
	ax := testAxis(t, 3)
	st, err := New(phosphorusDef(), ZeroSource{}, ax)
	if err != nil {
		t.Fatal(err)
	}
	f, err := ncio.Create(filepath.Join(t.TempDir(), "h.nc"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	f.AddDims(st.HistDims(5))
	f.AddVars(st.HistVarsMetadata())
	if err := f.EndDefine(); err != nil {
		t.Fatal(err)
	}

	if err := st.WriteHistVars(f, sparse.ZerosDense(3, 5)); err == nil {
		t.Error("expected error for rank-2 series")
	}
	if err := st.WriteHistVars(f, sparse.ZerosDense(2, 5, 3)); err == nil {
		t.Error("expected error for wrong tracer count")
	}
	if err := st.WriteHistVars(f, sparse.ZerosDense(3, 5, 4)); err == nil {
		t.Error("expected error for wrong layer count")
	}
	if err := st.WriteHistVars(f, sparse.ZerosDense(3, 1, 3)); err == nil {
		t.Error("expected error for single-sample series")
	}
}
