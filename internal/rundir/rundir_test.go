package rundir

import (
	"os"
	"path/filepath"
	"testing"
)

func TestInitAndPaths(t *testing.T) {
	base := filepath.Join(t.TempDir(), "spinup")
	d := New(base)
	if err := d.Init(); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(base); err != nil {
		t.Fatalf("workdir not created: %v", err)
	}

	if got := filepath.Base(d.GridPath()); got != "grid.nc" {
		t.Errorf("grid path = %s", got)
	}
	if got := filepath.Base(d.HistPath(7)); got != "hist_007.nc" {
		t.Errorf("hist path = %s", got)
	}
	if got := filepath.Base(d.HistPath(123)); got != "hist_123.nc" {
		t.Errorf("hist path = %s", got)
	}
}

func TestMetaRoundTrip(t *testing.T) {
	d := New(filepath.Join(t.TempDir(), "run1"))
	if err := d.Init(); err != nil {
		t.Fatal(err)
	}

	m := &Meta{
		Axisname: "depth",
		Modules:  []string{"iage", "phosphorus"},
		Tracers:  []string{"iage", "po4", "dop", "pop"},
	}
	if err := d.SaveMeta(m); err != nil {
		t.Fatal(err)
	}
	if m.Name != "run1" {
		t.Errorf("name not defaulted from dir: %s", m.Name)
	}
	if m.Created.IsZero() || m.Updated.IsZero() {
		t.Error("timestamps not stamped")
	}

	m.Iteration++
	created := m.Created
	if err := d.SaveMeta(m); err != nil {
		t.Fatal(err)
	}
	if !m.Created.Equal(created) {
		t.Error("created timestamp moved on resave")
	}
	if m.Updated.Before(m.Created) {
		t.Error("updated precedes created")
	}

	got, err := d.LoadMeta()
	if err != nil {
		t.Fatal(err)
	}
	if got.Iteration != 1 {
		t.Errorf("iteration = %d, want 1", got.Iteration)
	}
	if len(got.Tracers) != 4 || got.Tracers[1] != "po4" {
		t.Errorf("tracers = %v", got.Tracers)
	}
}

func TestList(t *testing.T) {
	parent := t.TempDir()
	for _, name := range []string{"a", "b"} {
		d := New(filepath.Join(parent, name))
		if err := d.Init(); err != nil {
			t.Fatal(err)
		}
		if err := d.SaveMeta(&Meta{Axisname: "depth", Iteration: 3}); err != nil {
			t.Fatal(err)
		}
	}
	// A directory without run.json and a stray file are both skipped.
	if err := os.MkdirAll(filepath.Join(parent, "scratch"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(parent, "notes.txt"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	runs, err := List(parent)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 {
		t.Fatalf("got %d runs, want 2", len(runs))
	}
	for _, r := range runs {
		if r.Iteration != 3 {
			t.Errorf("run %s iteration = %d, want 3", r.Name, r.Iteration)
		}
	}
}

func TestListMissingParent(t *testing.T) {
	runs, err := List(filepath.Join(t.TempDir(), "nope"))
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 0 {
		t.Errorf("expected empty list, got %v", runs)
	}
}
