// Package rundir lays out the on-disk working directory of a model run:
// the axis, state, restart, history and statistics files, plus a small
// JSON metadata record tracking the iteration counter.
package rundir

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const metaFile = "run.json"

type Dir struct {
	base string
}

func New(base string) *Dir {
	return &Dir{base: base}
}

func (d *Dir) Base() string { return d.base }

func (d *Dir) Init() error {
	return os.MkdirAll(d.base, 0755)
}

func (d *Dir) GridPath() string    { return filepath.Join(d.base, "grid.nc") }
func (d *Dir) StatePath() string   { return filepath.Join(d.base, "state.nc") }
func (d *Dir) RestartPath() string { return filepath.Join(d.base, "restart.nc") }
func (d *Dir) StatsPath() string   { return filepath.Join(d.base, "stats.nc") }
func (d *Dir) MetaPath() string    { return filepath.Join(d.base, metaFile) }

// HistPath names the history file of one forward iteration.
func (d *Dir) HistPath(iteration int) string {
	return filepath.Join(d.base, fmt.Sprintf("hist_%03d.nc", iteration))
}

// Meta is the run bookkeeping record stored as run.json.
type Meta struct {
	Name      string    `json:"name"`
	Created   time.Time `json:"created"`
	Updated   time.Time `json:"updated"`
	Axisname  string    `json:"axisname"`
	Modules   []string  `json:"modules"`
	Tracers   []string  `json:"tracers"`
	Iteration int       `json:"iteration"`
}

// SaveMeta stamps the timestamps and writes run.json. Created is set
// once; Updated moves on every save.
func (d *Dir) SaveMeta(m *Meta) error {
	now := time.Now().UTC()
	if m.Created.IsZero() {
		m.Created = now
	}
	m.Updated = now
	if m.Name == "" {
		m.Name = filepath.Base(d.base)
	}

	f, err := os.Create(d.MetaPath())
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(m)
}

func (d *Dir) LoadMeta() (*Meta, error) {
	data, err := os.ReadFile(d.MetaPath())
	if err != nil {
		return nil, err
	}
	var m Meta
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// List scans parent for run directories, identified by a readable
// run.json. Unreadable or unrelated entries are skipped.
func List(parent string) ([]Meta, error) {
	entries, err := os.ReadDir(parent)
	if err != nil {
		if os.IsNotExist(err) {
			return []Meta{}, nil
		}
		return nil, err
	}

	runs := make([]Meta, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(parent, entry.Name(), metaFile))
		if err != nil {
			continue
		}
		var m Meta
		if err := json.Unmarshal(data, &m); err != nil {
			continue
		}
		runs = append(runs, m)
	}
	return runs, nil
}
