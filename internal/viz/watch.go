package viz

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/guptarohit/asciigraph"

	"oceanspin/internal/ncio"
	"oceanspin/internal/tracer"
)

const (
	pollInterval = time.Second
	chartHeight  = 4
	chartWidth   = 48
)

type TickMsg time.Time

// WatchModel tails a statistics file and charts per-tracer convergence.
// The file is reopened on every poll so appends by a concurrent solver
// show up as soon as they are renamed into place.
type WatchModel struct {
	path    string
	running bool
	layer   int

	axisname string
	units    string
	nlevs    int
	regions  int
	iters    int
	depths   []float64
	tracers  []string
	vals     map[string][]float64

	err      error
	loadedAt time.Time
}

func NewWatch(path string) WatchModel {
	m := WatchModel{path: path, running: true, vals: make(map[string][]float64)}
	m.reload()
	return m
}

func tick() tea.Cmd {
	return tea.Tick(pollInterval, func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (m WatchModel) Init() tea.Cmd {
	return tick()
}

func (m WatchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			m.running = !m.running
		case "r":
			m.reload()
		case "up", "k":
			if m.layer > 0 {
				m.layer--
			}
		case "down", "j":
			if m.layer < m.nlevs-1 {
				m.layer++
			}
		}
	case TickMsg:
		if m.running {
			m.reload()
		}
		return m, tick()
	}
	return m, nil
}

// reload reads the whole stats file. The depth dimension is whichever
// dimension is neither the iteration nor the region counter.
func (m *WatchModel) reload() {
	ds, err := ncio.Open(m.path)
	if err != nil {
		m.err = err
		return
	}
	defer ds.Close()

	iters, ok := ds.DimLen(tracer.StatsIterDim)
	if !ok {
		m.err = fmt.Errorf("%s: no %s dimension", m.path, tracer.StatsIterDim)
		return
	}
	regions, ok := ds.DimLen(tracer.StatsRegionDim)
	if !ok {
		m.err = fmt.Errorf("%s: no %s dimension", m.path, tracer.StatsRegionDim)
		return
	}
	axisname, nlevs := "", 0
	for _, d := range ds.Dims() {
		if d.Name == tracer.StatsIterDim || d.Name == tracer.StatsRegionDim {
			continue
		}
		axisname, nlevs = d.Name, d.Len
	}
	if axisname == "" {
		m.err = fmt.Errorf("%s: no depth dimension", m.path)
		return
	}

	depths, err := ds.Get(axisname)
	if err != nil {
		m.err = err
		return
	}
	units := ""
	if v, ok := ds.Attr(axisname, "units"); ok {
		units, _ = ncio.AttrString(v)
	}

	tracers := make([]string, 0)
	vals := make(map[string][]float64)
	for _, name := range ds.Variables() {
		dims, err := ds.VarDims(name)
		if err != nil {
			m.err = err
			return
		}
		if len(dims) != 3 || dims[0].Name != tracer.StatsIterDim {
			continue
		}
		v, err := ds.Get(name)
		if err != nil {
			m.err = err
			return
		}
		tracers = append(tracers, name)
		vals[name] = v
	}
	sort.Strings(tracers)

	m.axisname, m.units, m.nlevs, m.regions, m.iters = axisname, units, nlevs, regions, iters
	m.depths, m.tracers, m.vals = depths, tracers, vals
	if m.layer >= m.nlevs {
		m.layer = m.nlevs - 1
	}
	m.loadedAt = time.Now()
	m.err = nil
}

// layerSeries extracts one tracer's mean at the selected layer for every
// iteration, region 0.
func (m WatchModel) layerSeries(name string) []float64 {
	raw := m.vals[name]
	series := make([]float64, 0, m.iters)
	stride := m.regions * m.nlevs
	for it := 0; it < m.iters && (it+1)*stride <= len(raw); it++ {
		series = append(series, raw[it*stride+m.layer])
	}
	return series
}

func (m WatchModel) View() string {
	var s strings.Builder
	s.WriteString(headerStyle.Render("OCEANSPIN CONVERGENCE") + "\n")
	s.WriteString(labelStyle.Render("File") + valueStyle.Render(m.path) + "\n")

	status := "POLLING"
	if !m.running {
		status = "PAUSED"
	}
	s.WriteString(labelStyle.Render("Status") + statusStyle(m.running).Render(status) + "\n")
	if !m.loadedAt.IsZero() {
		s.WriteString(labelStyle.Render("Updated") + valueStyle.Render(m.loadedAt.Format("15:04:05")) + "\n")
	}

	if m.err != nil {
		s.WriteString("\n" + errStyle.Render(fmt.Sprintf("waiting for stats: %v", m.err)) + "\n")
		s.WriteString(helpStyle.Render("\nSP:Pause R:Reload Q:Quit"))
		return statsStyle.Render(s.String())
	}

	depth := 0.0
	if m.layer < len(m.depths) {
		depth = m.depths[m.layer]
	}
	s.WriteString(labelStyle.Render("Iterations") + valueStyle.Render(fmt.Sprintf("%d", m.iters)) + "\n")
	s.WriteString(labelStyle.Render("Layer") +
		valueStyle.Render(fmt.Sprintf("%d of %d (%.1f %s)", m.layer+1, m.nlevs, depth, m.units)) + "\n")

	for _, name := range m.tracers {
		series := m.layerSeries(name)
		s.WriteString("\n" + Separator(chartWidth) + "\n")
		s.WriteString(headerStyle.Render(name) + "\n")
		if len(series) < 2 {
			s.WriteString(labelStyle.Render(fmt.Sprintf("  need 2 iterations to chart, have %d", len(series))) + "\n")
			if len(series) == 1 {
				s.WriteString(labelStyle.Render("Mean") + valueStyle.Render(fmt.Sprintf("%.6g", series[0])) + "\n")
			}
			continue
		}
		chart := asciigraph.Plot(series,
			asciigraph.Height(chartHeight),
			asciigraph.Width(chartWidth),
			asciigraph.Caption(fmt.Sprintf("%s mean at %.1f %s", name, depth, m.units)),
		)
		s.WriteString(graphStyle.Render(chart) + "\n")
		last, prev := series[len(series)-1], series[len(series)-2]
		s.WriteString(labelStyle.Render("Mean") + valueStyle.Render(fmt.Sprintf("%.6g", last)))
		s.WriteString(labelStyle.Render("   |delta|") + deltaStyle(last-prev).Render(fmt.Sprintf("%.3g", math.Abs(last-prev))) + "\n")
	}

	s.WriteString(helpStyle.Render("\nSP:Pause R:Reload ↑↓:Layer Q:Quit"))
	return statsStyle.Render(s.String())
}

// Watch runs the TUI until the user quits.
func Watch(path string) error {
	p := tea.NewProgram(NewWatch(path))
	_, err := p.Run()
	return err
}
