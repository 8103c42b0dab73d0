package main

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"oceanspin/internal/config"
	"oceanspin/internal/forward"
	"oceanspin/internal/grid"
	"oceanspin/internal/ncio"
	"oceanspin/internal/rundir"
	"oceanspin/internal/tracer"
	"oceanspin/internal/viz"
)

var (
	workdir    string
	configFile string
	preset     string
	verbose    bool

	// gen-grid flags
	axisname      string
	gridFile      string
	gridUnits     string
	nlevs         int
	edgeStart     float64
	edgeEnd       float64
	deltaRatioMax float64

	// init-state flags
	source  string
	restart bool

	// run flags
	iterations int

	logger *zap.Logger
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "oceanspin",
		Short: "tracer spinup lab: grids, states, forward runs, convergence",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg := zap.NewProductionConfig()
			if verbose {
				cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
			}
			var err error
			logger, err = cfg.Build()
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if logger != nil {
				_ = logger.Sync()
			}
		},
	}

	rootCmd.PersistentFlags().StringVar(&workdir, "workdir", ".oceanspin", "run working directory")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (yaml)")
	rootCmd.PersistentFlags().StringVar(&preset, "preset", "", "use preset configuration")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "debug logging")

	genGridCmd := &cobra.Command{
		Use:   "gen-grid",
		Short: "generate the vertical axis and dump it to the workdir",
		RunE:  genGrid,
	}
	genGridCmd.Flags().StringVar(&axisname, "axisname", "", "axis name")
	genGridCmd.Flags().StringVar(&gridUnits, "units", "", "axis units")
	genGridCmd.Flags().IntVar(&nlevs, "nlevs", 0, "number of layers")
	genGridCmd.Flags().Float64Var(&edgeStart, "edge-start", 0.0, "shallow edge")
	genGridCmd.Flags().Float64Var(&edgeEnd, "edge-end", 0.0, "deep edge")
	genGridCmd.Flags().Float64Var(&deltaRatioMax, "delta-ratio-max", 0.0, "max thickness ratio")
	genGridCmd.Flags().StringVar(&gridFile, "grid-file", "", "copy axis from an existing file instead of generating")

	initStateCmd := &cobra.Command{
		Use:   "init-state",
		Short: "initialize tracer state and dump it to the workdir",
		RunE:  initState,
	}
	initStateCmd.Flags().StringVar(&source, "source", "zeros", "value source: zeros, init-iterate, or a state file path")
	initStateCmd.Flags().BoolVar(&restart, "restart", false, "also dump a paired-snapshot restart file")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run forward iterations, writing history and statistics",
		RunE:  runForward,
	}
	runCmd.Flags().IntVar(&iterations, "iterations", 1, "forward iterations to run")

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "statistics file operations",
	}
	statsAppendCmd := &cobra.Command{
		Use:   "append [histfile]",
		Short: "append one iteration of stats from a history file",
		Args:  cobra.MaximumNArgs(1),
		RunE:  statsAppend,
	}
	statsShowCmd := &cobra.Command{
		Use:   "show",
		Short: "print the per-iteration convergence table",
		RunE:  statsShow,
	}
	statsCmd.AddCommand(statsAppendCmd, statsShowCmd)

	infoCmd := &cobra.Command{
		Use:   "info [file]",
		Short: "print dimensions, variables and attributes of an array file",
		Args:  cobra.ExactArgs(1),
		RunE:  showInfo,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [tracer]",
		Short: "plot layer thickness, or a tracer profile from the state file",
		Args:  cobra.MaximumNArgs(1),
		RunE:  plotProfile,
	}

	listCmd := &cobra.Command{
		Use:   "list [parent]",
		Short: "list run directories under a parent directory",
		Args:  cobra.MaximumNArgs(1),
		RunE:  listRuns,
	}

	watchCmd := &cobra.Command{
		Use:   "watch",
		Short: "live convergence view of the workdir stats file",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _, err := openRun(cmd)
			if err != nil {
				return err
			}
			return viz.Watch(dir.StatsPath())
		},
	}

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, p := range config.ListPresets() {
				fmt.Println(p)
			}
			return nil
		},
	}

	rootCmd.AddCommand(genGridCmd, initStateCmd, runCmd, statsCmd, infoCmd, plotCmd, listCmd, watchCmd, presetsCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// caller is the free-text provenance recorded in dumped file history
// attributes.
func caller() string {
	return strings.Join(os.Args, " ")
}

func loadConfig() (*config.Config, error) {
	var cfg *config.Config
	switch {
	case preset != "":
		cfg = config.GetPreset(preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
	case configFile != "":
		var err error
		cfg, err = config.Load(configFile)
		if err != nil {
			return nil, err
		}
	default:
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// openRun resolves the config and working directory. The --workdir flag
// wins over the config's workdir.
func openRun(cmd *cobra.Command) (*rundir.Dir, *config.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	wd := workdir
	if !cmd.Flags().Changed("workdir") && cfg.Workdir != "" {
		wd = cfg.Workdir
	}
	return rundir.New(wd), cfg, nil
}

func axisnameFor(cfg *config.Config, dir *rundir.Dir) string {
	if m, err := dir.LoadMeta(); err == nil && m.Axisname != "" {
		return m.Axisname
	}
	if cfg.Axis.Axisname != "" {
		return cfg.Axis.Axisname
	}
	return config.DefaultAxisname
}

func genGrid(cmd *cobra.Command, args []string) error {
	dir, cfg, err := openRun(cmd)
	if err != nil {
		return err
	}

	defnFlags := []string{"units", "nlevs", "edge-start", "edge-end", "delta-ratio-max"}
	defnChanged := false
	for _, f := range defnFlags {
		if cmd.Flags().Changed(f) {
			defnChanged = true
		}
	}

	src := cfg.Axis
	if gridFile != "" {
		if defnChanged || src.Defn != nil {
			return fmt.Errorf("--grid-file and axis definition settings are mutually exclusive")
		}
		src.File, src.Defn = gridFile, nil
	}
	if cmd.Flags().Changed("axisname") {
		src.Axisname = axisname
	}
	if defnChanged {
		d := grid.Defn{}
		if src.Defn != nil {
			d = *src.Defn
		}
		if cmd.Flags().Changed("units") {
			d.Units = gridUnits
		}
		if cmd.Flags().Changed("nlevs") {
			d.Nlevs = nlevs
		}
		if cmd.Flags().Changed("edge-start") {
			d.EdgeStart = edgeStart
		}
		if cmd.Flags().Changed("edge-end") {
			d.EdgeEnd = edgeEnd
		}
		if cmd.Flags().Changed("delta-ratio-max") {
			d.DeltaRatioMax = deltaRatioMax
		}
		src.Defn = &d
	}

	ax, err := src.Resolve()
	if err != nil {
		return err
	}
	if err := dir.Init(); err != nil {
		return err
	}
	if err := ax.Dump(dir.GridPath(), caller()); err != nil {
		return err
	}
	logger.Info("grid written",
		zap.String("path", dir.GridPath()),
		zap.String("axisname", ax.Name),
		zap.Int("nlevs", ax.Len()))
	fmt.Printf("wrote %s (%s, %d layers, %.1f-%.1f %s)\n",
		dir.GridPath(), ax.Name, ax.Len(), ax.Edges[0], ax.Edges[ax.Len()], ax.Units)
	return nil
}

func initState(cmd *cobra.Command, args []string) error {
	dir, cfg, err := openRun(cmd)
	if err != nil {
		return err
	}
	if err := dir.Init(); err != nil {
		return err
	}

	// Reuse the dumped grid when one exists so the state sits on the
	// exact same axis; generate and dump it otherwise.
	var ax *grid.Axis
	if _, err := os.Stat(dir.GridPath()); err == nil {
		ax, err = grid.Load(dir.GridPath(), axisnameFor(cfg, dir))
		if err != nil {
			return err
		}
	} else {
		ax, err = cfg.Axis.Resolve()
		if err != nil {
			return err
		}
		if err := ax.Dump(dir.GridPath(), caller()); err != nil {
			return err
		}
	}

	var valSrc tracer.Source
	switch source {
	case "zeros":
		valSrc = tracer.ZeroSource{}
	case "init-iterate":
		valSrc = tracer.InitIterateSource{}
	default:
		valSrc = tracer.FileSource{Path: source}
	}

	states := make([]*tracer.State, 0, len(cfg.Modules))
	dumpers := make([]tracer.Dumper, 0, len(cfg.Modules))
	for i := range cfg.Modules {
		st, err := tracer.New(&cfg.Modules[i], valSrc, ax)
		if err != nil {
			return err
		}
		states = append(states, st)
		dumpers = append(dumpers, st)
	}
	if err := tracer.WriteDumpFile(dir.StatePath(), caller(), dumpers...); err != nil {
		return err
	}
	logger.Info("state written",
		zap.String("path", dir.StatePath()),
		zap.String("source", source),
		zap.Int("modules", len(states)))

	if restart {
		rsts := make([]tracer.Dumper, 0, len(states))
		for _, st := range states {
			rs, err := tracer.NewRestart(st.Def(), st.Vals, st.Dims)
			if err != nil {
				return err
			}
			rsts = append(rsts, rs)
		}
		if err := tracer.WriteDumpFile(dir.RestartPath(), caller(), rsts...); err != nil {
			return err
		}
		logger.Info("restart written", zap.String("path", dir.RestartPath()))
	}

	meta := &rundir.Meta{Axisname: ax.Name}
	for _, st := range states {
		meta.Modules = append(meta.Modules, st.Name())
		meta.Tracers = append(meta.Tracers, st.TracerNames()...)
	}
	if err := dir.SaveMeta(meta); err != nil {
		return err
	}

	fmt.Printf("wrote %s (%d modules, %d tracers, source %s)\n",
		dir.StatePath(), len(states), len(meta.Tracers), source)
	return nil
}

func runForward(cmd *cobra.Command, args []string) error {
	dir, cfg, err := openRun(cmd)
	if err != nil {
		return err
	}
	meta, err := dir.LoadMeta()
	if err != nil {
		return fmt.Errorf("no run metadata in %s (run init-state first): %w", dir.Base(), err)
	}

	ax, err := grid.Load(dir.StatePath(), meta.Axisname)
	if err != nil {
		return err
	}
	states := make([]*tracer.State, 0, len(cfg.Modules))
	for i := range cfg.Modules {
		st, err := tracer.New(&cfg.Modules[i], tracer.FileSource{Path: dir.StatePath()}, ax)
		if err != nil {
			return err
		}
		states = append(states, st)
	}

	times := cfg.Forward.SampleTimes()
	for it := 0; it < iterations; it++ {
		histPath := dir.HistPath(meta.Iteration)
		runs := make([]tracer.HistSeries, 0, len(states))
		for _, st := range states {
			series, err := forward.Run(st, cfg.Forward)
			if err != nil {
				return fmt.Errorf("module %s: %w", st.Name(), err)
			}
			runs = append(runs, tracer.HistSeries{State: st, Series: series})
		}
		if err := tracer.WriteHistFile(histPath, caller(), times, runs); err != nil {
			return err
		}
		if err := tracer.AppendStats(dir.StatsPath(), histPath, caller(), cfg.RegionCnt, states...); err != nil {
			return err
		}
		meta.Iteration++
		logger.Info("iteration complete",
			zap.Int("iteration", meta.Iteration),
			zap.String("hist", histPath))
	}

	dumpers := make([]tracer.Dumper, len(states))
	for i, st := range states {
		dumpers[i] = st
	}
	if err := tracer.WriteDumpFile(dir.StatePath(), caller(), dumpers...); err != nil {
		return err
	}
	if err := dir.SaveMeta(meta); err != nil {
		return err
	}

	fmt.Printf("completed %d iteration(s), now at iteration %d\n\n", iterations, meta.Iteration)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TRACER\tUNITS\tSURFACE\tDEPTH INTEGRAL")
	for _, st := range states {
		for i, name := range st.TracerNames() {
			vals := st.TracerVals(i)
			integral, err := ax.IntegralMidVec(vals)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "%s\t%s\t%.6g\t%.6g\n",
				name, st.Def().Tracers[i].Units, vals[0], integral)
		}
	}
	return w.Flush()
}

func statsAppend(cmd *cobra.Command, args []string) error {
	dir, cfg, err := openRun(cmd)
	if err != nil {
		return err
	}
	meta, err := dir.LoadMeta()
	if err != nil {
		return fmt.Errorf("no run metadata in %s (run init-state first): %w", dir.Base(), err)
	}

	var histPath string
	if len(args) == 1 {
		histPath = args[0]
	} else {
		if meta.Iteration == 0 {
			return fmt.Errorf("no history files yet (run the forward model first)")
		}
		histPath = dir.HistPath(meta.Iteration - 1)
	}

	ax, err := grid.Load(dir.StatePath(), meta.Axisname)
	if err != nil {
		return err
	}
	states := make([]*tracer.State, 0, len(cfg.Modules))
	for i := range cfg.Modules {
		st, err := tracer.New(&cfg.Modules[i], tracer.FileSource{Path: dir.StatePath()}, ax)
		if err != nil {
			return err
		}
		states = append(states, st)
	}

	if err := tracer.AppendStats(dir.StatsPath(), histPath, caller(), cfg.RegionCnt, states...); err != nil {
		return err
	}
	logger.Info("stats appended",
		zap.String("stats", dir.StatsPath()),
		zap.String("hist", histPath))
	fmt.Printf("appended %s to %s\n", histPath, dir.StatsPath())
	return nil
}

// statsFile is one parsed statistics file: per-tracer layer means over
// (iteration, region, depth).
type statsFile struct {
	iters, regions, nlevs int
	axisname              string
	depths                []float64
	tracers               []string
	vals                  map[string][]float64
}

func readStats(path string) (*statsFile, error) {
	ds, err := ncio.Open(path)
	if err != nil {
		return nil, err
	}
	defer ds.Close()

	sf := &statsFile{vals: make(map[string][]float64)}
	var ok bool
	if sf.iters, ok = ds.DimLen(tracer.StatsIterDim); !ok {
		return nil, fmt.Errorf("%s: no %s dimension", path, tracer.StatsIterDim)
	}
	if sf.regions, ok = ds.DimLen(tracer.StatsRegionDim); !ok {
		return nil, fmt.Errorf("%s: no %s dimension", path, tracer.StatsRegionDim)
	}
	for _, d := range ds.Dims() {
		if d.Name == tracer.StatsIterDim || d.Name == tracer.StatsRegionDim {
			continue
		}
		sf.axisname, sf.nlevs = d.Name, d.Len
	}
	if sf.axisname == "" {
		return nil, fmt.Errorf("%s: no depth dimension", path)
	}
	if sf.depths, err = ds.Get(sf.axisname); err != nil {
		return nil, err
	}
	for _, name := range ds.Variables() {
		dims, err := ds.VarDims(name)
		if err != nil {
			return nil, err
		}
		if len(dims) != 3 || dims[0].Name != tracer.StatsIterDim {
			continue
		}
		if sf.vals[name], err = ds.Get(name); err != nil {
			return nil, err
		}
		sf.tracers = append(sf.tracers, name)
	}
	sort.Strings(sf.tracers)
	return sf, nil
}

// surfaceSeries is a tracer's region-0 surface-layer mean per iteration.
func (sf *statsFile) surfaceSeries(name string) []float64 {
	raw := sf.vals[name]
	stride := sf.regions * sf.nlevs
	series := make([]float64, 0, sf.iters)
	for it := 0; it < sf.iters && (it+1)*stride <= len(raw); it++ {
		series = append(series, raw[it*stride])
	}
	return series
}

func statsShow(cmd *cobra.Command, args []string) error {
	dir, _, err := openRun(cmd)
	if err != nil {
		return err
	}
	sf, err := readStats(dir.StatsPath())
	if err != nil {
		return err
	}

	fmt.Printf("stats: %s\n", dir.StatsPath())
	fmt.Printf("iterations: %d, regions: %d, %s levels: %d\n\n",
		sf.iters, sf.regions, sf.axisname, sf.nlevs)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TRACER\tSURFACE MEAN\t|DELTA|\tTREND")
	for _, name := range sf.tracers {
		series := sf.surfaceSeries(name)
		if len(series) == 0 {
			continue
		}
		last := series[len(series)-1]
		delta := "-"
		if len(series) > 1 {
			d := last - series[len(series)-2]
			if d < 0 {
				d = -d
			}
			delta = fmt.Sprintf("%.3g", d)
		}
		fmt.Fprintf(w, "%s\t%.6g\t%s\t%s\n", name, last, delta, viz.SparklineChart(series, 24))
	}
	return w.Flush()
}

func showInfo(cmd *cobra.Command, args []string) error {
	ds, err := ncio.Open(args[0])
	if err != nil {
		return err
	}
	defer ds.Close()

	fmt.Printf("file: %s\n", ds.Path())
	globals := ds.GlobalAttrs()
	for _, key := range globals.SortedKeys() {
		if s, ok := ncio.AttrString(globals[key]); ok {
			fmt.Printf("%s: %s\n", key, s)
		}
	}

	fmt.Println("\ndimensions:")
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	for _, d := range ds.Dims() {
		fmt.Fprintf(w, "  %s\t%d\n", d.Name, d.Len)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Println("\nvariables:")
	w = tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "  NAME\tTYPE\tDIMS\tLONG NAME\tUNITS")
	for _, name := range ds.Variables() {
		tn, err := ds.TypeName(name)
		if err != nil {
			return err
		}
		dims, err := ds.VarDims(name)
		if err != nil {
			return err
		}
		longName, _ := ncio.AttrString(ds.VarAttrs(name)["long_name"])
		units, _ := ncio.AttrString(ds.VarAttrs(name)["units"])
		fmt.Fprintf(w, "  %s\t%s\t%s\t%s\t%s\n",
			name, tn, strings.Join(dims.Names(), ","), longName, units)
	}
	return w.Flush()
}

func plotProfile(cmd *cobra.Command, args []string) error {
	dir, cfg, err := openRun(cmd)
	if err != nil {
		return err
	}

	if len(args) == 0 {
		ax, err := grid.Load(dir.GridPath(), axisnameFor(cfg, dir))
		if err != nil {
			return err
		}
		fmt.Printf("%s axis: %d layers, %.1f-%.1f %s\n\n",
			ax.Name, ax.Len(), ax.Edges[0], ax.Edges[ax.Len()], ax.Units)
		graph := asciigraph.Plot(ax.Delta,
			asciigraph.Height(10),
			asciigraph.Width(72),
			asciigraph.Caption(fmt.Sprintf("layer thickness (%s) vs layer", ax.Units)),
		)
		fmt.Println(graph)
		return nil
	}

	name := args[0]
	ds, err := ncio.Open(dir.StatePath())
	if err != nil {
		return err
	}
	defer ds.Close()
	vals, err := ds.Get(name)
	if err != nil {
		return err
	}
	units, _ := ncio.AttrString(ds.VarAttrs(name)["units"])

	caption := fmt.Sprintf("%s vs layer", name)
	if units != "" {
		caption = fmt.Sprintf("%s (%s) vs layer", name, units)
	}
	graph := asciigraph.Plot(vals,
		asciigraph.Height(10),
		asciigraph.Width(72),
		asciigraph.Caption(caption),
	)
	fmt.Println(graph)
	return nil
}

func listRuns(cmd *cobra.Command, args []string) error {
	parent := "."
	if len(args) == 1 {
		parent = args[0]
	}
	runs, err := rundir.List(parent)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tAXIS\tMODULES\tTRACERS\tITER\tUPDATED")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%s\n",
			run.Name,
			run.Axisname,
			strings.Join(run.Modules, ","),
			len(run.Tracers),
			run.Iteration,
			run.Updated.Format("2006-01-02 15:04:05"),
		)
	}
	return w.Flush()
}
