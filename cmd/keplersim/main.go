package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/keplersim/internal/config"
	"github.com/san-kum/keplersim/internal/dynamo"
	"github.com/san-kum/keplersim/internal/experiment"
	"github.com/san-kum/keplersim/internal/orbit"
	"github.com/san-kum/keplersim/internal/sim"
	"github.com/san-kum/keplersim/internal/storage"
	"github.com/san-kum/keplersim/internal/tui"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/spatial/r3"
)

var (
	dataDir    string
	verbose    bool
	configFile string
	dt         float64
	duration   float64
	gravity    float64
	softening  float64
	integrator string
	elliptic   bool
	live       bool
	frameRate  int
	noSave     bool
	dts        []float64
	limit      int
	outFile    string
	svgFile    string
	initial    bool
	palCoords  bool
)

var (
	heading = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	faint   = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	warn    = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
)

// main registers the keplersim commands and runs the root command. With no
// subcommand it opens the interactive preset browser.
func main() {
	rootCmd := &cobra.Command{
		Use:   "keplersim",
		Short: "universal-variable kepler drift simulator",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			slog.SetDefault(newLogger(verbose))
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return tui.RunInteractive("")
		},
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".keplersim", "data directory")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	runCmd := &cobra.Command{
		Use:   "run [preset]",
		Short: "run a simulation",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSimulation,
	}
	addRunFlags(runCmd)
	runCmd.Flags().BoolVar(&live, "live", false, "draw the orbits while running")
	runCmd.Flags().IntVar(&frameRate, "fps", 30, "frame rate for --live")
	runCmd.Flags().BoolVar(&noSave, "no-save", false, "do not store the run")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot radii and energy error of a run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export a run as JSON, optionally with an SVG orbit plot",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}
	exportCmd.Flags().StringVarP(&outFile, "out", "o", "", "output file (default stdout)")
	exportCmd.Flags().StringVar(&svgFile, "svg", "", "also draw the orbits to this SVG file")

	compareCmd := &cobra.Command{
		Use:   "compare [preset] [integrator...]",
		Short: "compare integrators on the same preset",
		Args:  cobra.MinimumNArgs(1),
		RunE:  compareIntegrators,
	}
	addRunFlags(compareCmd)

	sweepCmd := &cobra.Command{
		Use:   "sweep [preset]",
		Short: "run a preset at several step sizes in parallel",
		Args:  cobra.MaximumNArgs(1),
		RunE:  sweepSteps,
	}
	addRunFlags(sweepCmd)
	sweepCmd.Flags().Float64SliceVar(&dts, "dts", []float64{0.1, 0.05, 0.02, 0.01}, "step sizes")
	sweepCmd.Flags().IntVar(&limit, "limit", 0, "maximum concurrent runs (0 = no limit)")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list presets",
		RunE:  listPresets,
	}

	elementsCmd := &cobra.Command{
		Use:   "elements [run_id]",
		Short: "orbital elements of each body at the end of a run",
		Args:  cobra.ExactArgs(1),
		RunE:  showElements,
	}
	elementsCmd.Flags().BoolVar(&initial, "initial", false, "use the first snapshot instead")
	elementsCmd.Flags().BoolVar(&palCoords, "pal", false, "print non-singular Pal coordinates instead")

	liveCmd := &cobra.Command{
		Use:   "live [preset]",
		Short: "interactive view of a preset",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := ""
			if len(args) > 0 {
				name = args[0]
			}
			return tui.RunInteractive(name)
		},
	}

	rootCmd.AddCommand(runCmd, listCmd, plotCmd, exportCmd, compareCmd, sweepCmd, presetsCmd, elementsCmd, liveCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&configFile, "config", "", "config file (yaml, .ini or .gcfg)")
	cmd.Flags().Float64Var(&dt, "dt", config.DefaultDt, "timestep")
	cmd.Flags().Float64Var(&duration, "time", config.DefaultDuration, "duration")
	cmd.Flags().Float64Var(&gravity, "g", config.DefaultG, "gravitational constant")
	cmd.Flags().Float64Var(&softening, "softening", 0, "gravitational softening length")
	cmd.Flags().StringVar(&integrator, "integrator", config.DefaultIntegrator, "kepler, dkd, leapfrog, rk4 or euler")
	cmd.Flags().BoolVar(&elliptic, "elliptic-only", false, "refuse parabolic and hyperbolic drifts")
}

func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// resolveConfig builds the run config from, in increasing precedence, the
// preset (keplertest when none is named), the config file and any flags set
// on the command line.
func resolveConfig(cmd *cobra.Command, args []string) (*config.Config, string, error) {
	name := "keplertest"
	if len(args) > 0 {
		name = args[0]
	}

	var cfg *config.Config
	switch {
	case configFile != "":
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, "", fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
		if len(args) == 0 {
			name = strings.TrimSuffix(filepath.Base(configFile), filepath.Ext(configFile))
		}
	default:
		cfg = config.GetPreset(name)
		if cfg == nil {
			return nil, "", fmt.Errorf("unknown preset: %s (available: %v)", name, config.ListPresets())
		}
	}

	flags := cmd.Flags()
	if flags.Changed("dt") {
		cfg.Dt = dt
	}
	if flags.Changed("time") {
		cfg.Duration = duration
	}
	if flags.Changed("g") {
		cfg.G = gravity
	}
	if flags.Changed("softening") {
		cfg.Softening = softening
	}
	if flags.Changed("integrator") {
		cfg.Integrator = integrator
	}
	if flags.Changed("elliptic-only") {
		cfg.Solver.EllipticOnly = elliptic
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", err
	}
	return cfg, name, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, name, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}

	exp := experiment.New(cfg, slog.Default())
	if err := exp.Setup(); err != nil {
		return err
	}

	if live {
		r := tui.NewLiveRenderer(name, frameRate)
		exp.Simulator().AddObserver(r)
		r.Start()
		defer r.Stop()
	}

	ctx, cancel := signalContext()
	defer cancel()

	fmt.Println(heading.Render(fmt.Sprintf("running %s", name)) +
		faint.Render(fmt.Sprintf("  %s  dt=%g  t=%g  bodies=%d", cfg.Integrator, cfg.Dt, cfg.Duration, len(cfg.Bodies))))
	start := time.Now()

	result, err := exp.Run(ctx)
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	fmt.Printf("completed in %v\n", elapsed)
	if !noSave {
		st := storage.New(dataDir)
		if err := st.Init(); err != nil {
			return err
		}
		runID, err := st.Save(name, cfg, result)
		if err != nil {
			return err
		}
		fmt.Printf("run id: %s\n", runID)
	}

	printSummary(result)
	return nil
}

func printSummary(result *sim.Result) {
	fmt.Printf("steps: %d\n", result.StepsTaken)
	if n := len(result.Flagged); n > 0 {
		fmt.Println(warn.Render(fmt.Sprintf("flagged: %d particle steps not advanced", n)))
	}
	if result.Aborted {
		fmt.Println(warn.Render("run stopped: a step advanced no particle"))
	}
	for _, e := range result.Errors {
		fmt.Println(warn.Render("  " + e.Error()))
	}

	fmt.Println("\nmetrics:")
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	for _, name := range sortedKeys(result.Metrics) {
		fmt.Fprintf(w, "  %s\t%.6e\n", name, result.Metrics[name])
	}
	w.Flush()
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTIME\tINTEG\tDT\tDURATION\tBODIES\tSTEPS\tFLAGGED\tdE/E")

	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%g\t%g\t%d\t%d\t%d\t%.2e\n",
			run.ID,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Integrator,
			run.Dt,
			run.Duration,
			run.Particles,
			run.Steps,
			run.Flagged,
			run.EnergyDrift,
		)
	}

	return w.Flush()
}

func loadRun(runID string) (*storage.RunMetadata, [][]dynamo.Particle, []float64, error) {
	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return nil, nil, nil, err
	}
	snaps, times, err := st.LoadStates(runID)
	if err != nil {
		return nil, nil, nil, err
	}
	if len(snaps) == 0 {
		return nil, nil, nil, fmt.Errorf("run %s has no snapshots", runID)
	}
	return meta, snaps, times, nil
}

func plotRun(cmd *cobra.Command, args []string) error {
	meta, snaps, times, err := loadRun(args[0])
	if err != nil {
		return err
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("integrator: %s\n", meta.Integrator)
	fmt.Printf("samples: %d (t=%g..%g)\n\n", len(snaps), times[0], times[len(times)-1])

	const maxBodies = 4
	radii := make([][]float64, 0, maxBodies)
	for i := 1; i < len(snaps[0]) && len(radii) < maxBodies; i++ {
		r := make([]float64, len(snaps))
		for k, snap := range snaps {
			r[k] = r3.Norm(r3.Sub(snap[i].Pos, snap[0].Pos))
		}
		radii = append(radii, r)
	}
	if len(radii) > 0 {
		fmt.Println(asciigraph.PlotMany(radii,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption("distance from central body"),
		))
		fmt.Println()
	}

	softening := 0.0
	if meta.Config != nil {
		softening = meta.Config.Softening
	}
	invariant := experiment.InvariantsFor(meta.Integrator).Energy
	energy := make([]float64, len(snaps))
	e0 := invariant(meta.G, &dynamo.Particles{Items: snaps[0]}, softening)
	for k, snap := range snaps {
		e := invariant(meta.G, &dynamo.Particles{Items: snap}, softening)
		if e0 != 0 {
			energy[k] = (e - e0) / e0
		}
	}
	fmt.Println(asciigraph.Plot(energy,
		asciigraph.Height(10),
		asciigraph.Width(80),
		asciigraph.Caption("relative energy error"),
	))
	return nil
}

func exportRun(cmd *cobra.Command, args []string) error {
	meta, snaps, times, err := loadRun(args[0])
	if err != nil {
		return err
	}

	cfg := meta.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
		cfg.Dt, cfg.Duration, cfg.G = meta.Dt, meta.Duration, meta.G
	}
	result := &sim.Result{
		Integrator:  meta.Integrator,
		Snapshots:   snaps,
		Times:       times,
		Metrics:     meta.Metrics,
		StepsTaken:  meta.Steps,
		EnergyDrift: meta.EnergyDrift,
		Aborted:     meta.Aborted,
	}

	if svgFile != "" {
		if err := storage.ExportSVG(svgFile, snaps, 0); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "orbits drawn to %s\n", svgFile)
	}

	if outFile != "" {
		if err := storage.ExportJSON(outFile, cfg, result); err != nil {
			return err
		}
		fmt.Printf("exported %s to %s\n", meta.ID, outFile)
		return nil
	}
	return storage.WriteJSON(os.Stdout, cfg, result)
}

func compareIntegrators(cmd *cobra.Command, args []string) error {
	cfg, name, err := resolveConfig(cmd, args[:1])
	if err != nil {
		return err
	}

	names := args[1:]
	if len(names) == 0 {
		names = experiment.NewRegistry().ListIntegrators()
	}

	fmt.Printf("comparing integrators for %s (dt=%g, duration=%g)\n\n", name, cfg.Dt, cfg.Duration)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "INTEGRATOR\tINVARIANTS\tdE/E\tda/a\tdL/L\tFLAGGED\tTIME")

	ctx, cancel := signalContext()
	defer cancel()

	quiet := slog.New(slog.DiscardHandler)
	for _, integName := range names {
		run := cfg.Clone()
		run.Integrator = integName

		exp := experiment.New(run, quiet)
		if err := exp.Setup(); err != nil {
			fmt.Fprintf(w, "%s\terror: %v\n", integName, err)
			continue
		}

		start := time.Now()
		result, err := exp.Run(ctx)
		elapsed := time.Since(start)
		if err != nil {
			fmt.Fprintf(w, "%s\terror: %v\n", integName, err)
			continue
		}

		fmt.Fprintf(w, "%s\t%s\t%.2e\t%.2e\t%.2e\t%d\t%.2fms\n", integName,
			experiment.InvariantsFor(integName).Name,
			result.Metrics["energy_drift"],
			result.Metrics["semi_major_axis_drift"],
			result.Metrics["angular_momentum_drift"],
			len(result.Flagged),
			float64(elapsed.Microseconds())/1000)
	}

	return w.Flush()
}

func sweepSteps(cmd *cobra.Command, args []string) error {
	cfg, name, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}

	exp := experiment.New(cfg, slog.Default())
	if err := exp.Setup(); err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	start := time.Now()
	members, err := exp.Sweep(ctx, dts, limit)
	if err != nil {
		return err
	}

	fmt.Printf("%s with %s, %d step sizes in %v\n\n", name, cfg.Integrator, len(members), time.Since(start))
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "DT\tSTEPS\tdE/E\tda/a\tFLAGGED")
	for _, m := range members {
		fmt.Fprintf(w, "%g\t%d\t%.2e\t%.2e\t%d\n", m.Dt,
			m.Result.StepsTaken,
			m.Result.Metrics["energy_drift"],
			m.Result.Metrics["semi_major_axis_drift"],
			len(m.Result.Flagged))
	}
	return w.Flush()
}

func listPresets(cmd *cobra.Command, args []string) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PRESET\tINTEG\tDT\tDURATION\tG\tBODIES")
	for _, name := range config.ListPresets() {
		p := config.GetPreset(name)
		bodies := make([]string, len(p.Bodies))
		for i, b := range p.Bodies {
			bodies[i] = b.Name
		}
		fmt.Fprintf(w, "%s\t%s\t%g\t%g\t%.4g\t%s\n", name, p.Integrator, p.Dt, p.Duration, p.G, strings.Join(bodies, ","))
	}
	return w.Flush()
}

func showElements(cmd *cobra.Command, args []string) error {
	meta, snaps, times, err := loadRun(args[0])
	if err != nil {
		return err
	}

	k := len(snaps) - 1
	if initial {
		k = 0
	}
	snap := snaps[k]

	names := make([]string, len(snap))
	if meta.Config != nil {
		for i, b := range meta.Config.Bodies {
			if i+1 < len(names) {
				names[i+1] = b.Name
			}
		}
	}

	fmt.Printf("run %s at t=%g\n\n", meta.ID, times[k])
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	central := snap[0]
	if palCoords {
		fmt.Fprintln(w, "#\tNAME\tA\tLAMBDA\tK\tH\tIX\tIY")
		for i := 1; i < len(snap); i++ {
			pl, err := orbit.ToPal(meta.G, snap[i], central)
			if err != nil {
				fmt.Fprintf(w, "%d\t%s\t%s\n", i, names[i], warn.Render(err.Error()))
				continue
			}
			fmt.Fprintf(w, "%d\t%s\t%.6f\t%.5f\t%.6f\t%.6f\t%.6f\t%.6f\n", i, names[i],
				pl.A, pl.Lambda, pl.K, pl.H, pl.Ix, pl.Iy)
		}
		return w.Flush()
	}

	fmt.Fprintln(w, "#\tNAME\tA\tE\tINC\tOMEGA\tPERI\tF\tPERIOD")
	for i := 1; i < len(snap); i++ {
		el, err := orbit.FromParticle(meta.G, snap[i], central)
		if err != nil {
			fmt.Fprintf(w, "%d\t%s\t%s\n", i, names[i], warn.Render(err.Error()))
			continue
		}
		fmt.Fprintf(w, "%d\t%s\t%.6f\t%.6f\t%.5f\t%.5f\t%.5f\t%.5f\t%.5g\n", i, names[i],
			el.A, el.E, el.Inc, el.Omega, el.Peri, el.F, el.Period(meta.G*(central.Mass+snap[i].Mass)))
	}
	return w.Flush()
}
