package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"os/signal"
	"runtime"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/detprop/internal/config"
	"github.com/san-kum/detprop/internal/experiment"
	"github.com/san-kum/detprop/internal/logger"
	"github.com/san-kum/detprop/internal/metrics"
	"github.com/san-kum/detprop/internal/storage"
)

var (
	dataDir    string
	logLevel   string
	logFormat  string
	configFile string
	preset     string
	momentum   float64
	charge     float64
	fieldZ     float64
	thetaSteps int
	phiSteps   int
	stepperK   string
	pathLimit  float64
	workers    int
	promFile   string
	eps        float64
	outFile    string
	maxTracks  int
)

var (
	title = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	label = lipgloss.NewStyle().Foreground(lipgloss.Color("242")).Width(14)
	good  = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
	warn  = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	bad   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "detprop",
		Short:         "track propagation through toy detectors",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".detprop", "data directory")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "console", "log format (console, json)")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "propagate the generator tracks one by one",
		RunE:  func(cmd *cobra.Command, args []string) error { return propagate(cmd, false) },
	}
	scanCmd := &cobra.Command{
		Use:   "scan",
		Short: "propagate the generator tracks in parallel",
		RunE:  func(cmd *cobra.Command, args []string) error { return propagate(cmd, true) },
	}
	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "compare propagation with the analytic particle gun",
		RunE:  validate,
	}
	for _, c := range []*cobra.Command{runCmd, scanCmd, validateCmd} {
		c.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
		c.Flags().StringVar(&preset, "preset", "barrel", "preset configuration")
		c.Flags().Float64Var(&momentum, "momentum", config.DefaultMomentum, "track momentum in GeV")
		c.Flags().Float64Var(&charge, "charge", config.DefaultCharge, "track charge (-1, 0, 1)")
		c.Flags().Float64Var(&fieldZ, "bz", config.DefaultFieldTesla, "field along z in tesla")
		c.Flags().IntVar(&thetaSteps, "theta-steps", config.DefaultThetaSteps, "tracks in theta")
		c.Flags().IntVar(&phiSteps, "phi-steps", config.DefaultPhiSteps, "tracks in phi")
		c.Flags().StringVar(&stepperK, "stepper", "rk", "stepper (rk, line)")
		c.Flags().Float64Var(&pathLimit, "path-limit", config.DefaultPathLimit, "path limit in mm, 0 disables")
	}
	for _, c := range []*cobra.Command{runCmd, scanCmd} {
		c.Flags().StringVar(&promFile, "prom-file", "", "write prometheus metrics to this textfile")
	}
	scanCmd.Flags().IntVar(&workers, "workers", runtime.NumCPU(), "tracks in flight")
	validateCmd.Flags().Float64Var(&eps, "eps", 1e-3, "position tolerance in mm")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot hit radii of a run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().IntVar(&maxTracks, "tracks", 4, "number of tracks to plot")

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export a run with its traces as JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}
	exportCmd.Flags().StringVarP(&outFile, "out", "o", "", "output file (default stdout)")

	presetsCmd := &cobra.Command{
		Use:   "presets [name]",
		Short: "list presets or print one as yaml",
		Args:  cobra.MaximumNArgs(1),
		RunE:  showPresets,
	}

	rootCmd.AddCommand(runCmd, scanCmd, validateCmd, listCmd, plotCmd, exportCmd, presetsCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, bad.Render("error: ")+err.Error())
		os.Exit(1)
	}
}

// loadConfig applies the preset, then the config file, then the flags that
// were set explicitly, and sets up logging from the result.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.GetPreset(preset)
	if cfg == nil {
		return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
	}
	if configFile != "" {
		if err := config.Overlay(configFile, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}

	flags := cmd.Flags()
	if flags.Changed("momentum") {
		cfg.Track.Momentum = momentum
	}
	if flags.Changed("charge") {
		cfg.Track.Charge = charge
	}
	if flags.Changed("bz") {
		cfg.Field.Tesla = [3]float64{0, 0, fieldZ}
	}
	if flags.Changed("theta-steps") {
		cfg.Track.ThetaSteps = thetaSteps
	}
	if flags.Changed("phi-steps") {
		cfg.Track.PhiSteps = phiSteps
	}
	if flags.Changed("stepper") {
		cfg.Stepper.Kind = stepperK
	}
	if flags.Changed("path-limit") {
		cfg.Propagation.PathLimit = pathLimit
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = logLevel
	}
	if flags.Changed("log-format") {
		cfg.Log.Format = logFormat
	}
	logger.Init(cfg.Log)
	return cfg, nil
}

func propagate(cmd *cobra.Command, parallel bool) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log := logger.Named("experiment")

	reg := prometheus.NewRegistry()
	exp, err := experiment.New(cfg,
		experiment.WithLogger(*log),
		experiment.WithRecorder(metrics.NewRecorder(reg)))
	if err != nil {
		return err
	}

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fmt.Println(title.Render(fmt.Sprintf("propagating %d tracks through %s",
		cfg.Generator().Len(), exp.Detector().Name())))
	start := time.Now()

	var res *experiment.Result
	if parallel {
		res, err = exp.Scan(ctx, workers)
	} else {
		res, err = exp.Run(ctx)
	}
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	runID, err := st.Save(res.Metadata(cfg), res.Traces)
	if err != nil {
		return err
	}
	if promFile != "" {
		if err := prometheus.WriteToTextfile(promFile, reg); err != nil {
			return err
		}
	}

	row("run id", runID)
	row("elapsed", elapsed.Round(time.Millisecond).String())
	row("hits", fmt.Sprint(res.Hits()))
	row("exited", good.Render(fmt.Sprint(res.Exited)))
	row("aborted", warn.Render(fmt.Sprint(res.Aborted)))
	failed := fmt.Sprint(res.Failed)
	if res.Failed > 0 {
		failed = bad.Render(failed)
	}
	row("failed", failed)
	row("fingerprint", fmt.Sprintf("%016x", res.Fingerprint))
	fmt.Println()
	for name, val := range res.Metrics {
		row(name, fmt.Sprintf("%.6g", val))
	}
	return nil
}

func row(key, value string) {
	fmt.Println(label.Render(key) + value)
}

func validate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	exp, err := experiment.New(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	disc, err := exp.Validate(ctx, eps)
	if err != nil {
		return err
	}
	if len(disc) == 0 {
		fmt.Println(good.Render(fmt.Sprintf("all %d tracks agree within %g mm", cfg.Generator().Len(), eps)))
		return nil
	}
	for _, d := range disc {
		fmt.Println(warn.Render(fmt.Sprintf("track %d", d.Track)), d.Start)
		for _, m := range d.Mismatches {
			fmt.Println("  " + m.String())
		}
	}
	return fmt.Errorf("%d of %d tracks disagree", len(disc), cfg.Generator().Len())
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
	fmt.Fprintln(w, "ID\tTIME\tSTEPPER\tFIELD\tP [GeV]\tTRACKS")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.3g\t%d\n",
			run.ID,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Stepper,
			run.Field,
			run.Momentum,
			len(run.Tracks),
		)
	}
	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	traces, err := st.LoadTraces(args[0])
	if err != nil {
		return err
	}

	var series [][]float64
	hits := make([]float64, 0, len(traces))
	for _, tr := range traces {
		hits = append(hits, float64(len(tr.Hits)))
		if len(series) >= maxTracks || len(tr.Hits) < 2 {
			continue
		}
		radii := make([]float64, len(tr.Hits))
		for i, h := range tr.Hits {
			radii[i] = math.Hypot(h.Position[0], h.Position[1])
		}
		series = append(series, radii)
	}
	if len(series) == 0 {
		return fmt.Errorf("no data to plot")
	}

	fmt.Println(title.Render("run " + meta.ID))
	fmt.Println(asciigraph.PlotMany(series,
		asciigraph.Height(12),
		asciigraph.Width(80),
		asciigraph.Caption("hit radius [mm] by crossing"),
	))
	fmt.Println()
	fmt.Println(asciigraph.Plot(hits,
		asciigraph.Height(8),
		asciigraph.Width(80),
		asciigraph.Caption("crossings per track"),
	))
	return nil
}

func exportRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	traces, err := st.LoadTraces(args[0])
	if err != nil {
		return err
	}

	if outFile == "" {
		return storage.ExportJSON(os.Stdout, meta, traces)
	}
	if err := storage.ExportFile(outFile, meta, traces); err != nil {
		return err
	}
	fmt.Printf("exported %s to %s\n", meta.ID, outFile)
	return nil
}

func showPresets(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		fmt.Println(title.Render("presets"))
		for _, name := range config.ListPresets() {
			cfg := config.GetPreset(name)
			fmt.Printf("  %s %s\n", label.Render(name),
				fmt.Sprintf("%d volumes, %s stepper, %.3g GeV", len(cfg.Detector.Radii)-1, cfg.Stepper.Kind, cfg.Track.Momentum))
		}
		return nil
	}

	cfg := config.GetPreset(args[0])
	if cfg == nil {
		return fmt.Errorf("unknown preset: %s (available: %v)", args[0], config.ListPresets())
	}
	enc := yaml.NewEncoder(os.Stdout)
	enc.SetIndent(2)
	defer enc.Close()
	return enc.Encode(cfg)
}
