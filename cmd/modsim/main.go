package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/san-kum/modsim/internal/config"
	"github.com/san-kum/modsim/internal/experiment"
	"github.com/san-kum/modsim/internal/optim"
	"github.com/san-kum/modsim/internal/sim"
	"github.com/san-kum/modsim/internal/storage"
	"github.com/san-kum/modsim/internal/telemetry"
)

var (
	dataDir     string
	storeKind   string
	logLevel    string
	logFormat   string
	metricsFile string

	scenarioFile string
	preset       string
	mode         string
	method       string
	noSave       bool

	sweepParam  string
	sweepValues string

	gridSpecs  []string
	metricSpec string

	exportFormat string
	outputFile   string
)

// app carries the per-invocation logger and metrics.
type app struct {
	log     zerolog.Logger
	metrics *telemetry.Metrics
}

func main() {
	settings, err := config.LoadSettings()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	a := &app{metrics: telemetry.NewMetrics()}

	rootCmd := &cobra.Command{
		Use:           "modsim",
		Short:         "modular dynamical system simulator",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			log, err := telemetry.NewLogger(logLevel, logFormat, os.Stderr)
			if err != nil {
				return err
			}
			a.log = log
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if metricsFile == "" {
				return nil
			}
			return a.metrics.WriteTextfile(metricsFile)
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&dataDir, "data-dir", settings.DataDir, "data directory")
	pf.StringVar(&storeKind, "store", settings.Store, "result store (file, sqlite)")
	pf.StringVar(&logLevel, "log-level", settings.LogLevel, "log level")
	pf.StringVar(&logFormat, "log-format", settings.LogFormat, "log format (console, json)")
	pf.StringVar(&metricsFile, "metrics-file", settings.MetricsFile, "write prometheus metrics to this textfile")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run a scenario",
		Args:  cobra.NoArgs,
		RunE:  a.runScenario,
	}
	addScenarioFlags(runCmd)
	runCmd.Flags().StringVar(&mode, "mode", "", "run mode (reset, rebuild, single, continue)")
	runCmd.Flags().BoolVar(&noSave, "no-save", false, "do not store the result")

	sweepCmd := &cobra.Command{
		Use:   "sweep",
		Short: "run a scenario once per value of a parameter",
		Args:  cobra.NoArgs,
		RunE:  a.sweepScenario,
	}
	addScenarioFlags(sweepCmd)
	sweepCmd.Flags().StringVar(&sweepParam, "param", "", "parameter to vary")
	sweepCmd.Flags().StringVar(&sweepValues, "values", "", "comma separated parameter values")
	sweepCmd.Flags().BoolVar(&noSave, "no-save", false, "do not store the results")
	_ = sweepCmd.MarkFlagRequired("param")
	_ = sweepCmd.MarkFlagRequired("values")

	optimizeCmd := &cobra.Command{
		Use:   "optimize",
		Short: "search a parameter grid for the smallest metric value",
		Args:  cobra.NoArgs,
		RunE:  a.optimizeScenario,
	}
	addScenarioFlags(optimizeCmd)
	optimizeCmd.Flags().StringArrayVar(&gridSpecs, "grid", nil, "parameter values as name=v1,v2,... (repeatable)")
	optimizeCmd.Flags().StringVar(&metricSpec, "metric", "", "metric to minimise, e.g. drift:total_energy")
	_ = optimizeCmd.MarkFlagRequired("grid")
	_ = optimizeCmd.MarkFlagRequired("metric")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		Args:  cobra.NoArgs,
		RunE:  listRuns,
	}

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export a stored run",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}
	exportCmd.Flags().StringVar(&exportFormat, "format", "csv", "output format (csv, json)")
	exportCmd.Flags().StringVarP(&outputFile, "output", "o", "", "output file (default stdout)")

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "export a stored run as CSV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			exportFormat = "csv"
			return exportRun(cmd, args)
		},
	}
	exportCSVCmd.Flags().StringVarP(&outputFile, "output", "o", "", "output file (default stdout)")

	modulesCmd := &cobra.Command{
		Use:   "modules",
		Short: "list modules of every library",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return printModules(cmd.OutOrStdout(), experiment.DefaultRegistry())
		},
	}

	quantitiesCmd := &cobra.Command{
		Use:   "quantities",
		Short: "list quantities read and written by every module",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return printQuantities(cmd.OutOrStdout(), experiment.DefaultRegistry())
		},
	}

	solversCmd := &cobra.Command{
		Use:   "solvers",
		Short: "list solver methods",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return printSolvers(cmd.OutOrStdout())
		},
	}

	presetsCmd := &cobra.Command{
		Use:   "presets [group]",
		Short: "list built-in scenarios",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			groups := config.PresetGroups()
			if len(args) == 1 {
				if len(config.ListPresets(args[0])) == 0 {
					return fmt.Errorf("no presets for group: %s (available: %v)", args[0], groups)
				}
				groups = args
			}
			return printPresets(cmd.OutOrStdout(), groups)
		},
	}

	rootCmd.AddCommand(runCmd, sweepCmd, optimizeCmd, listCmd, exportCmd, exportCSVCmd, modulesCmd, quantitiesCmd, solversCmd, presetsCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func addScenarioFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&scenarioFile, "scenario", "", "scenario file (yaml)")
	cmd.Flags().StringVar(&preset, "preset", "", "built-in scenario as group/name")
	cmd.Flags().StringVar(&method, "method", "", "override the solver method")
	cmd.MarkFlagsMutuallyExclusive("scenario", "preset")
}

// loadScenario returns the selected scenario and the directory relative
// paths inside it are resolved against.
func loadScenario() (*config.Scenario, string, error) {
	var (
		sc      *config.Scenario
		baseDir = "."
		err     error
	)
	switch {
	case scenarioFile != "":
		sc, err = config.Load(scenarioFile)
		if err != nil {
			return nil, "", fmt.Errorf("failed to load scenario: %w", err)
		}
		baseDir = filepath.Dir(scenarioFile)
	case preset != "":
		group, name, ok := strings.Cut(preset, "/")
		if !ok {
			return nil, "", fmt.Errorf("preset must be group/name, got %q", preset)
		}
		sc = config.GetPreset(group, name)
		if sc == nil {
			return nil, "", fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets(group))
		}
	default:
		sc = config.DefaultScenario()
	}

	if method != "" {
		sc.Solver.Method = method
	}
	if mode != "" {
		sc.Mode = mode
	}
	if err := sc.Validate(); err != nil {
		return nil, "", err
	}
	return sc, baseDir, nil
}

func (a *app) simOptions() []sim.Option {
	return []sim.Option{sim.WithLogger(a.log), sim.WithRecorder(a.metrics)}
}

func (a *app) runScenario(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	sc, baseDir, err := loadScenario()
	if err != nil {
		return err
	}

	exp, err := experiment.New(experiment.DefaultRegistry(), sc, baseDir, a.simOptions()...)
	if err != nil {
		return err
	}

	a.log.Info().Str("scenario", sc.Name).Str("mode", sc.Mode).Msg("running scenario")
	out, err := exp.Run(ctx)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "completed in %v\n", out.Elapsed.Round(time.Microsecond))
	fmt.Fprintln(w, out.Report)
	fmt.Fprintf(w, "rows: %d\n", out.Result.Len())
	printFinalRow(w, out)

	if noSave {
		return nil
	}
	if err := a.save(ctx, out); err != nil {
		return err
	}
	fmt.Fprintf(w, "run id: %s\n", out.ID)
	return nil
}

func (a *app) sweepScenario(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	sc, baseDir, err := loadScenario()
	if err != nil {
		return err
	}
	values, err := parseValues(sweepValues)
	if err != nil {
		return err
	}

	outcomes, err := experiment.Sweep(ctx, experiment.DefaultRegistry(), sc, baseDir, sweepParam, values, a.simOptions()...)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tROWS\tRUN ID")
	for _, out := range outcomes {
		id := "-"
		if !noSave {
			if err := a.save(ctx, out); err != nil {
				return err
			}
			id = out.ID
		}
		fmt.Fprintf(w, "%s\t%d\t%s\n", out.Scenario.Name, out.Result.Len(), id)
	}
	return w.Flush()
}

func (a *app) optimizeScenario(cmd *cobra.Command, args []string) error {
	sc, baseDir, err := loadScenario()
	if err != nil {
		return err
	}

	names := make([]string, 0, len(gridSpecs))
	ranges := make([][]float64, 0, len(gridSpecs))
	for _, spec := range gridSpecs {
		name, list, ok := strings.Cut(spec, "=")
		if !ok || name == "" {
			return fmt.Errorf("grid must be name=v1,v2,..., got %q", spec)
		}
		values, err := parseValues(list)
		if err != nil {
			return fmt.Errorf("grid %s: %w", name, err)
		}
		names = append(names, name)
		ranges = append(ranges, values)
	}

	g, err := optim.NewGridSearch(names, ranges)
	if err != nil {
		return err
	}
	best, points, err := g.Search(cmd.Context(), experiment.DefaultRegistry(), sc, baseDir, metricSpec, a.simOptions()...)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "%s\t%s\n", strings.ToUpper(strings.Join(names, "\t")), metricSpec)
	for _, p := range points {
		for _, name := range names {
			fmt.Fprintf(w, "%g\t", p.Parameters[name])
		}
		fmt.Fprintf(w, "%.6g\n", p.Value)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "\nbest: %v (%.6g)\n", best.Parameters, best.Value)
	return nil
}

func (a *app) save(ctx context.Context, out *experiment.Outcome) error {
	st, err := storage.Open(ctx, storeKind, dataDir)
	if err != nil {
		return err
	}
	defer st.Close()

	meta := storage.Metadata{
		ID:        out.ID,
		Name:      out.Scenario.Name,
		Mode:      out.Scenario.Mode,
		Report:    out.Report,
		Timestamp: out.Started,
		Elapsed:   out.Elapsed,
		Metrics:   out.Metrics,
		Scenario:  out.Scenario,
	}
	if err := st.Save(ctx, meta, out.Result); err != nil {
		return err
	}
	a.log.Debug().Str("id", out.ID).Str("store", storeKind).Msg("run saved")
	return nil
}

func listRuns(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	st, err := storage.Open(ctx, storeKind, dataDir)
	if err != nil {
		return err
	}
	defer st.Close()

	runs, err := st.List(ctx)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no runs found")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tTIME\tMODE\tROWS\tELAPSED")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%v\n",
			run.ID,
			run.Name,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Mode,
			run.Rows,
			run.Elapsed.Round(time.Microsecond),
		)
	}
	return w.Flush()
}

func exportRun(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	st, err := storage.Open(ctx, storeKind, dataDir)
	if err != nil {
		return err
	}
	defer st.Close()

	meta, err := st.Load(ctx, args[0])
	if err != nil {
		return err
	}
	result, err := st.LoadResult(ctx, args[0])
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if outputFile != "" {
		f, err := os.Create(outputFile)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}

	switch exportFormat {
	case "csv":
		return storage.WriteCSV(w, result)
	case "json":
		return storage.WriteJSON(w, *meta, result)
	default:
		return fmt.Errorf("unknown export format %q", exportFormat)
	}
}

func parseValues(s string) ([]float64, error) {
	var values []float64
	for _, field := range strings.Split(s, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		v, err := strconv.ParseFloat(field, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid value %q: %w", field, err)
		}
		values = append(values, v)
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("no values given")
	}
	return values, nil
}
