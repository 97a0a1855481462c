// Package main provides the CLI entrypoint for splitstats.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/verte-zerg/splitstats/internal/chart"
	"github.com/verte-zerg/splitstats/internal/config"
	"github.com/verte-zerg/splitstats/internal/model"
	"github.com/verte-zerg/splitstats/internal/splits"
	"github.com/verte-zerg/splitstats/internal/stats"
	"github.com/verte-zerg/splitstats/internal/statsui"
	"github.com/verte-zerg/splitstats/internal/store"
)

const (
	defaultInputFile   = "Super Metroid Any%.lss"
	defaultCurveWindow = 5
	defaultTopSegments = 5
	htmlReportName     = "report.html"
)

var (
	verbose bool

	renderTrimLow  float64
	renderTrimHigh float64
	renderTiming   string
	renderFormat   string
	renderWidth    int
	renderHeight   int
	renderOutDir   string

	curveWindow   int
	topSegments   int
	summaryCharts bool
	exportDB      string
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "splitstats [file.lss]",
		Short:         "Charts and statistics for LiveSplit run histories",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          runRenderCmd,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			setupLogging(verbose)
		},
	}
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	addRenderFlags(rootCmd)

	rootCmd.AddCommand(newRenderCmd())
	rootCmd.AddCommand(newSummaryCmd())
	rootCmd.AddCommand(newBrowseCmd())
	rootCmd.AddCommand(newExportCmd())
	rootCmd.AddCommand(newShowCmd())
	rootCmd.AddCommand(newConfigCmd())
	return rootCmd
}

func setupLogging(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

func addReportFlags(cmd *cobra.Command) {
	defaults := model.DefaultRenderConfig()
	cmd.Flags().Float64Var(&renderTrimLow, "trim-low", defaults.TrimLow, "lower quantile kept when trimming (0-1)")
	cmd.Flags().Float64Var(&renderTrimHigh, "trim-high", defaults.TrimHigh, "upper quantile kept when trimming (0-1)")
	cmd.Flags().StringVar(&renderTiming, "timing", defaults.Timing, "timing method: real or game")
}

func addRenderFlags(cmd *cobra.Command) {
	defaults := model.DefaultRenderConfig()
	addReportFlags(cmd)
	cmd.Flags().StringVar(&renderFormat, "format", string(defaults.Format), "output format: png, html or both")
	cmd.Flags().IntVar(&renderWidth, "width", defaults.Width, "chart width in pixels")
	cmd.Flags().IntVar(&renderHeight, "height", defaults.Height, "chart height in pixels")
	cmd.Flags().StringVarP(&renderOutDir, "out-dir", "o", "", "output directory (default: input file name without extension)")
}

func newRenderCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "render [file.lss]",
		Short: "Write charts for a run history",
		RunE:  runRenderCmd,
	}
	addRenderFlags(cmd)
	return cmd
}

func runRenderCmd(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadRenderConfig(cmd)
	if err != nil {
		return err
	}
	input := resolveInput(args)
	outDir := cfg.OutDir
	if outDir == "" {
		outDir = defaultOutDir(input)
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	report, err := buildReport(input, cfg, outDir)
	if err != nil {
		return err
	}

	var renderers chart.Multi
	if cfg.Format.PNG() {
		renderers = append(renderers, chart.PNGRenderer{Width: cfg.Width, Height: cfg.Height})
	}
	var page *chart.HTMLRenderer
	if cfg.Format.HTML() {
		page = chart.NewHTMLRenderer(filepath.Join(outDir, htmlReportName), report.Title())
		renderers = append(renderers, page)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if err := renderCharts(ctx, renderers, report.Charts); err != nil {
		return err
	}
	if err := renderers.Flush(); err != nil {
		return fmt.Errorf("failed to write html report: %w", err)
	}
	if page != nil && page.Count() > 0 {
		logErrf("Wrote %s\n", page.Path)
	}
	logErrf("Wrote %d charts to %s\n", len(report.Charts), outDir)
	return nil
}

// renderCharts prints a progress line whenever the chart group changes.
func renderCharts(ctx context.Context, renderer chart.Renderer, specs []chart.Spec) error {
	last := ""
	for _, spec := range specs {
		if msg := progressMessage(spec.Name); msg != last {
			logErrln(msg)
			last = msg
		}
		slog.Default().Debug("rendering chart", "chart", spec.Name, "points", len(spec.Values))
		if err := renderer.Render(ctx, spec); err != nil {
			return fmt.Errorf("failed to render %s: %w", spec.Name, err)
		}
	}
	return nil
}

func progressMessage(name string) string {
	switch {
	case strings.HasPrefix(name, "SegmentLength_"):
		return "Outputting segments... "
	case strings.HasPrefix(name, "TimeAtSegment_"):
		return "Outputting best times to segments... "
	case name == "CompletedRuns":
		return "Outputting completed runs... "
	case name == "RunDurations":
		return "Outputting run durations... "
	default:
		return "Outputting " + name + "... "
	}
}

func newSummaryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "summary [file.lss]",
		Short: "Print a text summary with terminal plots",
		RunE:  runSummaryCmd,
	}
	addReportFlags(cmd)
	cmd.Flags().IntVar(&curveWindow, "curve-window", defaultCurveWindow, "moving average window")
	cmd.Flags().IntVar(&topSegments, "top", defaultTopSegments, "number of segments listed by possible time save")
	cmd.Flags().BoolVar(&summaryCharts, "charts", false, "also plot every chart in the terminal")
	return cmd
}

func runSummaryCmd(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadRenderConfig(cmd)
	if err != nil {
		return err
	}
	if curveWindow < 1 {
		return fmt.Errorf("--curve-window must be >= 1")
	}
	report, err := buildReport(resolveInput(args), cfg, "")
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if err := stats.RenderSummary(out, report); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	if err := stats.RenderSegmentTable(out, report); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	if top := stats.TopSegmentsByTimeSave(report.Segments, topSegments); len(top) > 0 {
		if _, err := fmt.Fprintf(out, "Most time to save: %s\n\n", strings.Join(top, ", ")); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	if err := stats.RenderCurves(out, report, curveWindow, 0, 0, false); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	if !summaryCharts {
		return nil
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return stats.RenderCharts(ctx, stats.TextRenderer{W: out}, report)
}

func newBrowseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "browse [file.lss]",
		Short: "Browse a run history interactively",
		RunE:  runBrowseCmd,
	}
	addReportFlags(cmd)
	cmd.Flags().IntVar(&curveWindow, "curve-window", defaultCurveWindow, "moving average window")
	return cmd
}

func runBrowseCmd(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadRenderConfig(cmd)
	if err != nil {
		return err
	}
	reportCfg, err := reportConfig(cfg, "")
	if err != nil {
		return err
	}
	rec, err := splits.Load(resolveInput(args))
	if err != nil {
		return fmt.Errorf("failed to load run history: %w", err)
	}

	// Warnings would draw over the alternate screen.
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.Level(math.MaxInt)})))
	defer slog.SetDefault(prev)

	program := tea.NewProgram(statsui.NewModel(rec, reportCfg, curveWindow), tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run browser: %w", err)
	}
	return nil
}

func newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export [file.lss]",
		Short: "Archive derived run views in SQLite",
		RunE:  runExportCmd,
	}
	addReportFlags(cmd)
	cmd.Flags().StringVar(&exportDB, "db", "", "database path (default: XDG data dir)")
	return cmd
}

func runExportCmd(cmd *cobra.Command, args []string) error {
	cfg, fileCfg, err := loadRenderConfig(cmd)
	if err != nil {
		return err
	}
	dbPath := resolveDBPath(cmd, fileCfg)

	input := resolveInput(args)
	report, err := buildReport(input, cfg, "")
	if err != nil {
		return err
	}

	st, err := store.Open(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	source, err := filepath.Abs(input)
	if err != nil {
		source = input
	}
	id, err := st.SaveReport(ctx, source, report)
	if err != nil {
		return fmt.Errorf("failed to save report: %w", err)
	}
	imports, err := st.ListImports(ctx)
	if err != nil {
		return fmt.Errorf("failed to list imports: %w", err)
	}
	logErrf("Saved import %d to %s (%s imports archived)\n", id, dbPath, humanize.Comma(int64(len(imports))))
	for _, imp := range imports {
		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s %s\t%s\t%d/%d completed\t%s\n",
			imp.ID, imp.Game, imp.Category, imp.Timing, imp.Completed, imp.Attempts, humanize.Time(imp.ImportedAt)); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	return nil
}

func newShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <import-id>",
		Short: "Print the summary of an archived import",
		Args:  cobra.ExactArgs(1),
		RunE:  runShowCmd,
	}
	cmd.Flags().StringVar(&exportDB, "db", "", "database path (default: XDG data dir)")
	return cmd
}

func runShowCmd(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id <= 0 {
		return fmt.Errorf("invalid import id %q", args[0])
	}
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	dbPath := resolveDBPath(cmd, fileCfg)
	if _, err := os.Stat(dbPath); err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}

	st, err := store.Open(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	report, err := st.LoadReport(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to load import: %w", err)
	}
	out := cmd.OutOrStdout()
	if err := stats.RenderSummary(out, report); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	if err := stats.RenderSegmentTable(out, report); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

// resolveDBPath picks the --db flag, then the config file, then the XDG default.
func resolveDBPath(cmd *cobra.Command, fileCfg config.FileConfig) string {
	dbPath := config.DefaultDBPath()
	applyStringConfig(cmd, "db", &dbPath, fileCfg.Export.DB)
	if cmd.Flags().Changed("db") {
		dbPath = exportDB
	}
	return dbPath
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := config.DefaultConfigPath()
	if err := config.EnsureFile(path); err != nil {
		return err
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return fmt.Errorf("editor command is empty")
	}
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

// loadRenderConfig merges the config file under the flags of cmd. A flag set on the
// command line always wins.
func loadRenderConfig(cmd *cobra.Command) (model.RenderConfig, config.FileConfig, error) {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return model.RenderConfig{}, config.FileConfig{}, fmt.Errorf("failed to load config: %w", err)
	}
	applyFloatConfig(cmd, "trim-low", &renderTrimLow, fileCfg.Render.TrimLow)
	applyFloatConfig(cmd, "trim-high", &renderTrimHigh, fileCfg.Render.TrimHigh)
	applyStringConfig(cmd, "timing", &renderTiming, fileCfg.Render.Timing)
	applyStringConfig(cmd, "format", &renderFormat, fileCfg.Render.Format)
	applyIntConfig(cmd, "width", &renderWidth, fileCfg.Render.Width)
	applyIntConfig(cmd, "height", &renderHeight, fileCfg.Render.Height)
	applyStringConfig(cmd, "out-dir", &renderOutDir, fileCfg.Render.OutDir)

	format, err := model.ParseOutputFormat(renderFormat)
	if err != nil {
		return model.RenderConfig{}, config.FileConfig{}, err
	}
	cfg := model.RenderConfig{
		Timing:   renderTiming,
		TrimLow:  renderTrimLow,
		TrimHigh: renderTrimHigh,
		Format:   format,
		Width:    renderWidth,
		Height:   renderHeight,
		OutDir:   renderOutDir,
	}
	if err := cfg.Validate(); err != nil {
		return model.RenderConfig{}, config.FileConfig{}, err
	}
	return cfg, fileCfg, nil
}

func reportConfig(cfg model.RenderConfig, outDir string) (stats.ReportConfig, error) {
	timing, err := splits.ParseTimingMethod(cfg.Timing)
	if err != nil {
		return stats.ReportConfig{}, err
	}
	return stats.ReportConfig{
		Timing:   timing,
		TrimLow:  cfg.TrimLow,
		TrimHigh: cfg.TrimHigh,
		OutDir:   outDir,
	}, nil
}

func buildReport(input string, cfg model.RenderConfig, outDir string) (stats.Report, error) {
	reportCfg, err := reportConfig(cfg, outDir)
	if err != nil {
		return stats.Report{}, err
	}
	rec, err := splits.Load(input)
	if err != nil {
		return stats.Report{}, fmt.Errorf("failed to load run history: %w", err)
	}
	slog.Default().Debug("loaded run history", "file", input, "game", rec.GameName, "category", rec.CategoryName)
	report, err := stats.BuildReport(rec, reportCfg)
	if err != nil {
		return stats.Report{}, fmt.Errorf("failed to build report: %w", err)
	}
	return report, nil
}

// resolveInput joins unquoted path fragments back into one file name.
func resolveInput(args []string) string {
	if len(args) == 0 {
		return defaultInputFile
	}
	return strings.Join(args, " ")
}

func defaultOutDir(input string) string {
	return strings.TrimSuffix(input, filepath.Ext(input))
}

func applyStringConfig(cmd *cobra.Command, name string, target, value *string) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyIntConfig(cmd *cobra.Command, name string, target, value *int) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyFloatConfig(cmd *cobra.Command, name string, target, value *float64) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}

func logErrln(args ...any) {
	if _, err := fmt.Fprintln(os.Stderr, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
