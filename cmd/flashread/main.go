// Package main provides the CLI entrypoint for flashread.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/verte-zerg/flashread/internal/clock"
	"github.com/verte-zerg/flashread/internal/config"
	"github.com/verte-zerg/flashread/internal/engine"
	"github.com/verte-zerg/flashread/internal/generator"
	"github.com/verte-zerg/flashread/internal/model"
	"github.com/verte-zerg/flashread/internal/stats"
	"github.com/verte-zerg/flashread/internal/statsui"
	"github.com/verte-zerg/flashread/internal/store"
	"github.com/verte-zerg/flashread/internal/timing"
	"github.com/verte-zerg/flashread/internal/tui"
	"github.com/verte-zerg/flashread/internal/wordlist"
)

const (
	defaultCurveWindow = 10
	defaultTopMissed   = 10
	defaultBenchWords  = 20
)

var (
	logFile string
	verbose bool
	logOut  *os.File

	runFlags sessionFlags

	statsSince       string
	statsLast        int
	statsCurveWindow int
	statsTop         int
	statsText        bool

	benchFlags sessionFlags
	benchSeed  int64
)

func main() {
	rootCmd := newRootCmd()
	err := rootCmd.Execute()
	// PersistentPostRunE is skipped when RunE fails.
	if cerr := closeLogging(); cerr != nil {
		logErrf("%v\n", cerr)
	}
	if err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "flashread",
		Short:         "Terminal word-flashing reading trainer",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			f, err := setupLogging(logFile, verbose)
			logOut = f
			return err
		},
		PersistentPostRunE: func(_ *cobra.Command, _ []string) error {
			return closeLogging()
		},
		RunE: runSessionCmd,
	}

	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "write logs to this file")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "enable debug logging")

	rootCmd.Flags().StringVar(&runFlags.words, "words", "", "word list (.txt one per line, .yaml deck or .xlsx first column)")
	addSessionFlags(rootCmd, &runFlags, defaultCount)

	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newStatsCmd())
	rootCmd.AddCommand(newBenchCmd())

	return rootCmd
}

// setupLogging installs the default slog handler and returns the opened log
// file, if any. The TUI owns the terminal, so logs are discarded unless a file
// is given or --verbose selects the default log path.
func setupLogging(path string, debug bool) (*os.File, error) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
		if path == "" {
			path = config.DefaultLogPath()
		}
	}
	var w io.Writer = io.Discard
	var f *os.File
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		var err error
		f, err = os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		w = f
	}
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
	return f, nil
}

// closeLogging detaches slog from the log file and closes it. It is safe to
// call more than once.
func closeLogging() error {
	if logOut == nil {
		return nil
	}
	f := logOut
	logOut = nil
	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close log file: %w", err)
	}
	return nil
}

func runSessionCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyFileConfig(cmd, &runFlags, fileCfg.Session)
	if runFlags.words == "" {
		runFlags.words = config.DefaultWordListPath()
	}

	deck, err := wordlist.LoadDeck(runFlags.words)
	if err != nil {
		return wordListLoadError(runFlags.words, err)
	}
	applyDeckSettings(cmd, &runFlags, deck.Settings)

	cfg, err := runFlags.modelConfig()
	if err != nil {
		return err
	}

	gen := generator.New()
	words, err := selectWords(gen, deck.Words, cfg, runFlags.maxLength)
	if err != nil {
		return err
	}
	slog.Info("deck loaded", "title", deck.Title, "path", cfg.WordListPath, "words", len(words))

	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()

	m := tui.NewModel(clock.NewMonotonic(), st, words, cfg.Settings, engine.WithRand(gen.Rand()))
	program := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	if err := m.Err(); err != nil {
		return err
	}
	if res, ok := m.Result(); ok {
		return stats.RenderResult(cmd.OutOrStdout(), res)
	}
	return nil
}

func selectWords(gen *generator.Generator, words []string, cfg model.Config, maxLength int) ([]string, error) {
	words = wordlist.Filter(words, wordlist.SingleWord, wordlist.MaxLength(maxLength))
	if len(words) == 0 {
		return nil, fmt.Errorf("no words left after filtering (--max-length %d)", maxLength)
	}
	return gen.Sequence(words, cfg.Count, cfg.Shuffle), nil
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
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show stats",
		Args:  cobra.NoArgs,
		RunE:  runStatsCmd,
	}
	cmd.Flags().StringVar(&statsSince, "since", "", "start date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&statsLast, "last", 0, "limit to last N sessions")
	cmd.Flags().IntVar(&statsCurveWindow, "curve-window", defaultCurveWindow, "moving average window")
	cmd.Flags().IntVar(&statsTop, "top", defaultTopMissed, "number of most missed words")
	cmd.Flags().BoolVar(&statsText, "text", false, "print a plain text report instead of the dashboard")
	return cmd
}

func runStatsCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := statsConfig(statsSince, statsLast, statsCurveWindow, statsTop)
	if err != nil {
		return err
	}

	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()

	if statsText || !stats.IsTerminal() {
		return printStats(cmdContext(cmd), cmd.OutOrStdout(), st, cfg)
	}
	program := tea.NewProgram(statsui.NewModel(st, cfg), tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run stats TUI: %w", err)
	}
	return nil
}

func printStats(ctx context.Context, w io.Writer, st *store.Store, cfg model.StatsConfig) error {
	report, err := stats.BuildReport(ctx, st, cfg)
	if err != nil {
		return fmt.Errorf("failed to build report: %w", err)
	}
	return report.Render(w, cfg.CurveWindow, 0)
}

func statsConfig(since string, last, window, top int) (model.StatsConfig, error) {
	var sinceTime *time.Time
	if since != "" {
		parsed, err := time.ParseInLocation("2006-01-02", since, time.Local)
		if err != nil {
			return model.StatsConfig{}, fmt.Errorf("invalid --since value: %w", err)
		}
		sinceTime = &parsed
	}
	if last < 0 {
		return model.StatsConfig{}, fmt.Errorf("--last must be >= 0")
	}
	if window <= 0 {
		return model.StatsConfig{}, fmt.Errorf("--curve-window must be > 0")
	}
	if top < 0 {
		return model.StatsConfig{}, fmt.Errorf("--top must be >= 0")
	}
	return model.StatsConfig{
		Since:       sinceTime,
		Last:        last,
		CurveWindow: window,
		TopMissed:   top,
	}, nil
}

func newBenchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Run a headless session and report timing drift",
		Args:  cobra.NoArgs,
		RunE:  runBenchCmd,
	}
	addSessionFlags(cmd, &benchFlags, defaultBenchWords)
	cmd.Flags().Int64Var(&benchSeed, "seed", 0, "interval jitter seed (0 = time based)")
	return cmd
}

func runBenchCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := benchFlags.modelConfig()
	if err != nil {
		return err
	}
	if cfg.Count == 0 {
		cfg.Count = defaultBenchWords
	}
	gen := generator.New()
	if benchSeed != 0 {
		gen = generator.NewSeeded(benchSeed)
	}

	ctx, stop := signal.NotifyContext(cmdContext(cmd), os.Interrupt)
	defer stop()

	res, e, err := runHeadless(ctx, clock.NewMonotonic(), syntheticWords(cfg.Count), cfg.Settings, gen)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if err := stats.RenderResult(out, res); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(out); err != nil {
		return err
	}
	if agg, ok := e.Aggregate(); ok {
		if err := stats.RenderAggregate(out, agg); err != nil {
			return err
		}
		if _, err := fmt.Fprintln(out); err != nil {
			return err
		}
	}
	return stats.RenderDrift(out, stats.DriftOf(e.Metrics()))
}

// runHeadless drives one session from a frame ticker until it completes or
// ctx is cancelled.
func runHeadless(ctx context.Context, clk clock.Clock, words []string, settings model.Settings, gen *generator.Generator) (model.Result, *engine.Engine, error) {
	e := engine.New(clk, engine.Hooks{}, engine.WithRand(gen.Rand()))
	if err := e.Start(words, settings); err != nil {
		return model.Result{}, nil, err
	}
	if err := timing.RunFrames(ctx, timing.FrameInterval, e.Tick); err != nil {
		e.Stop()
		return model.Result{}, nil, fmt.Errorf("bench interrupted: %w", err)
	}
	res, ok := e.Result()
	if !ok {
		return model.Result{}, nil, fmt.Errorf("bench finished without a result")
	}
	return res, e, nil
}

func syntheticWords(n int) []string {
	words := make([]string, n)
	for i := range words {
		words[i] = fmt.Sprintf("word%03d", i+1)
	}
	return words
}

func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func defaultConfigTemplate() string {
	return fmt.Sprintf(`# flashread configuration
# Uncomment a value to enable it. CLI flags override config values; a YAML
# deck's settings block overrides this file.

[session]
# words = %q   # Word list path (.txt, .yaml or .xlsx)
# count = %d                 # Words per session (0 = whole list)
# shuffle = false            # Shuffle the word list
# exposure = %d             # Word exposure (ms)
# interval = %d            # Interval between words (ms)
# variability = %d            # Random interval variation (ms, +/-)
# mask = false               # Show a mask after each word
# mask-duration = %d        # Mask duration (ms)
# case = %q          # original, uppercase or lowercase
`,
		config.DefaultWordListPath(),
		defaultCount,
		defaultExposureMs,
		defaultIntervalMs,
		defaultVariability,
		defaultMaskMs,
		defaultCase,
	)
}

func wordListLoadError(path string, err error) error {
	lines := []string{
		fmt.Sprintf("failed to load word list: %v", err),
		fmt.Sprintf("expected word list at: %s", path),
		"Pass one with --words or set words in the config (flashread config)",
	}
	return fmt.Errorf("%s", strings.Join(lines, "\n"))
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
