// Package main provides the CLI entrypoint for entrylab.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/verte-zerg/entrylab/internal/assets"
	"github.com/verte-zerg/entrylab/internal/clock"
	"github.com/verte-zerg/entrylab/internal/config"
	"github.com/verte-zerg/entrylab/internal/engine"
	"github.com/verte-zerg/entrylab/internal/export"
	"github.com/verte-zerg/entrylab/internal/gesture"
	"github.com/verte-zerg/entrylab/internal/input"
	"github.com/verte-zerg/entrylab/internal/metrics"
	"github.com/verte-zerg/entrylab/internal/model"
	"github.com/verte-zerg/entrylab/internal/phrases"
	"github.com/verte-zerg/entrylab/internal/session"
	"github.com/verte-zerg/entrylab/internal/store"
	"github.com/verte-zerg/entrylab/internal/templates"
	"github.com/verte-zerg/entrylab/internal/tui"
)

const (
	defaultTrials         = session.DefaultTrials
	defaultEntryType      = "standard"
	defaultKeyDebounceMs  = 0
	defaultPokeDebounceMs = int(input.DefaultPokeDebounce / time.Millisecond)
)

// experimentFlags are shared by every command that runs sessions.
type experimentFlags struct {
	trials         int
	entryType      string
	assets         string
	phrases        string
	output         string
	threshold      float64
	minSamples     int
	templates      string
	keyDebounceMs  int
	pokeDebounceMs int
	dbPath         string
	metricsAddr    string
	logLevel       string
}

var runFlags experimentFlags

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "entrylab",
		Short:         "Text-entry experiment runner",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          runExperimentCmd,
	}
	registerExperimentFlags(rootCmd, &runFlags)

	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newReplayCmd())
	rootCmd.AddCommand(newGestureCmd())
	rootCmd.AddCommand(newSessionsCmd())

	return rootCmd
}

func registerExperimentFlags(cmd *cobra.Command, f *experimentFlags) {
	cmd.Flags().IntVar(&f.trials, "trials", defaultTrials, "trials per session")
	cmd.Flags().StringVar(&f.entryType, "entry-type", defaultEntryType, "entry type recorded with sessions (standard, pincht9)")
	cmd.Flags().StringVar(&f.assets, "assets", config.DefaultAssetsDir(), "assets directory or http(s) URL holding the phrase file")
	cmd.Flags().StringVar(&f.phrases, "phrases", phrases.DefaultFile, "phrase file name inside the assets location")
	cmd.Flags().StringVar(&f.output, "output", config.DefaultOutputDir(), "directory for session JSON records (empty disables)")
	cmd.Flags().Float64Var(&f.threshold, "threshold", gesture.DefaultThreshold, "minimum spacing between accepted stroke samples")
	cmd.Flags().IntVar(&f.minSamples, "min-samples", gesture.DefaultMinSamples, "minimum samples for a stroke to be classified")
	cmd.Flags().StringVar(&f.templates, "templates", config.DefaultTemplatesDir(), "gesture template directory or http(s) URL")
	cmd.Flags().IntVar(&f.keyDebounceMs, "key-debounce-ms", defaultKeyDebounceMs, "minimum interval between presses of one keyboard key")
	cmd.Flags().IntVar(&f.pokeDebounceMs, "poke-debounce-ms", defaultPokeDebounceMs, "minimum interval between presses of one poke key")
	cmd.Flags().StringVar(&f.dbPath, "db", config.DefaultDBPath(), "SQLite database path")
	cmd.Flags().StringVar(&f.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	cmd.Flags().StringVar(&f.logLevel, "log-level", "info", "log level (debug, info, warn, error)")
}

// resolveExperiment overlays the config file onto flags that were not set
// explicitly and validates the result.
func resolveExperiment(cmd *cobra.Command, f *experimentFlags) (model.Config, model.GestureConfig, model.InputConfig, error) {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return model.Config{}, model.GestureConfig{}, model.InputConfig{}, fmt.Errorf("failed to load config: %w", err)
	}
	applyExperimentConfig(cmd, f, fileCfg)

	entryType, err := model.ParseEntryType(f.entryType)
	if err != nil {
		return model.Config{}, model.GestureConfig{}, model.InputConfig{}, fmt.Errorf("invalid --entry-type: %w", err)
	}
	cfg := model.Config{
		Trials:    f.trials,
		EntryType: entryType,
		Assets:    f.assets,
		Phrases:   f.phrases,
		OutputDir: f.output,
	}
	gcfg := model.GestureConfig{
		Threshold:  f.threshold,
		MinSamples: f.minSamples,
		Templates:  f.templates,
	}
	icfg := model.InputConfig{
		KeyDebounce:  time.Duration(f.keyDebounceMs) * time.Millisecond,
		PokeDebounce: time.Duration(f.pokeDebounceMs) * time.Millisecond,
	}
	if err := validateConfig(cfg, gcfg, icfg); err != nil {
		return model.Config{}, model.GestureConfig{}, model.InputConfig{}, err
	}
	return cfg, gcfg, icfg, nil
}

func applyExperimentConfig(cmd *cobra.Command, f *experimentFlags, fileCfg config.FileConfig) {
	applyIntConfig(cmd, "trials", &f.trials, fileCfg.Experiment.Trials)
	applyStringConfig(cmd, "entry-type", &f.entryType, fileCfg.Experiment.EntryType)
	applyStringConfig(cmd, "assets", &f.assets, fileCfg.Experiment.Assets)
	applyStringConfig(cmd, "phrases", &f.phrases, fileCfg.Experiment.Phrases)
	applyStringConfig(cmd, "output", &f.output, fileCfg.Experiment.Output)
	applyFloatConfig(cmd, "threshold", &f.threshold, fileCfg.Gesture.Threshold)
	applyIntConfig(cmd, "min-samples", &f.minSamples, fileCfg.Gesture.MinSamples)
	applyStringConfig(cmd, "templates", &f.templates, fileCfg.Gesture.Templates)
	applyIntConfig(cmd, "key-debounce-ms", &f.keyDebounceMs, fileCfg.Input.KeyDebounceMs)
	applyIntConfig(cmd, "poke-debounce-ms", &f.pokeDebounceMs, fileCfg.Input.PokeDebounceMs)
}

func runExperimentCmd(cmd *cobra.Command, _ []string) error {
	cfg, gcfg, icfg, err := resolveExperiment(cmd, &runFlags)
	if err != nil {
		return err
	}

	// The alternate screen owns the terminal, so logs go to a file.
	logPath := filepath.Join(filepath.Dir(runFlags.dbPath), "entrylab.log")
	logFile, err := openLogFile(logPath)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := logFile.Close(); cerr != nil {
			logErrf("failed to close log file: %v\n", cerr)
		}
	}()
	logger, err := newLogger(logFile, runFlags.logLevel)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	rt, err := openRuntime(ctx, runtimeOptions{
		cfg:         cfg,
		gesture:     gcfg,
		input:       icfg,
		dbPath:      runFlags.dbPath,
		metricsAddr: runFlags.metricsAddr,
		logger:      logger,
	})
	if err != nil {
		return err
	}
	defer rt.close()

	ui := tui.NewModel(rt.engine)
	if dir, ok := rt.templateSource.(*assets.Dir); ok {
		watcher, err := templates.Watch(ctx, dir.Location(), logger)
		if err != nil {
			logger.Warn("template hot reload disabled", "dir", dir.Location(), "error", err)
		} else {
			defer func() { _ = watcher.Close() }()
			ui.WatchTemplates(watcher.Changes())
		}
	}

	program := tea.NewProgram(ui, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	if n := ui.Completed(); n > 0 {
		logErrf("Recorded %d session(s)\n", n)
	}
	return nil
}

type runtimeOptions struct {
	cfg         model.Config
	gesture     model.GestureConfig
	input       model.InputConfig
	dbPath      string
	metricsAddr string
	logger      *slog.Logger

	// Replay only.
	clock   clock.Clock
	sampler *phrases.Sampler
}

// runtime is an engine with its store, metrics server and sources.
type runtime struct {
	engine         *engine.Engine
	store          *store.Store
	metrics        *metrics.Metrics
	server         *metrics.Server
	templateSource assets.Fetcher
	logger         *slog.Logger
}

func openRuntime(ctx context.Context, opts runtimeOptions) (*runtime, error) {
	phraseSource, err := assets.Open(opts.cfg.Assets)
	if err != nil {
		return nil, fmt.Errorf("invalid --assets: %w", err)
	}
	templateSource, err := assets.Open(opts.gesture.Templates)
	if err != nil {
		return nil, fmt.Errorf("invalid --templates: %w", err)
	}

	st, err := store.Open(opts.dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}
	rt := &runtime{
		store:          st,
		metrics:        metrics.New(),
		templateSource: templateSource,
		logger:         opts.logger,
	}

	if opts.metricsAddr != "" {
		rt.server = metrics.NewServer(opts.metricsAddr, rt.metrics, opts.logger)
		addr, err := rt.server.Start()
		if err != nil {
			rt.close()
			return nil, fmt.Errorf("failed to start metrics server: %w", err)
		}
		opts.logger.Info("serving metrics", "addr", addr)
	}

	recorders := []session.Recorder{st}
	if opts.cfg.OutputDir != "" {
		recorders = append(recorders, export.Writer{Dir: opts.cfg.OutputDir})
	}

	deps := engine.Deps{
		Phrases:   phraseSource,
		Templates: templates.New(templateSource, opts.logger.With("component", "templates")),
		Clock:     opts.clock,
		Sampler:   opts.sampler,
		Recorder:  export.Multi(recorders...),
		Metrics:   rt.metrics,
		Logger:    opts.logger,
	}
	rt.engine = engine.New(engine.Config{
		Trials:      opts.cfg.Trials,
		EntryType:   opts.cfg.EntryType,
		PhrasesFile: opts.cfg.Phrases,
		Capture: gesture.CaptureConfig{
			Threshold:  opts.gesture.Threshold,
			MinSamples: opts.gesture.MinSamples,
		},
		Input: input.Config{
			KeyDebounce:  opts.input.KeyDebounce,
			PokeDebounce: opts.input.PokeDebounce,
		},
	}, deps)
	rt.engine.Start(ctx)
	return rt, nil
}

func (rt *runtime) close() {
	if rt.engine != nil {
		rt.engine.Close()
	}
	if rt.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		if err := rt.server.Stop(ctx); err != nil {
			rt.logger.Warn("failed to stop metrics server", "error", err)
		}
		cancel()
	}
	if cerr := rt.store.Close(); cerr != nil {
		logErrf("failed to close db: %v\n", cerr)
	}
}

func newLogger(w io.Writer, level string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid --log-level: %w", err)
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})), nil
}

func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return f, nil
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

func defaultConfigTemplate() string {
	return fmt.Sprintf(`# entrylab configuration
# Uncomment a value to enable it. CLI flags override config values.

[experiment]
# trials = %d                 # Trials per session
# entry-type = %q       # Entry type recorded with sessions (standard, pincht9)
# assets = %q
# phrases = %q       # Phrase file inside the assets location
# output = %q

[gesture]
# threshold = %.3f           # Minimum spacing between accepted samples
# min-samples = %d            # Minimum samples for a stroke to be classified
# templates = %q

[input]
# key-debounce-ms = %d         # Minimum interval between presses of one keyboard key
# poke-debounce-ms = %d      # Minimum interval between presses of one poke key
`,
		defaultTrials,
		defaultEntryType,
		config.DefaultAssetsDir(),
		phrases.DefaultFile,
		config.DefaultOutputDir(),
		gesture.DefaultThreshold,
		gesture.DefaultMinSamples,
		config.DefaultTemplatesDir(),
		defaultKeyDebounceMs,
		defaultPokeDebounceMs,
	)
}

func validateConfig(cfg model.Config, gcfg model.GestureConfig, icfg model.InputConfig) error {
	if cfg.Trials <= 0 {
		return fmt.Errorf("--trials must be > 0")
	}
	if strings.TrimSpace(cfg.Assets) == "" {
		return fmt.Errorf("--assets must not be empty")
	}
	if strings.TrimSpace(cfg.Phrases) == "" {
		return fmt.Errorf("--phrases must not be empty")
	}
	if gcfg.Threshold <= 0 {
		return fmt.Errorf("--threshold must be > 0")
	}
	if gcfg.MinSamples < 2 {
		return fmt.Errorf("--min-samples must be >= 2")
	}
	if strings.TrimSpace(gcfg.Templates) == "" {
		return fmt.Errorf("--templates must not be empty")
	}
	if icfg.KeyDebounce < 0 {
		return fmt.Errorf("--key-debounce-ms must be >= 0")
	}
	if icfg.PokeDebounce < 0 {
		return fmt.Errorf("--poke-debounce-ms must be >= 0")
	}
	return nil
}

func isNotFound(err error) bool {
	return errors.Is(err, store.ErrNotFound) || errors.Is(err, assets.ErrNotFound)
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
