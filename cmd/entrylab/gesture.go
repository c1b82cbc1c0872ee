package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/verte-zerg/entrylab/internal/assets"
	"github.com/verte-zerg/entrylab/internal/config"
	"github.com/verte-zerg/entrylab/internal/gesture"
	"github.com/verte-zerg/entrylab/internal/input"
	"github.com/verte-zerg/entrylab/internal/pointcloud"
	"github.com/verte-zerg/entrylab/internal/report"
	"github.com/verte-zerg/entrylab/internal/templates"
)

type gestureFlags struct {
	templates  string
	threshold  float64
	minSamples int
	logLevel   string
	name       string
}

var gestureOpts gestureFlags

func newGestureCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gesture",
		Short: "Classify strokes and manage gesture templates",
	}
	cmd.PersistentFlags().StringVar(&gestureOpts.templates, "templates", config.DefaultTemplatesDir(), "gesture template directory or http(s) URL")
	cmd.PersistentFlags().Float64Var(&gestureOpts.threshold, "threshold", gesture.DefaultThreshold, "minimum spacing between accepted stroke samples")
	cmd.PersistentFlags().IntVar(&gestureOpts.minSamples, "min-samples", gesture.DefaultMinSamples, "minimum samples for a stroke to be classified")
	cmd.PersistentFlags().StringVar(&gestureOpts.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	classifyCmd := &cobra.Command{
		Use:   "classify <stroke.jsonl>",
		Short: "Classify every palm stroke in a recorded contact stream",
		Args:  cobra.ExactArgs(1),
		RunE:  runGestureClassifyCmd,
	}
	saveCmd := &cobra.Command{
		Use:   "save <stroke.jsonl>",
		Short: "Save the last palm stroke of a recording as a template",
		Args:  cobra.ExactArgs(1),
		RunE:  runGestureSaveCmd,
	}
	saveCmd.Flags().StringVar(&gestureOpts.name, "name", "", "template label (one character)")
	if err := saveCmd.MarkFlagRequired("name"); err != nil {
		panic(err)
	}
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List loaded templates per label",
		Args:  cobra.NoArgs,
		RunE:  runGestureListCmd,
	}
	indexCmd := &cobra.Command{
		Use:   "index",
		Short: "Regenerate the template index manifest",
		Args:  cobra.NoArgs,
		RunE:  runGestureIndexCmd,
	}
	cmd.AddCommand(classifyCmd, saveCmd, listCmd, indexCmd)
	return cmd
}

// resolveGesture overlays the [gesture] config section onto unset flags.
func resolveGesture(cmd *cobra.Command) (gesture.CaptureConfig, *templates.Store, *slog.Logger, error) {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return gesture.CaptureConfig{}, nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	applyStringConfig(cmd, "templates", &gestureOpts.templates, fileCfg.Gesture.Templates)
	applyFloatConfig(cmd, "threshold", &gestureOpts.threshold, fileCfg.Gesture.Threshold)
	applyIntConfig(cmd, "min-samples", &gestureOpts.minSamples, fileCfg.Gesture.MinSamples)
	if gestureOpts.threshold <= 0 {
		return gesture.CaptureConfig{}, nil, nil, fmt.Errorf("--threshold must be > 0")
	}
	if gestureOpts.minSamples < 2 {
		return gesture.CaptureConfig{}, nil, nil, fmt.Errorf("--min-samples must be >= 2")
	}

	logger, err := newLogger(cmd.ErrOrStderr(), gestureOpts.logLevel)
	if err != nil {
		return gesture.CaptureConfig{}, nil, nil, err
	}
	src, err := assets.Open(gestureOpts.templates)
	if err != nil {
		return gesture.CaptureConfig{}, nil, nil, fmt.Errorf("invalid --templates: %w", err)
	}
	capture := gesture.CaptureConfig{
		Threshold:  gestureOpts.threshold,
		MinSamples: gestureOpts.minSamples,
	}
	return capture, templates.New(src, logger), logger, nil
}

// strokeResult is the outcome of one finished palm contact.
type strokeResult struct {
	index  int
	result gesture.Result
}

// runStrokes feeds the index-finger palm contacts of events through rec
// and returns the result of every finished contact.
func runStrokes(rec *gesture.Recognizer, events []input.Event) []strokeResult {
	var results []strokeResult
	for _, ev := range events {
		if ev.Kind != input.KindPalm {
			continue
		}
		switch ev.Phase {
		case input.PhaseStart:
			if ev.Finger == input.FingerIndex {
				rec.Begin(ev.Source, ev.Surface, ev.Tip)
			}
		case input.PhaseContinue:
			rec.Continue(ev.Source, ev.Tip)
		case input.PhaseEnd:
			res := rec.End(ev.Source)
			if res.Outcome != gesture.OutcomeIgnored {
				results = append(results, strokeResult{index: len(results) + 1, result: res})
			}
		}
	}
	return results
}

func runGestureClassifyCmd(cmd *cobra.Command, args []string) error {
	capture, store, logger, err := resolveGesture(cmd)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()
	library, err := store.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load templates: %w", err)
	}
	if len(library) == 0 {
		logErrf("No templates found in %s\n", store.Location())
	}

	events, err := readStreamFile(args[0], time.Time{})
	if err != nil {
		return err
	}
	rec := gesture.NewRecognizer(capture, pointcloud.Classifier{}, nil, logger)
	rec.SetTemplates(library)
	results := runStrokes(rec, events)
	if len(results) == 0 {
		return report.Empty(cmd.OutOrStdout(), "palm strokes")
	}
	for _, r := range results {
		if err := printStroke(cmd.OutOrStdout(), r); err != nil {
			return err
		}
	}
	return nil
}

func printStroke(w io.Writer, r strokeResult) error {
	var line string
	switch r.result.Outcome {
	case gesture.OutcomeRecognized:
		line = fmt.Sprintf("stroke %d: %s (%d samples)", r.index, color.GreenString("%q", string(r.result.Rune)), r.result.Samples)
	case gesture.OutcomeDiscarded:
		line = fmt.Sprintf("stroke %d: %s, %d samples is too few", r.index, color.RedString("discarded"), r.result.Samples)
	default:
		line = fmt.Sprintf("stroke %d: %s (%d samples)", r.index, color.YellowString("no match"), r.result.Samples)
	}
	if _, err := fmt.Fprintln(w, line); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func runGestureSaveCmd(cmd *cobra.Command, args []string) error {
	capture, store, logger, err := resolveGesture(cmd)
	if err != nil {
		return err
	}
	events, err := readStreamFile(args[0], time.Time{})
	if err != nil {
		return err
	}
	rec := gesture.NewRecognizer(capture, nil, nil, logger)
	runStrokes(rec, events)
	points, ok := rec.LastPointSet()
	if !ok {
		return fmt.Errorf("no stroke in %s had at least %d samples", args[0], capture.MinSamples)
	}
	path, err := store.Save(gestureOpts.name, points)
	if err != nil {
		return fmt.Errorf("failed to save template: %w", err)
	}
	if _, err := fmt.Fprintf(cmd.OutOrStdout(), "Saved %s (%d points)\n", path, len(points)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func runGestureListCmd(cmd *cobra.Command, _ []string) error {
	_, store, _, err := resolveGesture(cmd)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()
	library, err := store.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load templates: %w", err)
	}
	if len(library) == 0 {
		return report.Empty(cmd.OutOrStdout(), "templates")
	}
	counts, labels := templates.CountByLabel(library)
	return report.TemplateTable(counts, labels).Render(cmd.OutOrStdout())
}

func runGestureIndexCmd(cmd *cobra.Command, _ []string) error {
	_, store, _, err := resolveGesture(cmd)
	if err != nil {
		return err
	}
	n, err := store.WriteIndex(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to write index: %w", err)
	}
	if _, err := fmt.Fprintf(cmd.OutOrStdout(), "Indexed %d template(s) in %s\n", n, store.Location()); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
