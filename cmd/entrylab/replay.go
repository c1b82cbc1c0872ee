package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/verte-zerg/entrylab/internal/clock"
	"github.com/verte-zerg/entrylab/internal/input"
	"github.com/verte-zerg/entrylab/internal/phrases"
	"github.com/verte-zerg/entrylab/internal/session"
)

var (
	replayFlags experimentFlags
	replaySeed  int64
	replayStart string
)

func newReplayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "replay <events.jsonl>",
		Short: "Run a recorded input stream through a headless experiment",
		Args:  cobra.ExactArgs(1),
		RunE:  runReplayCmd,
	}
	registerExperimentFlags(cmd, &replayFlags)
	cmd.Flags().Int64Var(&replaySeed, "seed", 0, "phrase sampling seed (0 picks a random one)")
	cmd.Flags().StringVar(&replayStart, "start", "", "RFC 3339 time the stream's offsets count from (default now)")
	return cmd
}

func runReplayCmd(cmd *cobra.Command, args []string) error {
	cfg, gcfg, icfg, err := resolveExperiment(cmd, &replayFlags)
	if err != nil {
		return err
	}
	logger, err := newLogger(cmd.ErrOrStderr(), replayFlags.logLevel)
	if err != nil {
		return err
	}

	start := time.Now()
	if replayStart != "" {
		start, err = time.Parse(time.RFC3339Nano, replayStart)
		if err != nil {
			return fmt.Errorf("invalid --start: %w", err)
		}
	}
	events, err := readStreamFile(args[0], start)
	if err != nil {
		return err
	}

	sampler := phrases.NewSampler()
	if replaySeed != 0 {
		sampler = phrases.NewSeededSampler(replaySeed)
	}
	clk := clock.NewManual(start)

	rt, err := openRuntime(cmd.Context(), runtimeOptions{
		cfg:         cfg,
		gesture:     gcfg,
		input:       icfg,
		dbPath:      replayFlags.dbPath,
		metricsAddr: replayFlags.metricsAddr,
		logger:      logger,
		clock:       clk,
		sampler:     sampler,
	})
	if err != nil {
		return err
	}
	defer rt.close()

	ctl := rt.engine.Controller()
	out := cmd.OutOrStdout()
	recorded := 0
	for _, ev := range events {
		// A recording has no notion of load latency, so every load finishes
		// before the next event is applied.
		if rt.engine.Loading() {
			if err := rt.engine.Wait(cmd.Context()); err != nil {
				return fmt.Errorf("failed to wait for assets: %w", err)
			}
		}
		clk.Set(ev.Time)
		before := ctl.State()
		rt.engine.Handle(ev)
		if before == session.StateActive && ctl.State() == session.StateEnded {
			recorded++
			if s, ok := ctl.Session(); ok {
				if _, err := fmt.Fprintf(out, "Recorded session %s (%d trials)\n", s.ParticipantID, len(s.Trials)); err != nil {
					return fmt.Errorf("failed to write output: %w", err)
				}
			}
		}
	}

	if ctl.State() == session.StateActive {
		cur, total := ctl.TrialNumber()
		logErrf("Stream ended during trial %d of %d; session discarded\n", cur, total)
	}
	if recorded == 0 {
		logErrln("No session was completed")
	}
	return nil
}

func readStreamFile(path string, start time.Time) ([]input.Event, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input stream: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			logErrf("failed to close input stream: %v\n", cerr)
		}
	}()
	events, err := input.ReadStream(f, start)
	if err != nil {
		return nil, fmt.Errorf("failed to read input stream %s: %w", path, err)
	}
	return events, nil
}
