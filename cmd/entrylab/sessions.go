package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/verte-zerg/entrylab/internal/config"
	"github.com/verte-zerg/entrylab/internal/export"
	"github.com/verte-zerg/entrylab/internal/report"
	"github.com/verte-zerg/entrylab/internal/store"
)

var (
	sessionsDB     string
	sessionsLimit  int
	sessionsTrials bool
)

func newSessionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List recorded sessions",
		Args:  cobra.NoArgs,
		RunE:  runSessionsCmd,
	}
	cmd.PersistentFlags().StringVar(&sessionsDB, "db", config.DefaultDBPath(), "SQLite database path")
	cmd.Flags().IntVar(&sessionsLimit, "limit", 20, "maximum sessions to list (0 lists all)")

	showCmd := &cobra.Command{
		Use:   "show <participant>",
		Short: "Print one recorded session",
		Args:  cobra.ExactArgs(1),
		RunE:  runSessionsShowCmd,
	}
	showCmd.Flags().BoolVar(&sessionsTrials, "trials", false, "print a trial table instead of the JSON record")
	cmd.AddCommand(showCmd)
	return cmd
}

func openSessionStore() (*store.Store, error) {
	st, err := store.Open(sessionsDB)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}
	return st, nil
}

func runSessionsCmd(cmd *cobra.Command, _ []string) (err error) {
	if sessionsLimit < 0 {
		return fmt.Errorf("--limit must be >= 0")
	}
	st, err := openSessionStore()
	if err != nil {
		return err
	}
	defer func() {
		if cerr := st.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close db: %w", cerr)
		}
	}()

	summaries, err := st.ListSessions(cmd.Context(), sessionsLimit)
	if err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}
	if len(summaries) == 0 {
		return report.Empty(cmd.OutOrStdout(), "sessions")
	}
	return report.SessionTable(summaries).Render(cmd.OutOrStdout())
}

func runSessionsShowCmd(cmd *cobra.Command, args []string) (err error) {
	st, err := openSessionStore()
	if err != nil {
		return err
	}
	defer func() {
		if cerr := st.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close db: %w", cerr)
		}
	}()

	s, err := st.LoadSession(cmd.Context(), args[0])
	if err != nil {
		if isNotFound(err) {
			return fmt.Errorf("no session recorded for participant %q", args[0])
		}
		return fmt.Errorf("failed to load session: %w", err)
	}
	if sessionsTrials {
		return report.TrialTable(s).Render(cmd.OutOrStdout())
	}
	data, err := export.Marshal(s)
	if err != nil {
		return err
	}
	if _, err := cmd.OutOrStdout().Write(data); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
