package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/interviewd/internal/interview"
)

func newSessionsCmd() *cobra.Command {
	var (
		userID string
		limit  int
	)
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List a candidate's recent sessions",
		Long: `List a candidate's sessions, newest first.

Examples:
  interviewd sessions --user u1
  interviewd sessions --user u1 --limit 5`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if limit < 1 {
				return fmt.Errorf("--limit must be positive")
			}
			ctx := cmd.Context()
			rt, err := newRuntime(ctx, configPath)
			if err != nil {
				return err
			}
			defer func() { _ = rt.Close(context.Background()) }()

			sessions, err := rt.store.ListSessions(ctx, userID, limit)
			if err != nil {
				return err
			}
			if len(sessions) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No sessions for %s\n", userID)
				return nil
			}
			return writeSessions(cmd.OutOrStdout(), sessions, time.Now())
		},
	}
	cmd.Flags().StringVarP(&userID, "user", "u", "", "candidate id")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum sessions to list")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

// writeSessions prints one row per session with ages relative to now.
func writeSessions(out io.Writer, sessions []*interview.Session, now time.Time) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SESSION\tTOPIC\tPHASE\tSTATUS\tQUESTIONS\tSCORE\tUPDATED")
	for _, s := range sessions {
		score := "-"
		if s.Feedback != nil {
			score = humanize.FtoaWithDigits(s.Feedback.OverallScore, 1)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
			s.ID,
			s.Topic,
			s.Phase,
			s.Status,
			s.TotalQuestions,
			score,
			humanize.RelTime(s.UpdatedAt, now, "ago", "from now"),
		)
	}
	return w.Flush()
}
