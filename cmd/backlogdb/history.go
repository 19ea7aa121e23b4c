package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/varoOP/backlogdb/internal/app"
	"github.com/varoOP/backlogdb/internal/domain"
	"github.com/varoOP/backlogdb/internal/history"
)

const recentTitles = 10

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Xbox play history of the signed in user",
}

var historyShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show recently played titles",
	Long: `Show the cached play history, most recently played first, marking titles that are
already logged. A stale or missing history is refreshed in the background; with --wait the
command waits for the refresh to finish.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		all, _ := cmd.Flags().GetBool("all")
		wait, _ := cmd.Flags().GetDuration("wait")

		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			key, err := historyKey(a)
			if err != nil {
				return err
			}

			events, cancel := a.History().Subscribe()
			defer cancel()

			snap, status := a.History().Read(ctx, key)
			if status.State == history.StateRefreshing && wait > 0 {
				snap = awaitRefresh(ctx, events, key, wait, snap)
				status = a.History().Status(ctx, key)
			}

			entries, err := a.Entries(ctx, domain.KindGame, domain.OrderChronological, domain.Descending)
			if err != nil {
				return err
			}

			merged := history.Merge(entries, snap)
			if !all {
				merged = history.Recent(merged, recentTitles)
			}

			out := cmd.OutOrStdout()
			printStatus(out, status)
			printHistory(out, merged)
			return nil
		})
	},
}

var historyRefreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Fetch the play history now",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			key, err := historyKey(a)
			if err != nil {
				return err
			}

			snap, err := a.History().Refresh(ctx, key)
			if err != nil {
				return fmt.Errorf("failed to refresh history: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Fetched %d titles\n", len(snap.Titles))
			return nil
		})
	},
}

func init() {
	historyShowCmd.Flags().Bool("all", false, "show every title instead of the most recent ones")
	historyShowCmd.Flags().Duration("wait", 30*time.Second, "how long to wait for a background refresh (0 to not wait)")

	historyCmd.AddCommand(historyShowCmd, historyRefreshCmd)
	rootCmd.AddCommand(historyCmd)
}

func historyKey(a *app.App) (string, error) {
	s, err := a.Session()
	if err != nil {
		return "", err
	}
	key := s.User.HistoryKey()
	if key == "" {
		return "", fmt.Errorf("%s has no xuid, play history is unavailable", displayName(s.User))
	}
	return key, nil
}

// awaitRefresh blocks until the refresh of key completes and returns its snapshot, or prev on timeout
func awaitRefresh(ctx context.Context, events <-chan history.Event, key string, wait time.Duration, prev *domain.HistorySnapshot) *domain.HistorySnapshot {
	timer := time.NewTimer(wait)
	defer timer.Stop()

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return prev
			}
			if ev.UserKey != key {
				continue
			}
			if ev.Snapshot != nil {
				return ev.Snapshot
			}
			return prev
		case <-timer.C:
			return prev
		case <-ctx.Done():
			return prev
		}
	}
}

func printStatus(out io.Writer, st history.Status) {
	switch st.State {
	case history.StateAbsent:
		fmt.Fprintln(out, "No play history yet")
	case history.StateRefreshing:
		fmt.Fprintln(out, "Refreshing play history...")
	default:
		fmt.Fprintf(out, "Play history fetched %s (%s)\n", st.FetchedAt.Local().Format("02/01/2006 15:04"), st.State)
	}
	if st.LastError != nil {
		fmt.Fprintf(out, "Last refresh failed: %v\n", st.LastError)
	}
}

func printHistory(out io.Writer, merged []history.MergedTitle) {
	if len(merged) == 0 {
		return
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	defer w.Flush()

	fmt.Fprintln(w, "\nLAST PLAYED\tTITLE\tLOGGED")
	for _, m := range merged {
		logged := ""
		if m.Logged {
			logged = fmt.Sprintf("yes (#%d)", m.Entry.ID)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", m.Title.LastPlayed.Local().Format("02/01/2006"), m.Title.Name, logged)
	}
}
