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
	"github.com/varoOP/backlogdb/internal/stats"
)

var monthNames = [12]string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show statistics of a library",
	Long: `Show totals, average rating, entries per year, the top years, recently logged
and best rated entries.

Use --year to break one year down by month and --notify to post the summary to Discord.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, err := kindOf(cmd)
		if err != nil {
			return err
		}
		year, _ := cmd.Flags().GetInt("year")
		notify, _ := cmd.Flags().GetBool("notify")

		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			entries, err := a.Entries(ctx, kind, domain.OrderChronological, domain.Descending)
			if err != nil {
				return err
			}

			summary := stats.Compute(entries, time.Now())
			out := cmd.OutOrStdout()
			printSummary(out, kind, summary)

			if year > 0 {
				fmt.Fprintf(out, "\n%d by month\n", year)
				w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
				for i, n := range stats.ByMonth(entries, year) {
					fmt.Fprintf(w, "  %s\t%d\n", monthNames[i], n)
				}
				w.Flush()
			}

			if notify {
				if err := a.Notify(ctx, kind, summary); err != nil {
					return err
				}
				fmt.Fprintln(out, "\nSummary sent")
			}
			return nil
		})
	},
}

func init() {
	addKindFlag(statsCmd)
	statsCmd.Flags().Int("year", 0, "break this year down by month")
	statsCmd.Flags().Bool("notify", false, "send the summary to the discord webhook")

	rootCmd.AddCommand(statsCmd)
}

func printSummary(out io.Writer, kind domain.Kind, s domain.Summary) {
	fmt.Fprintf(out, "Logged:          %d %s\n", s.Total, kind)
	if kind == domain.KindGame {
		fmt.Fprintf(out, "Completed 100%%:  %d\n", s.Completed)
	}
	fmt.Fprintf(out, "Average rating:  %.2f (%d rated)\n", s.AverageRating, s.Rated)
	fmt.Fprintf(out, "Per year:        %.1f\n", s.AveragePerYear)

	if len(s.TopYears) > 0 {
		fmt.Fprintln(out, "\nTop years")
		for i, y := range s.TopYears {
			fmt.Fprintf(out, "  %d. %d  %d\n", i+1, y.Year, y.Count)
		}
	}
	if !s.CurrentYearInTop && s.CurrentYear.Count > 0 {
		fmt.Fprintf(out, "  This year (%d)  %d\n", s.CurrentYear.Year, s.CurrentYear.Count)
	}

	if len(s.Years) > 0 {
		fmt.Fprintln(out, "\nBy year")
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "  YEAR\tLOGGED\tCOMPLETED")
		for _, y := range s.Years {
			fmt.Fprintf(w, "  %d\t%d\t%d\n", y, s.ByYear[y], s.CompletedByYear[y])
		}
		w.Flush()
	}

	if len(s.RecentlyLogged) > 0 {
		fmt.Fprintln(out, "\nRecently logged")
		printEntries(out, kind, s.RecentlyLogged)
	}
	if len(s.BestRated) > 0 {
		fmt.Fprintln(out, "\nBest rated")
		printEntries(out, kind, s.BestRated)
	}
}
