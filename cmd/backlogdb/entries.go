package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/varoOP/backlogdb/internal/app"
	"github.com/varoOP/backlogdb/internal/cover"
	"github.com/varoOP/backlogdb/internal/domain"
	"github.com/varoOP/backlogdb/internal/sorting"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List logged games or books",
	Long: `List one page of the signed in user's games or books.

Examples:
  backlogdb list --order rating
  backlogdb list -k books --name dune --direction asc
  backlogdb list --page 2 --page-size 20`,
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, err := kindOf(cmd)
		if err != nil {
			return err
		}
		order, err := domain.ParseOrderMode(flagString(cmd, "order"))
		if err != nil {
			return err
		}
		dir, err := domain.ParseDirection(flagString(cmd, "direction"))
		if err != nil {
			return err
		}
		page, _ := cmd.Flags().GetInt("page")
		pageSize, _ := cmd.Flags().GetInt("page-size")
		covers, _ := cmd.Flags().GetBool("covers")

		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			b, err := a.Browser(kind)
			if err != nil {
				return err
			}
			if pageSize <= 0 {
				pageSize = a.Config().PageSize
			}

			res, err := b.Load(ctx, domain.ListParams{
				NameFilter: flagString(cmd, "name"),
				Order:      order,
				Direction:  dir,
				Page:       page,
				PageSize:   pageSize,
			})
			if err != nil {
				return err
			}

			if covers {
				printEntriesWithCovers(cmd.OutOrStdout(), kind, res.Entries, resolveCovers(ctx, a, kind, res.Entries))
			} else {
				printEntries(cmd.OutOrStdout(), kind, res.Entries)
			}

			pages := max(sorting.PageCount(res.TotalCount, pageSize), 1)
			fmt.Fprintf(cmd.OutOrStdout(), "\nPage %d of %d (%d %s)\n", page, pages, res.TotalCount, kind)
			return nil
		})
	},
}

var showCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one entry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, err := kindOf(cmd)
		if err != nil {
			return err
		}
		id, err := parseID(args[0])
		if err != nil {
			return err
		}

		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			b, err := a.Browser(kind)
			if err != nil {
				return err
			}
			e, err := b.Get(ctx, id)
			if err != nil {
				return err
			}

			printEntry(cmd.OutOrStdout(), kind, e)
			return nil
		})
	},
}

var addCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Log a new game or book",
	Long: `Log a new game or book for the signed in user.

Dates are accepted as DD/MM/YYYY or YYYY-MM-DD. Ratings range from 0 to 5 in steps of 0.25.

Examples:
  backlogdb add "Hades" --logged 10/02/2023 --rating 4.75 --completed 01/05/2023
  backlogdb add -k books "Dune" --logged 2024-01-01`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, err := kindOf(cmd)
		if err != nil {
			return err
		}

		e := domain.Entry{
			Name:            args[0],
			LoggedDate:      flagString(cmd, "logged"),
			CompletionDate:  flagString(cmd, "completed"),
			ExternalTitleID: flagString(cmd, "title-id"),
		}
		if cmd.Flags().Changed("rating") {
			r, _ := cmd.Flags().GetFloat64("rating")
			e.Rating = domain.Rating(r)
		}

		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			b, err := a.Browser(kind)
			if err != nil {
				return err
			}

			id, err := b.Create(ctx, e)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %s entry %d\n", kind, id)
			return nil
		})
	},
}

var editCmd = &cobra.Command{
	Use:   "edit <id>",
	Short: "Change fields of an entry",
	Long: `Change the fields of an entry. Only the flags given are changed, an empty value clears
an optional field.

Examples:
  backlogdb edit 12 --rating 5
  backlogdb edit 12 --completed ""
  backlogdb edit 12 --no-rating`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, err := kindOf(cmd)
		if err != nil {
			return err
		}
		id, err := parseID(args[0])
		if err != nil {
			return err
		}

		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			b, err := a.Browser(kind)
			if err != nil {
				return err
			}
			e, err := b.Get(ctx, id)
			if err != nil {
				return err
			}

			flags := cmd.Flags()
			if flags.Changed("name") {
				e.Name = flagString(cmd, "name")
			}
			if flags.Changed("logged") {
				e.LoggedDate = flagString(cmd, "logged")
			}
			if flags.Changed("completed") {
				e.CompletionDate = flagString(cmd, "completed")
			}
			if flags.Changed("title-id") {
				e.ExternalTitleID = flagString(cmd, "title-id")
			}
			if flags.Changed("rating") {
				r, _ := flags.GetFloat64("rating")
				e.Rating = domain.Rating(r)
			}
			if noRating, _ := flags.GetBool("no-rating"); noRating {
				e.Rating = nil
			}

			if err := b.Update(ctx, id, *e); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated %s entry %d\n", kind, id)
			return nil
		})
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete an entry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, err := kindOf(cmd)
		if err != nil {
			return err
		}
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		if yes, _ := cmd.Flags().GetBool("yes"); !yes {
			return fmt.Errorf("refusing to delete %s entry %d without --yes", kind, id)
		}

		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			b, err := a.Browser(kind)
			if err != nil {
				return err
			}
			if err := b.Delete(ctx, id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s entry %d\n", kind, id)
			return nil
		})
	},
}

func init() {
	for _, c := range []*cobra.Command{listCmd, showCmd, addCmd, editCmd, deleteCmd} {
		addKindFlag(c)
	}

	listCmd.Flags().String("order", "chronological", "ordering: chronological, alphabetical or rating")
	listCmd.Flags().String("direction", "desc", "direction: asc or desc")
	listCmd.Flags().String("name", "", "only entries whose name contains this text")
	listCmd.Flags().Int("page", 1, "page to show, starting at 1")
	listCmd.Flags().Int("page-size", 0, "entries per page (default from page_size)")
	listCmd.Flags().Bool("covers", false, "resolve and show the cover source of every row")

	for _, c := range []*cobra.Command{addCmd, editCmd} {
		c.Flags().String("logged", "", "date the entry was logged")
		c.Flags().String("completed", "", "date the game was completed 100% (games only)")
		c.Flags().Float64("rating", 0, "rating from 0 to 5 in steps of 0.25")
		c.Flags().String("title-id", "", "Xbox title id (games only)")
	}
	editCmd.Flags().String("name", "", "new name")
	editCmd.Flags().Bool("no-rating", false, "remove the rating")
	addCmd.MarkFlagRequired("logged")

	deleteCmd.Flags().Bool("yes", false, "confirm the deletion")

	rootCmd.AddCommand(listCmd, showCmd, addCmd, editCmd, deleteCmd)
}

func printEntries(out io.Writer, kind domain.Kind, entries []domain.Entry) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	defer w.Flush()

	if kind == domain.KindGame {
		fmt.Fprintln(w, "ID\tNAME\tLOGGED\tRATING\t100%")
	} else {
		fmt.Fprintln(w, "ID\tNAME\tLOGGED\tRATING")
	}

	for _, e := range entries {
		if kind == domain.KindGame {
			trophy := ""
			if e.Completed() {
				trophy = e.CompletionDate
			}
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", e.ID, e.Name, e.LoggedDate, ratingText(e), trophy)
			continue
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", e.ID, e.Name, e.LoggedDate, ratingText(e))
	}
}

// resolveCovers resolves the cover of every row in one batch
func printEntry(out io.Writer, kind domain.Kind, e *domain.Entry) {
	fmt.Fprintf(out, "Id:          %d\n", e.ID)
	fmt.Fprintf(out, "Name:        %s\n", e.Name)
	fmt.Fprintf(out, "Logged:      %s\n", e.LoggedDate)
	if kind == domain.KindGame {
		fmt.Fprintf(out, "Completed:   %s\n", orDash(e.CompletionDate))
		fmt.Fprintf(out, "Title id:    %s\n", orDash(e.ExternalTitleID))
	}
	fmt.Fprintf(out, "Rating:      %s\n", ratingText(*e))
}

func resolveCovers(ctx context.Context, a *app.App, kind domain.Kind, entries []domain.Entry) map[string]domain.ImageRef {
	reqs := make([]cover.Request, 0, len(entries))
	for _, e := range entries {
		reqs = append(reqs, a.CoverRequest(kind, e))
	}
	return a.Resolver().ResolveAll(ctx, reqs)
}

func printEntriesWithCovers(out io.Writer, kind domain.Kind, entries []domain.Entry, covers map[string]domain.ImageRef) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	defer w.Flush()

	fmt.Fprintln(w, "ID\tNAME\tLOGGED\tRATING\tCOVER")
	for _, e := range entries {
		src := "-"
		if ref, ok := covers[e.Name]; ok {
			src = string(ref.Source)
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", e.ID, e.Name, e.LoggedDate, ratingText(e), src)
	}
}

func ratingText(e domain.Entry) string {
	if !e.Rated() {
		return "-"
	}
	return strconv.FormatFloat(e.RatingValue(), 'f', -1, 64)
}

func parseID(s string) (int, error) {
	id, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

func flagString(cmd *cobra.Command, name string) string {
	v, _ := cmd.Flags().GetString(name)
	return v
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
