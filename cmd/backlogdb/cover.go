package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/varoOP/backlogdb/internal/app"
)

const previewLength = 80

var coverCmd = &cobra.Command{
	Use:   "cover <id>",
	Short: "Resolve the cover image of an entry",
	Long: `Resolve the cover of an entry: a local image, a cached result, the Xbox display image
or a web image search, falling back to the placeholder.`,
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

			ref := a.Resolver().Resolve(ctx, a.CoverRequest(kind, *e))

			value := ref.Value
			if full, _ := cmd.Flags().GetBool("full"); !full && len(value) > previewLength {
				value = value[:previewLength] + "..."
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", ref.Source, value)
			return nil
		})
	},
}

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the cover image cache",
}

var cacheEvictCmd = &cobra.Command{
	Use:   "evict <name>",
	Short: "Drop the cached cover of one entry name",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			if err := a.Images().DeleteImage(ctx, args[0]); err != nil {
				return fmt.Errorf("failed to evict %q: %w", args[0], err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Evicted %s\n", args[0])
			return nil
		})
	},
}

var cachePurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Drop every cached cover",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			n, err := a.Images().PurgeImages(ctx)
			if err != nil {
				return fmt.Errorf("failed to purge cache: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Purged %d cached covers\n", n)
			return nil
		})
	},
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Count the cached covers",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			n, err := a.Images().CountImages(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d cached covers\n", n)
			return nil
		})
	},
}

func init() {
	addKindFlag(coverCmd)
	coverCmd.Flags().Bool("full", false, "print the whole image reference")

	cacheCmd.AddCommand(cacheEvictCmd, cachePurgeCmd, cacheStatsCmd)
	rootCmd.AddCommand(coverCmd, cacheCmd)
}
