package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/varoOP/backlogdb/internal/app"
)

var exportCmd = &cobra.Command{
	Use:   "export <file>",
	Short: "Write a library to a JSON or YAML file",
	Long: `Write every entry of the signed in user to a file. The format follows the extension:
.yaml and .yml are written as YAML, anything else as JSON.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, err := kindOf(cmd)
		if err != nil {
			return err
		}

		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			n, err := a.Export(ctx, kind, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d %s to %s\n", n, kind, args[0])
			return nil
		})
	},
}

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Log every entry of an exported file",
	Long: `Create an entry for every record of an exported file. Ids in the file are ignored,
new ids are generated. The import stops at the first invalid entry.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, err := kindOf(cmd)
		if err != nil {
			return err
		}

		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			n, err := a.Import(ctx, kind, args[0])
			if err != nil {
				return fmt.Errorf("imported %d entries before failing: %w", n, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d %s from %s\n", n, kind, args[0])
			return nil
		})
	},
}

func init() {
	addKindFlag(exportCmd)
	addKindFlag(importCmd)

	rootCmd.AddCommand(exportCmd, importCmd)
}
