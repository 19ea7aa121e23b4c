package main

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/varoOP/backlogdb/internal/app"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the cover and history proxy",
	Long: `Run the HTTP proxy that keeps the image search and OpenXBL credentials off the clients.

Endpoints:
  GET /health
  GET /cover-proxy?query=<text>
  GET /history-proxy?subjectId=<xuid>

Requests must carry a bearer token signed with jwt_secret when it is set.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			srv, err := a.Server()
			if err != nil {
				return err
			}

			err = srv.ListenAndServe(ctx, a.Config().ListenAddr)
			if err != nil {
				a.NotifyError(context.WithoutCancel(ctx), err)
			}
			return err
		})
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (default from listen_addr)")
	viper.BindPFlag("listen_addr", serveCmd.Flags().Lookup("addr"))

	rootCmd.AddCommand(serveCmd)
}
