package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/varoOP/backlogdb/internal/app"
	"github.com/varoOP/backlogdb/internal/domain"
)

var (
	version = "dev"
	commit  = ""
	date    = ""
	cfgFile string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "backlogdb",
	Short: "A personal log of played games and read books",
	Long: `backlogdb keeps a log of the games you played and the books you read,
with ratings, completion dates, cover art and your Xbox play history.

Entries are stored in a local SQLite database or in a Supabase project.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.backlogdb.yaml or ./config.yaml)")
	rootCmd.PersistentFlags().String("backend", "", "record store: 'sqlite' or 'supabase'")
	rootCmd.PersistentFlags().String("database", "", "path of the local SQLite database")
	rootCmd.PersistentFlags().String("log-level", "", "log level: trace, debug, info, warn or error")

	// Bind flags to viper
	viper.BindPFlag("backend", rootCmd.PersistentFlags().Lookup("backend"))
	viper.BindPFlag("database_path", rootCmd.PersistentFlags().Lookup("database"))
	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Search for config in home directory and current directory
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	// Environment variables
	viper.SetEnvPrefix("BACKLOGDB")
	viper.AutomaticEnv()

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
		return
	}

	if cfgFile == "" {
		if home, err := os.UserHomeDir(); err == nil {
			viper.SetConfigFile(home + string(os.PathSeparator) + ".backlogdb.yaml")
			if err := viper.ReadInConfig(); err == nil {
				fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
			}
		}
	}
}

// withApp initializes the application, runs fn and closes it again
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	application, err := app.NewApp()
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	defer application.Close()

	return fn(cmd.Context(), application)
}

// addKindFlag registers --kind on cmd
func addKindFlag(cmd *cobra.Command) {
	cmd.Flags().StringP("kind", "k", "games", "library to use: 'games' or 'books'")
}

func kindOf(cmd *cobra.Command) (domain.Kind, error) {
	s, _ := cmd.Flags().GetString("kind")
	return domain.ParseKind(s)
}
