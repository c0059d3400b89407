// Package cmd wires together the seshat command line interface.
package cmd

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kverlan/seshat/cmd/compare"
	"github.com/kverlan/seshat/cmd/migrate"
	"github.com/kverlan/seshat/cmd/snapshot"
)

var rootCmd = &cobra.Command{
	Use:   "seshat",
	Short: "Schema comparison and migration SQL generation",
	Long: `Seshat compares the schemas of two databases (or saved snapshots) and
generates the SQL migration that transforms one into the other.

All flags can also be provided through SESHAT_* environment variables or a
.env file in the working directory.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, _ []string) {
		if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
				Level: slog.LevelDebug,
			})))
		}
	},
}

// Execute runs the root command. It is the entry point called from main.
func Execute() error {
	// A missing .env file is not an error, flags and real env still apply.
	_ = godotenv.Load()

	viper.SetEnvPrefix("SESHAT")
	viper.AutomaticEnv()

	rootCmd.PersistentFlags().Bool("verbose", false, "Enable debug logging")

	rootCmd.AddCommand(compare.NewCompareCommand())
	rootCmd.AddCommand(migrate.NewMigrateCommand())
	rootCmd.AddCommand(snapshot.NewSnapshotCommand())

	return rootCmd.Execute()
}
