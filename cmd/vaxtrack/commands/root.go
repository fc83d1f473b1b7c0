package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	configFile string
	env        string
	verbose    bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "vaxtrack",
	Short: "vaxtrack - COVID-19 vaccination coverage reports",
	Long: `vaxtrack Unified CLI

Builds vaccination coverage reports from the Our World in Data COVID-19 dataset:
rankings, per-day series, choropleth maps and GDP correlation plots.

Usage:
  go run ./cmd/vaxtrack [command]

Examples:
  go run ./cmd/vaxtrack fetch
  go run ./cmd/vaxtrack report all
  go run ./cmd/vaxtrack top -n 20 --mode last_seen
  go run ./cmd/vaxtrack api`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
// Ctrl+C cancels the command context.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return rootCmd.ExecuteContext(ctx)
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "report definitions YAML (default is the built-in set)")
	rootCmd.PersistentFlags().StringVar(&env, "env", "", "environment override (development|staging|production)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
