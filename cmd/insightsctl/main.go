package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"review-insights-go/internal/config"
	"review-insights-go/internal/logger"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	_ = godotenv.Load()

	if err := buildRootCmd().Execute(); err != nil {
		logger.New().WithError(err).Error("command failed")
		os.Exit(1)
	}
}

type rootOptions struct {
	configPath string
}

func (o *rootOptions) load() (config.Config, error) {
	return config.Load(o.configPath)
}

func buildRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "insightsctl",
		Short: "InstaReview analytics tooling",
		Long: `Generate weekly customer feedback reports, run them on a schedule,
and follow the analytics widget from a terminal.

Settings come from an optional YAML file and the environment (.env is loaded).`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", os.Getenv("INSIGHTS_CONFIG"), "Path to YAML configuration file")

	cmd.AddCommand(
		buildReportCmd(opts),
		buildScheduleCmd(opts),
		buildWatchCmd(opts),
		buildVersionCmd(),
	)
	return cmd
}

func buildVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "insightsctl %s (commit: %s, built: %s)\n", version, commit, date)
		},
	}
}
