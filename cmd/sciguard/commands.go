package main

import (
	"github.com/spf13/cobra"
)

var (
	configPath string
	outputDir  string
	logLevel   string
	logJSON    bool
	noDisplay  bool

	rootCmd = &cobra.Command{
		Use:           "sciguard",
		Short:         "Model validation checks for tabular datasets",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	weakSegmentsCmd = &cobra.Command{
		Use:   "weak-segments",
		Short: "Search pairs of features for the segments where the model performs worst",
		Long: `weak-segments loads a CSV dataset described by a YAML config, trains a
decision tree when the config names no predictions column, and reports the
weakest segment found for each pair of top features.`,
		Args: cobra.NoArgs,
		RunE: runWeakSegments,
	}
)

func init() {
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "emit Cloud Logging style JSON logs through slog")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override the config log level (debug, info, warn, error)")

	weakSegmentsCmd.Flags().StringVarP(&configPath, "config", "c", "sciguard.yaml", "path to the run config")
	weakSegmentsCmd.Flags().StringVarP(&outputDir, "output", "o", "", "directory for heatmap PNGs, overrides output.dir")
	weakSegmentsCmd.Flags().BoolVar(&noDisplay, "no-display", false, "skip building heatmap panels")

	rootCmd.AddCommand(weakSegmentsCmd)
}
