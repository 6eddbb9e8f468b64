package cmd

import (
	"github.com/narraflow/narraflow/internal/utils"
	"github.com/spf13/cobra"
)

var (
	// verbosityLevel is the command-line flag for setting the log level
	verbosityLevel string
)

var rootCmd = &cobra.Command{
	Use:   "narraflow",
	Short: "A long-form narration synthesis pipeline",
	Long: `NarraFlow turns annotated narration scripts into finished audio tracks.
Scripts are split into scenes and clauses, each clause is synthesized
separately, pauses are corrected by splicing, and the results are stitched
into a single master track.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Set the global log level based on the flag
		logLevel := utils.LogLevelFromString(verbosityLevel)
		utils.SetLogLevel(logLevel)
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Initialize global flags
	rootCmd.PersistentFlags().StringVarP(&verbosityLevel, "log-level", "l", "normal",
		"Set the logging verbosity level: quiet, normal, verbose, debug")
}
