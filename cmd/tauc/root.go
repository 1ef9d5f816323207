package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/gmofishsauce/tauc/internal/logger"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "tauc",
	Short: "Tau compiler and bytecode VM driver",
	Long: `tauc lexes, parses, analyzes, and compiles Tau source to bytecode,
and runs compiled bytecode on the register VM.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		logger.Init(logger.Options{Enabled: verbose, Level: level})
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.AddCommand(lexCmd, parseCmd, buildCmd, runCmd)
}
