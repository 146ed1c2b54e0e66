package cmd

import (
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/GlacierEQ/drogon-autobuild/internal/buildtool"
	"github.com/GlacierEQ/drogon-autobuild/internal/logger"
)

// debug toggles verbose logging via the global --debug flag.
var debug bool

// rootCmd is the base command for the autobuild CLI.
var rootCmd = &cobra.Command{
	Use:   "autobuild",
	Short: "Provision build dependencies and drive the Drogon CMake build",

	// Initialize the logger before any subcommand runs.
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger.Init(debug)
	},
}

// Execute parses arguments and runs the selected subcommand. It is the CLI
// entry point invoked by main.
func Execute() {
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// exitOn terminates the process on err. A build-tool failure exits with the
// external tool's own code, untouched; everything else exits 1.
func exitOn(err error) {
	if err == nil {
		return
	}
	logger.Error("[ERROR] %v\n", err)

	var exitErr *buildtool.ExitError
	if errors.As(err, &exitErr) {
		os.Exit(exitErr.Code)
	}
	os.Exit(1)
}
