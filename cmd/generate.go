package cmd

import (
	"github.com/spf13/cobra"

	"github.com/GlacierEQ/drogon-autobuild/internal/scaffold"
)

// setupVSCodeCmd writes .vscode/tasks.json with build/configure/clean tasks
// that dispatch back into autobuild.
var setupVSCodeCmd = &cobra.Command{
	Use:   "setup-vscode",
	Short: "Generate VS Code tasks for build, configure and clean",
	Run: func(cmd *cobra.Command, args []string) {
		exitOn(scaffold.WriteVSCodeTasks(sourceDir))
	},
}

// genMakeCmd writes a wrapper Makefile (or auto_make.bat on Windows) that
// re-invokes autobuild.
var genMakeCmd = &cobra.Command{
	Use:   "gen-make",
	Short: "Generate a wrapper Makefile (auto_make.bat on Windows)",
	Run: func(cmd *cobra.Command, args []string) {
		exitOn(scaffold.WriteBuildWrapper(sourceDir))
	},
}

func init() {
	rootCmd.AddCommand(setupVSCodeCmd)
	rootCmd.AddCommand(genMakeCmd)
}
