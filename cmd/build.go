package cmd

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/GlacierEQ/drogon-autobuild/internal/buildtool"
	"github.com/GlacierEQ/drogon-autobuild/internal/execx"
	"github.com/GlacierEQ/drogon-autobuild/internal/platform"
)

// The three editor-facing actions. Each skips provisioning and talks to the
// build delegate directly, so they stay fast enough to hang off an editor
// keybinding; `bootstrap` is the full pipeline.

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Configure and compile (no dependency provisioning)",
	Run: func(cmd *cobra.Command, args []string) {
		builder, err := newBuilder()
		if err != nil {
			exitOn(err)
		}
		if err := builder.Configure(); err != nil {
			exitOn(err)
		}
		exitOn(builder.Build())
	},
}

var configureCmd = &cobra.Command{
	Use:   "configure",
	Short: "Run the CMake configure step only",
	Run: func(cmd *cobra.Command, args []string) {
		builder, err := newBuilder()
		if err != nil {
			exitOn(err)
		}
		exitOn(builder.Configure())
	},
}

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove build outputs",
	Run: func(cmd *cobra.Command, args []string) {
		builder, err := newBuilder()
		if err != nil {
			exitOn(err)
		}
		exitOn(builder.Clean())
	},
}

// newBuilder assembles a build delegate for the current host and the shared
// workspace flags.
func newBuilder() (*buildtool.Builder, error) {
	desc, err := platform.Detect()
	if err != nil {
		return nil, err
	}
	runner := &execx.System{}
	return &buildtool.Builder{
		Runner:            runner,
		Platform:          desc,
		Toolchain:         buildtool.DetectToolchain(desc, runner),
		SourceDir:         sourceDir,
		BuildDir:          buildDir,
		InstallDir:        installDir,
		Jobs:              jobs,
		HistoryPath:       filepath.Join(sourceDir, "build_history.json"),
		OptimizationsPath: filepath.Join(sourceDir, "build_optimizations.json"),
	}, nil
}

func init() {
	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(configureCmd)
	rootCmd.AddCommand(cleanCmd)
}
