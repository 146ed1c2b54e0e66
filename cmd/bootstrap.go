package cmd

import (
	"path/filepath"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"

	"github.com/GlacierEQ/drogon-autobuild/internal/pipeline"
)

// Shared workspace flags. The same layout feeds both the full bootstrap
// pipeline and the standalone build commands.
var (
	manifestPath string
	sourceDir    string
	buildDir     string
	installDir   string
	binDir       string
	vcpkgRoot    string
	jobs         int
)

// bootstrapCmd runs the whole provisioning pipeline and then the build:
// probe the platform, check privileges, install dependencies, persist the
// environment, and hand off to cmake.
var bootstrapCmd = &cobra.Command{
	Use:   "bootstrap",
	Short: "Provision this host and build: detect platform, install deps, set env, run cmake",
	Run: func(cmd *cobra.Command, args []string) {
		exitOn(pipeline.New(pipelineOptions()).Run())
	},
}

func pipelineOptions() pipeline.Options {
	return pipeline.Options{
		ManifestPath:      manifestPath,
		BinDir:            binDir,
		VcpkgRoot:         vcpkgRoot,
		SourceDir:         sourceDir,
		BuildDir:          buildDir,
		InstallDir:        installDir,
		Jobs:              jobs,
		HistoryPath:       filepath.Join(sourceDir, "build_history.json"),
		OptimizationsPath: filepath.Join(sourceDir, "build_optimizations.json"),
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&manifestPath, "config", "c", "autobuild.yaml", "Optional dependency manifest overriding the built-in tables")
	pf.StringVar(&sourceDir, "source", ".", "CMake source directory")
	pf.StringVar(&buildDir, "build-dir", "build", "Build output directory")
	pf.StringVar(&installDir, "install-dir", "install", "Install prefix")
	pf.StringVar(&binDir, "bin-dir", defaultBinDir(), "Directory for portable tools fetched during bootstrap")
	pf.StringVar(&vcpkgRoot, "vcpkg-root", "", "vcpkg tree location (Windows)")
	pf.IntVar(&jobs, "jobs", 0, "Parallel build jobs (0 = auto)")

	rootCmd.AddCommand(bootstrapCmd)
}

// defaultBinDir is ~/.autobuild/bin, or a relative fallback when the home
// directory cannot be resolved.
func defaultBinDir() string {
	home, err := homedir.Dir()
	if err != nil {
		return filepath.Join(".autobuild", "bin")
	}
	return filepath.Join(home, ".autobuild", "bin")
}
