// Package buildtool drives the external CMake build: configure, compile,
// clean. It interprets nothing about the build beyond its exit code, which
// is passed through to the caller unmodified.
package buildtool

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/GlacierEQ/drogon-autobuild/internal/execx"
	"github.com/GlacierEQ/drogon-autobuild/internal/logger"
	"github.com/GlacierEQ/drogon-autobuild/internal/platform"
)

// ExitError carries the external build tool's own exit code so the process
// can terminate with exactly that status.
type ExitError struct {
	Step string // configure or build
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("cmake %s failed (exit %d)", e.Step, e.Code)
}

// Builder runs the configure and compile steps against one source tree.
type Builder struct {
	Runner    execx.Runner
	Platform  platform.Descriptor
	Toolchain Toolchain

	SourceDir  string
	BuildDir   string
	InstallDir string

	// Jobs is the --parallel count; zero means NumCPU capped at 16.
	Jobs int

	// HistoryPath/OptimizationsPath locate the JSON records; empty disables
	// recording.
	HistoryPath       string
	OptimizationsPath string
}

// DefaultJobs mirrors the scripts' min(cpu_count, 16) choice.
func DefaultJobs() int {
	n := runtime.NumCPU()
	if n > 16 {
		n = 16
	}
	return n
}

// ConfigureArgs assembles the cmake configure invocation.
func (b *Builder) ConfigureArgs() []string {
	args := []string{"cmake", "-S", b.SourceDir, "-B", b.BuildDir}
	if b.Toolchain.Generator != "" {
		args = append(args, "-G", b.Toolchain.Generator)
	}
	if tc := os.Getenv("DROGON_TOOLCHAIN_FILE"); tc != "" {
		args = append(args, "-DCMAKE_TOOLCHAIN_FILE="+tc)
	}
	switch b.Toolchain.Compiler {
	case "gcc":
		args = append(args, "-DCMAKE_C_COMPILER=gcc", "-DCMAKE_CXX_COMPILER=g++")
	case "clang":
		args = append(args, "-DCMAKE_C_COMPILER=clang", "-DCMAKE_CXX_COMPILER=clang++")
	}
	if !b.Toolchain.MultiConfig() {
		args = append(args, "-DCMAKE_BUILD_TYPE=Release")
	}
	if b.InstallDir != "" {
		args = append(args, "-DCMAKE_INSTALL_PREFIX="+b.InstallDir)
	}
	return args
}

// BuildArgs assembles the compile invocation.
func (b *Builder) BuildArgs() []string {
	jobs := b.Jobs
	if jobs <= 0 {
		jobs = DefaultJobs()
	}
	args := []string{"cmake", "--build", b.BuildDir, "--parallel", fmt.Sprint(jobs)}
	if b.Toolchain.MultiConfig() {
		args = append(args, "--config", "Release")
	}
	return args
}

// Configure runs the cmake configure step.
func (b *Builder) Configure() error {
	if err := os.MkdirAll(b.BuildDir, 0755); err != nil {
		return fmt.Errorf("creating build directory: %w", err)
	}
	return b.run("configure", b.ConfigureArgs())
}

// Build runs the compile step. Configure must have succeeded first.
func (b *Builder) Build() error {
	return b.run("build", b.BuildArgs())
}

// Clean removes build outputs: via the generator's clean target when a
// CMake cache exists, otherwise by emptying the build directory.
func (b *Builder) Clean() error {
	if _, err := os.Stat(filepath.Join(b.BuildDir, "CMakeCache.txt")); err == nil {
		return b.run("clean", []string{"cmake", "--build", b.BuildDir, "--target", "clean"})
	}
	entries, err := os.ReadDir(b.BuildDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	for _, entry := range entries {
		if err := os.RemoveAll(filepath.Join(b.BuildDir, entry.Name())); err != nil {
			return err
		}
	}
	return nil
}

// run executes one cmake step with output streamed to the terminal, routing
// through a vcvars wrapper on Windows, and records the invocation.
func (b *Builder) run(step string, args []string) error {
	logger.Stage("==> cmake %s\n", step)
	logger.Debug("[DEBUG] %s\n", strings.Join(args, " "))

	start := time.Now()
	var (
		res execx.Result
		err error
	)
	if b.Platform.Family == platform.Windows && b.Toolchain.VcvarsPath != "" {
		res, err = b.runWithVcvars(args)
	} else {
		res, err = b.Runner.Stream(args[0], args[1:]...)
	}
	duration := time.Since(start)

	b.record(step, strings.Join(args, " "), err == nil && res.ExitCode == 0, duration, res.ExitCode)

	if err != nil {
		return fmt.Errorf("starting cmake: %w", err)
	}
	if res.ExitCode != 0 {
		return &ExitError{Step: step, Code: res.ExitCode}
	}
	return nil
}

// runWithVcvars writes a throwaway batch wrapper that loads the MSVC
// environment before the real command, the same trick the batch scripts
// used, then deletes it.
func (b *Builder) runWithVcvars(args []string) (execx.Result, error) {
	wrapper := filepath.Join(b.BuildDir, "temp_build_cmd.bat")
	content := fmt.Sprintf("@echo off\r\ncall \"%s\" x64\r\n%s\r\n",
		b.Toolchain.VcvarsPath, strings.Join(args, " "))
	if err := os.WriteFile(wrapper, []byte(content), 0755); err != nil {
		return execx.Result{ExitCode: -1}, fmt.Errorf("writing vcvars wrapper: %w", err)
	}
	defer os.Remove(wrapper)
	return b.Runner.Stream(wrapper)
}

func (b *Builder) record(step, command string, success bool, duration time.Duration, exitCode int) {
	if b.HistoryPath == "" {
		return
	}
	hist := LoadHistory(b.HistoryPath).Append(step, command, success, duration, exitCode)
	SaveHistory(b.HistoryPath, hist)

	if step != "build" || !success || b.OptimizationsPath == "" {
		return
	}
	opts := LoadOptimizations(b.OptimizationsPath)
	tuning := opts[runtime.GOOS]
	jobs := tuning.ParallelJobs
	if jobs <= 0 {
		jobs = DefaultJobs()
	}
	tuning.ParallelJobs = TuneJobs(hist, jobs, runtime.NumCPU()*2)
	tuning.Generator = b.Toolchain.Generator
	tuning.Compiler = b.Toolchain.Compiler
	opts[runtime.GOOS] = tuning
	SaveOptimizations(b.OptimizationsPath, opts)
}
