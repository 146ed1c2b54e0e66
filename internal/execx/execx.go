// Package execx funnels every child-process invocation (package managers,
// bootstrap installers, cmake) through one small interface so the stages can
// be exercised in tests with fake commands on a temp PATH.
package execx

import (
	"errors"
	"os"
	"os/exec"
	"strings"

	"github.com/GlacierEQ/drogon-autobuild/internal/logger"
)

// Result carries what a finished child process left behind.
type Result struct {
	ExitCode int
	Output   string // combined stdout+stderr, empty for streamed runs
}

// Runner executes external commands. Exactly two modes exist: captured
// (package-manager probes, version checks) and streamed (long builds whose
// output the user should watch live).
type Runner interface {
	// Run executes name with args, capturing combined output.
	// A non-zero exit is not an error; it is reported in Result.ExitCode.
	// err is reserved for failures to start the process at all.
	Run(name string, args ...string) (Result, error)

	// Stream executes name with args wired to the caller's stdio.
	Stream(name string, args ...string) (Result, error)

	// LookPath reports whether name resolves to an executable.
	LookPath(name string) bool
}

// System is the Runner backed by os/exec.
type System struct {
	// Env, when non-nil, replaces the child environment. The build delegate
	// uses this to hand freshly-applied path entries to cmake.
	Env []string
	// Dir, when set, is the working directory for every run.
	Dir string
}

func (s *System) Run(name string, args ...string) (Result, error) {
	logger.Debug("[DEBUG] exec: %s %s\n", name, strings.Join(args, " "))
	cmd := exec.Command(name, args...)
	cmd.Dir = s.Dir
	if s.Env != nil {
		cmd.Env = s.Env
	}
	out, err := cmd.CombinedOutput()
	return result(string(out), err)
}

func (s *System) Stream(name string, args ...string) (Result, error) {
	logger.Debug("[DEBUG] exec (streamed): %s %s\n", name, strings.Join(args, " "))
	cmd := exec.Command(name, args...)
	cmd.Dir = s.Dir
	if s.Env != nil {
		cmd.Env = s.Env
	}
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	err := cmd.Run()
	return result("", err)
}

func (s *System) LookPath(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}

func result(output string, err error) (Result, error) {
	if err == nil {
		return Result{ExitCode: 0, Output: output}, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return Result{ExitCode: exitErr.ExitCode(), Output: output}, nil
	}
	// The process never started (binary missing, permission denied).
	return Result{ExitCode: -1, Output: output}, err
}
