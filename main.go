package main

import (
	"github.com/GlacierEQ/drogon-autobuild/cmd"
)

// main is the program entry point.
// It delegates to cmd.Execute() which handles command line argument parsing and execution.
//
// drogon-autobuild provisions a host for building the Drogon C++ web framework
// and then drives the CMake build itself:
//   - Probes the host operating system and, on Linux, the distribution family,
//     to pick exactly one package manager (apt, dnf, brew, or vcpkg)
//   - Checks for the privileges a system-wide install needs (a hard gate on
//     Windows, advisory on POSIX)
//   - Installs the framework's build prerequisites (compiler toolchain, CMake,
//     OpenSSL, jsoncpp, zlib, brotli, uuid, optional database clients),
//     skipping anything already present so re-runs are idempotent
//   - Persists the new search/library paths into the shell profile or the
//     Windows user environment, and mirrors them into the current process
//   - Invokes cmake configure + build, passing the build tool's exit code
//     through unchanged
//
// Every stage is safe to re-run; the documented recovery path for an
// interrupted run is simply running the command again.
func main() {
	cmd.Execute()
}
