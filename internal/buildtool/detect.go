package buildtool

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/GlacierEQ/drogon-autobuild/internal/execx"
	"github.com/GlacierEQ/drogon-autobuild/internal/logger"
	"github.com/GlacierEQ/drogon-autobuild/internal/platform"
)

// Toolchain captures what the host can compile with and which CMake
// generator to drive it through.
type Toolchain struct {
	Compiler  string // gcc, clang or msvc
	Generator string // Ninja, Unix Makefiles, or a Visual Studio generator
	// VcvarsPath, when set, is the vcvarsall.bat the build must run under.
	VcvarsPath string
}

// visualStudioRoots lists install roots to scan, newest first. A VS_PATH
// environment override is checked ahead of these.
var visualStudioRoots = []string{
	`C:\Program Files\Microsoft Visual Studio\2022`,
	`C:\Program Files\Microsoft Visual Studio\2019`,
	`C:\Program Files (x86)\Microsoft Visual Studio\2019`,
}

var visualStudioEditions = []string{"Community", "Professional", "Enterprise", "BuildTools"}

// DetectToolchain probes compilers and generators the way the build scripts
// did: prefer gcc on Linux, clang on macOS, MSVC on Windows; prefer Ninja
// everywhere, falling back to the platform's native generator.
func DetectToolchain(d platform.Descriptor, r execx.Runner) Toolchain {
	tc := Toolchain{Generator: "Ninja"}

	switch d.Family {
	case platform.Linux:
		switch {
		case r.LookPath("gcc"):
			tc.Compiler = "gcc"
		case r.LookPath("clang"):
			tc.Compiler = "clang"
		}
		if !r.LookPath("ninja") {
			tc.Generator = "Unix Makefiles"
		}
	case platform.MacOS:
		if r.LookPath("clang") {
			tc.Compiler = "clang"
		}
		if !r.LookPath("ninja") {
			tc.Generator = "Unix Makefiles"
		}
	case platform.Windows:
		tc.Compiler = "msvc"
		tc.VcvarsPath = findVcvars()
		if !r.LookPath("ninja") {
			tc.Generator = visualStudioGenerator(tc.VcvarsPath)
		}
	}

	logger.Debug("[DEBUG] Toolchain: compiler=%s generator=%q vcvars=%q\n",
		tc.Compiler, tc.Generator, tc.VcvarsPath)
	return tc
}

func findVcvars() string {
	roots := visualStudioRoots
	if p := os.Getenv("VS_PATH"); p != "" {
		roots = append([]string{p}, roots...)
	}
	for _, root := range roots {
		for _, edition := range visualStudioEditions {
			p := filepath.Join(root, edition, "VC", "Auxiliary", "Build", "vcvarsall.bat")
			if _, err := os.Stat(p); err == nil {
				return p
			}
		}
	}
	return ""
}

func visualStudioGenerator(vcvarsPath string) string {
	if strings.Contains(vcvarsPath, "2022") {
		return "Visual Studio 17 2022"
	}
	return "Visual Studio 16 2019"
}

// MultiConfig reports whether the generator keeps the build type out of the
// configure step (Visual Studio generators do).
func (t Toolchain) MultiConfig() bool {
	return strings.HasPrefix(t.Generator, "Visual Studio")
}
