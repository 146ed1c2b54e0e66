// Package verify inspects a host without changing it: are the required
// build tools on PATH at usable versions, and are the framework's shared
// libraries visible on the library search paths. It is the read-only
// counterpart of the provisioning pipeline.
package verify

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/GlacierEQ/drogon-autobuild/internal/execx"
	"github.com/GlacierEQ/drogon-autobuild/internal/logger"
	"github.com/GlacierEQ/drogon-autobuild/internal/platform"
)

// ToolCheck describes one required or optional command-line tool.
type ToolCheck struct {
	Name       string   // display name
	Command    []string // command plus version args
	MinVersion string   // empty means presence is enough
	Optional   bool
}

// LibCheck describes one shared library expected on the search paths.
type LibCheck struct {
	Name    string
	Pattern string // filename glob, e.g. libssl.so*
}

// Result is the outcome of a single check.
type Result struct {
	Name   string
	Status string // PASS, WARN or FAIL
	Detail string
}

var commonTools = []ToolCheck{
	{Name: "CMake", Command: []string{"cmake", "--version"}, MinVersion: "3.5.0"},
	{Name: "Git", Command: []string{"git", "--version"}, MinVersion: "2.0.0"},
}

var platformTools = map[platform.Family][]ToolCheck{
	platform.Linux: {
		{Name: "GCC C++ Compiler", Command: []string{"g++", "--version"}, MinVersion: "7.0.0"},
		{Name: "GNU Make", Command: []string{"make", "--version"}, MinVersion: "4.0"},
		{Name: "Ninja Build", Command: []string{"ninja", "--version"}, Optional: true},
	},
	platform.MacOS: {
		{Name: "Clang C++ Compiler", Command: []string{"clang++", "--version"}, MinVersion: "9.0.0"},
		{Name: "Ninja Build", Command: []string{"ninja", "--version"}, Optional: true},
	},
	platform.Windows: {
		{Name: "Ninja Build", Command: []string{"ninja", "--version"}, MinVersion: "1.8.0"},
		{Name: "vcpkg Package Manager", Command: []string{"vcpkg", "version"}},
	},
}

var platformLibs = map[platform.Family][]LibCheck{
	platform.Linux: {
		{Name: "JsonCpp", Pattern: "libjsoncpp.so*"},
		{Name: "OpenSSL", Pattern: "libssl.so*"},
		{Name: "OpenSSL Crypto", Pattern: "libcrypto.so*"},
		{Name: "zlib", Pattern: "libz.so*"},
		{Name: "Brotli", Pattern: "libbrotli*.so*"},
		{Name: "UUID", Pattern: "libuuid.so*"},
	},
	platform.MacOS: {
		{Name: "JsonCpp", Pattern: "libjsoncpp*.dylib"},
		{Name: "OpenSSL", Pattern: "libssl*.dylib"},
		{Name: "OpenSSL Crypto", Pattern: "libcrypto*.dylib"},
		{Name: "zlib", Pattern: "libz*.dylib"},
		{Name: "Brotli", Pattern: "libbrotli*.dylib"},
		{Name: "UUID", Pattern: "libuuid*.dylib"},
	},
	platform.Windows: {
		{Name: "JsonCpp", Pattern: "jsoncpp*.dll"},
		{Name: "OpenSSL", Pattern: "libssl*.dll"},
		{Name: "OpenSSL Crypto", Pattern: "libcrypto*.dll"},
		{Name: "zlib", Pattern: "zlib*.dll"},
		{Name: "Brotli", Pattern: "brotli*.dll"},
		{Name: "UUID", Pattern: "uuid*.dll"},
	},
}

// libSearchDirs returns the directories scanned for shared libraries.
func libSearchDirs(d platform.Descriptor) []string {
	switch d.Family {
	case platform.Windows:
		root := os.Getenv("VCPKG_ROOT")
		if root == "" {
			root = `C:\vcpkg`
		}
		return []string{filepath.Join(root, "installed", "x64-windows", "bin")}
	case platform.MacOS:
		return []string{"/usr/local/lib", "/opt/homebrew/lib"}
	default:
		return []string{"/usr/lib", "/usr/local/lib", "/usr/lib/x86_64-linux-gnu", "/usr/lib64"}
	}
}

// Run executes every check for the descriptor and prints a PASS/WARN/FAIL
// report. It returns false when any non-optional check failed.
func Run(d platform.Descriptor, runner execx.Runner) bool {
	ok := true

	logger.Stage("==> Build tools\n")
	tools := append(append([]ToolCheck{}, commonTools...), platformTools[d.Family]...)
	for _, tc := range tools {
		res := checkTool(tc, runner)
		printResult(res)
		if res.Status == "FAIL" && !tc.Optional {
			ok = false
		}
	}

	logger.Stage("==> Shared libraries\n")
	dirs := libSearchDirs(d)
	for _, lc := range platformLibs[d.Family] {
		res := checkLib(lc, dirs)
		printResult(res)
		// Missing libraries warn rather than fail: the resolver can still
		// install them on the next bootstrap run.
	}

	return ok
}

func checkTool(tc ToolCheck, runner execx.Runner) Result {
	if !runner.LookPath(tc.Command[0]) {
		status := "FAIL"
		if tc.Optional {
			status = "WARN"
		}
		return Result{Name: tc.Name, Status: status, Detail: "not found in PATH"}
	}

	res, err := runner.Run(tc.Command[0], tc.Command[1:]...)
	if err != nil {
		return Result{Name: tc.Name, Status: "FAIL", Detail: err.Error()}
	}
	if tc.MinVersion == "" {
		return Result{Name: tc.Name, Status: "PASS"}
	}

	version := extractVersion(res.Output)
	if version == "" {
		return Result{Name: tc.Name, Status: "WARN", Detail: "version not recognized"}
	}
	if !versionAtLeast(version, tc.MinVersion) {
		return Result{Name: tc.Name, Status: "FAIL",
			Detail: fmt.Sprintf("version %s below required %s", version, tc.MinVersion)}
	}
	return Result{Name: tc.Name, Status: "PASS", Detail: version}
}

func checkLib(lc LibCheck, dirs []string) Result {
	for _, dir := range dirs {
		matches, err := filepath.Glob(filepath.Join(dir, lc.Pattern))
		if err == nil && len(matches) > 0 {
			return Result{Name: lc.Name, Status: "PASS", Detail: matches[0]}
		}
	}
	return Result{Name: lc.Name, Status: "WARN", Detail: "not found on library path"}
}

func printResult(r Result) {
	line := fmt.Sprintf("  %-28s %s", r.Name, r.Status)
	if r.Detail != "" {
		line += " - " + r.Detail
	}
	switch r.Status {
	case "PASS":
		logger.Info("%s\n", line)
	case "WARN":
		logger.Warn("%s\n", line)
	default:
		logger.Error("%s\n", line)
	}
}

var versionRe = regexp.MustCompile(`(\d+)\.(\d+)(?:\.(\d+))?`)

// extractVersion pulls the first x.y or x.y.z out of tool output.
func extractVersion(output string) string {
	return versionRe.FindString(output)
}

// versionAtLeast compares dotted versions numerically, missing components
// counting as zero.
func versionAtLeast(have, want string) bool {
	h, w := splitVersion(have), splitVersion(want)
	for i := 0; i < 3; i++ {
		if h[i] != w[i] {
			return h[i] > w[i]
		}
	}
	return true
}

func splitVersion(v string) [3]int {
	var out [3]int
	for i, part := range strings.SplitN(v, ".", 3) {
		n, _ := strconv.Atoi(part)
		out[i] = n
	}
	return out
}
