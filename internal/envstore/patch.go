package envstore

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/GlacierEQ/drogon-autobuild/internal/logger"
	"github.com/GlacierEQ/drogon-autobuild/internal/platform"
)

// Entry is one environment change. Append entries add a search-path segment;
// non-append entries set the variable outright (the toolchain-file location).
type Entry struct {
	Var    string
	Value  string
	Append bool
}

// Patch is the ordered set of environment changes one run applies.
type Patch []Entry

// ToolchainVar is read by the build delegate to locate the CMake toolchain
// descriptor that points at the provisioned dependencies.
const ToolchainVar = "DROGON_TOOLCHAIN_FILE"

// DefaultPatch builds the per-platform patch. binDir is where portable tools
// were dropped; vcpkgRoot only matters on Windows.
func DefaultPatch(d platform.Descriptor, binDir, vcpkgRoot string) Patch {
	switch d.Family {
	case platform.Windows:
		if vcpkgRoot == "" {
			vcpkgRoot = `C:\vcpkg`
		}
		installed := filepath.Join(vcpkgRoot, "installed", "x64-windows")
		return Patch{
			{Var: "PATH", Value: vcpkgRoot, Append: true},
			{Var: "PATH", Value: filepath.Join(installed, "bin"), Append: true},
			{Var: "PATH", Value: binDir, Append: true},
			{Var: "LIB", Value: filepath.Join(installed, "lib"), Append: true},
			{Var: "INCLUDE", Value: filepath.Join(installed, "include"), Append: true},
			{Var: ToolchainVar, Value: filepath.Join(vcpkgRoot, "scripts", "buildsystems", "vcpkg.cmake")},
		}
	case platform.MacOS:
		prefix := homebrewPrefix()
		return Patch{
			{Var: "PATH", Value: filepath.Join(prefix, "bin"), Append: true},
			{Var: "PATH", Value: binDir, Append: true},
			{Var: "DYLD_LIBRARY_PATH", Value: filepath.Join(prefix, "lib"), Append: true},
		}
	default: // Linux
		return Patch{
			{Var: "PATH", Value: "/usr/local/bin", Append: true},
			{Var: "PATH", Value: binDir, Append: true},
			{Var: "LD_LIBRARY_PATH", Value: "/usr/local/lib", Append: true},
		}
	}
}

// homebrewPrefix locates the Homebrew install prefix: the environment brew
// itself exports, otherwise /opt/homebrew on Apple Silicon and /usr/local
// on Intel.
func homebrewPrefix() string {
	if p := os.Getenv("HOMEBREW_PREFIX"); p != "" {
		return p
	}
	if runtime.GOARCH == "arm64" {
		return "/opt/homebrew"
	}
	return "/usr/local"
}

// Apply mirrors the patch into the current process and into store.
//
// A process-environment failure is fatal because the build delegate depends
// on it. A store failure only warns: the paths are live for this run, and
// the next run will retry the persist.
func Apply(p Patch, store Store) error {
	for _, e := range p {
		if e.Value == "" {
			continue
		}
		if err := applyProcess(e); err != nil {
			return fmt.Errorf("setting %s in process environment: %w", e.Var, err)
		}
		if err := persist(e, store); err != nil {
			logger.Warn("[WARN] %v (will retry on next run)\n", err)
		}
	}
	return nil
}

func applyProcess(e Entry) error {
	if !e.Append {
		return os.Setenv(e.Var, e.Value)
	}
	current := os.Getenv(e.Var)
	if hasSegment(current, e.Value) {
		logger.Debug("[DEBUG] %s already contains %s\n", e.Var, e.Value)
		return nil
	}
	if current == "" {
		return os.Setenv(e.Var, e.Value)
	}
	return os.Setenv(e.Var, current+string(os.PathListSeparator)+e.Value)
}

func persist(e Entry, store Store) error {
	if !e.Append {
		prev, err := store.Read(e.Var)
		if err != nil {
			return &PersistError{Var: e.Var, Err: err}
		}
		if prev == e.Value {
			return nil
		}
		if err := store.Write(e.Var, e.Value); err != nil {
			return &PersistError{Var: e.Var, Err: err}
		}
		logger.Info("[INFO] Persisted %s=%s\n", e.Var, e.Value)
		return nil
	}

	present, err := store.Contains(e.Var, e.Value)
	if err != nil {
		return &PersistError{Var: e.Var, Err: err}
	}
	if present {
		logger.Debug("[DEBUG] %s already persisted in %s\n", e.Value, e.Var)
		return nil
	}
	if err := store.Append(e.Var, e.Value); err != nil {
		return &PersistError{Var: e.Var, Err: err}
	}
	logger.Info("[INFO] Persisted %s entry %s\n", e.Var, e.Value)
	return nil
}

// hasSegment reports whether list, split on the OS path-list separator,
// already carries segment. Substring matching alone would treat
// /usr/local/lib64 as covering /usr/local/lib.
func hasSegment(list, segment string) bool {
	for _, s := range strings.Split(list, string(os.PathListSeparator)) {
		if s == segment {
			return true
		}
	}
	return false
}
