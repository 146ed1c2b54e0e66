package deps

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/GlacierEQ/drogon-autobuild/internal/execx"
	"github.com/GlacierEQ/drogon-autobuild/internal/logger"
	"github.com/GlacierEQ/drogon-autobuild/internal/platform"
)

const (
	brewInstallURL = "https://raw.githubusercontent.com/Homebrew/install/HEAD/install.sh"
	vcpkgRepoURL   = "https://github.com/microsoft/vcpkg.git"

	ninjaVersion = "1.12.1"
)

// ninjaArchives maps GOOS to the portable ninja release asset. Ninja is the
// preferred generator everywhere; when the package manager cannot supply it
// the bootstrap fetches the release archive instead.
var ninjaArchives = map[string]string{
	"linux":   "ninja-linux.zip",
	"darwin":  "ninja-mac.zip",
	"windows": "ninja-win.zip",
}

// Bootstrap provisions the package manager itself before the resolver runs:
// Homebrew on a bare macOS host, a vcpkg clone on Windows, a package index
// refresh on apt/dnf. It also fetches a portable ninja when none is found.
type Bootstrap struct {
	Runner   execx.Runner
	Elevated bool
	// VcpkgRoot is where the vcpkg tree is cloned on Windows.
	VcpkgRoot string
	// BinDir receives portable tools (ninja) outside the package manager.
	BinDir string
}

// EnsureManager makes the descriptor's package manager usable, installing it
// when the platform allows that (brew, vcpkg). Safe to call on an already
// provisioned host.
func (b *Bootstrap) EnsureManager(d platform.Descriptor) error {
	switch d.PackageManager {
	case platform.Apt:
		return b.refreshIndex("apt-get", "update")
	case platform.Dnf:
		return b.refreshIndex("dnf", "makecache")
	case platform.Brew:
		return b.ensureBrew()
	case platform.Vcpkg:
		return b.ensureVcpkg()
	default:
		return fmt.Errorf("cannot bootstrap package manager %q", d.PackageManager)
	}
}

func (b *Bootstrap) refreshIndex(name string, args ...string) error {
	argv := append([]string{name}, args...)
	if !b.Elevated {
		argv = append([]string{"sudo"}, argv...)
	}
	res, err := b.Runner.Run(argv[0], argv[1:]...)
	if err != nil || res.ExitCode != 0 {
		// A stale index degrades installs but does not doom them.
		logger.Warn("[WARN] Package index refresh failed (exit %d). Continuing.\n", res.ExitCode)
	}
	return nil
}

func (b *Bootstrap) ensureBrew() error {
	if b.Runner.LookPath("brew") {
		logger.Debug("[DEBUG] brew already on PATH\n")
		return nil
	}

	logger.Info("[INFO] Homebrew not found. Installing...\n")
	script := filepath.Join(os.TempDir(), "brew-install.sh")
	if err := downloadFile(brewInstallURL, script); err != nil {
		return fmt.Errorf("fetching Homebrew installer: %w", err)
	}
	defer os.Remove(script)

	res, err := b.Runner.Stream("/bin/bash", script)
	if err != nil {
		return fmt.Errorf("running Homebrew installer: %w", err)
	}
	if res.ExitCode != 0 {
		return &InstallError{Package: "homebrew", ExitCode: res.ExitCode}
	}
	return nil
}

func (b *Bootstrap) ensureVcpkg() error {
	if b.Runner.LookPath("vcpkg") {
		logger.Debug("[DEBUG] vcpkg already on PATH\n")
		return nil
	}

	root := b.VcpkgRoot
	if root == "" {
		root = `C:\vcpkg`
	}
	bootstrapScript := filepath.Join(root, "bootstrap-vcpkg.bat")

	if _, err := os.Stat(bootstrapScript); os.IsNotExist(err) {
		logger.Info("[INFO] Cloning vcpkg into %s...\n", root)
		res, err := b.Runner.Stream("git", "clone", "--depth", "1", vcpkgRepoURL, root)
		if err != nil {
			return fmt.Errorf("cloning vcpkg: %w", err)
		}
		if res.ExitCode != 0 {
			return &InstallError{Package: "vcpkg", ExitCode: res.ExitCode}
		}
	}

	logger.Info("[INFO] Bootstrapping vcpkg...\n")
	res, err := b.Runner.Stream(bootstrapScript, "-disableMetrics")
	if err != nil {
		return fmt.Errorf("bootstrapping vcpkg: %w", err)
	}
	if res.ExitCode != 0 {
		return &InstallError{Package: "vcpkg", ExitCode: res.ExitCode}
	}

	// User-wide CMake integration; harmless to repeat.
	vcpkgExe := filepath.Join(root, "vcpkg")
	if _, err := b.Runner.Run(vcpkgExe, "integrate", "install"); err != nil {
		logger.Warn("[WARN] vcpkg integrate install failed: %v\n", err)
	}
	return nil
}

// EnsureNinja fetches a portable ninja into BinDir when no ninja resolves on
// PATH. Ninja is optional; failures here only warn.
func (b *Bootstrap) EnsureNinja() {
	if b.Runner.LookPath("ninja") {
		logger.Debug("[DEBUG] ninja already on PATH\n")
		return
	}
	asset, ok := ninjaArchives[runtime.GOOS]
	if !ok {
		return
	}

	logger.Info("[INFO] Ninja not found. Fetching portable release %s...\n", ninjaVersion)
	url := fmt.Sprintf("https://github.com/ninja-build/ninja/releases/download/v%s/%s", ninjaVersion, asset)
	archive := filepath.Join(os.TempDir(), asset)
	if err := downloadFile(url, archive); err != nil {
		logger.Warn("[WARN] Ninja download failed: %v\n", err)
		return
	}
	defer os.Remove(archive)

	if err := os.MkdirAll(b.BinDir, 0755); err != nil {
		logger.Warn("[WARN] Cannot create %s: %v\n", b.BinDir, err)
		return
	}
	if _, err := ExtractArchive(archive, b.BinDir); err != nil {
		logger.Warn("[WARN] Ninja extraction failed: %v\n", err)
		return
	}
	exe := filepath.Join(b.BinDir, "ninja")
	if runtime.GOOS == "windows" {
		exe += ".exe"
	} else if err := os.Chmod(exe, 0755); err != nil {
		logger.Warn("[WARN] chmod %s: %v\n", exe, err)
	}
	logger.Info("[INFO] Installed ninja to %s\n", exe)
}
