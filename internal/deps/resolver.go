package deps

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/GlacierEQ/drogon-autobuild/internal/execx"
	"github.com/GlacierEQ/drogon-autobuild/internal/logger"
	"github.com/GlacierEQ/drogon-autobuild/internal/platform"
)

// InstallError reports a required package that could not be installed.
// The pipeline aborts on it before any environment mutation happens.
type InstallError struct {
	Package  string
	ExitCode int
}

func (e *InstallError) Error() string {
	return fmt.Sprintf("installing required package %s failed (exit %d)", e.Package, e.ExitCode)
}

// strategy is the package-manager command table: how to probe for a package
// and how to install it non-interactively. One strategy per manager, chosen
// once from the Descriptor; the resolver never mixes two.
type strategy struct {
	probe   func(pkg string) []string
	install func(pkg string) []string
	// sudo marks managers that need root for system-wide installs.
	sudo bool
}

var strategies = map[platform.PackageManager]strategy{
	platform.Apt: {
		probe:   func(pkg string) []string { return []string{"dpkg", "-s", pkg} },
		install: func(pkg string) []string { return []string{"apt-get", "install", "-y", pkg} },
		sudo:    true,
	},
	platform.Dnf: {
		probe:   func(pkg string) []string { return []string{"rpm", "-q", pkg} },
		install: func(pkg string) []string { return []string{"dnf", "install", "-y", pkg} },
		sudo:    true,
	},
	platform.Brew: {
		probe:   func(pkg string) []string { return []string{"brew", "list", "--versions", pkg} },
		install: func(pkg string) []string { return []string{"brew", "install", pkg} },
	},
	platform.Vcpkg: {
		probe:   func(pkg string) []string { return []string{"vcpkg", "list", pkg} },
		install: func(pkg string) []string { return []string{"vcpkg", "install", pkg + ":x64-windows"} },
	},
}

// Resolver installs a dependency Spec through the platform's package
// manager. Re-running it on a provisioned host performs no installs.
type Resolver struct {
	Runner execx.Runner
	// Elevated is the privilege checker's verdict. When false on a sudo
	// platform, install commands are prefixed with sudo.
	Elevated bool
	// VcpkgRoot is where the bootstrap cloned vcpkg. On a fresh host the
	// binary lives only there until the environment mutator adds it to
	// PATH, so vcpkg commands fall back to this location.
	VcpkgRoot string
}

// command resolves the strategy's argv for this host. A bare vcpkg that is
// not yet on PATH is replaced with the bootstrap location, the same binary
// ensureVcpkg just built.
func (r *Resolver) command(argv []string) []string {
	if argv[0] != "vcpkg" || r.Runner.LookPath("vcpkg") {
		return argv
	}
	root := r.VcpkgRoot
	if root == "" {
		root = `C:\vcpkg`
	}
	out := append([]string{}, argv...)
	out[0] = filepath.Join(root, "vcpkg")
	return out
}

// Sync brings the host in line with spec. Already-present entries are
// skipped; failures of optional entries are logged and tolerated; the first
// failure of a required entry aborts with an InstallError.
func (r *Resolver) Sync(d platform.Descriptor, spec Spec) error {
	strat, ok := strategies[d.PackageManager]
	if !ok {
		return fmt.Errorf("no install strategy for package manager %q", d.PackageManager)
	}

	installed := 0
	for _, pkg := range spec {
		if r.present(strat, pkg) {
			logger.Info("[INFO] %s already installed. Skipping.\n", pkg.Name)
			continue
		}

		logger.Info("[INFO] Installing %s (%s)...\n", pkg.Name, pkg.Purpose)
		argv := r.command(strat.install(pkg.Name))
		if strat.sudo && !r.Elevated {
			argv = append([]string{"sudo"}, argv...)
		}
		res, err := r.Runner.Run(argv[0], argv[1:]...)
		if err != nil || res.ExitCode != 0 {
			if pkg.Required {
				logger.Error("[ERROR] Failed to install %s\nOutput: %s\n", pkg.Name, strings.TrimSpace(res.Output))
				return &InstallError{Package: pkg.Name, ExitCode: res.ExitCode}
			}
			logger.Warn("[WARN] Optional package %s failed to install. Continuing.\n", pkg.Name)
			continue
		}
		installed++
	}

	if installed == 0 {
		logger.Info("[INFO] All dependencies already present.\n")
	} else {
		logger.Info("[INFO] Installed %d package(s).\n", installed)
	}
	return nil
}

// present reports whether a spec entry is already satisfied, preferring the
// cheap PATH probe when the entry names a command.
func (r *Resolver) present(strat strategy, pkg Package) bool {
	if pkg.Command != "" && r.Runner.LookPath(pkg.Command) {
		return true
	}
	argv := r.command(strat.probe(pkg.Name))
	res, err := r.Runner.Run(argv[0], argv[1:]...)
	if err != nil || res.ExitCode != 0 {
		return false
	}
	// vcpkg list exits 0 even for unknown ports; the port shows up in the
	// output only when installed.
	if strings.HasSuffix(argv[0], "vcpkg") && !strings.Contains(res.Output, pkg.Name) {
		return false
	}
	return true
}
