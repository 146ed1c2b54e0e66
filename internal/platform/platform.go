package platform

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/GlacierEQ/drogon-autobuild/internal/logger"
)

// Family is the coarse operating-system family the pipeline branches on.
type Family string

const (
	Linux   Family = "linux"
	MacOS   Family = "macos"
	Windows Family = "windows"
)

// PackageManager identifies the single package manager a run may use.
type PackageManager string

const (
	Apt   PackageManager = "apt"
	Dnf   PackageManager = "dnf"
	Brew  PackageManager = "brew"
	Vcpkg PackageManager = "vcpkg"
	None  PackageManager = "none"
)

// Descriptor describes the detected host. It is computed once per run and
// never mutated afterwards; every later stage takes it by value.
type Descriptor struct {
	Family         Family
	Distribution   string // os-release ID on Linux, empty elsewhere
	PackageManager PackageManager
}

func (d Descriptor) String() string {
	if d.Distribution != "" {
		return fmt.Sprintf("%s/%s (%s)", d.Family, d.Distribution, d.PackageManager)
	}
	return fmt.Sprintf("%s (%s)", d.Family, d.PackageManager)
}

// UnsupportedError reports a host that cannot be mapped to a known package
// manager. The pipeline aborts immediately on it, before any mutation.
type UnsupportedError struct {
	OS     string
	Detail string
}

func (e *UnsupportedError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("unsupported platform %s: %s", e.OS, e.Detail)
	}
	return fmt.Sprintf("unsupported platform %s", e.OS)
}

// osReleasePath is a var so tests can point the prober at a fixture.
var osReleasePath = "/etc/os-release"

// Detect probes the host and returns its immutable Descriptor.
// Detection order follows the shape the provisioning scripts shared:
// macOS marker first, then the Linux release-info file, then Windows
// assumptions when compiled for a Windows shell. It never touches the
// network.
func Detect() (Descriptor, error) {
	switch runtime.GOOS {
	case "darwin":
		return Descriptor{Family: MacOS, PackageManager: Brew}, nil
	case "linux":
		return detectLinux()
	case "windows":
		return Descriptor{Family: Windows, PackageManager: Vcpkg}, nil
	default:
		return Descriptor{}, &UnsupportedError{OS: runtime.GOOS}
	}
}

func detectLinux() (Descriptor, error) {
	data, err := os.ReadFile(osReleasePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Descriptor{}, &UnsupportedError{OS: "linux", Detail: "no /etc/os-release"}
		}
		return Descriptor{}, fmt.Errorf("reading %s: %w", osReleasePath, err)
	}

	id, idLike := parseOSRelease(string(data))
	logger.Debug("[DEBUG] os-release: ID=%q ID_LIKE=%q\n", id, idLike)

	pm := packageManagerFor(id)
	if pm == None {
		// Fall back to the ID_LIKE chain (e.g. "rhel fedora" on Rocky).
		for _, like := range strings.Fields(idLike) {
			if pm = packageManagerFor(like); pm != None {
				break
			}
		}
	}
	if pm == None {
		return Descriptor{}, &UnsupportedError{OS: "linux", Detail: fmt.Sprintf("unknown distribution %q", id)}
	}

	return Descriptor{Family: Linux, Distribution: id, PackageManager: pm}, nil
}

// packageManagerFor maps an os-release ID to a package manager. Only the apt
// and dnf families are supported; anything else means the host cannot be
// provisioned automatically.
func packageManagerFor(id string) PackageManager {
	switch id {
	case "debian", "ubuntu", "linuxmint", "pop", "raspbian", "kali":
		return Apt
	case "fedora", "rhel", "centos", "rocky", "almalinux", "amzn":
		return Dnf
	default:
		return None
	}
}

// parseOSRelease pulls ID and ID_LIKE out of os-release(5) content.
// Values may be bare or quoted.
func parseOSRelease(content string) (id, idLike string) {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "ID="):
			id = unquote(strings.TrimPrefix(line, "ID="))
		case strings.HasPrefix(line, "ID_LIKE="):
			idLike = unquote(strings.TrimPrefix(line, "ID_LIKE="))
		}
	}
	return id, idLike
}

func unquote(s string) string {
	return strings.Trim(s, `"'`)
}
