package deps

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/GlacierEQ/drogon-autobuild/internal/platform"
)

// Package is one entry of a platform's dependency list.
type Package struct {
	Name     string `yaml:"name"`
	Purpose  string `yaml:"purpose"`
	Required bool   `yaml:"required"`
	// Command, when set, names an executable whose presence on PATH counts
	// as "already installed" (e.g. cmake, git). Otherwise the package
	// manager's own query decides.
	Command string `yaml:"command,omitempty"`
}

// Spec is the ordered dependency list for a single package manager.
// Order matters: toolchain first, then libraries, then optional extras.
type Spec []Package

// defaultSpecs holds the built-in dependency tables, one per package
// manager. Exactly one table applies per run; the resolver never mixes
// package managers.
var defaultSpecs = map[platform.PackageManager]Spec{
	platform.Apt: {
		{Name: "git", Purpose: "source control", Required: true, Command: "git"},
		{Name: "gcc", Purpose: "C compiler", Required: true, Command: "gcc"},
		{Name: "g++", Purpose: "C++ compiler", Required: true, Command: "g++"},
		{Name: "cmake", Purpose: "build generator", Required: true, Command: "cmake"},
		{Name: "libjsoncpp-dev", Purpose: "JSON library", Required: true},
		{Name: "uuid-dev", Purpose: "UUID library", Required: true},
		{Name: "zlib1g-dev", Purpose: "compression library", Required: true},
		{Name: "openssl", Purpose: "TLS toolkit", Required: true, Command: "openssl"},
		{Name: "libssl-dev", Purpose: "TLS headers", Required: true},
		{Name: "libbrotli-dev", Purpose: "brotli compression", Required: false},
		{Name: "libyaml-cpp-dev", Purpose: "YAML config support", Required: false},
		{Name: "postgresql-server-dev-all", Purpose: "PostgreSQL client", Required: false},
		{Name: "libmariadb-dev", Purpose: "MariaDB client", Required: false},
		{Name: "libsqlite3-dev", Purpose: "SQLite client", Required: false},
		{Name: "libhiredis-dev", Purpose: "Redis client", Required: false},
	},
	platform.Dnf: {
		{Name: "git", Purpose: "source control", Required: true, Command: "git"},
		{Name: "gcc", Purpose: "C compiler", Required: true, Command: "gcc"},
		{Name: "gcc-c++", Purpose: "C++ compiler", Required: true, Command: "g++"},
		{Name: "cmake", Purpose: "build generator", Required: true, Command: "cmake"},
		{Name: "jsoncpp-devel", Purpose: "JSON library", Required: true},
		{Name: "libuuid-devel", Purpose: "UUID library", Required: true},
		{Name: "zlib-devel", Purpose: "compression library", Required: true},
		{Name: "openssl-devel", Purpose: "TLS headers", Required: true},
		{Name: "brotli-devel", Purpose: "brotli compression", Required: false},
		{Name: "yaml-cpp-devel", Purpose: "YAML config support", Required: false},
		{Name: "postgresql-devel", Purpose: "PostgreSQL client", Required: false},
		{Name: "mariadb-devel", Purpose: "MariaDB client", Required: false},
		{Name: "sqlite-devel", Purpose: "SQLite client", Required: false},
		{Name: "hiredis-devel", Purpose: "Redis client", Required: false},
	},
	platform.Brew: {
		{Name: "git", Purpose: "source control", Required: true, Command: "git"},
		{Name: "cmake", Purpose: "build generator", Required: true, Command: "cmake"},
		{Name: "jsoncpp", Purpose: "JSON library", Required: true},
		{Name: "ossp-uuid", Purpose: "UUID library", Required: true},
		{Name: "openssl", Purpose: "TLS toolkit", Required: true},
		{Name: "zlib", Purpose: "compression library", Required: true},
		{Name: "brotli", Purpose: "brotli compression", Required: false},
		{Name: "yaml-cpp", Purpose: "YAML config support", Required: false},
		{Name: "libpq", Purpose: "PostgreSQL client", Required: false},
		{Name: "mariadb", Purpose: "MariaDB client", Required: false},
		{Name: "sqlite", Purpose: "SQLite client", Required: false},
		{Name: "hiredis", Purpose: "Redis client", Required: false},
	},
	platform.Vcpkg: {
		{Name: "jsoncpp", Purpose: "JSON library", Required: true},
		{Name: "openssl", Purpose: "TLS toolkit", Required: true},
		{Name: "zlib", Purpose: "compression library", Required: true},
		{Name: "brotli", Purpose: "brotli compression", Required: false},
		{Name: "yaml-cpp", Purpose: "YAML config support", Required: false},
		{Name: "libpq", Purpose: "PostgreSQL client", Required: false},
		{Name: "libmariadb", Purpose: "MariaDB client", Required: false},
		{Name: "sqlite3", Purpose: "SQLite client", Required: false},
		{Name: "hiredis", Purpose: "Redis client", Required: false},
	},
}

// SpecFor returns the dependency list for the descriptor's package manager,
// with entries from manifestPath (when the file exists) replacing the
// built-in table for that manager.
func SpecFor(d platform.Descriptor, manifestPath string) (Spec, error) {
	spec, ok := defaultSpecs[d.PackageManager]
	if !ok {
		return nil, fmt.Errorf("no dependency table for package manager %q", d.PackageManager)
	}

	if manifestPath == "" {
		return spec, nil
	}
	raw, err := os.ReadFile(manifestPath)
	if err != nil {
		if os.IsNotExist(err) {
			return spec, nil
		}
		return nil, fmt.Errorf("reading manifest %s: %w", manifestPath, err)
	}

	var manifest struct {
		Packages map[string]Spec `yaml:"packages"`
	}
	if err := yaml.Unmarshal(raw, &manifest); err != nil {
		return nil, fmt.Errorf("parsing manifest %s: %w", manifestPath, err)
	}
	if override, ok := manifest.Packages[string(d.PackageManager)]; ok && len(override) > 0 {
		return override, nil
	}
	return spec, nil
}
