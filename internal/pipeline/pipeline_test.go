//go:build !windows

package pipeline

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GlacierEQ/drogon-autobuild/internal/buildtool"
	"github.com/GlacierEQ/drogon-autobuild/internal/deps"
	"github.com/GlacierEQ/drogon-autobuild/internal/envstore"
	"github.com/GlacierEQ/drogon-autobuild/internal/execx"
	"github.com/GlacierEQ/drogon-autobuild/internal/platform"
)

// scriptRunner records every command and answers from a table of exit codes
// keyed by command-line prefix.
type scriptRunner struct {
	onPath map[string]bool
	fail   map[string]int
	calls  []string
}

func (s *scriptRunner) exec(name string, args ...string) (execx.Result, error) {
	cmd := strings.Join(append([]string{name}, args...), " ")
	s.calls = append(s.calls, cmd)
	for prefix, code := range s.fail {
		if strings.HasPrefix(cmd, prefix) {
			return execx.Result{ExitCode: code}, nil
		}
	}
	return execx.Result{ExitCode: 0}, nil
}

func (s *scriptRunner) Run(name string, args ...string) (execx.Result, error) {
	return s.exec(name, args...)
}

func (s *scriptRunner) Stream(name string, args ...string) (execx.Result, error) {
	return s.exec(name, args...)
}

func (s *scriptRunner) LookPath(name string) bool { return s.onPath[name] }

func (s *scriptRunner) countPrefix(prefix string) int {
	n := 0
	for _, c := range s.calls {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}

// memStore is an in-memory envstore.Store that remembers every write.
type memStore struct {
	values  map[string]string
	appends map[string][]string
}

func newMemStore() *memStore {
	return &memStore{values: map[string]string{}, appends: map[string][]string{}}
}

func (m *memStore) Read(name string) (string, error) { return m.values[name], nil }

func (m *memStore) Write(name, value string) error {
	m.values[name] = value
	return nil
}

func (m *memStore) Append(name, segment string) error {
	m.appends[name] = append(m.appends[name], segment)
	return nil
}

func (m *memStore) Contains(name, segment string) (bool, error) {
	for _, s := range m.appends[name] {
		if s == segment {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) countSegment(name, segment string) int {
	n := 0
	for _, s := range m.appends[name] {
		if s == segment {
			n++
		}
	}
	return n
}

func (m *memStore) writes() int {
	n := len(m.values)
	for _, segs := range m.appends {
		n += len(segs)
	}
	return n
}

var linuxApt = platform.Descriptor{
	Family:         platform.Linux,
	Distribution:   "ubuntu",
	PackageManager: platform.Apt,
}

func testPipeline(t *testing.T, runner *scriptRunner, store *memStore) *Pipeline {
	t.Helper()
	// Environment mutation is process-global; register restores.
	t.Setenv("PATH", os.Getenv("PATH"))
	t.Setenv("LD_LIBRARY_PATH", os.Getenv("LD_LIBRARY_PATH"))

	return &Pipeline{
		Runner: runner,
		Store:  store,
		Opts: Options{
			SourceDir: ".",
			BuildDir:  filepath.Join(t.TempDir(), "build"),
			BinDir:    filepath.Join(t.TempDir(), "bin"),
		},
		DetectPlatform: func() (platform.Descriptor, error) { return linuxApt, nil },
		CheckPrivilege: func(platform.Descriptor) (bool, error) { return true, nil },
	}
}

func TestRunHappyPath(t *testing.T) {
	runner := &scriptRunner{onPath: map[string]bool{
		"git": true, "gcc": true, "g++": true, "cmake": true,
		"openssl": true, "ninja": true,
	}}
	store := newMemStore()
	p := testPipeline(t, runner, store)

	require.NoError(t, p.Run())

	// Index refresh, library probes, then cmake -- and nothing installed.
	assert.Equal(t, 1, runner.countPrefix("apt-get update"))
	assert.Positive(t, runner.countPrefix("dpkg -s"))
	assert.Equal(t, 0, runner.countPrefix("apt-get install"))
	assert.Equal(t, 1, runner.countPrefix("cmake -S"))
	assert.Equal(t, 1, runner.countPrefix("cmake --build"))

	// Search paths were persisted.
	assert.Contains(t, store.appends["LD_LIBRARY_PATH"], "/usr/local/lib")
	assert.Contains(t, store.appends["PATH"], "/usr/local/bin")
}

func TestStagesRunInOrder(t *testing.T) {
	runner := &scriptRunner{onPath: map[string]bool{"gcc": true, "ninja": true}}
	p := testPipeline(t, runner, newMemStore())

	var order []string
	p.DetectPlatform = func() (platform.Descriptor, error) {
		order = append(order, "probe")
		return linuxApt, nil
	}
	p.CheckPrivilege = func(platform.Descriptor) (bool, error) {
		order = append(order, "privilege")
		return true, nil
	}

	require.NoError(t, p.Run())
	assert.Equal(t, []string{"probe", "privilege"}, order)

	// The first command the resolver issues comes after both checks; the
	// build delegate's cmake calls come last.
	require.NotEmpty(t, runner.calls)
	assert.True(t, strings.HasPrefix(runner.calls[0], "apt-get update"))
	assert.True(t, strings.HasPrefix(runner.calls[len(runner.calls)-1], "cmake --build"))
}

func TestProbeFailureAbortsEverything(t *testing.T) {
	runner := &scriptRunner{}
	store := newMemStore()
	p := testPipeline(t, runner, store)
	p.DetectPlatform = func() (platform.Descriptor, error) {
		return platform.Descriptor{}, &platform.UnsupportedError{OS: "linux", Detail: "no package manager found"}
	}

	err := p.Run()
	var failure *Failure
	require.ErrorAs(t, err, &failure)
	assert.Equal(t, Probing, failure.Stage)

	var unsupported *platform.UnsupportedError
	assert.ErrorAs(t, err, &unsupported)
	assert.Empty(t, runner.calls)
	assert.Zero(t, store.writes())
}

func TestPrivilegeFailureStopsBeforeResolving(t *testing.T) {
	runner := &scriptRunner{}
	store := newMemStore()
	p := testPipeline(t, runner, store)
	p.CheckPrivilege = func(platform.Descriptor) (bool, error) {
		return false, &platform.PrivilegeError{Remediation: "re-run as Administrator"}
	}

	err := p.Run()
	var failure *Failure
	require.ErrorAs(t, err, &failure)
	assert.Equal(t, CheckingPrivilege, failure.Stage)

	// Nothing was executed or persisted before the abort.
	assert.Empty(t, runner.calls)
	assert.Zero(t, store.writes())
}

func TestRequiredInstallFailureStopsBeforeMutation(t *testing.T) {
	runner := &scriptRunner{
		onPath: map[string]bool{"ninja": true},
		fail: map[string]int{
			"dpkg -s":         1,
			"apt-get install": 100,
		},
	}
	store := newMemStore()
	p := testPipeline(t, runner, store)

	err := p.Run()
	var failure *Failure
	require.ErrorAs(t, err, &failure)
	assert.Equal(t, Resolving, failure.Stage)

	var installErr *deps.InstallError
	require.ErrorAs(t, err, &installErr)
	assert.Equal(t, "git", installErr.Package)
	assert.Equal(t, 100, installErr.ExitCode)

	// The abort happened on the first required package and before the
	// environment mutator or build delegate ran.
	assert.Equal(t, 1, runner.countPrefix("apt-get install"))
	assert.Zero(t, store.writes())
	assert.Equal(t, 0, runner.countPrefix("cmake"))
}

func TestOptionalInstallFailureStillSucceeds(t *testing.T) {
	runner := &scriptRunner{
		onPath: map[string]bool{
			"git": true, "gcc": true, "g++": true, "cmake": true,
			"openssl": true, "ninja": true,
		},
		fail: map[string]int{
			"dpkg -s libbrotli-dev":            1,
			"apt-get install -y libbrotli-dev": 1,
		},
	}
	store := newMemStore()
	p := testPipeline(t, runner, store)

	require.NoError(t, p.Run())
	assert.Equal(t, 1, runner.countPrefix("apt-get install -y libbrotli-dev"))
	assert.Equal(t, 1, runner.countPrefix("cmake --build"))
}

func TestSecondRunIsIdempotent(t *testing.T) {
	runner := &scriptRunner{onPath: map[string]bool{
		"git": true, "gcc": true, "g++": true, "cmake": true,
		"openssl": true, "ninja": true,
	}}
	store := newMemStore()
	p := testPipeline(t, runner, store)

	require.NoError(t, p.Run())
	firstWrites := store.writes()

	require.NoError(t, p.Run())
	assert.Equal(t, 0, runner.countPrefix("apt-get install"))
	assert.Equal(t, firstWrites, store.writes(), "second run must not persist anything new")
	assert.Equal(t, 1, store.countSegment("LD_LIBRARY_PATH", "/usr/local/lib"))
}

func TestBuildFailurePropagatesExitCode(t *testing.T) {
	runner := &scriptRunner{
		onPath: map[string]bool{
			"git": true, "gcc": true, "g++": true, "cmake": true,
			"openssl": true, "ninja": true,
		},
		fail: map[string]int{"cmake --build": 3},
	}
	p := testPipeline(t, runner, newMemStore())

	err := p.Run()
	var failure *Failure
	require.ErrorAs(t, err, &failure)
	assert.Equal(t, Delegating, failure.Stage)

	var exitErr *buildtool.ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 3, exitErr.Code)
}

func TestFreshWindowsHostResolvesVcpkgFromClone(t *testing.T) {
	// A bare host has no vcpkg on PATH until the mutator persists it; the
	// resolver must reach the binary the bootstrap just cloned, or the run
	// aborts in Resolving and a re-run can never recover.
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "bootstrap-vcpkg.bat"), []byte("@echo off\r\n"), 0755))

	runner := &scriptRunner{
		onPath: map[string]bool{"ninja": true},
		fail:   map[string]int{"vcpkg ": 127}, // bare vcpkg does not start
	}
	store := newMemStore()
	p := testPipeline(t, runner, store)
	p.Opts.VcpkgRoot = root
	p.DetectPlatform = func() (platform.Descriptor, error) {
		return platform.Descriptor{Family: platform.Windows, PackageManager: platform.Vcpkg}, nil
	}
	t.Setenv("LIB", os.Getenv("LIB"))
	t.Setenv("INCLUDE", os.Getenv("INCLUDE"))
	t.Setenv(envstore.ToolchainVar, "")
	t.Setenv("VS_PATH", "")

	require.NoError(t, p.Run())

	vcpkgExe := filepath.Join(root, "vcpkg")
	assert.Positive(t, runner.countPrefix(vcpkgExe+" install"))
	assert.Equal(t, 1, runner.countPrefix("cmake --build"))
	for _, c := range runner.calls {
		assert.False(t, strings.HasPrefix(c, "vcpkg "), "bare vcpkg invoked: %s", c)
	}

	// The toolchain file location made it into both the process env and
	// the persistent store.
	assert.Equal(t, filepath.Join(root, "scripts", "buildsystems", "vcpkg.cmake"),
		store.values[envstore.ToolchainVar])
}

func TestUnknownManagerFailsResolving(t *testing.T) {
	runner := &scriptRunner{}
	p := testPipeline(t, runner, newMemStore())
	p.DetectPlatform = func() (platform.Descriptor, error) {
		return platform.Descriptor{Family: platform.Linux, PackageManager: platform.None}, nil
	}

	err := p.Run()
	var failure *Failure
	require.ErrorAs(t, err, &failure)
	assert.Equal(t, Resolving, failure.Stage)
}


