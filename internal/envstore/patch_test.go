package envstore

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GlacierEQ/drogon-autobuild/internal/platform"
)

func tempProfile(t *testing.T) *ProfileStore {
	t.Helper()
	return &ProfileStore{Path: filepath.Join(t.TempDir(), ".bashrc")}
}

func TestApplySetsProcessEnvironment(t *testing.T) {
	t.Setenv("AB_TEST_PATH", "/existing")
	store := tempProfile(t)

	p := Patch{{Var: "AB_TEST_PATH", Value: "/usr/local/bin", Append: true}}
	require.NoError(t, Apply(p, store))

	got := os.Getenv("AB_TEST_PATH")
	assert.Equal(t, "/existing"+string(os.PathListSeparator)+"/usr/local/bin", got)
}

func TestApplyProcessAppendIsIdempotent(t *testing.T) {
	t.Setenv("AB_TEST_PATH", "")
	store := tempProfile(t)

	p := Patch{{Var: "AB_TEST_PATH", Value: "/usr/local/lib", Append: true}}
	require.NoError(t, Apply(p, store))
	require.NoError(t, Apply(p, store))

	got := os.Getenv("AB_TEST_PATH")
	assert.Equal(t, 1, strings.Count(got, "/usr/local/lib"))
}

func TestApplyPersistsExactlyOnceAcrossRuns(t *testing.T) {
	// The end-to-end idempotency property: after two full applications the
	// profile carries exactly one occurrence of /usr/local/lib.
	t.Setenv("AB_LD_PATH", "")
	store := tempProfile(t)

	p := Patch{{Var: "AB_LD_PATH", Value: "/usr/local/lib", Append: true}}
	require.NoError(t, Apply(p, store))
	require.NoError(t, Apply(p, store))

	raw, err := os.ReadFile(store.Path)
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(raw), "/usr/local/lib"))
}

func TestApplySetEntry(t *testing.T) {
	t.Setenv(ToolchainVar, "")
	store := tempProfile(t)

	p := Patch{{Var: ToolchainVar, Value: "/opt/vcpkg/scripts/buildsystems/vcpkg.cmake"}}
	require.NoError(t, Apply(p, store))
	require.NoError(t, Apply(p, store))

	assert.Equal(t, "/opt/vcpkg/scripts/buildsystems/vcpkg.cmake", os.Getenv(ToolchainVar))

	raw, err := os.ReadFile(store.Path)
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(raw), "vcpkg.cmake"), "set entries must not be re-persisted")
}

func TestApplySkipsEmptyValues(t *testing.T) {
	store := tempProfile(t)
	require.NoError(t, Apply(Patch{{Var: "PATH", Value: "", Append: true}}, store))

	_, err := os.Stat(store.Path)
	assert.True(t, os.IsNotExist(err))
}

func TestApplyStoreFailureIsAdvisory(t *testing.T) {
	t.Setenv("AB_TEST_PATH", "")
	// A profile path inside a missing directory makes every write fail.
	store := &ProfileStore{Path: filepath.Join(t.TempDir(), "missing", ".bashrc")}

	p := Patch{{Var: "AB_TEST_PATH", Value: "/usr/local/bin", Append: true}}
	require.NoError(t, Apply(p, store), "persist failures must not fail the run")
	assert.Contains(t, os.Getenv("AB_TEST_PATH"), "/usr/local/bin")
}

func TestHasSegment(t *testing.T) {
	sep := string(os.PathListSeparator)
	list := "/usr/local/lib64" + sep + "/opt/lib"
	assert.False(t, hasSegment(list, "/usr/local/lib"), "substring of a longer segment must not count")
	assert.True(t, hasSegment(list, "/opt/lib"))
	assert.False(t, hasSegment("", "/opt/lib"))
}

func TestDefaultPatchPerPlatform(t *testing.T) {
	linux := DefaultPatch(platform.Descriptor{Family: platform.Linux}, "/home/u/.autobuild/bin", "")
	vars := patchVars(linux)
	assert.Contains(t, vars, "PATH")
	assert.Contains(t, vars, "LD_LIBRARY_PATH")
	assert.NotContains(t, vars, "DYLD_LIBRARY_PATH")

	mac := DefaultPatch(platform.Descriptor{Family: platform.MacOS}, "/home/u/.autobuild/bin", "")
	assert.Contains(t, patchVars(mac), "DYLD_LIBRARY_PATH")

	win := DefaultPatch(platform.Descriptor{Family: platform.Windows}, `C:\tools`, `C:\vcpkg`)
	winVars := patchVars(win)
	assert.Contains(t, winVars, "LIB")
	assert.Contains(t, winVars, "INCLUDE")
	assert.Contains(t, winVars, ToolchainVar)
}

func TestDefaultPatchUsesHomebrewPrefix(t *testing.T) {
	t.Setenv("HOMEBREW_PREFIX", "/opt/homebrew")
	mac := DefaultPatch(platform.Descriptor{Family: platform.MacOS}, "/Users/u/.autobuild/bin", "")

	var values []string
	for _, e := range mac {
		values = append(values, e.Value)
	}
	assert.Contains(t, values, "/opt/homebrew/bin")
	assert.Contains(t, values, "/opt/homebrew/lib")
	assert.NotContains(t, values, "/usr/local/lib")
}

func TestHomebrewPrefixFallsBackPerArch(t *testing.T) {
	t.Setenv("HOMEBREW_PREFIX", "")
	want := "/usr/local"
	if runtime.GOARCH == "arm64" {
		want = "/opt/homebrew"
	}
	assert.Equal(t, want, homebrewPrefix())
}

func patchVars(p Patch) []string {
	var vars []string
	for _, e := range p {
		vars = append(vars, e.Var)
	}
	return vars
}
