// Package testutil holds helpers shared by the package tests, chiefly for
// planting stub executables on a temporary PATH so command invocations can
// be exercised without touching real package managers or compilers.
package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

// WriteStub writes an executable shell stub named name into dir that exits 0.
func WriteStub(t *testing.T, dir, name string) {
	t.Helper()
	WriteStubWithExit(t, dir, name, 0)
}

// WriteStubWithExit writes an executable shell stub that exits with exitCode.
func WriteStubWithExit(t *testing.T, dir, name string, exitCode int) {
	t.Helper()
	path := filepath.Join(dir, name)
	content := fmt.Sprintf("#!/bin/sh\nexit %d\n", exitCode)
	if err := os.WriteFile(path, []byte(content), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
}

// WriteStubEcho writes an executable shell stub that prints output and exits 0.
func WriteStubEcho(t *testing.T, dir, name, output string) {
	t.Helper()
	path := filepath.Join(dir, name)
	content := fmt.Sprintf("#!/bin/sh\necho %q\nexit 0\n", output)
	if err := os.WriteFile(path, []byte(content), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
}

// PrependPath puts dir at the front of PATH for the duration of the test.
func PrependPath(t *testing.T, dir string) {
	t.Helper()
	t.Setenv("PATH", dir+string(os.PathListSeparator)+os.Getenv("PATH"))
}
