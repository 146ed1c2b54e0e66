// Package scaffold writes the small integration files the build workflow
// hands to other tools: VS Code tasks that dispatch back into autobuild,
// and a wrapper Makefile or batch script for people who type make.
package scaffold

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/GlacierEQ/drogon-autobuild/internal/logger"
)

// task mirrors one entry of .vscode/tasks.json.
type task struct {
	Label          string            `json:"label"`
	Type           string            `json:"type"`
	Command        string            `json:"command"`
	Args           []string          `json:"args"`
	Group          any               `json:"group,omitempty"`
	ProblemMatcher []string          `json:"problemMatcher"`
	Presentation   map[string]string `json:"presentation,omitempty"`
}

type tasksFile struct {
	Version string `json:"version"`
	Tasks   []task `json:"tasks"`
}

// WriteVSCodeTasks emits .vscode/tasks.json under root with the three editor
// actions — build, clean, configure — each shelling out to autobuild.
func WriteVSCodeTasks(root string) error {
	dir := filepath.Join(root, ".vscode")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}

	matchers := []string{"$gcc", "$msCompile"}
	tf := tasksFile{
		Version: "2.0.0",
		Tasks: []task{
			{
				Label:          "Auto-Build Drogon",
				Type:           "shell",
				Command:        "autobuild",
				Args:           []string{"build"},
				Group:          map[string]any{"kind": "build", "isDefault": true},
				ProblemMatcher: matchers,
				Presentation:   map[string]string{"reveal": "always", "panel": "shared"},
			},
			{
				Label:          "Configure Drogon Build",
				Type:           "shell",
				Command:        "autobuild",
				Args:           []string{"configure"},
				ProblemMatcher: matchers,
			},
			{
				Label:          "Clean Drogon Build",
				Type:           "shell",
				Command:        "autobuild",
				Args:           []string{"clean"},
				ProblemMatcher: []string{},
			},
		},
	}

	raw, err := json.MarshalIndent(tf, "", "  ")
	if err != nil {
		return err
	}
	path := filepath.Join(dir, "tasks.json")
	if err := os.WriteFile(path, raw, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	logger.Info("[INFO] Wrote %s\n", path)
	return nil
}

// WriteBuildWrapper emits a wrapper that re-invokes autobuild: a Makefile on
// POSIX, auto_make.bat on Windows.
func WriteBuildWrapper(root string) error {
	if runtime.GOOS == "windows" {
		return writeBatchWrapper(root)
	}
	return writeMakefile(root)
}

func writeMakefile(root string) error {
	path := filepath.Join(root, "Makefile")
	content := `# Auto-generated by drogon-autobuild
.PHONY: all configure clean

all:
	autobuild build

configure:
	autobuild configure

clean:
	autobuild clean
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	logger.Info("[INFO] Wrote %s\n", path)
	return nil
}

func writeBatchWrapper(root string) error {
	path := filepath.Join(root, "auto_make.bat")
	content := "@echo off\r\n" +
		"echo Running Drogon Auto Build System\r\n" +
		"autobuild build\r\n" +
		"if %ERRORLEVEL% NEQ 0 (\r\n" +
		"    echo Build failed!\r\n" +
		"    exit /b %ERRORLEVEL%\r\n" +
		")\r\n"
	if err := os.WriteFile(path, []byte(content), 0755); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	logger.Info("[INFO] Wrote %s\n", path)
	return nil
}
