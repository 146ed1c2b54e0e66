//go:build !windows

package scaffold

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteVSCodeTasks(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, WriteVSCodeTasks(root))

	raw, err := os.ReadFile(filepath.Join(root, ".vscode", "tasks.json"))
	require.NoError(t, err)

	var tf tasksFile
	require.NoError(t, json.Unmarshal(raw, &tf))
	assert.Equal(t, "2.0.0", tf.Version)
	require.Len(t, tf.Tasks, 3)

	labels := make([]string, len(tf.Tasks))
	for i, task := range tf.Tasks {
		labels[i] = task.Label
		assert.Equal(t, "shell", task.Type)
		assert.Equal(t, "autobuild", task.Command)
	}
	assert.Equal(t, []string{"Auto-Build Drogon", "Configure Drogon Build", "Clean Drogon Build"}, labels)

	// The build task is the editor's default build action.
	group, ok := tf.Tasks[0].Group.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, true, group["isDefault"])
	assert.Equal(t, []string{"build"}, tf.Tasks[0].Args)
}

func TestWriteVSCodeTasksOverwrites(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, ".vscode")
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tasks.json"), []byte("stale"), 0644))

	require.NoError(t, WriteVSCodeTasks(root))

	raw, err := os.ReadFile(filepath.Join(dir, "tasks.json"))
	require.NoError(t, err)
	assert.True(t, json.Valid(raw))
}

func TestWriteBuildWrapper(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, WriteBuildWrapper(root))

	raw, err := os.ReadFile(filepath.Join(root, "Makefile"))
	require.NoError(t, err)
	content := string(raw)
	assert.Contains(t, content, ".PHONY: all configure clean")
	assert.Contains(t, content, "autobuild build")
	assert.Contains(t, content, "autobuild configure")
	assert.Contains(t, content, "autobuild clean")
}

func TestWriteBatchWrapper(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, writeBatchWrapper(root))

	raw, err := os.ReadFile(filepath.Join(root, "auto_make.bat"))
	require.NoError(t, err)
	content := string(raw)
	assert.Contains(t, content, "@echo off")
	assert.Contains(t, content, "autobuild build")
	assert.Contains(t, content, "ERRORLEVEL")
}
