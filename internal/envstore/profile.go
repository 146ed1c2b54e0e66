package envstore

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	homedir "github.com/mitchellh/go-homedir"

	"github.com/GlacierEQ/drogon-autobuild/internal/logger"
)

// ProfileStore persists environment changes by appending export lines to the
// user's shell rc file. Lines are only ever appended, never rewritten, so a
// hand-edited profile stays intact; Contains keeps re-runs from appending
// the same entry twice.
type ProfileStore struct {
	Path string
}

// NewProfileStore locates the rc file of the user's shell, zsh or bash,
// defaulting to .bashrc when the shell is unknown.
func NewProfileStore() (*ProfileStore, error) {
	home, err := homedir.Dir()
	if err != nil {
		return nil, fmt.Errorf("resolving home directory: %w", err)
	}

	rc := ".bashrc"
	if strings.Contains(os.Getenv("SHELL"), "zsh") {
		rc = ".zshrc"
	}
	path := filepath.Join(home, rc)
	logger.Debug("[DEBUG] Using profile file %s\n", path)
	return &ProfileStore{Path: path}, nil
}

// Read returns the value from the last export line for name, with $NAME
// self-references and surrounding quotes stripped off.
func (s *ProfileStore) Read(name string) (string, error) {
	lines, err := s.lines()
	if err != nil {
		return "", err
	}
	prefix := "export " + name + "="
	var value string
	for _, line := range lines {
		if strings.HasPrefix(line, prefix) {
			value = strings.Trim(strings.TrimPrefix(line, prefix), `"'`)
		}
	}
	return value, nil
}

// Write appends a plain assignment for name.
func (s *ProfileStore) Write(name, value string) error {
	return s.appendLine(fmt.Sprintf("export %s=%q", name, value))
}

// Append appends a self-referencing export so the segment extends whatever
// value the shell already has.
func (s *ProfileStore) Append(name, segment string) error {
	return s.appendLine(fmt.Sprintf(`export %s="$%s:%s"`, name, name, segment))
}

// Contains reports whether any line mentioning name already carries
// substring.
func (s *ProfileStore) Contains(name, substring string) (bool, error) {
	lines, err := s.lines()
	if err != nil {
		return false, err
	}
	for _, line := range lines {
		if strings.Contains(line, name) && strings.Contains(line, substring) {
			return true, nil
		}
	}
	return false, nil
}

func (s *ProfileStore) lines() ([]string, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, strings.TrimSpace(scanner.Text()))
	}
	return lines, scanner.Err()
}

func (s *ProfileStore) appendLine(line string) error {
	f, err := os.OpenFile(s.Path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.WriteString(line + "\n")
	return err
}
