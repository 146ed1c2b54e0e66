//go:build windows

package envstore

import (
	"strings"

	"golang.org/x/sys/windows/registry"
)

// RegistryStore persists environment changes into the per-user Environment
// registry key, the Windows analogue of a shell profile. Machine-wide
// variables would need Administrator rights for HKLM; user scope is enough
// for the build delegate and avoids another elevation edge.
type RegistryStore struct{}

const envKeyPath = `Environment`

func openEnvKey(access uint32) (registry.Key, error) {
	return registry.OpenKey(registry.CURRENT_USER, envKeyPath, access)
}

func (s *RegistryStore) Read(name string) (string, error) {
	k, err := openEnvKey(registry.QUERY_VALUE)
	if err != nil {
		return "", err
	}
	defer k.Close()

	v, _, err := k.GetStringValue(name)
	if err == registry.ErrNotExist {
		return "", nil
	}
	return v, err
}

func (s *RegistryStore) Write(name, value string) error {
	k, err := openEnvKey(registry.SET_VALUE)
	if err != nil {
		return err
	}
	defer k.Close()
	return k.SetExpandStringValue(name, value)
}

func (s *RegistryStore) Append(name, segment string) error {
	current, err := s.Read(name)
	if err != nil {
		return err
	}
	if current == "" {
		return s.Write(name, segment)
	}
	return s.Write(name, current+";"+segment)
}

func (s *RegistryStore) Contains(name, substring string) (bool, error) {
	current, err := s.Read(name)
	if err != nil {
		return false, err
	}
	return strings.Contains(current, substring), nil
}

// NewStore returns the platform's persistent environment store.
func NewStore() (Store, error) {
	return &RegistryStore{}, nil
}
