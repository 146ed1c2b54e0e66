//go:build !windows

package envstore

// NewStore returns the platform's persistent environment store.
func NewStore() (Store, error) {
	return NewProfileStore()
}
