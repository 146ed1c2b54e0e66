// Package envstore persists search-path changes so a freshly provisioned
// host keeps them across shells, and mirrors them into the current process
// so the build delegate sees them without a restart.
//
// The persistent side is abstracted as a Store: a shell profile file on
// POSIX, the registry-backed user environment on Windows. Neither the
// resolver nor the mutator knows which one it is talking to.
package envstore

import "fmt"

// Store is the persistent environment capability.
type Store interface {
	// Read returns the stored value for name, or "" when absent.
	Read(name string) (string, error)

	// Write records value as the full value of name.
	Write(name, value string) error

	// Append adds one search-path segment to name. Callers are expected to
	// consult Contains first; Append itself does not deduplicate.
	Append(name, segment string) error

	// Contains reports whether substring already occurs in the stored
	// value of name. It is the guard that keeps repeated runs from growing
	// the variable without bound.
	Contains(name, substring string) (bool, error)
}

// PersistError reports a failed write to the persistent store. It is
// advisory: the in-process environment is already applied when it is
// raised, so the current run can still build.
type PersistError struct {
	Var string
	Err error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("persisting %s: %v", e.Var, e.Err)
}

func (e *PersistError) Unwrap() error { return e.Err }
