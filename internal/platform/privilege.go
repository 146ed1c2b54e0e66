package platform

import "fmt"

// PrivilegeError reports that the process lacks the rights a system-wide
// install needs. On Windows it is a hard gate raised before any mutation;
// on POSIX the shortfall is advisory and this error is only logged.
type PrivilegeError struct {
	Remediation string
}

func (e *PrivilegeError) Error() string {
	return fmt.Sprintf("insufficient privileges: %s", e.Remediation)
}

// CheckPrivilege reports whether the process is elevated and, when the
// platform demands elevation, returns a PrivilegeError.
//
// The asymmetry is deliberate: Windows installs write machine-wide state
// (vcpkg trees, user environment in the registry) and must not be attempted
// half-privileged, so the check is fatal there. POSIX package managers invoke
// sudo themselves, so a non-root run merely warns.
func CheckPrivilege(d Descriptor) (elevated bool, err error) {
	elevated = isElevated()
	if !elevated && d.Family == Windows {
		return false, &PrivilegeError{Remediation: "re-run as Administrator"}
	}
	return elevated, nil
}
