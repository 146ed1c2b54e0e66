//go:build windows

package platform

import (
	"golang.org/x/sys/windows"
)

// isElevated reports whether the process token carries Administrator
// elevation. Querying the token directly avoids the classic "net session"
// probe the batch scripts used.
func isElevated() bool {
	var token windows.Token
	proc := windows.CurrentProcess()
	if err := windows.OpenProcessToken(proc, windows.TOKEN_QUERY, &token); err != nil {
		return false
	}
	defer token.Close()
	return token.IsElevated()
}
