package logger

import (
	"github.com/fatih/color"
)

// Package-level printf-style loggers, colored per level. Everything goes to
// the terminal; the pipeline reports machine-readable status only through
// its exit code, so plain colored text is the whole output surface.

// Info logs normal progress in green.
var Info = color.New(color.FgGreen).PrintfFunc()

// Warn logs advisory problems (optional package failed, profile not
// writable) in bright magenta.
var Warn = color.New(color.FgHiMagenta).PrintfFunc()

// Error logs failures in red.
var Error = color.New(color.FgRed).PrintfFunc()

// Stage announces a pipeline stage transition in bold cyan.
var Stage = color.New(color.FgCyan, color.Bold).PrintfFunc()

// Debug logs verbose diagnostics in cyan when enabled, otherwise drops them.
// Assigned by Init.
var Debug func(format string, a ...any)

// Init wires up debug logging. With enableDebug false, Debug is a no-op.
func Init(enableDebug bool) {
	if enableDebug {
		Debug = color.New(color.FgCyan).PrintfFunc()
	} else {
		Debug = func(format string, a ...any) {}
	}
}

func init() {
	// Commands that never reach Init (help, completion) must still be able
	// to call Debug without a nil deref.
	Init(false)
}
