// Package plog is a thin leveled wrapper around the standard logger.
//
// The original CLI sprinkled log.Printf("Warning: ...") and
// log.Printf("DB: ...") calls directly; this generalizes that into a
// small gate so --debug can turn on per-file trace output without
// littering every call site with an if-check.
package plog

import (
	"log"
	"os"
)

var debugEnabled bool

// SetDebug toggles whether Debug messages are emitted. Mirrors the CLI's
// --debug flag.
func SetDebug(enabled bool) {
	debugEnabled = enabled
}

var std = log.New(os.Stderr, "", log.LstdFlags)

// Debug logs a per-file trace message. Suppressed unless --debug is set.
func Debug(format string, args ...interface{}) {
	if !debugEnabled {
		return
	}
	std.Printf("DEBUG: "+format, args...)
}

// Info logs an always-visible informational message.
func Info(format string, args ...interface{}) {
	std.Printf(format, args...)
}

// Warn logs an always-visible warning; used for per-file errors that are
// accumulated rather than fatal.
func Warn(format string, args ...interface{}) {
	std.Printf("WARNING: "+format, args...)
}
