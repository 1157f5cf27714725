// Package monitoring holds the process-wide diagnostic logger used by the
// engine's runtime paths. Keeping it behind an indirection lets tests mute
// the noisy paths (reflex events, recorder activity) without touching the
// standard logger's global state.
package monitoring

import "log"

// Logf is the package-level diagnostic logger. It defaults to log.Printf and
// may be replaced with SetLogger.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger. Passing nil installs a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}
