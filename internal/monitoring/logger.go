// Package monitoring carries the package-level diagnostic logger the
// analysis pipeline reports through. It defaults to the standard
// library logger and can be redirected or muted, so library consumers
// keep full control of their log output.
package monitoring

import "log"

// Logf is the diagnostic logger used by the pipeline stages. Replace
// it via SetLogger; tests typically mute it.
var Logf func(format string, v ...interface{}) = log.Printf

// Verbose gates Debugf. Stage-internal chatter (segment counts,
// threshold relaxations, unresolved stretches) only appears when set.
var Verbose bool

// SetLogger replaces the package logger. Passing nil installs a no-op
// logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// Debugf logs through Logf only when Verbose is set.
func Debugf(format string, v ...interface{}) {
	if Verbose {
		Logf(format, v...)
	}
}
