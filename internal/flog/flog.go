// Package flog is the small logging shim library packages use: a thin
// wrapper over the stdlib log package that tags every line with the
// component that emitted it, matching the bracketed-prefix convention the
// teacher's own CLI binaries use for their progress output.
package flog

import "log"

// Logger prefixes every line with "[flute] <component>: ".
type Logger struct {
	component string
}

// New returns a Logger for component.
func New(component string) *Logger {
	return &Logger{component: component}
}

// Warnf logs a warning-level line.
func (l *Logger) Warnf(format string, args ...any) {
	log.Printf("[flute] "+l.component+": "+format, args...)
}

// Infof logs an informational line.
func (l *Logger) Infof(format string, args ...any) {
	log.Printf("[flute] "+l.component+": "+format, args...)
}
