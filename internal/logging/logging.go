// Package logging constructs the loggers used across kiln.
package logging

import "go.uber.org/zap"

// New returns a development logger when verbose is set, a no-op logger
// otherwise. Falling back to the no-op logger on construction failure keeps
// cache operations running without diagnostics rather than failing.
func New(verbose bool) *zap.Logger {
	if !verbose {
		return zap.NewNop()
	}
	logger, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}
