// Package logging provides the structured logger injected into every
// long-lived component (volume readers, the journal monitor, the pipeline,
// the search engine). Components accept a *zap.SugaredLogger field on
// their Config/Options struct and fall back to a no-op logger when the
// caller leaves it nil, matching the dependency-injection pattern used
// throughout the corpus's engine/storage constructors.
package logging

import (
	"go.uber.org/zap"
)

// NewDevelopment returns a human-readable console logger suitable for
// cmd/volumefind and local debugging.
func NewDevelopment() *zap.SugaredLogger {
	l, err := zap.NewDevelopment()
	if err != nil {
		return Nop()
	}
	return l.Sugar()
}

// NewProduction returns a JSON logger suitable for long-running services.
func NewProduction() *zap.SugaredLogger {
	l, err := zap.NewProduction()
	if err != nil {
		return Nop()
	}
	return l.Sugar()
}

// Nop returns a logger that discards everything. Safe to retain and call
// from any component whose caller did not supply one.
func Nop() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}

// OrNop returns log if non-nil, otherwise a no-op logger. Every component
// constructor in this module calls this on the logger it was handed.
func OrNop(log *zap.SugaredLogger) *zap.SugaredLogger {
	if log == nil {
		return Nop()
	}
	return log
}
