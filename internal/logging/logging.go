// Package logging builds the structured JSON logger shared by every component.
package logging

import (
	"io"
	"time"

	"github.com/charmbracelet/log"
)

// New returns a JSON logger writing to w at the given level.
// Unknown levels fall back to info.
func New(w io.Writer, level string) *log.Logger {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		lvl = log.InfoLevel
	}
	return log.NewWithOptions(w, log.Options{
		Level:           lvl,
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339Nano,
		Formatter:       log.JSONFormatter,
	})
}

// Nop returns a logger that discards everything. Intended for tests.
func Nop() *log.Logger {
	return log.New(io.Discard)
}
