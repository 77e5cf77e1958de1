// Package logging constructs the daemon's package-level logger. The
// teacher imports logrus directly as a package-level "log" rather than
// threading a logger through every struct; statsdaggd follows suit but
// centralizes construction here so cmd/statsdaggd can set the level
// and format once at startup.
package logging

import (
	"os"

	"github.com/sirupsen/logrus"
)

// New returns a logrus.Logger writing text-formatted lines to stderr
// at the given level name ("debug", "info", "warn", "error"). An
// unrecognized level falls back to "info".
func New(level string) *logrus.Logger {
	l := logrus.New()
	l.Out = os.Stderr
	l.Formatter = &logrus.TextFormatter{FullTimestamp: true}

	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		parsed = logrus.InfoLevel
	}
	l.SetLevel(parsed)
	return l
}
