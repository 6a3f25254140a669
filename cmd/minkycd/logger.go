// logger.go - Structured logging for the CLI.
package main

import "github.com/mborders/logmatic"

// newLogger builds the process logger at the configured level.
func newLogger(level string) *logmatic.Logger {
	l := logmatic.NewLogger()
	switch level {
	case "trace":
		l.SetLevel(logmatic.TRACE)
	case "debug":
		l.SetLevel(logmatic.DEBUG)
	case "warn":
		l.SetLevel(logmatic.WARN)
	case "error":
		l.SetLevel(logmatic.ERROR)
	default:
		l.SetLevel(logmatic.INFO)
	}
	return l
}
