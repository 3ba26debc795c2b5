// Package logging configures the process-wide structured logger.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/phuslu/log"
)

// Setup points the default logger at stdout and, when file is not empty, a
// rotating log file next to it. The returned closer flushes the file.
func Setup(level, file string) io.Closer {
	console := &log.ConsoleWriter{
		ColorOutput:    log.IsTerminal(os.Stdout.Fd()),
		EndWithMessage: true,
		Writer:         os.Stdout,
	}

	log.DefaultLogger = log.Logger{
		Level:      ParseLevel(level),
		Caller:     1,
		TimeFormat: "2006-01-02 15:04:05",
		Writer:     console,
	}

	if file == "" {
		return nopCloser{}
	}

	fw := &log.FileWriter{
		Filename:   file,
		FileMode:   0644,
		MaxSize:    50 * 1024 * 1024,
		MaxBackups: 5,
		LocalTime:  true,
	}
	log.DefaultLogger.Writer = &log.MultiEntryWriter{console, fw}
	return fw
}

// SetLevel changes the level of the default logger at runtime.
func SetLevel(level string) {
	log.DefaultLogger.SetLevel(ParseLevel(level))
}

// ParseLevel maps a config value onto a log level, defaulting to info.
func ParseLevel(level string) log.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return log.TraceLevel
	case "debug":
		return log.DebugLevel
	case "warn", "warning":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
