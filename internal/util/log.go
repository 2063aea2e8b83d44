// Package util holds small shared helpers (logging construction, session ids).
package util

import (
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// NewLogger builds a stdout logger at the requested level, falling back to info.
func NewLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger().Level(lvl)
}

// OpenRunLog truncates the per-run log file at path and returns a logger that
// writes to both the file and stderr. The caller owns closing the file.
func OpenRunLog(path, level string) (zerolog.Logger, *os.File, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return zerolog.Nop(), nil, err
	}
	lvl, perr := zerolog.ParseLevel(strings.ToLower(level))
	if perr != nil {
		lvl = zerolog.InfoLevel
	}
	writer := zerolog.MultiLevelWriter(file, os.Stderr)
	logger := zerolog.New(writer).With().Timestamp().Logger().Level(lvl)
	return logger, file, nil
}

// NewSessionID returns the run identifier stamped on every trade log row.
func NewSessionID(now time.Time) string {
	return now.Format("20060102_150405")
}
