package util

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestNewLoggerLevel(t *testing.T) {
	logger := NewLogger("debug")
	if logger.GetLevel() != zerolog.DebugLevel {
		t.Fatalf("expected debug level, got %s", logger.GetLevel())
	}

	logger = NewLogger("invalid")
	if logger.GetLevel() != zerolog.InfoLevel {
		t.Fatalf("expected info fallback, got %s", logger.GetLevel())
	}
}

func TestOpenRunLogTruncates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bot.log")

	logger, file, err := OpenRunLog(path, "info")
	if err != nil {
		t.Fatalf("OpenRunLog returned error: %v", err)
	}
	logger.Info().Msg("first run line")
	if err := file.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	_, file, err = OpenRunLog(path, "info")
	if err != nil {
		t.Fatalf("second OpenRunLog returned error: %v", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Size() != 0 {
		t.Fatalf("expected truncated file, got %d bytes", info.Size())
	}
}

func TestNewSessionID(t *testing.T) {
	ts := time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)
	if got := NewSessionID(ts); got != "20250314_092653" {
		t.Fatalf("unexpected session id: %s", got)
	}
}
