package infra

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestNewLoggerProductionWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "production", "", "api")
	if logger.GetLevel() != zerolog.InfoLevel {
		t.Fatalf("level mismatch: got %s", logger.GetLevel())
	}
	logger.Debug().Msg("hidden")
	logger.Info().Msg("visible")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected one line, got %d: %q", len(lines), buf.String())
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("log line is not json: %v", err)
	}
	if entry["service"] != "api" || entry["message"] != "visible" {
		t.Fatalf("unexpected entry: %#v", entry)
	}
}

func TestNewLoggerLevelOverride(t *testing.T) {
	var buf bytes.Buffer
	if got := newLogger(&buf, "development", "warn", "").GetLevel(); got != zerolog.WarnLevel {
		t.Fatalf("level override ignored: got %s", got)
	}
	if got := newLogger(&buf, "development", "bogus", "").GetLevel(); got != zerolog.DebugLevel {
		t.Fatalf("invalid level should keep the env default: got %s", got)
	}
}
