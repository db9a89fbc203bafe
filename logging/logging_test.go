package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/segmentio/encoding/json"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		" DEBUG ": zapcore.DebugLevel,
		"warn":    zapcore.WarnLevel,
		"warning": zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"info":    zapcore.InfoLevel,
		"":        zapcore.InfoLevel,
		"verbose": zapcore.InfoLevel,
	} {
		require.Equal(t, want, ParseLevel(in), "level %q", in)
	}
}

func TestNewNop(t *testing.T) {
	log, err := New(Config{})
	require.NoError(t, err)
	require.False(t, log.Core().Enabled(zapcore.ErrorLevel))
}

func TestConsoleLevel(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(Config{Level: "warn", Console: true, Output: &buf})
	require.NoError(t, err)
	log.Info("hidden")
	log.Warn("shown", zap.Int("steps", 3))
	require.NoError(t, log.Sync())
	out := buf.String()
	require.NotContains(t, out, "hidden")
	require.Contains(t, out, "shown")
	require.Contains(t, out, "WARN")
	require.Contains(t, out, "steps")
}

func TestFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "csg.log")
	cfg := DefaultFileConfig(path)
	cfg.Compress = false
	log, err := New(Config{Level: "debug", File: cfg})
	require.NoError(t, err)
	log.Debug("intercept candidate rejected", zap.String("part", "first"))
	require.NoError(t, log.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 1)
	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	require.Equal(t, "debug", entry["level"])
	require.Equal(t, "intercept candidate rejected", entry["msg"])
	require.Equal(t, "first", entry["part"])
}
