package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// captureBackend swaps the zerolog backend for one writing JSON into buf.
func captureBackend(t *testing.T, level zerolog.Level) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	original := *backend()
	SetBackend(zerolog.New(&buf).Level(level))
	t.Cleanup(func() { SetBackend(original) })
	return &buf
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &m))
		out = append(out, m)
	}
	return out
}

func TestComponentLogger_Levels(t *testing.T) {
	buf := captureBackend(t, zerolog.DebugLevel)

	l := New("net")
	l.Debug("probe %s", "google.com")
	l.Info("connected to %s", "home")
	l.Warn("rssi %d", -80)
	l.Error("association failed")

	lines := decodeLines(t, buf)
	require.Len(t, lines, 4)

	assert.Equal(t, "debug", lines[0]["level"])
	assert.Equal(t, "probe google.com", lines[0]["message"])
	assert.Equal(t, "info", lines[1]["level"])
	assert.Equal(t, "warn", lines[2]["level"])
	assert.Equal(t, "rssi -80", lines[2]["message"])
	assert.Equal(t, "error", lines[3]["level"])
	for _, line := range lines {
		assert.Equal(t, "net", line["component"])
	}
}

func TestComponentLogger_RespectsLevel(t *testing.T) {
	buf := captureBackend(t, zerolog.InfoLevel)

	l := New("poll")
	l.Debug("hidden")
	l.Info("shown")

	lines := decodeLines(t, buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "shown", lines[0]["message"])
}

func TestComponentLogger_NoComponent(t *testing.T) {
	buf := captureBackend(t, zerolog.InfoLevel)

	New("").Info("bare")

	lines := decodeLines(t, buf)
	require.Len(t, lines, 1)
	_, ok := lines[0]["component"]
	assert.False(t, ok)
}

func TestInit_InvalidLevel(t *testing.T) {
	original := *backend()
	t.Cleanup(func() { SetBackend(original) })

	err := Init(Config{Level: "chatty"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chatty")
}

func TestInit_ValidLevel(t *testing.T) {
	original := *backend()
	t.Cleanup(func() { SetBackend(original) })

	require.NoError(t, Init(Config{Level: "warn", Output: "stdout"}))
	assert.Equal(t, zerolog.WarnLevel, backend().GetLevel())
}

func TestInit_FileOutput(t *testing.T) {
	original := *backend()
	t.Cleanup(func() { SetBackend(original) })

	path := filepath.Join(t.TempDir(), "ddmatrix.log")
	require.NoError(t, Init(Config{Level: "info", Output: path}))
	New("poll").Info("Loaded metric: %s", "CPU")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"component":"poll"`)
	assert.Contains(t, string(data), "Loaded metric: CPU")
}

func TestInit_ReplacingBackendClosesLogFile(t *testing.T) {
	original := *backend()
	t.Cleanup(func() { SetBackend(original) })
	dir := t.TempDir()

	require.NoError(t, Init(Config{Output: filepath.Join(dir, "first.log")}))
	first := logFile
	require.NotNil(t, first)

	require.NoError(t, Init(Config{Output: filepath.Join(dir, "second.log")}))
	second := logFile
	_, err := first.WriteString("late\n")
	assert.ErrorIs(t, err, os.ErrClosed, "previous log file must be closed")

	Close()
	assert.Nil(t, logFile)
	_, err = second.WriteString("late\n")
	assert.ErrorIs(t, err, os.ErrClosed)
}

func TestInit_InvalidLevelOpensNothing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ddmatrix.log")
	require.Error(t, Init(Config{Level: "loud", Output: path}))
	_, err := os.Stat(path)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestInit_FileOutputUnwritable(t *testing.T) {
	err := Init(Config{Output: filepath.Join(t.TempDir(), "missing", "ddmatrix.log")})
	assert.Error(t, err)
}

func TestInit_DebugEnv(t *testing.T) {
	original := *backend()
	t.Cleanup(func() { SetBackend(original) })
	t.Setenv("DDMATRIX_DEBUG", "1")

	require.NoError(t, Init(Config{Level: "error"}))
	assert.Equal(t, zerolog.DebugLevel, backend().GetLevel())
}

func TestNoopLogger(t *testing.T) {
	buf := captureBackend(t, zerolog.DebugLevel)

	l := Noop()
	l.Debug("debug")
	l.Info("info")
	l.Warn("warn")
	l.Error("error")

	assert.Empty(t, buf.String(), "noop logger should not produce any output")
}

func TestBufferLogger(t *testing.T) {
	l := NewBufferLogger()

	l.Debug("debug %s", "msg")
	l.Info("info %s", "msg")
	l.Warn("warn %s", "msg")
	l.Error("error %s", "msg")

	require.Len(t, l.Messages, 4)
	assert.Equal(t, LogMessage{Level: "debug", Message: "debug msg"}, l.Messages[0])
	assert.Equal(t, LogMessage{Level: "info", Message: "info msg"}, l.Messages[1])
	assert.Equal(t, LogMessage{Level: "warn", Message: "warn msg"}, l.Messages[2])
	assert.Equal(t, LogMessage{Level: "error", Message: "error msg"}, l.Messages[3])

	assert.True(t, l.HasLevel("warn"))
	assert.True(t, l.Contains("error m"))
	assert.False(t, l.Contains("nope"))

	l.Clear()
	assert.Empty(t, l.Messages)
	assert.False(t, l.HasLevel("warn"))
}

func TestLoggerInterface(t *testing.T) {
	var _ Logger = New("")
	var _ Logger = Noop()
	var _ Logger = NewBufferLogger()
}
