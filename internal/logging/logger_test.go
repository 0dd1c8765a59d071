package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLoggerWritesJSONFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")

	l, err := NewLogger(dir, "debug")
	require.NoError(t, err)
	l.WithComponent("session").Debug("login started", "username", "alice")
	require.NoError(t, l.Close())

	data, err := os.ReadFile(filepath.Join(dir, FileName))
	require.NoError(t, err)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(data), &entry))
	assert.Equal(t, "login started", entry["msg"])
	assert.Equal(t, "session", entry["component"])
	assert.Equal(t, "alice", entry["username"])
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, "warn")

	l.Info("hidden")
	l.Warn("shown")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown")
}

func TestIsValidLevel(t *testing.T) {
	for _, lvl := range []string{"debug", "INFO", "Warn", "error"} {
		assert.True(t, IsValidLevel(lvl), lvl)
	}
	assert.False(t, IsValidLevel("trace"))
}

func TestNopLoggerCloseIsSafe(t *testing.T) {
	l := NopLogger()
	l.Error("dropped")
	assert.NoError(t, l.Close())
	assert.NoError(t, l.Close())
}
