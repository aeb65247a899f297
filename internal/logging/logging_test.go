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

func TestLevelRouting(t *testing.T) {
	var stdout, stderr bytes.Buffer
	logger, cleanup, err := New(Options{Stdout: &stdout, Stderr: &stderr})
	require.NoError(t, err)
	defer cleanup()

	logger.Debug("hidden")
	logger.Info("started", "addr", ":8080")
	logger.Warn("slow")
	logger.Error("failed to write", "error", "disk full")

	assert.NotContains(t, stdout.String(), "hidden")
	assert.Contains(t, stdout.String(), "msg=started")
	assert.Contains(t, stdout.String(), "msg=slow")
	assert.NotContains(t, stdout.String(), "failed to write")
	assert.Contains(t, stderr.String(), `msg="failed to write"`)
}

func TestDebugLevelAndAttrs(t *testing.T) {
	var stdout, stderr bytes.Buffer
	logger, cleanup, err := New(Options{Level: "debug", Stdout: &stdout, Stderr: &stderr})
	require.NoError(t, err)
	defer cleanup()

	logger.With("component", "store").WithGroup("item").Debug("inserted", "id", 7)
	assert.Contains(t, stdout.String(), "component=store")
	assert.Contains(t, stdout.String(), "item.id=7")
}

func TestJSONFormat(t *testing.T) {
	var stdout bytes.Buffer
	logger, cleanup, err := New(Options{Format: "json", Stdout: &stdout, Stderr: &bytes.Buffer{}})
	require.NoError(t, err)
	defer cleanup()

	logger.Info("ready", "items", 3)

	var record map[string]any
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &record))
	assert.Equal(t, "ready", record["msg"])
	assert.Equal(t, 3.0, record["items"])
}

func TestLogFileReceivesAllLevels(t *testing.T) {
	path := filepath.Join(t.TempDir(), "zaloga.log")
	logger, cleanup, err := New(Options{File: path, Stdout: &bytes.Buffer{}, Stderr: &bytes.Buffer{}})
	require.NoError(t, err)

	logger.Info("first")
	logger.Error("second")
	cleanup()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "first")
	assert.Contains(t, string(data), "second")
}

func TestInvalidOptions(t *testing.T) {
	tests := []struct {
		name string
		opts Options
	}{
		{"level", Options{Level: "loud"}},
		{"format", Options{Format: "xml"}},
		{"file", Options{File: filepath.Join(t.TempDir(), "missing", "zaloga.log")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := New(tt.opts)
			assert.Error(t, err)
		})
	}
}
