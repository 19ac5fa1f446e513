package logger

import (
	"bytes"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSinkPathFromDir(t *testing.T) {
	c := SinkConfig{Dir: "/var/log/farmkeep"}
	assert.Equal(t, filepath.Join("/var/log/farmkeep", "abc123.log"), c.SinkPath("abc123"))
}

func TestSinkPathOverride(t *testing.T) {
	c := SinkConfig{Dir: "/var/log/farmkeep", Path: "/custom/share.log"}
	assert.Equal(t, "/custom/share.log", c.SinkPath("abc123"))
}

func TestSinkPathEmpty(t *testing.T) {
	assert.Equal(t, "", SinkConfig{}.SinkPath("abc123"))
}

func TestSinkNilWhenUnconfigured(t *testing.T) {
	w, path := SinkConfig{}.Sink("abc123")
	assert.Nil(t, w)
	assert.Equal(t, "", path)
}

func TestSinkWritesToFile(t *testing.T) {
	dir := t.TempDir()
	w, path := SinkConfig{Dir: dir}.Sink("abc123")
	require.NotNil(t, w)
	assert.Equal(t, filepath.Join(dir, "abc123.log"), path)

	_, err := w.Write([]byte("worker output\n"))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	assert.FileExists(t, path)
}

func TestValOr(t *testing.T) {
	assert.Equal(t, DefaultMaxSizeMB, valOr(0, DefaultMaxSizeMB))
	assert.Equal(t, DefaultMaxSizeMB, valOr(-1, DefaultMaxSizeMB))
	assert.Equal(t, 7, valOr(7, DefaultMaxSizeMB))
}

func TestDefaultLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	log := Default(&buf, slog.LevelInfo)
	log.Debug("hidden")
	log.Info("visible")
	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "visible")
}

func TestColorHandlerDecoratesLevel(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewColorHandler(&buf, nil))
	log.Error("boom")
	assert.Contains(t, buf.String(), "\\x1b[31m")
}
