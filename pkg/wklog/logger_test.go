package wklog

import (
	"bytes"
	"os"
	"path"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestLogger(t *testing.T) {
	opts := NewOptions()
	opts.Level = zap.DebugLevel
	opts.LineNum = true
	opts.NoStdout = true
	opts.LogDir = t.TempDir()
	l := New(opts)

	l.Info("this is info")
	l.Debug("this is debug")
	l.Error("this is error", zap.String("key", "value"))
	_ = l.Sync()

	data, err := os.ReadFile(path.Join(opts.LogDir, "info.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "this is info")
	assert.Contains(t, string(data), "this is debug")

	data, err = os.ReadFile(path.Join(opts.LogDir, "error.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "this is error")
	assert.NotContains(t, string(data), "this is info")
}

func TestLoggerNamed(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := FromZap(zap.New(core)).Named("Framer")

	l.Warn("leftover", zap.Int("buffered", 3))

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "【Framer】leftover", entries[0].Message)
	assert.Equal(t, int64(3), entries[0].ContextMap()["buffered"])
}

func TestNop(t *testing.T) {
	l := Nop()
	l.Info("dropped")
	l.Error("dropped")
	assert.NoError(t, l.Named("x").Sync())
}

func TestLoggerConsole(t *testing.T) {
	var buf bytes.Buffer
	opts := NewOptions()
	opts.Console = &buf
	l := New(opts)

	l.Debug("hidden")
	l.SetLevel(zap.DebugLevel)
	l.Debug("shown")
	_ = l.Sync()

	assert.Equal(t, zap.DebugLevel, l.Level())
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}
