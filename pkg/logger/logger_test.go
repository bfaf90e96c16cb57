package logger_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/ppagent/pkg/config"
	"github.com/ppagent/pkg/logger"
)

// mockFatalHook 捕获 fatal 日志（不退出进程）
type mockFatalHook struct {
	called bool
}

func (h *mockFatalHook) Hook(e zapcore.Entry) error {
	if e.Level == zapcore.FatalLevel {
		h.called = true
	}
	return nil
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, logger.ParseLevel("DEBUG"))
	assert.Equal(t, zapcore.WarnLevel, logger.ParseLevel("warn"))
	assert.Equal(t, zapcore.ErrorLevel, logger.ParseLevel("err"))
	assert.Equal(t, zapcore.InfoLevel, logger.ParseLevel("whatever"))
}

func TestLoggerWritesRotatedFile(t *testing.T) {
	dir := t.TempDir()
	cfg := config.ZapLogConfig{
		Level:   "debug",
		Format:  "console",
		Path:    dir,
		MaxSize: 1,
		MaxAge:  1,
	}

	l, err := logger.New(cfg)
	require.NoError(t, err)

	l.Debug("debug msg")
	l.Info("info msg", zap.String("miner", "127.0.0.1:4028"))
	l.Warn("warn msg")
	l.Error("error msg")

	// Panic 测试
	assert.Panics(t, func() { l.Panic("panic msg") })

	// Fatal 测试（使用 WithFatalHook，不触发 os.Exit）
	hook := &mockFatalHook{}
	fl := l.WithOptions(zap.Hooks(hook.Hook), zap.WithFatalHook(zapcore.WriteThenPanic))
	assert.Panics(t, func() { fl.Fatal("fatal msg") })
	assert.True(t, hook.called)
	_ = l.Sync()

	name := filepath.Join(dir, "ppagent-"+time.Now().Format("20060102")+".log")
	data, err := os.ReadFile(name)
	require.NoError(t, err)
	content := string(data)
	assert.Contains(t, content, `"msg":"info msg"`)
	assert.Contains(t, content, `"miner":"127.0.0.1:4028"`)
	assert.Contains(t, content, `"level":"error"`)
	assert.Equal(t, 6, strings.Count(content, "\n"))
}

func TestLoggerLevelFiltersFile(t *testing.T) {
	dir := t.TempDir()
	l, err := logger.New(config.ZapLogConfig{Level: "warn", Format: "json", Path: dir})
	require.NoError(t, err)

	l.Info("dropped")
	l.Warn("kept")
	_ = l.Sync()

	data, err := os.ReadFile(filepath.Join(dir, "ppagent-"+time.Now().Format("20060102")+".log"))
	require.NoError(t, err)
	assert.NotContains(t, string(data), "dropped")
	assert.Contains(t, string(data), "kept")
}

func TestLoggerConsoleOnly(t *testing.T) {
	l, err := logger.New(config.ZapLogConfig{Level: "info", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, l)
	assert.True(t, l.Core().Enabled(zapcore.InfoLevel))
	assert.False(t, l.Core().Enabled(zapcore.DebugLevel))
}
