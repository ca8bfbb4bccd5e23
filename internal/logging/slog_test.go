package logging

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arloliu/insitu/types"
)

func TestSlogLogger_ImplementsInterface(t *testing.T) {
	t.Helper()
	var _ types.Logger = (*SlogLogger)(nil)
}

func TestNewSlog(t *testing.T) {
	buf := &bytes.Buffer{}
	handler := slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	logger := NewSlog(slog.New(handler))

	require.NotNil(t, logger)
	require.NotNil(t, logger.logger)
}

func TestNewSlogDefault(t *testing.T) {
	logger := NewSlogDefault()

	require.NotNil(t, logger)
	require.NotNil(t, logger.logger)
}

func TestSlogLogger_Debug(t *testing.T) {
	buf := &bytes.Buffer{}
	handler := slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	logger := NewSlog(slog.New(handler))

	logger.Debug("debug message", "key", "value")

	output := buf.String()
	assert.Contains(t, output, "debug message")
	assert.Contains(t, output, "key=value")
	assert.Contains(t, output, "level=DEBUG")
}

func TestSlogLogger_Info(t *testing.T) {
	buf := &bytes.Buffer{}
	handler := slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelInfo})
	logger := NewSlog(slog.New(handler))

	logger.Info("info message", "rank", 1)

	output := buf.String()
	assert.Contains(t, output, "info message")
	assert.Contains(t, output, "rank=1")
	assert.Contains(t, output, "level=INFO")
}

func TestSlogLogger_Warn(t *testing.T) {
	buf := &bytes.Buffer{}
	handler := slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelWarn})
	logger := NewSlog(slog.New(handler))

	logger.Warn("warning message", "variable", "V")

	output := buf.String()
	assert.Contains(t, output, "warning message")
	assert.Contains(t, output, "variable=V")
	assert.Contains(t, output, "level=WARN")
}

func TestSlogLogger_Error(t *testing.T) {
	buf := &bytes.Buffer{}
	handler := slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelError})
	logger := NewSlog(slog.New(handler))

	logger.Error("error message", "error", "transfer")

	output := buf.String()
	assert.Contains(t, output, "error message")
	assert.Contains(t, output, "error=transfer")
	assert.Contains(t, output, "level=ERROR")
}

func TestSlogLogger_LevelFiltering(t *testing.T) {
	buf := &bytes.Buffer{}
	handler := slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelWarn})
	logger := NewSlog(slog.New(handler))

	// Debug and Info should be filtered out
	logger.Debug("debug message")
	logger.Info("info message")

	output := buf.String()
	assert.NotContains(t, output, "debug message")
	assert.NotContains(t, output, "info message")

	// Warn and Error should appear
	logger.Warn("warn message")
	logger.Error("error message")

	output = buf.String()
	assert.Contains(t, output, "warn message")
	assert.Contains(t, output, "error message")
}

func TestSlogLogger_MultipleKeyValues(t *testing.T) {
	buf := &bytes.Buffer{}
	handler := slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelInfo})
	logger := NewSlog(slog.New(handler))

	logger.Info("processing step",
		"step", 12,
		"blocks", 8,
		"mode", "preserve")

	output := buf.String()
	assert.Contains(t, output, "processing step")
	assert.Contains(t, output, "step=12")
	assert.Contains(t, output, "blocks=8")
	assert.Contains(t, output, "mode=preserve")
}

func TestNewSlogVerbosity(t *testing.T) {
	buf := &bytes.Buffer{}
	NewSlogVerbosity(buf, 0).Debug("hidden")
	NewSlogVerbosity(buf, 1).Debug("shown")
	NewSlogVerbosity(buf, -1).Info("quiet")

	output := buf.String()
	assert.NotContains(t, output, "hidden")
	assert.NotContains(t, output, "quiet")
	assert.Contains(t, output, "shown")
}

func TestWithFields(t *testing.T) {
	t.Run("slog logger keeps its handler", func(t *testing.T) {
		buf := &bytes.Buffer{}
		logger := WithFields(NewSlog(slog.New(slog.NewTextHandler(buf, nil))), "rank", 3)

		logger.Info("step done", "step", 1)

		require.Contains(t, buf.String(), "rank=3")
		require.Contains(t, buf.String(), "step=1")
	})

	t.Run("generic logger gets prefixed pairs", func(t *testing.T) {
		rec := &recordLogger{}
		logger := WithFields(rec, "rank", 2)

		logger.Warn("slow", "ms", 10)

		require.Equal(t, []any{"rank", 2, "ms", 10}, rec.kv)
	})

	t.Run("nil logger", func(t *testing.T) {
		require.NotPanics(t, func() {
			WithFields(nil, "rank", 0).Error("boom")
		})
	})
}

func TestNopLogger(t *testing.T) {
	logger := NewNop()

	require.NotPanics(t, func() {
		logger.Debug("test message", "key", "value")
		logger.Info("test message", "key", "value")
		logger.Warn("test message", "key", "value")
		logger.Error("test message", "key", "value")
		logger.Fatal("test message", "key", "value") // Should NOT exit
	})
	require.Equal(t, types.Logger(logger), OrNop(logger))
	require.NotNil(t, OrNop(nil))
}

type recordLogger struct {
	NopLogger
	kv []any
}

func (r *recordLogger) Warn(_ string, keysAndValues ...any) {
	r.kv = keysAndValues
}
