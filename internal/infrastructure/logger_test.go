package infrastructure

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"volscan/internal/config"
)

func TestInitializeLoggerWritesFile(t *testing.T) {
	ResetLoggerForTesting()
	defer ResetLoggerForTesting()

	logFile := filepath.Join(t.TempDir(), "logs", "volscan.log")
	cfg := config.LoggingConfig{
		Level:    "info",
		Format:   "json",
		Output:   "file",
		FilePath: logFile,
	}

	logger, err := InitializeLogger(cfg)
	require.NoError(t, err)
	require.NotNil(t, logger)
	assert.Same(t, logger, slog.Default())

	logger.Info("run finished", "workers", 4)
	require.NoError(t, CloseLogFile())

	content, err := os.ReadFile(logFile)
	require.NoError(t, err)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(content), &entry))
	assert.Equal(t, "run finished", entry["msg"])
	assert.Equal(t, "INFO", entry["level"])
	assert.EqualValues(t, 4, entry["workers"])
}

func TestInitializeLoggerKeepsFirstError(t *testing.T) {
	ResetLoggerForTesting()
	defer ResetLoggerForTesting()

	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0644))
	cfg := config.LoggingConfig{Level: "info", Format: "json", Output: "file", FilePath: filepath.Join(blocker, "volscan.log")}

	_, err := InitializeLogger(cfg)
	require.Error(t, err)
	_, err = InitializeLogger(config.LoggingConfig{Level: "info", Format: "json", Output: "console"})
	assert.Error(t, err)
}

func TestWithComponent(t *testing.T) {
	var buf bytes.Buffer
	WithComponent(NewLoggerWithWriter(&buf, "info", "json"), "recorder").Info("opened")
	assert.Contains(t, buf.String(), `"component":"recorder"`)
}

func TestInitializeLoggerOnlyOnce(t *testing.T) {
	ResetLoggerForTesting()
	defer ResetLoggerForTesting()

	first, err := InitializeLogger(config.LoggingConfig{Level: "info", Format: "json", Output: "console"})
	require.NoError(t, err)
	second, err := InitializeLogger(config.LoggingConfig{Level: "debug", Format: "text", Output: "console"})
	require.NoError(t, err)

	assert.Same(t, first, second)
}

func TestNewLoggerWithWriter(t *testing.T) {
	tests := []struct {
		name      string
		level     string
		format    string
		logDebug  bool
		wantEmpty bool
		contains  string
	}{
		{name: "json info", level: "info", format: "json", contains: `"msg":"hello"`},
		{name: "text info", level: "info", format: "text", contains: "msg=hello"},
		{name: "debug suppressed at info", level: "info", format: "json", logDebug: true, wantEmpty: true},
		{name: "debug emitted at debug", level: "debug", format: "json", logDebug: true, contains: `"level":"DEBUG"`},
		{name: "unknown level falls back to info", level: "verbose", format: "json", logDebug: true, wantEmpty: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := NewLoggerWithWriter(&buf, tt.level, tt.format)

			if tt.logDebug {
				logger.Debug("hello")
			} else {
				logger.Info("hello")
			}

			if tt.wantEmpty {
				assert.Empty(t, buf.String())
				return
			}
			assert.Contains(t, buf.String(), tt.contains)
		})
	}
}

func TestTraceHandlerInjectsTraceID(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(&buf, "info", "json")

	ctx := WithTraceID(context.Background(), "run-123")
	logger.With("component", "coordinator").InfoContext(ctx, "draining")

	line := buf.String()
	assert.Contains(t, line, `"trace_id":"run-123"`)
	assert.Contains(t, line, `"component":"coordinator"`)
}

func TestEnsureTraceID(t *testing.T) {
	ctx := EnsureTraceID(context.Background())
	id := GetTraceID(ctx)
	require.NotEmpty(t, id)
	assert.Len(t, strings.Split(id, "-"), 5)

	// an existing id is kept
	assert.Equal(t, id, GetTraceID(EnsureTraceID(ctx)))
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, "DEBUG", parseLogLevel("debug").String())
	assert.Equal(t, "WARN", parseLogLevel("Warning").String())
	assert.Equal(t, "ERROR", parseLogLevel("error").String())
	assert.Equal(t, "INFO", parseLogLevel("").String())
}
