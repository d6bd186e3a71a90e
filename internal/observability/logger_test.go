package observability

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/hexborne/vulndetective/internal/config"
)

func TestInitializeWritesStructuredJSON(t *testing.T) {
	ResetForTest()
	t.Cleanup(ResetForTest)

	var buf bytes.Buffer
	cfg := config.LoggerConfig{
		Level:       "debug",
		Format:      "json",
		ServiceName: "vulndetective-test",
	}
	Initialize(cfg, zapcore.AddSync(&buf))

	logger := GetLogger()
	require.NotNil(t, logger)
	logger.Info("scan started", zap.String("scan_id", "abc"))

	out := buf.String()
	assert.Contains(t, out, `"msg":"scan started"`)
	assert.Contains(t, out, `"scan_id":"abc"`)
	assert.Contains(t, out, "vulndetective-test")
}

func TestInitializeIsIdempotent(t *testing.T) {
	ResetForTest()
	t.Cleanup(ResetForTest)

	var first, second bytes.Buffer
	Initialize(config.LoggerConfig{Level: "info", Format: "json"}, zapcore.AddSync(&first))
	Initialize(config.LoggerConfig{Level: "info", Format: "json"}, zapcore.AddSync(&second))

	GetLogger().Info("only once")
	assert.NotEmpty(t, first.String())
	assert.Empty(t, second.String())
}

func TestInvalidLevelFallsBackToInfo(t *testing.T) {
	ResetForTest()
	t.Cleanup(ResetForTest)

	var buf bytes.Buffer
	Initialize(config.LoggerConfig{Level: "nonsense", Format: "json"}, zapcore.AddSync(&buf))

	GetLogger().Debug("hidden")
	GetLogger().Info("visible")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "visible")
}

func TestGetLoggerBeforeInitReturnsFallback(t *testing.T) {
	ResetForTest()
	t.Cleanup(ResetForTest)

	assert.NotNil(t, GetLogger())
}
