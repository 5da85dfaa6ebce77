package vlog

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestSetOutputRedirectsRecords(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(nil)

	L().Info("hello", zap.String("stage", "complexity"))

	assert.Contains(t, buf.String(), "hello")
	assert.Contains(t, buf.String(), "complexity")
}

func TestSetLevelSuppressesBelowThreshold(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	SetLevel(zapcore.WarnLevel)
	defer func() {
		SetOutput(nil)
		SetLevel(zapcore.InfoLevel)
	}()

	L().Info("should not appear")
	L().Warn("should appear")

	require.NotContains(t, buf.String(), "should not appear")
	assert.Contains(t, buf.String(), "should appear")
}

func TestStageAttachesStageField(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(nil)

	Stage("lsh").Info("started")

	assert.Contains(t, buf.String(), `"stage":"lsh"`)
}
