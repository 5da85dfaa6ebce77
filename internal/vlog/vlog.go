// Package vlog is the structured logging facade every stage writes through.
//
// It wraps a package-level *zap.Logger behind a small package-level facade:
// L() returns the active logger, SetLevel/SetOutput reconfigure it in place,
// and callers attach structured fields instead of formatting strings by hand.
package vlog

import (
	"io"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu     sync.RWMutex
	level  = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	logger = buildLogger(zapcore.AddSync(io.Discard), level)
)

func buildLogger(sink zapcore.WriteSyncer, lvl zap.AtomicLevel) *zap.Logger {
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(zapcore.NewJSONEncoder(encoderCfg), sink, lvl)
	return zap.New(core)
}

// L returns the active logger. Safe for concurrent use.
func L() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

// SetOutput redirects all future log records to w. Passing nil discards output.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	if w == nil {
		w = io.Discard
	}
	logger = buildLogger(zapcore.AddSync(w), level)
}

// SetLevel adjusts the minimum emitted level at runtime.
func SetLevel(lvl zapcore.Level) {
	mu.Lock()
	defer mu.Unlock()
	level.SetLevel(lvl)
}

// Stage returns a child logger scoped to a single pipeline stage name, used for the
// stage-start/stage-finish/warn-per-file logging pattern in internal/pipeline.
func Stage(name string) *zap.Logger {
	return L().With(zap.String("stage", name))
}
