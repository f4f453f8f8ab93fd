// Package monitoring owns the process logger.
package monitoring

import (
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu     sync.RWMutex
	logger = newLogger()

	// Logf is the package-level diagnostic logger. It defaults to the zap
	// console logger but may be replaced by SetLogger. Tests or production
	// code can redirect or mute it.
	Logf func(format string, v ...interface{}) = logger.Sugar().Infof
)

// newLogger builds the console logger used by the CLI: capitalised levels,
// UTC timestamps, written to stderr so stdout stays clean for reports.
func newLogger() *zap.Logger {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = func(ts time.Time, enc zapcore.PrimitiveArrayEncoder) {
		enc.AppendString(ts.UTC().Format("2006/01/02 15:04:05.000"))
	}
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.Lock(os.Stderr), zap.InfoLevel)
	return zap.New(core)
}

// Logger returns the structured logger for call sites that want fields.
func Logger() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

// SetLogger replaces the package logger. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	mu.Lock()
	defer mu.Unlock()
	if f == nil {
		Logf = func(string, ...interface{}) {}
		logger = zap.NewNop()
		return
	}
	Logf = f
}

// SetZapLogger swaps the structured logger and points Logf at its sugared form.
func SetZapLogger(l *zap.Logger) {
	mu.Lock()
	defer mu.Unlock()
	if l == nil {
		l = zap.NewNop()
	}
	logger = l
	Logf = l.Sugar().Infof
}
