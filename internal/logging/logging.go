// Package logging builds the zap loggers used by a collection run. Loggers
// are scoped to the run and passed explicitly, never stored in a process
// global, so concurrent runs in tests do not interfere.
package logging

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func consoleCore(verbose bool) zapcore.Core {
	level := zap.InfoLevel
	if verbose {
		level = zap.DebugLevel
	}
	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.TimeKey = ""
	return zapcore.NewCore(
		zapcore.NewConsoleEncoder(encCfg),
		zapcore.AddSync(os.Stderr),
		level,
	)
}

// Console returns a logger writing human-readable output to stderr. Used
// before the run directory exists.
func Console(verbose bool) *zap.SugaredLogger {
	return zap.New(consoleCore(verbose)).Sugar()
}

// RunLogger tees console output with a structured JSON log written to the
// run's collect.log. The returned close function flushes and closes the
// file sink.
func RunLogger(verbose bool, logPath string) (*zap.SugaredLogger, func(), error) {
	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, nil, err
	}

	fileCore := zapcore.NewCore(
		zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
		zapcore.AddSync(f),
		zap.DebugLevel,
	)

	logger := zap.New(zapcore.NewTee(consoleCore(verbose), fileCore))
	closeFn := func() {
		_ = logger.Sync()
		_ = f.Close()
	}
	return logger.Sugar(), closeFn, nil
}
