// Package logging builds the one zap logger the binary injects into every
// component. There is no package-level logger on purpose: components receive
// a *zap.SugaredLogger at construction and namespace it with Named.
package logging

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New constructs the process logger. json selects machine-readable output
// (one JSON object per line); otherwise a console encoder with ISO8601
// timestamps is used. level accepts zap's names ("debug", "info", "warn",
// "error"); empty means info.
func New(level string, json bool) (*zap.SugaredLogger, error) {
	lvl := zap.InfoLevel
	if level != "" {
		parsed, err := zapcore.ParseLevel(level)
		if err != nil {
			return nil, err
		}
		lvl = parsed
	}

	if json {
		cfg := zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(lvl)
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		logger, err := cfg.Build()
		if err != nil {
			return nil, err
		}
		return logger.Sugar(), nil
	}

	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encCfg),
		zapcore.AddSync(os.Stdout),
		lvl,
	)
	return zap.New(core).Sugar(), nil
}

// NewNop returns a logger that discards everything. Handy default for tests
// and for constructors called before the real logger exists.
func NewNop() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}
