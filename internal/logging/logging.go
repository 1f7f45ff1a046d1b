// Package logging wires up the structured logger shared by every component.
//
// It plays the role app/logging.py plays in the original implementation:
// a single place that configures the sink and hands back a logger that
// every other package attaches key/value fields to before emitting an
// event, instead of formatting messages by hand.
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds the process-wide logger. debug=true lowers the level to
// Debug and switches to a human-readable console encoder, matching the
// two registered renderers structlog ships with (JSON for machines,
// console for a terminal).
func New(debug bool) *zap.Logger {
	level := zapcore.InfoLevel
	encoding, encoderCfg := "json", zap.NewProductionEncoderConfig()
	if debug {
		level = zapcore.DebugLevel
		encoding, encoderCfg = "console", zap.NewDevelopmentEncoderConfig()
	}

	cfg := zap.Config{
		Level:            zap.NewAtomicLevelAt(level),
		Development:      debug,
		Encoding:         encoding,
		EncoderConfig:    encoderCfg,
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	}
	logger, err := cfg.Build()
	if err != nil {
		// Falls back to a no-op logger rather than crash the server over
		// a logging misconfiguration.
		return zap.NewNop()
	}
	return logger
}

// Named returns a child logger scoped to the given component, mirroring
// get_logger("scheduler") / get_logger("chat_repository") in the
// original source.
func Named(base *zap.Logger, name string) *zap.Logger {
	if base == nil {
		base = zap.NewNop()
	}
	return base.Named(name)
}
