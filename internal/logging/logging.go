package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LevelOff disables logging entirely.
const LevelOff = "off"

// New builds a console logger writing to stderr at the given level
// (debug, info, warn, error). "off" or "" returns a no-op logger.
func New(level string) (*zap.Logger, error) {
	return NewWithWriter(level, os.Stderr)
}

// NewWithWriter is New with an explicit sink.
func NewWithWriter(level string, w io.Writer) (*zap.Logger, error) {
	level = strings.TrimSpace(strings.ToLower(level))
	if level == "" || level == LevelOff {
		return zap.NewNop(), nil
	}

	var parsed zapcore.Level
	if err := parsed.Set(level); err != nil {
		return nil, fmt.Errorf("invalid level %q: %w", level, err)
	}

	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encCfg),
		zapcore.Lock(zapcore.AddSync(w)),
		zap.NewAtomicLevelAt(parsed),
	)
	return zap.New(core), nil
}
