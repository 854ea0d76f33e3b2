package logging

import (
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Levels accepted by New.
const (
	LevelNone   = "none"
	LevelNormal = "normal"
	LevelDebug  = "debug"
)

// EnableColorOutput reports whether f is a terminal that understands escape
// sequences.
func EnableColorOutput(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// New returns the console logger. Everything goes to out so that standard
// output only carries the report.
func New(level string, out *os.File) (*zap.Logger, error) {
	var enabler zapcore.LevelEnabler
	switch level {
	case LevelNone, "":
		return zap.NewNop(), nil
	case LevelNormal:
		enabler = zapcore.InfoLevel
	case LevelDebug:
		enabler = zapcore.DebugLevel
	default:
		return nil, fmt.Errorf("unknown log level %q (want %s, %s or %s)", level, LevelNone, LevelNormal, LevelDebug)
	}

	ec := zap.NewDevelopmentEncoderConfig()
	ec.EncodeCaller = nil
	if EnableColorOutput(out) {
		ec.EncodeLevel = zapcore.CapitalColorLevelEncoder
		ec.TimeKey = zapcore.OmitKey
	} else {
		ec.EncodeLevel = zapcore.CapitalLevelEncoder
	}
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(ec), zapcore.Lock(out), enabler)
	return zap.New(core), nil
}
