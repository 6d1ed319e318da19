package monitoring

import (
	"log"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logf is the package-level diagnostic logger. It defaults to log.Printf
// until Init routes it through zap; SetLogger may replace it.
var Logf func(format string, v ...interface{}) = log.Printf

var logger = zap.NewNop()

// L returns the structured logger installed by Init, or a no-op logger.
func L() *zap.Logger { return logger }

// Init builds the process logger. level is one of debug, info, warn or error
// (default info). format "console" selects the human-readable development
// encoder, anything else JSON. Logs go to stderr so command output on stdout
// stays machine-readable.
func Init(level, format string) (*zap.Logger, error) {
	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	var config zap.Config
	if format == "console" {
		config = zap.NewDevelopmentConfig()
	} else {
		config = zap.NewProductionConfig()
		config.EncoderConfig.TimeKey = "timestamp"
		config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		config.OutputPaths = []string{"stderr"}
		config.ErrorOutputPaths = []string{"stderr"}
	}
	config.Level = zap.NewAtomicLevelAt(zapLevel)

	l, err := config.Build()
	if err != nil {
		return nil, err
	}
	if hostname, err := os.Hostname(); err == nil && hostname != "" {
		l = l.With(zap.String("hostname", hostname))
	}
	Use(l)
	return l, nil
}

// Use installs l as the process logger and points Logf at it.
func Use(l *zap.Logger) {
	logger = l
	Logf = l.WithOptions(zap.AddCallerSkip(1)).Sugar().Infof
}

// SetLogger replaces Logf. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}
