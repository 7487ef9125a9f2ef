// Package logger holds the process-wide zap logger.
package logger

import (
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// L is replaced by Setup at startup. The default writes info and above so that
// packages logging during init or in tests never hit a nil logger.
var L = newLogger(zapcore.InfoLevel)

// Setup rebuilds L with the given level name ("debug", "info", "warn", "error").
// Unknown names fall back to info.
func Setup(level string) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}
	L = newLogger(lvl)
}

// Named returns a child logger tagged with a component field.
func Named(component string) *zap.Logger {
	return L.With(zap.String("component", component))
}

func newLogger(level zapcore.Level) *zap.Logger {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeCaller = func(caller zapcore.EntryCaller, enc zapcore.PrimitiveArrayEncoder) {
		const projectName = "socialmaps"

		index := strings.Index(caller.File, projectName)
		if index != -1 {
			enc.AppendString(caller.File[index:] + ":" + strconv.Itoa(caller.Line))
		} else {
			enc.AppendString(caller.TrimmedPath())
		}
	}
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig),
		zapcore.AddSync(os.Stdout),
		level,
	)
	return zap.New(core, zap.AddCaller(), zap.AddStacktrace(zap.ErrorLevel))
}
