// Package logging is the structured logger used across Serial-Intelligence.
// Components take a Logger; only this package imports zap.
package logging

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	LevelDebug = "debug"
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
)

type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	// Fatal logs and exits the process. Startup failures only.
	Fatal(msg string, fields ...Field)
	With(fields ...Field) Logger
	// Named extends the logger name with a dot: "serial" → "serial.extractor".
	Named(name string) Logger
}

// LogConfig configures NewLogger.
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level" json:"level"`
	Format string `mapstructure:"format" yaml:"format" json:"format"` // json | console
	// OutputPaths is ["stdout"] when nil; an empty non-nil slice is an error.
	OutputPaths      []string `mapstructure:"output_paths" yaml:"output_paths" json:"output_paths"`
	ErrorOutputPaths []string `mapstructure:"error_output_paths" yaml:"error_output_paths" json:"error_output_paths"`
}

// level is shared by every logger NewLogger builds, so SetLevel applies to
// all of them at once.
var level = zap.NewAtomicLevelAt(zapcore.InfoLevel)

// SetLevel retunes every logger built by NewLogger. Unknown names mean info.
func SetLevel(name string) { level.SetLevel(parseLevel(name)) }

func parseLevel(name string) zapcore.Level {
	l, err := zapcore.ParseLevel(strings.ToLower(name))
	if err != nil || l < zapcore.DebugLevel || l > zapcore.ErrorLevel {
		return zapcore.InfoLevel
	}
	return l
}

func encoderFor(format string) zapcore.Encoder {
	if format == "console" {
		ec := zap.NewDevelopmentEncoderConfig()
		ec.TimeKey = "ts"
		ec.EncodeTime = zapcore.ISO8601TimeEncoder
		ec.EncodeLevel = zapcore.CapitalColorLevelEncoder
		return zapcore.NewConsoleEncoder(ec)
	}
	ec := zap.NewProductionEncoderConfig()
	ec.TimeKey = "ts"
	ec.EncodeTime = zapcore.ISO8601TimeEncoder
	return zapcore.NewJSONEncoder(ec)
}

// NewLogger opens cfg's sinks and returns a zap-backed Logger.
func NewLogger(cfg LogConfig) (Logger, error) {
	out := cfg.OutputPaths
	if out == nil {
		out = []string{"stdout"}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("logging: at least one output path is required")
	}
	errOut := cfg.ErrorOutputPaths
	if len(errOut) == 0 {
		errOut = []string{"stderr"}
	}

	sink, closeSink, err := zap.Open(out...)
	if err != nil {
		return nil, fmt.Errorf("logging: open %v: %w", out, err)
	}
	errSink, _, err := zap.Open(errOut...)
	if err != nil {
		closeSink()
		return nil, fmt.Errorf("logging: open %v: %w", errOut, err)
	}

	level.SetLevel(parseLevel(cfg.Level))
	core := zapcore.NewCore(encoderFor(cfg.Format), sink, level)
	opts := []zap.Option{zap.ErrorOutput(errSink), zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel)}
	if cfg.Format == "console" {
		opts = append(opts, zap.Development())
	}
	return wrap(zap.New(core, opts...)), nil
}

// NewLoggerFromCore wraps an existing core, e.g. a zaptest observer.
func NewLoggerFromCore(core zapcore.Core) Logger {
	return wrap(zap.New(core))
}

// NewCLILogger logs to stderr in console format so stdout stays clean for
// command output. It never fails; a broken sink yields a no-op logger.
func NewCLILogger(lvl string) Logger {
	l, err := NewLogger(LogConfig{Level: lvl, Format: "console", OutputPaths: []string{"stderr"}})
	if err != nil {
		return NewNopLogger()
	}
	return l
}

// ---------------------------------------------------------------------------

type zapLogger struct{ z *zap.Logger }

// wrap skips one frame so the caller, not this adapter, is reported.
func wrap(z *zap.Logger) *zapLogger { return &zapLogger{z: z.WithOptions(zap.AddCallerSkip(1))} }

func (l *zapLogger) Debug(msg string, fields ...Field) { l.z.Debug(msg, zapFields(fields)...) }
func (l *zapLogger) Info(msg string, fields ...Field)  { l.z.Info(msg, zapFields(fields)...) }
func (l *zapLogger) Warn(msg string, fields ...Field)  { l.z.Warn(msg, zapFields(fields)...) }
func (l *zapLogger) Error(msg string, fields ...Field) { l.z.Error(msg, zapFields(fields)...) }
func (l *zapLogger) Fatal(msg string, fields ...Field) { l.z.Fatal(msg, zapFields(fields)...) }

func (l *zapLogger) With(fields ...Field) Logger {
	return &zapLogger{z: l.z.With(zapFields(fields)...)}
}

func (l *zapLogger) Named(name string) Logger {
	return &zapLogger{z: l.z.Named(name)}
}

type nopLogger struct{}

func NewNopLogger() Logger { return nopLogger{} }

func (nopLogger) Debug(string, ...Field) {}
func (nopLogger) Info(string, ...Field)  {}
func (nopLogger) Warn(string, ...Field)  {}
func (nopLogger) Error(string, ...Field) {}
func (nopLogger) Fatal(string, ...Field) {}
func (n nopLogger) With(...Field) Logger { return n }
func (n nopLogger) Named(string) Logger  { return n }

//Personal.AI order the ending
