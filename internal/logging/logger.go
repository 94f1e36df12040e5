// Package logging emits one JSON object per log line for the prediction service.
//
// Every entry carries timestamp, level, message and service keys plus any
// fields supplied by the caller. A message that is already valid JSON is
// written through unchanged, so lines produced by another structured logger
// (or forwarded from the standard library log package) are not wrapped twice.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ServiceName is attached to every entry under the "service" key.
const ServiceName = "medical-coding-ml"

// Logger is a named structured logger.
type Logger struct {
	zl *zap.Logger
}

// New creates a logger that writes entries at or above level to w.
func New(name string, level zapcore.Level, w io.Writer) *Logger {
	core := zapcore.NewCore(NewEncoder(), zapcore.Lock(zapcore.AddSync(w)), level)
	zl := zap.New(core).Named(name).With(zap.String("service", ServiceName))
	return &Logger{zl: zl}
}

// Get creates a logger writing to stdout. level is a name accepted by ParseLevel.
func Get(name, level string) (*Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	return New(name, lvl, os.Stdout), nil
}

// ParseLevel maps a LOG_LEVEL value onto a zap level.
func ParseLevel(level string) (zapcore.Level, error) {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		return zapcore.DebugLevel, nil
	case "", "INFO":
		return zapcore.InfoLevel, nil
	case "WARN", "WARNING":
		return zapcore.WarnLevel, nil
	case "ERROR":
		return zapcore.ErrorLevel, nil
	case "CRITICAL", "FATAL":
		return zapcore.FatalLevel, nil
	}
	return zapcore.InfoLevel, fmt.Errorf("unknown log level %q", level)
}

// Debug logs a message at DEBUG.
func (l *Logger) Debug(msg string, fields ...zap.Field) {
	l.zl.Debug(msg, fields...)
}

// Info logs a message at INFO.
func (l *Logger) Info(msg string, fields ...zap.Field) {
	l.zl.Info(msg, fields...)
}

// Warning logs a message at WARNING.
func (l *Logger) Warning(msg string, fields ...zap.Field) {
	l.zl.Warn(msg, fields...)
}

// Error logs a message at ERROR.
func (l *Logger) Error(msg string, fields ...zap.Field) {
	l.zl.Error(msg, fields...)
}

// With returns a child logger that adds fields to every entry.
func (l *Logger) With(fields ...zap.Field) *Logger {
	return &Logger{zl: l.zl.With(fields...)}
}

// Zap exposes the underlying zap logger for components that take one directly.
func (l *Logger) Zap() *zap.Logger {
	return l.zl
}

// RedirectStdLog sends output of the standard library log package through
// this logger at INFO. The returned func restores the previous output.
func (l *Logger) RedirectStdLog() func() {
	return zap.RedirectStdLog(l.zl)
}

// Sync flushes buffered entries.
func (l *Logger) Sync() error {
	return l.zl.Sync()
}
