package logger

import (
	"context"
	"io"
	"os"
	"strings"

	"sitecontent/internal/shared/contextkeys"

	"github.com/sirupsen/logrus"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	logFormatJSON   = "json"
	timestampFormat = "2006-01-02T15:04:05.000Z07:00"
	textTimestamp   = "2006-01-02 15:04:05"
)

// Logger defines the interface for structured logging operations.
// Arguments of type zap.Field are lifted into structured fields instead of
// being printed into the message.
type Logger interface {
	Debug(args ...interface{})
	Info(args ...interface{})
	Warn(args ...interface{})
	Error(args ...interface{})
	Fatal(args ...interface{})
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	Fatalf(format string, args ...interface{})
	WithFields(fields map[string]interface{}) Logger
	WithContext(ctx context.Context) Logger
	WithComponent(component string) Logger
}

// Config describes where and how log lines are written.
type Config struct {
	Level  string `env:"LOG_LEVEL" envDefault:"INFO"`
	Format string `env:"LOG_FORMAT" envDefault:"text"`
	// Environment "production" or "prod" forces JSON output.
	Environment string `env:"ENVIRONMENT"`
	// File enables a size-rotated file sink next to stdout.
	File       string `env:"LOG_FILE"`
	MaxSizeMB  int    `env:"LOG_FILE_MAX_SIZE_MB" envDefault:"50"`
	MaxBackups int    `env:"LOG_FILE_MAX_BACKUPS" envDefault:"5"`
	MaxAgeDays int    `env:"LOG_FILE_MAX_AGE_DAYS" envDefault:"28"`
}

// LogrusLogger implements the Logger interface using logrus
type LogrusLogger struct {
	entry *logrus.Entry
}

// New creates a logger from an explicit Config, adding a rotating file sink when File is set.
func New(cfg Config) Logger {
	var out io.Writer = os.Stdout
	if cfg.File != "" {
		out = io.MultiWriter(os.Stdout, &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   true,
		})
	}
	format := cfg.Format
	if cfg.Environment == "production" || cfg.Environment == "prod" {
		format = logFormatJSON
	}
	return NewLoggerWithOutput(out, cfg.Level, format)
}

// NewLoggerWithOutput creates a logger writing to w.
func NewLoggerWithOutput(w io.Writer, level string, format string) Logger {
	logger := logrus.New()
	logger.SetLevel(parseLevel(level))
	logger.SetFormatter(formatter(format))
	logger.SetOutput(w)

	return &LogrusLogger{
		entry: logrus.NewEntry(logger),
	}
}

// parseLevel accepts logrus level names in any case plus WARNING. Unknown
// values fall back to info.
func parseLevel(level string) logrus.Level {
	if strings.EqualFold(level, "warning") {
		return logrus.WarnLevel
	}
	if parsed, err := logrus.ParseLevel(strings.ToLower(level)); err == nil {
		return parsed
	}
	return logrus.InfoLevel
}

func formatter(format string) logrus.Formatter {
	if format == logFormatJSON {
		return &logrus.JSONFormatter{TimestampFormat: timestampFormat}
	}
	return &logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: textTimestamp,
	}
}

// Debug logs a debug message
func (l *LogrusLogger) Debug(args ...interface{}) {
	entry, rest := l.lift(args)
	entry.Debug(rest...)
}

// Info logs an info message
func (l *LogrusLogger) Info(args ...interface{}) {
	entry, rest := l.lift(args)
	entry.Info(rest...)
}

// Warn logs a warning message
func (l *LogrusLogger) Warn(args ...interface{}) {
	entry, rest := l.lift(args)
	entry.Warn(rest...)
}

// Error logs an error message
func (l *LogrusLogger) Error(args ...interface{}) {
	entry, rest := l.lift(args)
	entry.Error(rest...)
}

// Fatal logs a fatal message and exits
func (l *LogrusLogger) Fatal(args ...interface{}) {
	entry, rest := l.lift(args)
	entry.Fatal(rest...)
}

// Debugf logs a formatted debug message
func (l *LogrusLogger) Debugf(format string, args ...interface{}) {
	l.entry.Debugf(format, args...)
}

// Infof logs a formatted info message
func (l *LogrusLogger) Infof(format string, args ...interface{}) {
	l.entry.Infof(format, args...)
}

// Warnf logs a formatted warning message
func (l *LogrusLogger) Warnf(format string, args ...interface{}) {
	l.entry.Warnf(format, args...)
}

// Errorf logs a formatted error message
func (l *LogrusLogger) Errorf(format string, args ...interface{}) {
	l.entry.Errorf(format, args...)
}

// Fatalf logs a formatted fatal message and exits
func (l *LogrusLogger) Fatalf(format string, args ...interface{}) {
	l.entry.Fatalf(format, args...)
}

// WithFields adds structured fields to the logger
func (l *LogrusLogger) WithFields(fields map[string]interface{}) Logger {
	return &LogrusLogger{
		entry: l.entry.WithFields(logrus.Fields(fields)),
	}
}

// WithContext adds context information to the logger using proper context keys
func (l *LogrusLogger) WithContext(ctx context.Context) Logger {
	fields := logrus.Fields{}

	l.addContextField(ctx, contextkeys.RequestIDKey, "request_id", fields)
	l.addContextField(ctx, contextkeys.SessionIDKey, "session_id", fields)
	l.addContextField(ctx, contextkeys.SubjectKey, "subject", fields)
	l.addContextField(ctx, contextkeys.ComponentKey, "component", fields)
	l.addContextField(ctx, contextkeys.OperationKey, "operation", fields)

	return &LogrusLogger{
		entry: l.entry.WithFields(fields),
	}
}

// addContextField extracts a value from context and adds it to fields if present
func (l *LogrusLogger) addContextField(ctx context.Context, key interface{}, fieldName string, fields logrus.Fields) {
	if val := ctx.Value(key); val != nil {
		if strVal, ok := val.(string); ok && strVal != "" {
			fields[fieldName] = strVal
		}
	}
}

// WithComponent adds component name to the logger
func (l *LogrusLogger) WithComponent(component string) Logger {
	return &LogrusLogger{
		entry: l.entry.WithField("component", component),
	}
}

// lift separates zap fields from the message arguments.
func (l *LogrusLogger) lift(args []interface{}) (*logrus.Entry, []interface{}) {
	var fields logrus.Fields
	rest := args[:0:0]
	for _, arg := range args {
		field, ok := arg.(zap.Field)
		if !ok {
			rest = append(rest, arg)
			continue
		}
		if fields == nil {
			fields = logrus.Fields{}
		}
		enc := zapcore.NewMapObjectEncoder()
		field.AddTo(enc)
		for k, v := range enc.Fields {
			fields[k] = v
		}
	}
	if fields == nil {
		return l.entry, rest
	}
	return l.entry.WithFields(fields), rest
}

// NewNop returns a Logger that discards everything.
func NewNop() Logger {
	return nopLogger{}
}

type nopLogger struct{}

func (nopLogger) Debug(args ...interface{})                 {}
func (nopLogger) Info(args ...interface{})                  {}
func (nopLogger) Warn(args ...interface{})                  {}
func (nopLogger) Error(args ...interface{})                 {}
func (nopLogger) Fatal(args ...interface{})                 {}
func (nopLogger) Debugf(format string, args ...interface{}) {}
func (nopLogger) Infof(format string, args ...interface{})  {}
func (nopLogger) Warnf(format string, args ...interface{})  {}
func (nopLogger) Errorf(format string, args ...interface{}) {}
func (nopLogger) Fatalf(format string, args ...interface{}) {}
func (n nopLogger) WithFields(fields map[string]interface{}) Logger {
	return n
}
func (n nopLogger) WithContext(ctx context.Context) Logger {
	return n
}
func (n nopLogger) WithComponent(component string) Logger {
	return n
}
