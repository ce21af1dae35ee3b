// Package logger provides the structured logger shared by the sharing
// controller and the hauk CLI.
package logger

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Logger writes structured entries through logrus. Values are immutable;
// the With* methods return derived loggers.
type Logger struct {
	logger *logrus.Logger
	fields logrus.Fields
}

// Level names a log level.
type Level string

const (
	DebugLevel Level = "debug"
	InfoLevel  Level = "info"
	WarnLevel  Level = "warn"
	ErrorLevel Level = "error"
)

// Config configures a Logger.
type Config struct {
	Level      Level
	Format     string // text, json
	Output     string // stderr, stdout, or a file path
	TimeFormat string
}

// New builds a logger from config. An unknown level falls back to info.
func New(config *Config) (*Logger, error) {
	if config == nil {
		config = &Config{}
	}
	logger := logrus.New()

	level, err := logrus.ParseLevel(string(config.Level))
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if config.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{TimestampFormat: config.TimeFormat})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			TimestampFormat: config.TimeFormat,
			FullTimestamp:   config.TimeFormat != "",
		})
	}

	switch config.Output {
	case "", "stderr":
		logger.SetOutput(os.Stderr)
	case "stdout":
		logger.SetOutput(os.Stdout)
	default:
		file, err := os.OpenFile(config.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		logger.SetOutput(file)
	}

	return &Logger{logger: logger, fields: make(logrus.Fields)}, nil
}

// Discard returns a logger that drops every entry.
func Discard() *Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return &Logger{logger: logger, fields: make(logrus.Fields)}
}

// ToFile reports whether the logger writes to a file rather than a
// standard stream.
func (config *Config) ToFile() bool {
	return config != nil && config.Output != "" && config.Output != "stderr" && config.Output != "stdout"
}

// WithField returns a logger that adds key=value to every entry.
func (l *Logger) WithField(key string, value any) *Logger {
	return l.WithFields(map[string]any{key: value})
}

// WithFields returns a logger that adds fields to every entry.
func (l *Logger) WithFields(fields map[string]any) *Logger {
	merged := make(logrus.Fields, len(l.fields)+len(fields))
	for k, v := range l.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return &Logger{logger: l.logger, fields: merged}
}

// WithError attaches err to every entry.
func (l *Logger) WithError(err error) *Logger {
	if err == nil {
		return l
	}
	return l.WithField("error", err.Error())
}

// WithSession tags entries with a sharing session id.
func (l *Logger) WithSession(sessionID string) *Logger {
	return l.WithField("session", sessionID)
}

func (l *Logger) Debug(msg string) { l.entry().Debug(msg) }

func (l *Logger) Debugf(format string, args ...any) { l.entry().Debugf(format, args...) }

func (l *Logger) Info(msg string) { l.entry().Info(msg) }

func (l *Logger) Infof(format string, args ...any) { l.entry().Infof(format, args...) }

func (l *Logger) Warn(msg string) { l.entry().Warn(msg) }

func (l *Logger) Warnf(format string, args ...any) { l.entry().Warnf(format, args...) }

func (l *Logger) Error(msg string) { l.entry().Error(msg) }

func (l *Logger) Errorf(format string, args ...any) { l.entry().Errorf(format, args...) }

// SetOutput redirects entries to output.
func (l *Logger) SetOutput(output io.Writer) {
	l.logger.SetOutput(output)
}

// SetLevel changes the minimum level. Unknown levels select info.
func (l *Logger) SetLevel(level Level) {
	parsed, err := logrus.ParseLevel(string(level))
	if err != nil {
		parsed = logrus.InfoLevel
	}
	l.logger.SetLevel(parsed)
}

func (l *Logger) entry() *logrus.Entry {
	return l.logger.WithFields(l.fields)
}
