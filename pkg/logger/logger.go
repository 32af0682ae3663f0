// Package logger provides the structured logging wrapper used across the
// engine.
package logger

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
)

// Logger is a wrapper around logrus.Logger.
type Logger struct {
	*logrus.Logger
}

// Config contains logging configuration.
type Config struct {
	Level      string `json:"level" yaml:"level"`
	Format     string `json:"format" yaml:"format"`
	Output     string `json:"output" yaml:"output"`
	FilePrefix string `json:"file_prefix" yaml:"file_prefix"`
}

// New creates a new Logger instance from cfg.
func New(cfg Config) *Logger {
	logger := logrus.New()

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	switch strings.ToLower(cfg.Format) {
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	default:
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}

	switch strings.ToLower(cfg.Output) {
	case "file":
		if cfg.FilePrefix == "" {
			cfg.FilePrefix = "riskgraph"
		}
		logDir := "logs"
		if err := os.MkdirAll(logDir, 0755); err != nil {
			logger.Errorf("failed to create logs directory: %v", err)
		} else {
			logPath := filepath.Join(logDir, cfg.FilePrefix+".log")
			file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
			if err != nil {
				logger.Errorf("failed to open log file: %v", err)
			} else {
				logger.SetOutput(io.MultiWriter(os.Stdout, file))
			}
		}
	default:
		logger.SetOutput(os.Stdout)
	}

	return &Logger{Logger: logger}
}

// NewDefault creates a logger with sane defaults. name is accepted for
// parity with component-scoped loggers elsewhere in the stack but is not
// currently attached as a field.
func NewDefault(name string) *Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.InfoLevel)
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	logger.SetOutput(os.Stdout)

	return &Logger{Logger: logger}
}

// WithField returns a new log entry with a field.
func (l *Logger) WithField(key string, value interface{}) *logrus.Entry {
	return l.Logger.WithField(key, value)
}

// WithFields returns a new log entry with multiple fields.
func (l *Logger) WithFields(fields logrus.Fields) *logrus.Entry {
	return l.Logger.WithFields(fields)
}

// WithError returns a new log entry carrying err.
func (l *Logger) WithError(err error) *logrus.Entry {
	return l.Logger.WithError(err)
}
