package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/baditaflorin/go_corpus_normalizer/internal/ports"
	"github.com/baditaflorin/l"
)

// Options configures NewCustomStdLogger.
type Options struct {
	Output io.Writer
	// FilePath, when set, appends to that file (creating its directory) and
	// rotates it instead of writing to Output.
	FilePath string
	JSON     bool
	Level    slog.Level
}

// StdLogger adapts the l.Logger to the ports.Logger interface.
type StdLogger struct {
	logger l.Logger
}

// NewStdLogger creates a new standard logger adapter with default configuration.
func NewStdLogger() (ports.Logger, error) {
	return NewCustomStdLogger(Options{Output: os.Stdout, Level: l.LevelInfo})
}

// NewCustomStdLogger creates a standard logger from opts.
func NewCustomStdLogger(opts Options) (ports.Logger, error) {
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	logger, err := l.NewStandardFactory().CreateLogger(l.Config{
		Output:     opts.Output,
		FilePath:   opts.FilePath,
		JsonFormat: opts.JSON,
		MinLevel:   opts.Level,
		// The buffered writer only targets Output, so file logging writes
		// through the factory's rotating file writer.
		AsyncWrite:  opts.FilePath == "",
		BufferSize:  1024 * 1024,      // 1MB buffer
		MaxFileSize: 10 * 1024 * 1024, // 10MB max file size
		MaxBackups:  5,
		AddSource:   true,
		Metrics:     true,
	})
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	return &StdLogger{logger: logger}, nil
}

// NewFileLogger creates a logger appending to path.
func NewFileLogger(path string, json bool, level slog.Level) (ports.Logger, error) {
	return NewCustomStdLogger(Options{FilePath: path, JSON: json, Level: level})
}

// Debug logs a debug message.
func (s *StdLogger) Debug(msg string, keysAndValues ...interface{}) {
	s.logger.Debug(msg, keysAndValues...)
}

// Info logs an info message.
func (s *StdLogger) Info(msg string, keysAndValues ...interface{}) {
	s.logger.Info(msg, keysAndValues...)
}

// Warn logs a warning message.
func (s *StdLogger) Warn(msg string, keysAndValues ...interface{}) {
	s.logger.Warn(msg, keysAndValues...)
}

// Error logs an error message.
func (s *StdLogger) Error(msg string, keysAndValues ...interface{}) {
	s.logger.Error(msg, keysAndValues...)
}

// Close flushes the logger.
func (s *StdLogger) Close() error {
	return s.logger.Close()
}

// FromExisting creates a new StdLogger from an existing l.Logger.
func FromExisting(logger l.Logger) ports.Logger {
	return &StdLogger{logger: logger}
}

// NopLogger discards everything.
type NopLogger struct{}

// NewNopLogger returns a logger that discards everything.
func NewNopLogger() ports.Logger { return NopLogger{} }

func (NopLogger) Debug(string, ...interface{}) {}
func (NopLogger) Info(string, ...interface{})  {}
func (NopLogger) Warn(string, ...interface{})  {}
func (NopLogger) Error(string, ...interface{}) {}
func (NopLogger) Close() error                 { return nil }
