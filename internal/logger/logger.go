package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.uber.org/multierr"
	"gopkg.in/natefinch/lumberjack.v2"

	"petwatch/internal/config"
)

// Log file names, one per level.
const (
	InfoFile    = "info.log"
	WarningFile = "warning.log"
	ErrorFile   = "error.log"
)

// Logger provides leveled logging (debug/info/warning/error) to rotating files and stdout/stderr.
type Logger struct {
	zl     zerolog.Logger
	logDir string
	files  map[string]*lumberjack.Logger
	mu     *sync.Mutex
}

// NewLogger creates a Logger writing to the console and to one file per level in cfg.LogDirectory.
func NewLogger(cfg *config.Config) (*Logger, error) {
	if err := os.MkdirAll(cfg.LogDirectory, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	files := map[string]*lumberjack.Logger{
		InfoFile:    rotating(cfg.LogDirectory, InfoFile),
		WarningFile: rotating(cfg.LogDirectory, WarningFile),
		ErrorFile:   rotating(cfg.LogDirectory, ErrorFile),
	}

	stdout := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.DateTime}
	stderr := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.DateTime}

	writer := zerolog.MultiLevelWriter(
		levelWriter{Writer: stdout, match: below(zerolog.ErrorLevel)},
		levelWriter{Writer: stderr, match: atLeast(zerolog.ErrorLevel)},
		levelWriter{Writer: files[InfoFile], match: below(zerolog.WarnLevel)},
		levelWriter{Writer: files[WarningFile], match: exactly(zerolog.WarnLevel)},
		levelWriter{Writer: files[ErrorFile], match: atLeast(zerolog.ErrorLevel)},
	)

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	return &Logger{
		zl:     zerolog.New(writer).Level(level).With().Timestamp().Logger(),
		logDir: cfg.LogDirectory,
		files:  files,
		mu:     &sync.Mutex{},
	}, nil
}

// NewConsole creates a Logger that only writes plain text to w.
func NewConsole(w io.Writer) *Logger {
	return &Logger{
		zl: zerolog.New(zerolog.ConsoleWriter{Out: w, NoColor: true, TimeFormat: time.DateTime}).
			With().Timestamp().Logger(),
		files: map[string]*lumberjack.Logger{},
		mu:    &sync.Mutex{},
	}
}

// NewNop creates a Logger that discards everything.
func NewNop() *Logger {
	return &Logger{zl: zerolog.Nop(), files: map[string]*lumberjack.Logger{}, mu: &sync.Mutex{}}
}

func rotating(dir, name string) *lumberjack.Logger {
	return &lumberjack.Logger{
		Filename:   filepath.Join(dir, name),
		MaxSize:    10, // megabytes
		MaxBackups: 3,
		MaxAge:     28,
	}
}

// With returns a child logger tagging every entry with component.
func (l *Logger) With(component string) *Logger {
	child := *l
	child.zl = l.zl.With().Str("component", component).Logger()
	return &child
}

// Debug writes a formatted debug-level log entry.
func (l *Logger) Debug(format string, v ...interface{}) {
	l.zl.Debug().Msgf(format, v...)
}

// Info writes a formatted info-level log entry.
func (l *Logger) Info(format string, v ...interface{}) {
	l.zl.Info().Msgf(format, v...)
}

// Warning writes a formatted warning-level log entry.
func (l *Logger) Warning(format string, v ...interface{}) {
	l.zl.Warn().Msgf(format, v...)
}

// Error writes a formatted error-level log entry.
func (l *Logger) Error(format string, v ...interface{}) {
	l.zl.Error().Msgf(format, v...)
}

// CleanLogs truncates the specified log file.
func (l *Logger) CleanLogs(fileName string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.files[fileName]; !ok {
		l.Error("Unknown log file: %s", fileName)
		return
	}

	if err := os.Truncate(filepath.Join(l.logDir, fileName), 0); err != nil && !os.IsNotExist(err) {
		l.Error("Error truncating log file %s: %v", fileName, err)
		return
	}

	l.Info("File content of %s has been cleared.", fileName)
}

// Close flushes and closes the log files.
func (l *Logger) Close() error {
	var err error
	for _, f := range l.files {
		err = multierr.Append(err, f.Close())
	}
	return err
}

// levelWriter forwards entries whose level satisfies match.
type levelWriter struct {
	io.Writer
	match func(zerolog.Level) bool
}

func (w levelWriter) WriteLevel(level zerolog.Level, p []byte) (int, error) {
	if !w.match(level) {
		return len(p), nil
	}
	return w.Writer.Write(p)
}

func below(max zerolog.Level) func(zerolog.Level) bool {
	return func(l zerolog.Level) bool { return l < max }
}

func atLeast(min zerolog.Level) func(zerolog.Level) bool {
	return func(l zerolog.Level) bool { return l >= min && l != zerolog.NoLevel }
}

func exactly(want zerolog.Level) func(zerolog.Level) bool {
	return func(l zerolog.Level) bool { return l == want }
}
