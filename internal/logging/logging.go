// Package logging builds the structured logger: a console core for the user
// and a rotating JSON file for later inspection.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	logMaxSizeMB   = 10
	logMaxBackups  = 3
	logMaxAgeDays  = 28
	logDirPerm     = 0o750
	defaultConsole = zapcore.WarnLevel
)

// Options configures New.
type Options struct {
	// Level applies to the file core: debug, info, warn or error.
	Level string
	// Verbose lowers the console core to debug.
	Verbose bool
	// File is the rotating JSON log path; empty disables the file core.
	File    string
	Console io.Writer
}

// Logger is a zap logger plus the resources it owns.
type Logger struct {
	*zap.Logger
	RunID string
	file  *lumberjack.Logger
}

// Close flushes buffered entries and releases the log file.
func (l *Logger) Close() error {
	_ = l.Sync()
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}

// ParseLevel maps a level name to a zap level, defaulting to info.
func ParseLevel(s string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func consoleEncoderConfig() zapcore.EncoderConfig {
	cfg := zap.NewDevelopmentEncoderConfig()
	cfg.TimeKey = ""
	cfg.CallerKey = ""
	cfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	return cfg
}

func fileEncoderConfig() zapcore.EncoderConfig {
	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	return cfg
}

// New builds the logger. A log file that cannot be opened is reported on the
// console and the logger continues console-only.
func New(opts Options) *Logger {
	console := opts.Console
	if console == nil {
		console = os.Stderr
	}

	consoleLevel := defaultConsole
	if opts.Verbose {
		consoleLevel = zapcore.DebugLevel
	}

	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(consoleEncoderConfig()), zapcore.Lock(zapcore.AddSync(console)), consoleLevel),
	}

	var lj *lumberjack.Logger
	var fileErr error
	if opts.File != "" {
		lj, fileErr = openFile(opts.File)
		if fileErr == nil {
			cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(fileEncoderConfig()), zapcore.AddSync(lj), ParseLevel(opts.Level)))
		}
	}

	runID := uuid.NewString()
	logger := zap.New(zapcore.NewTee(cores...)).With(zap.String("run_id", runID))
	if fileErr != nil {
		logger.Warn("log file unavailable, logging to console only", zap.String("path", opts.File), zap.Error(fileErr))
	}

	return &Logger{Logger: logger, RunID: runID, file: lj}
}

func openFile(path string) (*lumberjack.Logger, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, logDirPerm); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	// lumberjack opens lazily; probe now so failures surface at startup
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, err
	}
	_ = f.Close()

	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    logMaxSizeMB,
		MaxBackups: logMaxBackups,
		MaxAge:     logMaxAgeDays,
	}, nil
}
