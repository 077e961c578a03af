// Package logger is a centralized wrapper over zap for the whole
// simulation, adapted from the teacher project's logger package: an
// AtomicLevel for runtime level changes, a console encoder for the
// terminal, and — new here — a second core writing to a lumberjack-backed
// rotating file, since §6 requires a persisted append-only log file and §5
// requires line-atomic writes under concurrent writers.
package logger

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	mu         sync.Mutex
	log        *zap.Logger
	logLevel   = zap.NewAtomicLevelAt(zap.InfoLevel)
	encoderCfg = defaultEncoderConfig()
	fileSink   *lumberjack.Logger
)

func defaultEncoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalColorLevelEncoder,
		EncodeTime:     zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05"),
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
}

// rebuildLoggerLocked recreates the global logger from the current
// console + (optional) file cores. Caller must hold mu.
func rebuildLoggerLocked() {
	consoleEncoder := zapcore.NewConsoleEncoder(encoderCfg)
	cores := []zapcore.Core{zapcore.NewCore(consoleEncoder, zapcore.Lock(zapcore.AddSync(os.Stdout)), logLevel)}

	if fileSink != nil {
		plainCfg := encoderCfg
		plainCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		fileEncoder := zapcore.NewConsoleEncoder(plainCfg)
		cores = append(cores, zapcore.NewCore(fileEncoder, zapcore.AddSync(fileSink), logLevel))
	}

	if log != nil {
		_ = log.Sync()
	}
	log = zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddCallerSkip(1))
}

// Init sets the global level (debug/info/warn/error, case-insensitive,
// defaulting to info) and rebuilds the logger.
func Init(level string) {
	mu.Lock()
	defer mu.Unlock()

	switch strings.ToLower(level) {
	case "debug":
		logLevel.SetLevel(zap.DebugLevel)
	case "warn":
		logLevel.SetLevel(zap.WarnLevel)
	case "error":
		logLevel.SetLevel(zap.ErrorLevel)
	default:
		logLevel.SetLevel(zap.InfoLevel)
	}

	encoderCfg = defaultEncoderConfig()
	rebuildLoggerLocked()
}

// EnableFile points the persisted log file (§6) at path, rotating it with
// lumberjack once it passes maxMB. Safe to call from multiple roles
// (registration workers, clerks, ...) against the same path: lumberjack
// serializes its own writes, and O_APPEND makes each write atomic with
// respect to the others.
func EnableFile(path string, maxMB int) {
	mu.Lock()
	defer mu.Unlock()

	fileSink = &lumberjack.Logger{
		Filename:   path,
		MaxSize:    maxMB,
		MaxBackups: 5,
		Compress:   true,
	}
	rebuildLoggerLocked()
}

// Logger returns the current zap.Logger, lazily building it on first use.
func Logger() *zap.Logger {
	mu.Lock()
	defer mu.Unlock()

	if log == nil {
		rebuildLoggerLocked()
	}
	return log
}

// With returns a sub-logger tagged with the actor's role and numeric id,
// the Go equivalent of the original's per-line Identity tag (logger.h).
func With(role string, id int64) *zap.Logger {
	return Logger().With(zap.String("role", role), zap.Int64("id", id))
}

func IsDebugEnabled() bool { return Logger().Level() <= zap.DebugLevel }

func Debug(msg string, fields ...zap.Field) { Logger().Debug(msg, fields...) }
func Info(msg string, fields ...zap.Field)  { Logger().Info(msg, fields...) }
func Warn(msg string, fields ...zap.Field)  { Logger().Warn(msg, fields...) }
func Error(msg string, fields ...zap.Field) { Logger().Error(msg, fields...) }

// Fatal logs at Fatal, flushes buffers, and exits 1 — the propagation
// policy of §7 for unexpected substrate failures ("surface via exit 1 and
// a CRIT-or-higher log entry").
func Fatal(msg string, fields ...zap.Field) {
	// zap writes the entry, syncs the cores, then calls os.Exit(1).
	Logger().Fatal(msg, fields...)
}

func Debugf(msg string, a ...any) { Logger().Debug(fmt.Sprintf(msg, a...)) }
func Infof(msg string, a ...any)  { Logger().Info(fmt.Sprintf(msg, a...)) }
func Warnf(msg string, a ...any)  { Logger().Warn(fmt.Sprintf(msg, a...)) }
func Errorf(msg string, a ...any) { Logger().Error(fmt.Sprintf(msg, a...)) }
