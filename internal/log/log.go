package log

import (
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Level string

const (
	LevelDebug Level = "DEBUG"
	LevelInfo  Level = "INFO"
	LevelError Level = "ERROR"
)

var (
	logger     *zap.SugaredLogger
	loggerOnce sync.Once
	level      = zap.NewAtomicLevelAt(zapcore.InfoLevel)
)

// initLogger builds the global logger writing console lines to stderr.
// LOG_LEVEL (debug, info, error) sets the initial minimum level.
func initLogger() {
	loggerOnce.Do(func() {
		if lvl := os.Getenv("LOG_LEVEL"); lvl != "" {
			level.SetLevel(toZap(Level(strings.ToUpper(lvl))))
		}

		encCfg := zap.NewProductionEncoderConfig()
		encCfg.TimeKey = "ts"
		encCfg.EncodeTime = zapcore.RFC3339NanoTimeEncoder
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder

		core := zapcore.NewCore(
			zapcore.NewConsoleEncoder(encCfg),
			zapcore.Lock(os.Stderr),
			level,
		)
		logger = zap.New(core).Sugar()
	})
}

// SetLevel changes the minimum level at runtime.
func SetLevel(l Level) {
	initLogger()
	level.SetLevel(toZap(l))
}

// Replace swaps the underlying logger; tests use it with zap's observer core.
// It returns a function restoring the previous logger.
func Replace(l *zap.Logger) func() {
	initLogger()
	prev := logger
	logger = l.Sugar()
	return func() { logger = prev }
}

func Debug(msg string, kv ...any) {
	initLogger()
	logger.Debugw(msg, kv...)
}

func Info(msg string, kv ...any) {
	initLogger()
	logger.Infow(msg, kv...)
}

func Error(msg string, err error, kv ...any) {
	initLogger()
	// Prepend error into key-value list.
	extended := append([]any{"err", err}, kv...)
	logger.Errorw(msg, extended...)
}

// Sync flushes buffered entries; call before exit.
func Sync() {
	initLogger()
	_ = logger.Sync()
}

func toZap(l Level) zapcore.Level {
	switch l {
	case LevelDebug:
		return zapcore.DebugLevel
	case LevelError:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}
