package logging

import (
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu     sync.Mutex
	logger = zap.NewNop().Sugar()
)

// Init opens the log file and replaces the no-op logger. The TUI owns the
// terminal, so everything goes to the file, never to stdout/stderr.
func Init(path, level string) error {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderCfg.EncodeLevel = zapcore.CapitalLevelEncoder

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderCfg),
		zapcore.AddSync(file),
		parseLevel(level),
	)

	mu.Lock()
	defer mu.Unlock()
	logger = zap.New(core).Sugar()
	return nil
}

// Sync flushes any buffered log entries. Call it on shutdown.
func Sync() {
	mu.Lock()
	defer mu.Unlock()
	_ = logger.Sync()
}

func parseLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func get() *zap.SugaredLogger {
	mu.Lock()
	defer mu.Unlock()
	return logger
}

func LogDebug(format string, args ...interface{}) {
	get().Debugf(format, args...)
}

func LogInfo(format string, args ...interface{}) {
	get().Infof(format, args...)
}

func LogError(format string, args ...interface{}) {
	get().Errorf(format, args...)
}
