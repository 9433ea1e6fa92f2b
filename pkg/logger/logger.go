package logger

import (
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"studybot/pkg/config"
)

var (
	globalLogger *zap.Logger
	mu           sync.Mutex
)

// Init initializes the global logger. Subsequent calls are no-ops.
func Init(cfg config.LoggerConfig) error {
	mu.Lock()
	defer mu.Unlock()

	if globalLogger != nil {
		return nil
	}

	l, err := New(cfg)
	if err != nil {
		return err
	}
	globalLogger = l.With(zap.String("service", "studybot"))
	return nil
}

// Get returns the global logger instance
func Get() *zap.Logger {
	mu.Lock()
	l := globalLogger
	mu.Unlock()

	if l == nil {
		// Initialize with default level if not initialized
		_ = Init(config.LoggerConfig{Level: getDefaultLevel(), Format: "json"})
		mu.Lock()
		l = globalLogger
		mu.Unlock()
	}
	return l
}

// Sync flushes any buffered log entries
func Sync() {
	mu.Lock()
	defer mu.Unlock()
	if globalLogger != nil {
		_ = globalLogger.Sync()
	}
}

// New builds a standalone logger. Unknown levels fall back to info.
func New(cfg config.LoggerConfig) (*zap.Logger, error) {
	var zapLevel zapcore.Level
	if err := zapLevel.UnmarshalText([]byte(cfg.Level)); err != nil {
		zapLevel = zapcore.InfoLevel
	}

	zcfg := zap.NewProductionConfig()
	if cfg.Format == "console" {
		zcfg = zap.NewDevelopmentConfig()
	}
	zcfg.Level = zap.NewAtomicLevelAt(zapLevel)
	zcfg.EncoderConfig.TimeKey = "timestamp"
	zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zcfg.EncoderConfig.MessageKey = "message"
	zcfg.EncoderConfig.LevelKey = "level"
	zcfg.EncoderConfig.CallerKey = "caller"

	return zcfg.Build()
}

func getDefaultLevel() string {
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		return level
	}
	return "info"
}
