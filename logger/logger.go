package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the logging interface passed through the scraping pipeline.
type Logger interface {
	Debug(msg string, keysAndValues ...interface{})
	Info(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
	With(keysAndValues ...interface{}) Logger
	Sync() error
}

// ZapLogger implements Logger using a zap SugaredLogger.
type ZapLogger struct {
	logger *zap.SugaredLogger
}

// New builds a logger writing to stderr and, when logsDir is non-empty, to a
// session-stamped file under logsDir. One file per process run; old session
// files are left in place for later inspection.
func New(logsDir string, debug bool) (*ZapLogger, error) {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	config := zap.NewProductionConfig()
	config.EncoderConfig = encoderConfig
	if debug {
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	config.OutputPaths = []string{"stderr"}

	if logsDir != "" {
		if err := os.MkdirAll(logsDir, 0o755); err != nil {
			return nil, fmt.Errorf("create logs dir: %w", err)
		}
		session := time.Now().Format("2006-01-02_15-04-05")
		logFile := filepath.Join(logsDir, fmt.Sprintf("costtofly_%s.log", session))
		config.OutputPaths = append(config.OutputPaths, logFile)
	}

	logger, err := config.Build()
	if err != nil {
		return nil, fmt.Errorf("build zap logger: %w", err)
	}
	return &ZapLogger{logger: logger.Sugar()}, nil
}

func (l *ZapLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.logger.Debugw(msg, keysAndValues...)
}

func (l *ZapLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Infow(msg, keysAndValues...)
}

func (l *ZapLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.logger.Warnw(msg, keysAndValues...)
}

func (l *ZapLogger) Error(msg string, keysAndValues ...interface{}) {
	l.logger.Errorw(msg, keysAndValues...)
}

// With returns a logger with additional structured context.
func (l *ZapLogger) With(keysAndValues ...interface{}) Logger {
	return &ZapLogger{logger: l.logger.With(keysAndValues...)}
}

func (l *ZapLogger) Sync() error {
	return l.logger.Sync()
}

// Nop returns a logger that discards everything. Used in tests.
func Nop() Logger {
	return &ZapLogger{logger: zap.NewNop().Sugar()}
}
