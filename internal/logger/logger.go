package logger

import (
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	timeKey   = "time"
	levelKey  = "level"
	sourceKey = "source"
	msgKey    = "msg"
)

var (
	sugarLogger *zap.SugaredLogger
	initOnce    sync.Once
)

func logPath() string {
	logDir := os.Getenv("LOG_DIR")
	if logDir == "" {
		logDir = "logs"
	}
	return filepath.Join(logDir, "app.log")
}

func initializeLogger() {
	path := logPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		path = "app.log"
	}

	fileWriter := zapcore.AddSync(&lumberjack.Logger{
		Filename:   path,
		MaxSize:    50,
		MaxBackups: 10,
		MaxAge:     28,
		Compress:   true,
		LocalTime:  true,
	})
	stdWriter := zapcore.AddSync(os.Stdout)

	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        timeKey,
		LevelKey:       levelKey,
		NameKey:        sourceKey,
		MessageKey:     msgKey,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeLevel:    zapcore.CapitalLevelEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
	}

	core := zapcore.NewTee(
		zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), fileWriter, zap.InfoLevel),
		zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig), stdWriter, zap.InfoLevel),
	)

	sugarLogger = zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel)).Sugar()
}

// NewNamedLogger returns a SugaredLogger scoped to one component.
func NewNamedLogger(name string) *zap.SugaredLogger {
	initOnce.Do(initializeLogger)
	return sugarLogger.Named(name)
}

// Sync flushes buffered entries; call it once before the process exits.
func Sync() {
	if sugarLogger != nil {
		_ = sugarLogger.Sync()
	}
}
