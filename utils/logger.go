package utils

import (
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"

	"github.com/cppla/newsboard/config"
)

var (
	// Logger is the global structured logger; a no-op until InitLogger runs.
	Logger = zap.NewNop()
	// Sugar is a sugared logger for convenience
	Sugar = Logger.Sugar()
)

var encCfg = zapcore.EncoderConfig{
	TimeKey:        "ts",
	LevelKey:       "level",
	NameKey:        "logger",
	CallerKey:      "caller",
	MessageKey:     "msg",
	StacktraceKey:  "stacktrace",
	LineEnding:     zapcore.DefaultLineEnding,
	EncodeLevel:    zapcore.LowercaseLevelEncoder,
	EncodeTime:     timeEncoder,
	EncodeDuration: zapcore.SecondsDurationEncoder,
	EncodeCaller:   zapcore.ShortCallerEncoder,
}

// InitLogger initializes the global zap logger with console + rolling file outputs.
func InitLogger(cfg config.AppConfig) error {
	level := parseLevel(cfg.LogLevel)
	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(os.Stdout), level),
	}
	if cfg.LogPath != "" {
		cores = append(cores, zapcore.NewCore(
			zapcore.NewJSONEncoder(encCfg),
			zapcore.AddSync(rollingWriter(cfg.LogPath, cfg)),
			level,
		))
	}

	opts := []zap.Option{zap.AddCaller()}
	if cfg.LogLevel == "debug" {
		opts = append(opts, zap.Development())
	}
	Logger = zap.New(zapcore.NewTee(cores...), opts...)
	Sugar = Logger.Sugar()
	return nil
}

// NewRollingFileLogger returns a file-only logger, used for gin access logs.
func NewRollingFileLogger(path string, cfg config.AppConfig) (*zap.Logger, error) {
	if path == "" {
		return nil, os.ErrInvalid
	}
	core := zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(rollingWriter(path, cfg)), parseLevel(cfg.LogLevel))
	return zap.New(core), nil
}

func rollingWriter(path string, cfg config.AppConfig) *lumberjack.Logger {
	if dir := filepath.Dir(path); dir != "." {
		_ = os.MkdirAll(dir, 0o755)
	}
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    nz(cfg.LogMaxSizeMB, 100), // megabytes
		MaxBackups: nz(cfg.LogMaxBackups, 3),
		MaxAge:     nz(cfg.LogMaxAgeDays, 7), // days
		Compress:   cfg.LogCompress,
	}
}

func timeEncoder(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString(t.Format("2006-01-02 15:04:05.000"))
}

func parseLevel(s string) zapcore.Level {
	switch s {
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

func nz(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}
