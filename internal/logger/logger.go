package logger

import (
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	EnvLogLevel = "LOG_LEVEL"
	EnvTimeFmt  = "LOG_TIME"
	EnvStage    = "ENVIRONMENT"
)

// DevMode reports whether ENVIRONMENT selects anything but prod.
func DevMode() bool {
	return strings.ToLower(os.Getenv(EnvStage)) != "prod"
}

func New(cfg Config, devMode bool) (*zap.Logger, error) {
	return newLogger(cfg, devMode, os.Stdout)
}

func newLogger(cfg Config, devMode bool, stdout io.Writer) (*zap.Logger, error) {
	level := zapcore.DebugLevel
	if !devMode {
		level = zapcore.InfoLevel
	}
	if raw := os.Getenv(EnvLogLevel); raw != "" {
		if err := level.UnmarshalText([]byte(strings.ToLower(raw))); err != nil {
			return nil, fmt.Errorf("invalid LOG_LEVEL (expected one of: debug, info, warn, error etc): %w", err)
		}
	}

	var timeEncoder zapcore.TimeEncoder = zapcore.EpochTimeEncoder
	if raw := os.Getenv(EnvTimeFmt); raw != "" {
		if err := timeEncoder.UnmarshalText([]byte(raw)); err != nil {
			return nil, fmt.Errorf("invalid LOG_TIME (expected one of: epoch, iso8601, rfc3339 etc): %w", err)
		}
	}

	zapCfg := zap.NewProductionEncoderConfig()
	if devMode {
		zapCfg = zap.NewDevelopmentEncoderConfig()
	}
	zapCfg.EncodeTime = timeEncoder

	var encoder zapcore.Encoder
	if cfg.Encoding == "console" {
		encoder = zapcore.NewConsoleEncoder(zapCfg)
	} else {
		encoder = zapcore.NewJSONEncoder(zapCfg)
	}

	writers := []zapcore.WriteSyncer{zapcore.AddSync(stdout)}
	if cfg.EnableWriteToFile {
		writers = append(writers, zapcore.AddSync(&lumberjack.Logger{
			Filename:   cfg.FilePath,
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
		}))
	}

	core := zapcore.NewCore(encoder, zapcore.NewMultiWriteSyncer(writers...), level)
	return zap.New(core, zap.WithCaller(true)), nil
}
