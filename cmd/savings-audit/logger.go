package main

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

func newLogger(cfg config) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(cfg.logLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var sink zapcore.WriteSyncer = zapcore.Lock(os.Stderr)
	if cfg.logFile != "" {
		sink = zapcore.AddSync(&lumberjack.Logger{
			Filename:   cfg.logFile,
			MaxSize:    100,
			MaxBackups: 14,
			MaxAge:     14,
			Compress:   true,
			LocalTime:  true,
		})
	}

	return zap.New(zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), sink, lvl)), nil
}
