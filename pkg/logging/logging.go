package logging

import (
	"os"
	"strings"

	"go.elastic.co/ecszap"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/Ruscigno/QuantLab/pkg/config"
)

// GetWriteSyncer returns a size-rotated file sink for logName.
func GetWriteSyncer(logName string) zapcore.WriteSyncer {
	return zapcore.AddSync(&lumberjack.Logger{
		Filename:   logName,
		MaxSize:    20, // MB
		MaxBackups: 5,
		MaxAge:     28, // days
		LocalTime:  true,
	})
}

// SetupLogger builds the process logger for the configured mode.
//
// In dev and prod mode errors go to stderr and everything else to stdout,
// while a JSON copy of every entry is written to cfg.LogFile when set.
// In elk mode ECS-formatted JSON is written to stdout only.
func SetupLogger(cfg config.Config) *zap.Logger {
	if strings.EqualFold(cfg.LogMode, config.LogModeELK) {
		return SetupLoggerELK()
	}

	highPriority := zap.LevelEnablerFunc(func(lvl zapcore.Level) bool {
		return lvl >= zapcore.ErrorLevel
	})
	lowPriority := zap.LevelEnablerFunc(func(lvl zapcore.Level) bool {
		if strings.EqualFold(cfg.LogMode, config.LogModeProd) && lvl < zapcore.InfoLevel {
			return false
		}
		return lvl < zapcore.ErrorLevel
	})

	var encoderConfig zapcore.EncoderConfig
	if strings.EqualFold(cfg.LogMode, config.LogModeProd) {
		encoderConfig = zap.NewProductionEncoderConfig()
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	} else {
		encoderConfig = zap.NewDevelopmentEncoderConfig()
	}
	consoleConfig := encoderConfig
	consoleConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder

	consoleEncoder := zapcore.NewConsoleEncoder(consoleConfig)
	cores := []zapcore.Core{
		zapcore.NewCore(consoleEncoder, zapcore.Lock(os.Stderr), highPriority),
		zapcore.NewCore(consoleEncoder, zapcore.Lock(os.Stdout), lowPriority),
	}

	if cfg.LogFile != "" {
		fileEncoder := zapcore.NewJSONEncoder(encoderConfig)
		file := GetWriteSyncer(cfg.LogFile)
		cores = append(cores,
			zapcore.NewCore(fileEncoder, file, highPriority),
			zapcore.NewCore(fileEncoder, file, lowPriority),
		)
	}

	return zap.New(zapcore.NewTee(cores...), zap.AddCaller())
}

// SetupLoggerELK returns a logger emitting Elastic Common Schema JSON.
func SetupLoggerELK() *zap.Logger {
	encoderConfig := ecszap.EncoderConfig{
		EncodeLevel:    zapcore.CapitalLevelEncoder,
		EncodeDuration: zapcore.MillisDurationEncoder,
		EncodeCaller:   ecszap.FullCallerEncoder,
	}
	core := ecszap.NewCore(encoderConfig, os.Stdout, zap.DebugLevel)
	return zap.New(core, zap.AddCaller())
}
