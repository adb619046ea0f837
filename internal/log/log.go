package log

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/dscc-qa/backup-harness/internal/config"
	srvErrors "github.com/dscc-qa/backup-harness/pkg/errors"
)

// New builds a logger writing to out and, when cfg.File is set, to a
// rotating file. The returned func flushes and closes the sinks.
func New(cfg config.Log, out zapcore.WriteSyncer) (*zap.Logger, func(), error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, nil, srvErrors.NewInvalidConfigurationError("log-level", err.Error())
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var encoder zapcore.Encoder
	switch cfg.Format {
	case config.LogFormatJSON:
		encoder = zapcore.NewJSONEncoder(encoderCfg)
	case config.LogFormatConsole, "":
		encoderCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encoderCfg)
	default:
		return nil, nil, srvErrors.NewInvalidConfigurationError("log-format", fmt.Sprintf("unknown format %q", cfg.Format))
	}

	cores := []zapcore.Core{zapcore.NewCore(encoder, out, level)}

	var file *lumberjack.Logger
	if cfg.File != "" {
		file = &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
		}
		// files never get color codes
		fileCfg := zap.NewProductionEncoderConfig()
		fileCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(fileCfg), zapcore.AddSync(file), level))
	}

	logger := zap.New(zapcore.NewTee(cores...), zap.AddCaller())
	closeFn := func() {
		_ = logger.Sync()
		if file != nil {
			_ = file.Close()
		}
	}
	return logger, closeFn, nil
}

// Setup installs the logger as the zap global logger. The returned func
// restores the previous globals and closes the sinks.
func Setup(cfg config.Log) (func(), error) {
	logger, closeFn, err := New(cfg, zapcore.Lock(os.Stderr))
	if err != nil {
		return nil, err
	}
	undo := zap.ReplaceGlobals(logger)
	return func() {
		closeFn()
		undo()
	}, nil
}
