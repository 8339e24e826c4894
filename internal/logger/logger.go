package logger

import (
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/lumberjack.v3"
)

// Config describes the console level and the optional rotating file sink
type Config struct {
	Level      string
	Filename   string
	MaxSize    int // megabytes
	MaxBackups int
	MaxAge     int // days
	Compress   bool
}

// New builds a logger writing colourised console output to stdout and, when
// Filename is set, JSON lines to a rotating file.
func New(config Config) (*zap.Logger, error) {
	level := zap.InfoLevel
	if config.Level != "" {
		parsed, err := zapcore.ParseLevel(config.Level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", config.Level, err)
		}
		level = parsed
	}
	logLevel := zap.NewAtomicLevelAt(level)

	developmentCfg := zap.NewDevelopmentEncoderConfig()
	developmentCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	consoleEncoder := zapcore.NewConsoleEncoder(developmentCfg)

	cores := []zapcore.Core{
		zapcore.NewCore(consoleEncoder, zapcore.AddSync(os.Stdout), logLevel),
	}

	if config.Filename != "" {
		fileHandler, err := newFileHandler(config)
		if err != nil {
			return nil, err
		}

		productionCfg := zap.NewProductionEncoderConfig()
		productionCfg.TimeKey = "timestamp"
		productionCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		fileEncoder := zapcore.NewJSONEncoder(productionCfg)

		cores = append(cores, zapcore.NewCore(fileEncoder, zapcore.AddSync(fileHandler), logLevel))
	}

	return zap.New(zapcore.NewTee(cores...)), nil
}

func newFileHandler(config Config) (io.Writer, error) {
	maxBytes := int64(config.MaxSize) * 1024 * 1024

	var (
		fileHandler io.Writer
		err         error
	)
	if config.Compress {
		fileHandler, err = lumberjack.New(
			lumberjack.WithFileName(config.Filename),
			lumberjack.WithMaxBytes(maxBytes),
			lumberjack.WithMaxBackups(config.MaxBackups),
			lumberjack.WithMaxDays(config.MaxAge),
			lumberjack.WithCompress(),
		)
	} else {
		fileHandler, err = lumberjack.New(
			lumberjack.WithFileName(config.Filename),
			lumberjack.WithMaxBytes(maxBytes),
			lumberjack.WithMaxBackups(config.MaxBackups),
			lumberjack.WithMaxDays(config.MaxAge),
		)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create file handler: %w", err)
	}
	return fileHandler, nil
}
