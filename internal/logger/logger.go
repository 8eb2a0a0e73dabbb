package logger

import (
	"fmt"
	"os"
	"strings"

	"rentflow/internal/config"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds the process logger from the log section of the config.
// Empty fields fall back to info, json and stdout. Unknown levels or
// formats are rejected so a typo in LOG_LEVEL does not go unnoticed.
func New(cfg config.LogConfig, serviceName string) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if cfg.Level != "" {
		if err := level.UnmarshalText([]byte(strings.ToLower(cfg.Level))); err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
		}
	}

	var zc zap.Config
	switch cfg.Format {
	case "console":
		zc = zap.NewDevelopmentConfig()
	case "", "json":
		zc = zap.NewProductionConfig()
		zc.EncoderConfig.TimeKey = "timestamp"
		zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	default:
		return nil, fmt.Errorf("invalid log format %q", cfg.Format)
	}
	zc.Level = zap.NewAtomicLevelAt(level)

	output := cfg.Output
	if output == "" {
		output = "stdout"
	}
	zc.OutputPaths = []string{output}
	zc.ErrorOutputPaths = []string{"stderr"}

	zc.InitialFields = map[string]any{}
	if serviceName != "" {
		zc.InitialFields["service_name"] = serviceName
	}
	if hostname, err := os.Hostname(); err == nil && hostname != "" {
		zc.InitialFields["hostname"] = hostname
	}
	return zc.Build()
}
