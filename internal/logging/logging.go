// Package logging builds the process-wide zap logger.
package logging

import (
    "fmt"
    "strings"

    "go.uber.org/zap"
    "go.uber.org/zap/zapcore"
)

// New returns a JSON production logger, or a console development logger
// when env is "dev".  level is a zap level name; empty means info.
func New(env, level string) (*zap.Logger, error) {
    lvl := zapcore.InfoLevel
    if strings.TrimSpace(level) != "" {
        if err := lvl.UnmarshalText([]byte(strings.ToLower(level))); err != nil {
            return nil, fmt.Errorf("invalid LOG_LEVEL %q: %w", level, err)
        }
    }
    cfg := zap.NewProductionConfig()
    if strings.EqualFold(env, "dev") {
        cfg = zap.NewDevelopmentConfig()
    }
    cfg.Level = zap.NewAtomicLevelAt(lvl)
    cfg.EncoderConfig.TimeKey = "ts"
    cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
    return cfg.Build(zap.Fields(zap.String("service", "swimmeet-console")))
}
