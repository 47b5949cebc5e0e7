// Package logger provides a thin wrapper for constructing a zap based
// logger shared across the node, wallet and RPC layers.
package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New constructs a *zap.SugaredLogger tagged with the given service name.
// The caller owns the returned logger and is expected to pass it explicitly
// into every constructor that needs it; nothing here is stashed in a
// package-level variable.
func New(service string) (*zap.SugaredLogger, error) {
	config := zap.NewProductionConfig()
	config.OutputPaths = []string{"stdout"}
	config.EncoderConfig.TimeKey = "ts"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	log, err := config.Build(zap.WithCaller(true), zap.Fields(zap.String("service", service)))
	if err != nil {
		return nil, err
	}

	return log.Sugar(), nil
}
