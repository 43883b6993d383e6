// Package logging builds the process logger: an ectologger front end
// with zap as the output transport.
package logging

import (
	"encoding/json"

	"github.com/Gobusters/ectologger"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config controls logger construction.
type Config struct {
	Level  string
	Pretty bool
}

// New returns the application logger and a flush function for shutdown.
// Each ectologger message is encoded whole; the level and structured
// fields live inside the payload.
func New(cfg Config) (ectologger.Logger, func(), error) {
	zapConfig := zap.NewProductionConfig()
	if cfg.Pretty {
		zapConfig = zap.NewDevelopmentConfig()
	}

	if cfg.Level != "" {
		level, err := zapcore.ParseLevel(cfg.Level)
		if err != nil {
			return nil, nil, err
		}
		zapConfig.Level = zap.NewAtomicLevelAt(level)
	}

	zlog, err := zapConfig.Build()
	if err != nil {
		return nil, nil, err
	}

	logger := ectologger.NewEctoLogger(func(message ectologger.EctoLogMessage) {
		payload, err := json.Marshal(message)
		if err != nil {
			zlog.Error("failed to encode log message", zap.Error(err))
			return
		}
		zlog.Info("log", zap.Any("entry", json.RawMessage(payload)))
	})

	flush := func() {
		_ = zlog.Sync()
	}

	return logger, flush, nil
}

// NewNop returns a logger that discards everything. Used in tests.
func NewNop() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}
