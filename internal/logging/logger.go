// Package logging builds the structured logger every replica uses.
// Adapted from raft/logger.go of the teacher repository: the same
// zap.Config shape (JSON encoding, RFC3339 timestamps, stdout), widened
// from a single "nodeID" field to tag every line with this replica's
// id so a multi-replica log stream stays correlatable.
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a *zap.SugaredLogger tagged with replicaID.
func New(replicaID string) *zap.SugaredLogger {
	config := zap.Config{
		Level:       zap.NewAtomicLevelAt(zap.InfoLevel),
		Development: true,
		Encoding:    "json",
		EncoderConfig: zapcore.EncoderConfig{
			TimeKey:      "timestamp",
			LevelKey:     "level",
			CallerKey:    "caller",
			MessageKey:   "msg",
			EncodeLevel:  zapcore.LowercaseLevelEncoder,
			EncodeTime:   zapcore.RFC3339TimeEncoder,
			EncodeCaller: zapcore.ShortCallerEncoder,
		},
		OutputPaths: []string{"stdout"},
	}

	logger, err := config.Build()
	if err != nil {
		// Falling back to zap's no-op logger keeps the replica running
		// even if the logging sink itself is misconfigured; logging is
		// ambient infrastructure, not part of the consensus core.
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("replica", replicaID))

	return logger.Sugar()
}
