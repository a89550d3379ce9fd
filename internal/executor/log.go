package executor

import (
	"context"
	"log/slog"
)

// Log records actions without touching hardware.
type Log struct {
	logger *slog.Logger
}

// NewLog constructs a logging backend.
func NewLog(logger *slog.Logger) *Log {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Log{logger: logger}
}

func (l *Log) Execute(ctx context.Context, action string, identifier string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.logger.Info("light action", "backend", "log", "action", action, "identifier", identifier)
	return nil
}

func (l *Log) Close() error { return nil }
