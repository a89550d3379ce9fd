// Package executor provides the light action backends bound to catalog actions.
package executor

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/rbright/lampwake/internal/catalog"
	"github.com/rbright/lampwake/internal/config"
)

// Backend is a catalog executor that owns releasable resources.
type Backend interface {
	catalog.Executor
	Close() error
}

// Open builds the backend selected by cfg.
func Open(cfg config.ExecutorConfig, logger *slog.Logger) (Backend, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	switch strings.TrimSpace(cfg.Backend) {
	case "", config.ExecutorLog:
		return NewLog(logger), nil
	case config.ExecutorSerial:
		return OpenSerial(cfg.SerialPort, cfg.SerialBaud, logger)
	case config.ExecutorCommand:
		return NewCommand(cfg.Command.Argv, cfg.Timeout(), logger)
	default:
		return nil, fmt.Errorf("unknown executor backend %q", cfg.Backend)
	}
}
