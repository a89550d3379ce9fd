package config

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/rbright/lampwake/internal/grammar"
)

// Validate enforces config invariants and returns non-fatal warnings.
func Validate(cfg Config) ([]Warning, error) {
	warnings := make([]Warning, 0)

	switch cfg.Recognizer.Mode {
	case RecognizerStream:
		if strings.TrimSpace(cfg.Recognizer.GRPC) == "" {
			return nil, fmt.Errorf("recognizer.grpc must not be empty when recognizer.mode=stream")
		}
	case RecognizerText:
	default:
		return nil, fmt.Errorf("recognizer.mode must be one of: stream, text")
	}
	if strings.TrimSpace(cfg.Recognizer.LanguageCode) == "" {
		return nil, fmt.Errorf("recognizer.language_code must not be empty")
	}
	if cfg.Recognizer.DialTimeoutMS <= 0 {
		return nil, fmt.Errorf("recognizer.dial_timeout_ms must be > 0")
	}
	if cfg.Recognizer.OpenTimeoutMS <= 0 {
		return nil, fmt.Errorf("recognizer.open_timeout_ms must be > 0")
	}
	if cfg.Recognizer.MinConfidence < 0 || cfg.Recognizer.MinConfidence > 1 {
		return nil, fmt.Errorf("recognizer.min_confidence must be within [0, 1]")
	}

	wake := normalizePhrase(cfg.Session.WakePhrase)
	cancel := normalizePhrase(cfg.Session.CancelPhrase)
	if wake == "" {
		return nil, fmt.Errorf("session.wake_phrase must not be empty")
	}
	if cancel == "" {
		return nil, fmt.Errorf("session.cancel_phrase must not be empty")
	}
	if wake == cancel {
		return nil, fmt.Errorf("session.wake_phrase and session.cancel_phrase must differ")
	}
	if cfg.Session.SilenceTimeoutMS <= 0 {
		return nil, fmt.Errorf("session.silence_timeout_ms must be > 0")
	}
	if cfg.Session.TickIntervalMS <= 0 {
		return nil, fmt.Errorf("session.tick_interval_ms must be > 0")
	}
	if cfg.Session.TickIntervalMS >= cfg.Session.SilenceTimeoutMS {
		warnings = append(warnings, Warning{Message: fmt.Sprintf(
			"session.tick_interval_ms=%d is not finer than session.silence_timeout_ms=%d; timeouts will fire late",
			cfg.Session.TickIntervalMS, cfg.Session.SilenceTimeoutMS,
		)})
	}

	switch cfg.Executor.Backend {
	case ExecutorLog:
	case ExecutorSerial:
		if strings.TrimSpace(cfg.Executor.SerialPort) == "" {
			return nil, fmt.Errorf("executor.serial_port must not be empty when executor.backend=serial")
		}
		if cfg.Executor.SerialBaud <= 0 {
			return nil, fmt.Errorf("executor.serial_baud must be > 0")
		}
	case ExecutorCommand:
		if len(cfg.Executor.Command.Argv) == 0 {
			return nil, fmt.Errorf("executor.command must not be empty when executor.backend=command")
		}
	default:
		return nil, fmt.Errorf("executor.backend must be one of: log, serial, command")
	}
	if cfg.Executor.TimeoutMS <= 0 {
		return nil, fmt.Errorf("executor.timeout_ms must be > 0")
	}

	if level := strings.TrimSpace(cfg.Debug.LogLevel); level != "" {
		var lvl slog.Level
		if err := lvl.UnmarshalText([]byte(level)); err != nil {
			return nil, fmt.Errorf("debug.log_level must be one of: debug, info, warn, error")
		}
	}

	if !cfg.Feedback.SoundEnable {
		for _, file := range []string{cfg.Feedback.SoundArmedFile, cfg.Feedback.SoundAcknowledgeFile, cfg.Feedback.SoundTimeoutFile} {
			if strings.TrimSpace(file) != "" {
				warnings = append(warnings, Warning{Message: "feedback sound files are configured but feedback.sound_enable=false"})
				break
			}
		}
	}

	return warnings, nil
}

// normalizePhrase reduces a phrase to the words the grammar will match.
func normalizePhrase(phrase string) string {
	return strings.Join(grammar.Tokenize(phrase), " ")
}
