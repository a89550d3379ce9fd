package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// EnvPrefix namespaces every environment override.
const EnvPrefix = "LAMPWAKE_"

// envOverrides lists the settings that may be overridden from the environment.
// Unset variables leave the pointer nil.
type envOverrides struct {
	RecognizerMode   *string  `env:"RECOGNIZER_MODE"`
	RecognizerGRPC   *string  `env:"RECOGNIZER_GRPC"`
	LanguageCode     *string  `env:"LANGUAGE_CODE"`
	MinConfidence    *float64 `env:"MIN_CONFIDENCE"`
	AudioInput       *string  `env:"AUDIO_INPUT"`
	WakePhrase       *string  `env:"WAKE_PHRASE"`
	CancelPhrase     *string  `env:"CANCEL_PHRASE"`
	SilenceTimeoutMS *int     `env:"SILENCE_TIMEOUT_MS"`
	SoundEnable      *bool    `env:"SOUND_ENABLE"`
	ExecutorBackend  *string  `env:"EXECUTOR"`
	SerialPort       *string  `env:"SERIAL_PORT"`
	LogLevel         *string  `env:"LOG_LEVEL"`
	GRPCDump         *bool    `env:"GRPC_DUMP"`
}

// applyEnv overlays LAMPWAKE_* variables onto cfg. A nil environ reads the
// process environment.
func applyEnv(cfg *Config, environ map[string]string) error {
	var o envOverrides
	if err := env.ParseWithOptions(&o, env.Options{Prefix: EnvPrefix, Environment: environ}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}

	setString(&cfg.Recognizer.Mode, o.RecognizerMode)
	setString(&cfg.Recognizer.GRPC, o.RecognizerGRPC)
	setString(&cfg.Recognizer.LanguageCode, o.LanguageCode)
	if o.MinConfidence != nil {
		cfg.Recognizer.MinConfidence = *o.MinConfidence
	}
	setString(&cfg.Audio.Input, o.AudioInput)
	setString(&cfg.Session.WakePhrase, o.WakePhrase)
	setString(&cfg.Session.CancelPhrase, o.CancelPhrase)
	if o.SilenceTimeoutMS != nil {
		cfg.Session.SilenceTimeoutMS = *o.SilenceTimeoutMS
	}
	if o.SoundEnable != nil {
		cfg.Feedback.SoundEnable = *o.SoundEnable
	}
	setString(&cfg.Executor.Backend, o.ExecutorBackend)
	setString(&cfg.Executor.SerialPort, o.SerialPort)
	setString(&cfg.Debug.LogLevel, o.LogLevel)
	if o.GRPCDump != nil {
		cfg.Debug.EnableGRPCDump = *o.GRPCDump
	}
	return nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}
