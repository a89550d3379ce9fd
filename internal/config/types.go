// Package config resolves, parses, validates, and defaults lampwake configuration.
package config

import "time"

// Recognizer modes.
const (
	RecognizerStream = "stream"
	RecognizerText   = "text"
)

// Executor backends.
const (
	ExecutorLog     = "log"
	ExecutorSerial  = "serial"
	ExecutorCommand = "command"
)

// Config is the fully materialized runtime configuration used by lampwake.
type Config struct {
	Recognizer RecognizerConfig
	Audio      AudioConfig
	Session    SessionConfig
	Feedback   FeedbackConfig
	Executor   ExecutorConfig
	Debug      DebugConfig
}

// RecognizerConfig selects the recognition engine and its service endpoint.
type RecognizerConfig struct {
	Mode          string
	GRPC          string
	LanguageCode  string
	DialTimeoutMS int
	OpenTimeoutMS int
	MinConfidence float64
}

// DialTimeout returns the recognizer readiness deadline.
func (c RecognizerConfig) DialTimeout() time.Duration {
	return time.Duration(c.DialTimeoutMS) * time.Millisecond
}

// OpenTimeout returns the stream-open deadline.
func (c RecognizerConfig) OpenTimeout() time.Duration {
	return time.Duration(c.OpenTimeoutMS) * time.Millisecond
}

// AudioConfig controls preferred and fallback input-source selection.
type AudioConfig struct {
	Input    string
	Fallback string
}

// SessionConfig controls the control phrases and the armed window.
type SessionConfig struct {
	WakePhrase       string
	CancelPhrase     string
	SilenceTimeoutMS int
	TickIntervalMS   int
}

// SilenceTimeout returns the armed window length.
func (c SessionConfig) SilenceTimeout() time.Duration {
	return time.Duration(c.SilenceTimeoutMS) * time.Millisecond
}

// TickInterval returns the timeout checker period.
func (c SessionConfig) TickInterval() time.Duration {
	return time.Duration(c.TickIntervalMS) * time.Millisecond
}

// FeedbackConfig controls audio cue behavior.
type FeedbackConfig struct {
	SoundEnable          bool
	SoundArmedFile       string
	SoundAcknowledgeFile string
	SoundTimeoutFile     string
}

// ExecutorConfig selects the light action backend.
type ExecutorConfig struct {
	Backend    string
	SerialPort string
	SerialBaud int
	Command    CommandConfig
	TimeoutMS  int
}

// Timeout returns the per-action command deadline.
func (c ExecutorConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutMS) * time.Millisecond
}

// CommandConfig stores a raw command string and its parsed argv form.
type CommandConfig struct {
	Raw  string
	Argv []string
}

// DebugConfig controls optional debug artifact output.
type DebugConfig struct {
	LogLevel       string
	EnableGRPCDump bool
}

// Warning is a non-fatal parse/validation message.
type Warning struct {
	Line    int
	Message string
}
