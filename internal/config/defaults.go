package config

// Default returns the canonical runtime configuration used when no file is present.
func Default() Config {
	return Config{
		Recognizer: RecognizerConfig{
			Mode:          RecognizerStream,
			GRPC:          "127.0.0.1:50051",
			LanguageCode:  "en",
			DialTimeoutMS: 3000,
			OpenTimeoutMS: 3000,
			MinConfidence: 0.5,
		},
		Audio: AudioConfig{
			Input:    "default",
			Fallback: "default",
		},
		Session: SessionConfig{
			WakePhrase:       "computer",
			CancelPhrase:     "cancel override",
			SilenceTimeoutMS: 5000,
			TickIntervalMS:   50,
		},
		Feedback: FeedbackConfig{SoundEnable: true},
		Executor: ExecutorConfig{
			Backend:    ExecutorLog,
			SerialBaud: 115200,
			TimeoutMS:  5000,
		},
		Debug: DebugConfig{LogLevel: "info"},
	}
}
