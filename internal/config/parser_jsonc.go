package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

type jsoncConfig struct {
	Recognizer *jsoncRecognizer `json:"recognizer"`
	Audio      *jsoncAudio      `json:"audio"`
	Session    *jsoncSession    `json:"session"`
	Feedback   *jsoncFeedback   `json:"feedback"`
	Executor   *jsoncExecutor   `json:"executor"`
	Debug      *jsoncDebug      `json:"debug"`
}

type jsoncRecognizer struct {
	Mode          *string  `json:"mode"`
	GRPC          *string  `json:"grpc"`
	LanguageCode  *string  `json:"language_code"`
	DialTimeoutMS *int     `json:"dial_timeout_ms"`
	OpenTimeoutMS *int     `json:"open_timeout_ms"`
	MinConfidence *float64 `json:"min_confidence"`
}

type jsoncAudio struct {
	Input    *string `json:"input"`
	Fallback *string `json:"fallback"`
}

type jsoncSession struct {
	WakePhrase       *string `json:"wake_phrase"`
	CancelPhrase     *string `json:"cancel_phrase"`
	SilenceTimeoutMS *int    `json:"silence_timeout_ms"`
	TickIntervalMS   *int    `json:"tick_interval_ms"`
}

type jsoncFeedback struct {
	SoundEnable          *bool   `json:"sound_enable"`
	SoundArmedFile       *string `json:"sound_armed_file"`
	SoundAcknowledgeFile *string `json:"sound_acknowledge_file"`
	SoundTimeoutFile     *string `json:"sound_timeout_file"`
}

type jsoncExecutor struct {
	Backend    *string       `json:"backend"`
	SerialPort *string       `json:"serial_port"`
	SerialBaud *int          `json:"serial_baud"`
	Command    *jsoncCommand `json:"command"`
	TimeoutMS  *int          `json:"timeout_ms"`
}

type jsoncDebug struct {
	LogLevel *string `json:"log_level"`
	GRPCDump *bool   `json:"grpc_dump"`
}

// jsoncCommand accepts either an argv array or a shell-like command string.
type jsoncCommand CommandConfig

func (c *jsoncCommand) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*c = jsoncCommand{Raw: strings.Join(list, " "), Argv: list}
		return nil
	}

	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		argv, err := splitArgv(single)
		if err != nil {
			return err
		}
		*c = jsoncCommand{Raw: single, Argv: argv}
		return nil
	}

	return fmt.Errorf("expected string array or command string")
}

func parseJSONC(content string, base Config) (Config, []Warning, error) {
	normalized, err := normalizeJSONC(content)
	if err != nil {
		return Config{}, nil, err
	}

	decoder := json.NewDecoder(strings.NewReader(normalized))
	decoder.DisallowUnknownFields()

	var payload jsoncConfig
	if err := decoder.Decode(&payload); err != nil {
		return Config{}, nil, wrapJSONDecodeError(normalized, err)
	}
	if err := ensureSingleJSONValue(decoder); err != nil {
		return Config{}, nil, wrapJSONDecodeError(normalized, err)
	}

	cfg := base
	warnings := payload.applyTo(&cfg)
	return cfg, warnings, nil
}

func (payload jsoncConfig) applyTo(cfg *Config) []Warning {
	warnings := make([]Warning, 0)

	if r := payload.Recognizer; r != nil {
		if r.Mode != nil {
			cfg.Recognizer.Mode = strings.ToLower(strings.TrimSpace(*r.Mode))
		}
		if r.GRPC != nil {
			cfg.Recognizer.GRPC = strings.TrimSpace(*r.GRPC)
		}
		if r.LanguageCode != nil {
			cfg.Recognizer.LanguageCode = strings.TrimSpace(*r.LanguageCode)
		}
		if r.DialTimeoutMS != nil {
			cfg.Recognizer.DialTimeoutMS = *r.DialTimeoutMS
		}
		if r.OpenTimeoutMS != nil {
			cfg.Recognizer.OpenTimeoutMS = *r.OpenTimeoutMS
		}
		if r.MinConfidence != nil {
			cfg.Recognizer.MinConfidence = *r.MinConfidence
		}
	}

	if payload.Audio != nil {
		if payload.Audio.Input != nil {
			cfg.Audio.Input = *payload.Audio.Input
		}
		if payload.Audio.Fallback != nil {
			cfg.Audio.Fallback = *payload.Audio.Fallback
		}
	}

	if s := payload.Session; s != nil {
		if s.WakePhrase != nil {
			cfg.Session.WakePhrase = strings.TrimSpace(*s.WakePhrase)
		}
		if s.CancelPhrase != nil {
			cfg.Session.CancelPhrase = strings.TrimSpace(*s.CancelPhrase)
		}
		if s.SilenceTimeoutMS != nil {
			cfg.Session.SilenceTimeoutMS = *s.SilenceTimeoutMS
		}
		if s.TickIntervalMS != nil {
			cfg.Session.TickIntervalMS = *s.TickIntervalMS
		}
	}

	if f := payload.Feedback; f != nil {
		if f.SoundEnable != nil {
			cfg.Feedback.SoundEnable = *f.SoundEnable
		}
		if f.SoundArmedFile != nil {
			cfg.Feedback.SoundArmedFile = strings.TrimSpace(*f.SoundArmedFile)
		}
		if f.SoundAcknowledgeFile != nil {
			cfg.Feedback.SoundAcknowledgeFile = strings.TrimSpace(*f.SoundAcknowledgeFile)
		}
		if f.SoundTimeoutFile != nil {
			cfg.Feedback.SoundTimeoutFile = strings.TrimSpace(*f.SoundTimeoutFile)
		}
	}

	if e := payload.Executor; e != nil {
		if e.Backend != nil {
			cfg.Executor.Backend = strings.ToLower(strings.TrimSpace(*e.Backend))
		}
		if e.SerialPort != nil {
			cfg.Executor.SerialPort = strings.TrimSpace(*e.SerialPort)
		}
		if e.SerialBaud != nil {
			cfg.Executor.SerialBaud = *e.SerialBaud
		}
		if e.Command != nil {
			cfg.Executor.Command = CommandConfig(*e.Command)
		}
		if e.TimeoutMS != nil {
			cfg.Executor.TimeoutMS = *e.TimeoutMS
		}
	}

	if payload.Debug != nil {
		if payload.Debug.LogLevel != nil {
			cfg.Debug.LogLevel = strings.TrimSpace(*payload.Debug.LogLevel)
		}
		if payload.Debug.GRPCDump != nil {
			cfg.Debug.EnableGRPCDump = *payload.Debug.GRPCDump
		}
	}

	return warnings
}

func normalizeJSONC(content string) (string, error) {
	withoutComments, err := stripJSONCComments(content)
	if err != nil {
		return "", err
	}
	return stripJSONCTrailingCommas(withoutComments), nil
}

func stripJSONCComments(content string) (string, error) {
	var out strings.Builder
	out.Grow(len(content))

	inString := false
	escape := false
	lineComment := false
	blockComment := false

	for i := 0; i < len(content); i++ {
		ch := content[i]

		if lineComment {
			if ch == '\n' {
				lineComment = false
				out.WriteByte(ch)
				continue
			}
			if ch == '\r' {
				lineComment = false
				out.WriteByte(ch)
				continue
			}
			out.WriteByte(' ')
			continue
		}

		if blockComment {
			if ch == '*' && i+1 < len(content) && content[i+1] == '/' {
				blockComment = false
				out.WriteString("  ")
				i++
				continue
			}
			if ch == '\n' || ch == '\r' || ch == '\t' {
				out.WriteByte(ch)
			} else {
				out.WriteByte(' ')
			}
			continue
		}

		if inString {
			out.WriteByte(ch)
			if escape {
				escape = false
				continue
			}
			if ch == '\\' {
				escape = true
				continue
			}
			if ch == '"' {
				inString = false
			}
			continue
		}

		if ch == '"' {
			inString = true
			out.WriteByte(ch)
			continue
		}

		if ch == '/' && i+1 < len(content) {
			next := content[i+1]
			if next == '/' {
				lineComment = true
				out.WriteString("  ")
				i++
				continue
			}
			if next == '*' {
				blockComment = true
				out.WriteString("  ")
				i++
				continue
			}
		}

		out.WriteByte(ch)
	}

	if blockComment {
		return "", fmt.Errorf("unterminated block comment in JSONC")
	}

	return out.String(), nil
}

func stripJSONCTrailingCommas(content string) string {
	var out strings.Builder
	out.Grow(len(content))

	inString := false
	escape := false

	for i := 0; i < len(content); i++ {
		ch := content[i]

		if inString {
			out.WriteByte(ch)
			if escape {
				escape = false
				continue
			}
			if ch == '\\' {
				escape = true
				continue
			}
			if ch == '"' {
				inString = false
			}
			continue
		}

		if ch == '"' {
			inString = true
			out.WriteByte(ch)
			continue
		}

		if ch == ',' {
			j := i + 1
			for j < len(content) && isJSONWhitespace(content[j]) {
				j++
			}
			if j < len(content) && (content[j] == '}' || content[j] == ']') {
				continue
			}
		}

		out.WriteByte(ch)
	}

	return out.String()
}

func isJSONWhitespace(ch byte) bool {
	switch ch {
	case ' ', '\n', '\r', '\t':
		return true
	default:
		return false
	}
}

func ensureSingleJSONValue(decoder *json.Decoder) error {
	var extra struct{}
	err := decoder.Decode(&extra)
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err == nil {
		return fmt.Errorf("multiple JSON values are not allowed")
	}
	return err
}

func wrapJSONDecodeError(content string, err error) error {
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		line, col := offsetToLineCol(content, syntaxErr.Offset)
		return fmt.Errorf("line %d column %d: %w", line, col, err)
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		line, col := offsetToLineCol(content, typeErr.Offset)
		return fmt.Errorf("line %d column %d: %w", line, col, err)
	}

	return err
}

func offsetToLineCol(content string, offset int64) (int, int) {
	if offset <= 0 {
		return 1, 1
	}

	limit := int(offset)
	if limit > len(content) {
		limit = len(content)
	}

	line := 1
	col := 1
	for i := 0; i < limit-1; i++ {
		if content[i] == '\n' {
			line++
			col = 1
			continue
		}
		col++
	}
	return line, col
}
