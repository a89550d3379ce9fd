// Package engine provides recognition engines: a streaming microphone engine
// backed by the recognizer service and a line-oriented text engine.
package engine

import (
	"bufio"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/rbright/lampwake/internal/grammar"
	"github.com/rbright/lampwake/internal/recognition"
)

// ErrNoGrammar indicates Start was called before LoadGrammar.
var ErrNoGrammar = errors.New("engine has no grammar loaded")

// TextProfileID identifies the single profile a Text engine offers.
const TextProfileID = "text"

// Text recognizes one utterance per input line.
type Text struct {
	reader   io.Reader
	language string
	logger   *slog.Logger

	mu      sync.Mutex
	grammar *grammar.Grammar
	cancel  context.CancelFunc
}

// NewText reads utterances from r and offers one profile in language.
func NewText(r io.Reader, language string, logger *slog.Logger) *Text {
	if strings.TrimSpace(language) == "" {
		language = "en-US"
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Text{reader: r, language: language, logger: logger}
}

func (t *Text) Profiles(context.Context) ([]recognition.Profile, error) {
	return []recognition.Profile{{ID: TextProfileID, Language: t.language, Description: "line-oriented text input"}}, nil
}

func (t *Text) LoadGrammar(g *grammar.Grammar) error {
	if g == nil {
		return ErrNoGrammar
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.grammar = g
	return nil
}

// Start scans lines until EOF, ctx cancellation, or Stop. Lines that do not
// match the grammar are not reported.
func (t *Text) Start(ctx context.Context, _ recognition.Profile) (<-chan recognition.Event, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.grammar == nil {
		return nil, ErrNoGrammar
	}
	if t.cancel != nil {
		return nil, errors.New("text engine already started")
	}

	runCtx, cancel := context.WithCancel(ctx)
	t.cancel = cancel
	g := t.grammar

	events := make(chan recognition.Event)
	go func() {
		defer close(events)

		scanner := bufio.NewScanner(t.reader)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			ev, ok := recognition.Recognize(g, line, 1)
			if !ok {
				t.logger.Debug("text input outside grammar", "text", line)
				continue
			}
			select {
			case events <- ev:
			case <-runCtx.Done():
				return
			}
		}
		if err := scanner.Err(); err != nil {
			t.logger.Warn("text input read failed", "error", err.Error())
		}
	}()
	return events, nil
}

func (t *Text) Stop() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancel != nil {
		t.cancel()
	}
	return nil
}
