package engine

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/rbright/lampwake/internal/asr"
	"github.com/rbright/lampwake/internal/audio"
	"github.com/rbright/lampwake/internal/grammar"
	"github.com/rbright/lampwake/internal/recognition"
)

// AudioSource yields PCM chunks until stopped.
type AudioSource interface {
	Chunks() <-chan []byte
	Stop() error
}

// StreamConfig wires a Stream engine.
type StreamConfig struct {
	Client        *asr.Client
	OpenAudio     func(context.Context) (AudioSource, error)
	MinConfidence float32
	OpenTimeout   time.Duration
	Logger        *slog.Logger
}

// Stream sends microphone audio to the recognizer service and matches final
// transcripts against the loaded grammar.
type Stream struct {
	cfg    StreamConfig
	logger *slog.Logger

	mu      sync.Mutex
	grammar *grammar.Grammar
	cancel  context.CancelFunc
	audio   AudioSource
	rec     *asr.Stream
	done    chan struct{}
}

// NewStream constructs a streaming engine.
func NewStream(cfg StreamConfig) *Stream {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Stream{cfg: cfg, logger: logger}
}

func (s *Stream) Profiles(ctx context.Context) ([]recognition.Profile, error) {
	if s.cfg.Client == nil {
		return nil, errors.New("stream engine has no recognizer client")
	}
	return s.cfg.Client.ListProfiles(ctx)
}

func (s *Stream) LoadGrammar(g *grammar.Grammar) error {
	if g == nil {
		return ErrNoGrammar
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.grammar = g
	return nil
}

// Start opens the audio source and a recognizer stream seeded with the grammar
// vocabulary as phrase hints.
func (s *Stream) Start(ctx context.Context, profile recognition.Profile) (<-chan recognition.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.grammar == nil {
		return nil, ErrNoGrammar
	}
	if s.cancel != nil {
		return nil, errors.New("stream engine already started")
	}
	if s.cfg.Client == nil || s.cfg.OpenAudio == nil {
		return nil, errors.New("stream engine requires a recognizer client and an audio source")
	}

	runCtx, cancel := context.WithCancel(ctx)
	src, err := s.cfg.OpenAudio(runCtx)
	if err != nil {
		cancel()
		return nil, err
	}

	rec, err := s.cfg.Client.OpenStream(runCtx, asr.StreamConfig{
		LanguageCode:    profile.Language,
		Profile:         profile.ID,
		SampleRateHertz: audio.SampleRateHertz,
		SpeechPhrases:   s.grammar.Vocabulary(),
		OpenTimeout:     s.cfg.OpenTimeout,
	})
	if err != nil {
		_ = src.Stop()
		cancel()
		return nil, err
	}

	s.cancel = cancel
	s.audio = src
	s.rec = rec
	s.done = make(chan struct{})

	events := make(chan recognition.Event, 16)
	go s.pumpAudio(src, rec)
	go s.translate(runCtx, s.grammar, rec, events)
	return events, nil
}

// pumpAudio forwards captured audio until the source closes or the stream fails.
func (s *Stream) pumpAudio(src AudioSource, rec *asr.Stream) {
	for chunk := range src.Chunks() {
		if err := rec.SendAudio(chunk); err != nil {
			s.logger.Warn("audio send failed", "error", err.Error())
			break
		}
	}
	_ = rec.CloseSend()
}

// translate turns final hypotheses into grammar-matched events.
func (s *Stream) translate(ctx context.Context, g *grammar.Grammar, rec *asr.Stream, events chan<- recognition.Event) {
	defer close(s.done)
	defer close(events)

	for h := range rec.Results() {
		if !h.IsFinal {
			continue
		}
		if h.Confidence < s.cfg.MinConfidence {
			s.logger.Debug("hypothesis below confidence floor", "text", h.Transcript, "confidence", h.Confidence)
			continue
		}
		ev, ok := recognition.Recognize(g, h.Transcript, h.Confidence)
		if !ok {
			s.logger.Debug("hypothesis outside grammar", "text", h.Transcript)
			continue
		}
		select {
		case events <- ev:
		case <-ctx.Done():
			return
		}
	}
	if err := rec.Err(); err != nil && ctx.Err() == nil {
		s.logger.Warn("recognizer stream ended", "error", err.Error())
	}
}

// recognizerDrainTimeout bounds how long Stop waits for a cancelled
// recognizer call to wind down.
const recognizerDrainTimeout = time.Second

// Stop halts capture, aborts the recognizer call and waits for the event
// channel to close.
func (s *Stream) Stop() error {
	s.mu.Lock()
	cancel, src, rec, done := s.cancel, s.audio, s.rec, s.done
	s.mu.Unlock()

	if cancel == nil {
		return nil
	}
	var err error
	if src != nil {
		err = src.Stop()
	}
	if rec != nil {
		rec.Cancel()
		waitCtx, stopWait := context.WithTimeout(context.Background(), recognizerDrainTimeout)
		if waitErr := rec.Wait(waitCtx); errors.Is(waitErr, context.DeadlineExceeded) {
			s.logger.Warn("recognizer stream did not stop in time", "timeout", recognizerDrainTimeout.String())
		}
		stopWait()
	}
	cancel()
	<-done
	return err
}
