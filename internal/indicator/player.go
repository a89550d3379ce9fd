// Package indicator plays the armed, acknowledge and timeout audio cues.
package indicator

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/rbright/lampwake/internal/config"
)

// defaultCueTimeout bounds playback of a cue without its own timeout.
const defaultCueTimeout = 2 * time.Second

// Player plays cues asynchronously, one at a time.
type Player struct {
	cfg    config.FeedbackConfig
	logger *slog.Logger
	emit   func(context.Context, cueKind) error

	soundMu  sync.Mutex
	inflight sync.WaitGroup
}

// NewPlayer creates a cue player from config.
func NewPlayer(cfg config.FeedbackConfig, logger *slog.Logger) *Player {
	p := &Player{cfg: cfg, logger: logger}
	p.emit = func(ctx context.Context, kind cueKind) error {
		return emitCue(ctx, kind, p.cfg)
	}
	return p
}

// PlayArmed signals that the command window opened.
func (p *Player) PlayArmed(ctx context.Context) {
	p.playCue(ctx, cueArmed)
}

// PlayAcknowledge signals that a command is about to execute.
func (p *Player) PlayAcknowledge(ctx context.Context) {
	p.playCue(ctx, cueAcknowledge)
}

// PlayTimeout signals that the command window closed.
func (p *Player) PlayTimeout(ctx context.Context) {
	p.playCue(ctx, cueTimeout)
}

// Wait blocks until queued cues have finished.
func (p *Player) Wait() {
	p.inflight.Wait()
}

// playCue serializes cue playback and emits audio asynchronously. Playback
// outlives the caller's cancellation but not the cue's own timeout.
func (p *Player) playCue(ctx context.Context, kind cueKind) {
	if !p.cfg.SoundEnable {
		return
	}
	cueCtx := context.WithoutCancel(ctx)

	p.inflight.Add(1)
	go func() {
		defer p.inflight.Done()
		p.soundMu.Lock()
		defer p.soundMu.Unlock()

		runCtx, cancel := context.WithTimeout(cueCtx, playbackTimeout(kind))
		defer cancel()
		if err := p.emit(runCtx, kind); err != nil {
			p.log("audio cue failed", kind, err)
		}
	}()
}

// log emits debug-only cue failures to the runtime logger.
func (p *Player) log(message string, kind cueKind, err error) {
	if p.logger == nil || err == nil {
		return
	}
	p.logger.Debug(message, "cue", kind.String(), "error", err.Error())
}

func playbackTimeout(kind cueKind) time.Duration {
	if c, ok := lookupCue(kind); ok && c.timeout > 0 {
		return c.timeout
	}
	return defaultCueTimeout
}
