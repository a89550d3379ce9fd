// Package session runs one continuous recognition session behind the command gate.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rbright/lampwake/internal/dispatch"
	"github.com/rbright/lampwake/internal/fsm"
	"github.com/rbright/lampwake/internal/grammar"
	"github.com/rbright/lampwake/internal/ipc"
	"github.com/rbright/lampwake/internal/recognition"
)

// DefaultTickInterval is the timeout checker resolution.
const DefaultTickInterval = 50 * time.Millisecond

// ErrNoGrammar indicates the controller was built without a composed grammar.
var ErrNoGrammar = errors.New("no grammar loaded")

type action int

const (
	actionCancel action = iota + 1
)

// Result is the complete lifecycle output returned by one Run invocation.
type Result struct {
	State      fsm.State
	SessionID  string
	Profile    recognition.Profile
	Dispatched int
	Ignored    int
	Timeouts   int
	Cancelled  bool
	Err        error
	StartedAt  time.Time
	FinishedAt time.Time
}

// Feedback is the session-facing subset of cue playback. Acknowledge cues
// belong to the dispatcher.
type Feedback interface {
	PlayArmed(context.Context)
	PlayTimeout(context.Context)
}

// noopFeedback preserves session flow when no cue player is wired.
type noopFeedback struct{}

func (noopFeedback) PlayArmed(context.Context)   {}
func (noopFeedback) PlayTimeout(context.Context) {}

// Dispatcher executes admitted commands.
type Dispatcher interface {
	Dispatch(context.Context, recognition.Result) (dispatch.Outcome, error)
}

// Options tune one controller.
type Options struct {
	Language       string
	SilenceTimeout time.Duration
	TickInterval   time.Duration
}

// Controller wires an engine, the gate and the dispatcher into one session.
type Controller struct {
	logger     *slog.Logger
	engine     recognition.Engine
	grammar    *grammar.Grammar
	dispatcher Dispatcher
	feedback   Feedback
	opts       Options

	gate    *Gate
	now     func() time.Time
	actions chan action

	wake      string
	cancel    string
	sessionID string
	profile   atomic.Pointer[recognition.Profile]
	timeouts  atomic.Int32
}

// NewController constructs a session controller with safe default fallbacks.
func NewController(
	logger *slog.Logger,
	engine recognition.Engine,
	g *grammar.Grammar,
	dispatcher Dispatcher,
	feedback Feedback,
	opts Options,
) *Controller {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if feedback == nil {
		feedback = noopFeedback{}
	}
	if strings.TrimSpace(opts.Language) == "" {
		opts.Language = "en"
	}
	if opts.SilenceTimeout <= 0 {
		opts.SilenceTimeout = DefaultSilenceTimeout
	}
	if opts.TickInterval <= 0 {
		opts.TickInterval = DefaultTickInterval
	}

	c := &Controller{
		logger:     logger,
		engine:     engine,
		grammar:    g,
		dispatcher: dispatcher,
		feedback:   feedback,
		opts:       opts,
		gate:       NewGate(opts.SilenceTimeout),
		now:        time.Now,
		actions:    make(chan action, 1),
		sessionID:  uuid.NewString(),
	}
	if g != nil {
		c.wake = normalize(g.Phrases().Wake)
		c.cancel = normalize(g.Phrases().Cancel)
	}
	return c
}

// State returns the current gate state.
func (c *Controller) State() fsm.State {
	return c.gate.State()
}

// Snapshot returns a copy of the gate state.
func (c *Controller) Snapshot() Snapshot {
	return c.gate.Snapshot()
}

// Run selects a profile, loads the grammar and consumes engine events in
// arrival order until the cancel phrase, an IPC cancel, context cancellation,
// engine shutdown, or an internal dispatch error.
func (c *Controller) Run(ctx context.Context) Result {
	result := Result{StartedAt: time.Now(), SessionID: c.sessionID}
	logger := c.logger.With("session_id", result.SessionID)

	finish := func(err error) Result {
		c.gate.Cancel()
		result.State = c.gate.State()
		result.Err = err
		result.Timeouts = int(c.timeouts.Load())
		result.FinishedAt = time.Now()
		return result
	}

	if c.engine == nil || c.dispatcher == nil {
		return finish(errors.New("session requires an engine and a dispatcher"))
	}
	if c.grammar == nil {
		return finish(ErrNoGrammar)
	}

	profiles, err := c.engine.Profiles(ctx)
	if err != nil {
		return finish(fmt.Errorf("list recognizer profiles: %w", err))
	}
	profile, err := recognition.SelectProfile(profiles, c.opts.Language)
	if err != nil {
		return finish(err)
	}
	result.Profile = profile
	c.profile.Store(&profile)

	if err := c.engine.LoadGrammar(c.grammar); err != nil {
		return finish(fmt.Errorf("load grammar: %w", err))
	}

	events, err := c.engine.Start(ctx, profile)
	if err != nil {
		return finish(fmt.Errorf("start recognition: %w", err))
	}
	logger.Info("session started", "profile", profile.ID, "language", profile.Language)

	tickCtx, stopTicker := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		c.runTicker(tickCtx, logger)
	}()

	runErr := c.loop(ctx, logger, events, &result)

	stopTicker()
	wg.Wait()
	if err := c.engine.Stop(); err != nil {
		logger.Warn("engine stop failed", "error", err.Error())
	}

	out := finish(runErr)
	logger.Info("session finished",
		"state", string(out.State),
		"dispatched", out.Dispatched,
		"ignored", out.Ignored,
		"timeouts", out.Timeouts,
		"cancelled", out.Cancelled,
	)
	return out
}

func (c *Controller) loop(ctx context.Context, logger *slog.Logger, events <-chan recognition.Event, result *Result) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case a := <-c.actions:
			switch a {
			case actionCancel:
				logger.Info("session cancelled", "source", "ipc")
				result.Cancelled = true
				return nil
			default:
				return fmt.Errorf("unknown action %d", a)
			}
		case ev, ok := <-events:
			if !ok {
				logger.Info("recognition engine stopped")
				return nil
			}
			stop, err := c.handle(ctx, logger, recognition.FromEvent(ev), result)
			if err != nil || stop {
				return err
			}
		}
	}
}

// handle applies one recognition result. It reports true when the session must end.
func (c *Controller) handle(ctx context.Context, logger *slog.Logger, r recognition.Result, result *Result) (bool, error) {
	text := normalize(r.Text())
	if text != "" && text == c.cancel {
		c.gate.Cancel()
		result.Cancelled = true
		logger.Info("session cancelled", "source", "phrase")
		return true, nil
	}
	if text != "" && text == c.wake {
		if err := c.gate.Wake(c.now()); err != nil {
			return true, err
		}
		// The armed cue is the wake acknowledgement.
		c.feedback.PlayArmed(ctx)
		logger.Info("gate armed", "confidence", r.Confidence())
		return false, nil
	}

	switch admission := c.gate.Begin(c.now()); admission {
	case AdmitTerminated:
		return true, nil
	case AdmitIdle:
		result.Ignored++
		logger.Debug("utterance ignored while idle", "text", r.Text())
		return false, nil
	case AdmitExpired:
		result.Ignored++
		c.timeouts.Add(1)
		c.feedback.PlayTimeout(ctx)
		logger.Info("armed window expired", "text", r.Text())
		return false, nil
	case AdmitCommand:
		// The action is allowed to complete even if the session is cancelled meanwhile.
		outcome, err := c.dispatcher.Dispatch(context.WithoutCancel(ctx), r)
		c.gate.Finish(c.now())
		if err != nil {
			logger.Error("dispatch failed", "error", err.Error())
			return true, err
		}
		if outcome == dispatch.OutcomeExecuted {
			result.Dispatched++
		}
		return false, nil
	default:
		return true, fmt.Errorf("unknown admission %d", admission)
	}
}

func (c *Controller) runTicker(ctx context.Context, logger *slog.Logger) {
	ticker := time.NewTicker(c.opts.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if c.gate.Expire(c.now()) {
				c.timeouts.Add(1)
				c.feedback.PlayTimeout(ctx)
				logger.Info("armed window expired", "timeout_ms", c.gate.Timeout().Milliseconds())
			}
		}
	}
}

// SessionID identifies this controller in logs and status replies.
func (c *Controller) SessionID() string {
	return c.sessionID
}

// Handle serves IPC commands for the active session.
func (c *Controller) Handle(ctx context.Context, req ipc.Request) ipc.Response {
	switch req.Command {
	case ipc.CommandStatus:
		return c.status()
	case ipc.CommandWake:
		return c.requestWake(ctx)
	case ipc.CommandCancel:
		return c.requestCancel()
	default:
		return ipc.Response{OK: false, State: string(c.State()), Error: fmt.Sprintf("unknown command: %s", req.Command)}
	}
}

func (c *Controller) status() ipc.Response {
	snap := c.gate.Snapshot()
	status := &ipc.SessionStatus{
		ID:        c.sessionID,
		TimeoutMS: c.gate.Timeout().Milliseconds(),
		InFlight:  snap.InFlight,
	}
	if p := c.profile.Load(); p != nil {
		status.Profile = p.ID
	}
	if !snap.LastActivity.IsZero() {
		status.LastActivity = snap.LastActivity.Format(time.RFC3339Nano)
	}
	return ipc.Response{OK: true, State: string(snap.State), Message: "status", Session: status}
}

// requestWake arms the gate without a spoken wake phrase.
func (c *Controller) requestWake(ctx context.Context) ipc.Response {
	if err := c.gate.Wake(c.now()); err != nil {
		state := c.State()
		return ipc.Response{OK: false, State: string(state), Error: fmt.Sprintf("cannot wake from state %s", state)}
	}
	// Same acknowledgement as a spoken wake.
	c.feedback.PlayArmed(ctx)
	return ipc.Response{OK: true, State: string(c.State()), Message: "armed"}
}

// requestCancel enqueues a cancel action when the session is still live.
func (c *Controller) requestCancel() ipc.Response {
	state := c.State()
	if state == fsm.StateTerminated {
		return ipc.Response{OK: false, State: string(state), Error: "session already terminated"}
	}

	select {
	case c.actions <- actionCancel:
		return ipc.Response{OK: true, State: string(state), Message: "cancel requested"}
	default:
		return ipc.Response{OK: true, State: string(state), Message: "cancel already requested"}
	}
}

func normalize(text string) string {
	return strings.Join(grammar.Tokenize(text), " ")
}
