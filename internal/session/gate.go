package session

import (
	"sync"
	"time"

	"github.com/rbright/lampwake/internal/fsm"
)

// DefaultSilenceTimeout closes the armed window after this much inactivity.
const DefaultSilenceTimeout = 5 * time.Second

// Admission is the gate's verdict on one command utterance.
type Admission int

const (
	// AdmitCommand means the command may be dispatched; Finish must follow.
	AdmitCommand Admission = iota + 1
	// AdmitIdle means the gate is not armed and the command is discarded.
	AdmitIdle
	// AdmitExpired means the armed window had already elapsed; the gate is now idle.
	AdmitExpired
	// AdmitTerminated means the session has ended.
	AdmitTerminated
)

func (a Admission) String() string {
	switch a {
	case AdmitCommand:
		return "command"
	case AdmitIdle:
		return "idle"
	case AdmitExpired:
		return "expired"
	case AdmitTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Snapshot is a point-in-time copy of the gate.
type Snapshot struct {
	State        fsm.State
	LastActivity time.Time
	InFlight     bool
}

// Gate owns the armed/idle/terminated command window. Every read and write
// happens under mu so a timeout check never interleaves with a transition.
type Gate struct {
	timeout time.Duration

	mu           sync.Mutex
	state        fsm.State
	lastActivity time.Time
	inFlight     bool
}

// NewGate returns an idle gate. A non-positive timeout selects DefaultSilenceTimeout.
func NewGate(timeout time.Duration) *Gate {
	if timeout <= 0 {
		timeout = DefaultSilenceTimeout
	}
	return &Gate{timeout: timeout, state: fsm.StateIdle}
}

// Timeout returns the silence threshold.
func (g *Gate) Timeout() time.Duration {
	return g.timeout
}

// Wake arms the gate and resets the activity timestamp.
func (g *Gate) Wake(now time.Time) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	next, err := fsm.Transition(g.state, fsm.EventWake)
	if err != nil {
		return err
	}
	g.state = next
	g.lastActivity = now
	return nil
}

// Cancel terminates the gate. It reports false when already terminated.
func (g *Gate) Cancel() bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	next, err := fsm.Transition(g.state, fsm.EventCancel)
	if err != nil {
		return false
	}
	g.state = next
	return true
}

// Begin admits a command when armed. An elapsed window is closed first so a
// command arriving after the timeout never dispatches, even if the ticker has
// not yet observed it.
func (g *Gate) Begin(now time.Time) Admission {
	g.mu.Lock()
	defer g.mu.Unlock()

	switch g.state {
	case fsm.StateTerminated:
		return AdmitTerminated
	case fsm.StateIdle:
		return AdmitIdle
	}
	if g.expiredLocked(now) {
		g.state = fsm.StateIdle
		return AdmitExpired
	}
	g.inFlight = true
	return AdmitCommand
}

// Finish ends an admitted dispatch and advances the activity timestamp,
// whatever the dispatch outcome was.
func (g *Gate) Finish(now time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.inFlight = false
	if now.After(g.lastActivity) {
		g.lastActivity = now
	}
}

// Expire closes the armed window once it has been silent for the timeout. It
// returns true exactly once per closed window.
func (g *Gate) Expire(now time.Time) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.state != fsm.StateArmed || g.inFlight || !g.expiredLocked(now) {
		return false
	}
	next, err := fsm.Transition(g.state, fsm.EventTimeout)
	if err != nil {
		return false
	}
	g.state = next
	return true
}

// State returns the current gate state.
func (g *Gate) State() fsm.State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Snapshot copies the gate.
func (g *Gate) Snapshot() Snapshot {
	g.mu.Lock()
	defer g.mu.Unlock()
	return Snapshot{State: g.state, LastActivity: g.lastActivity, InFlight: g.inFlight}
}

func (g *Gate) expiredLocked(now time.Time) bool {
	return now.Sub(g.lastActivity) >= g.timeout
}
