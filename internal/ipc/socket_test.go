package ipc

import (
	"context"
	"errors"
	"net"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rbright/lampwake/internal/fsm"
	"github.com/stretchr/testify/require"
)

// gateHandler answers control verbs against a bare gate state.
type gateHandler struct {
	mu    sync.Mutex
	state fsm.State
}

func (h *gateHandler) Handle(_ context.Context, req Request) Response {
	h.mu.Lock()
	defer h.mu.Unlock()

	status := &SessionStatus{ID: "session-1", TimeoutMS: 5000}
	switch req.Command {
	case CommandStatus:
		return Response{OK: true, State: string(h.state), Session: status}
	case CommandWake, CommandCancel:
		event := fsm.EventWake
		if req.Command == CommandCancel {
			event = fsm.EventCancel
		}
		next, err := fsm.Transition(h.state, event)
		if err != nil {
			return Response{OK: false, State: string(h.state), Error: err.Error()}
		}
		h.state = next
		return Response{OK: true, State: string(next), Message: req.Command + " accepted"}
	default:
		return Response{OK: false, State: string(h.state), Error: "unknown command: " + req.Command}
	}
}

func serveAcquired(t *testing.T, listener net.Listener, handler Handler) func() {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Serve(ctx, listener, handler) }()
	return func() {
		cancel()
		require.NoError(t, <-done)
	}
}

func TestAcquiredSocketServesWakeAndCancel(t *testing.T) {
	socketPath := filepath.Join(t.TempDir(), "run", "lampwake.sock")

	listener, err := Acquire(context.Background(), socketPath, 80*time.Millisecond, 0)
	require.NoError(t, err)

	info, err := os.Stat(socketPath)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	stop := serveAcquired(t, listener, &gateHandler{state: fsm.StateIdle})
	defer stop()

	send := func(command string) Response {
		resp, err := Send(context.Background(), socketPath, Request{Command: command}, 200*time.Millisecond)
		require.NoError(t, err, command)
		return resp
	}

	resp := send(CommandWake)
	require.True(t, resp.OK)
	require.Equal(t, "armed", resp.State)

	resp = send(CommandWake)
	require.True(t, resp.OK, "wake while armed refreshes the window")

	resp = send(CommandCancel)
	require.True(t, resp.OK)
	require.Equal(t, "terminated", resp.State)

	resp = send(CommandWake)
	require.False(t, resp.OK)
	require.Equal(t, "terminated", resp.State)

	resp = send(CommandCancel)
	require.False(t, resp.OK)
	require.Contains(t, resp.Error, "invalid transition")
}

func TestAcquireReportsOwningSession(t *testing.T) {
	socketPath := filepath.Join(t.TempDir(), "lampwake.sock")

	listener, err := Acquire(context.Background(), socketPath, 80*time.Millisecond, 0)
	require.NoError(t, err)
	stop := serveAcquired(t, listener, &gateHandler{state: fsm.StateArmed})
	defer stop()

	_, err = Acquire(context.Background(), socketPath, 80*time.Millisecond, 2)
	require.ErrorIs(t, err, ErrAlreadyRunning)

	var running *RunningError
	require.True(t, errors.As(err, &running))
	require.Equal(t, "session-1", running.SessionID)
	require.Equal(t, "armed", running.State)
	require.Equal(t, "lampwake session already running (session session-1, state armed)", err.Error())
}

func TestRunningErrorWithoutSessionDetails(t *testing.T) {
	require.Equal(t, "lampwake session already running (state unknown)", (&RunningError{}).Error())
	require.Equal(t, "lampwake session already running (state idle)", (&RunningError{State: "idle"}).Error())
}

func TestAcquireRecoversStaleSocket(t *testing.T) {
	socketPath := filepath.Join(t.TempDir(), "lampwake.sock")
	require.NoError(t, os.WriteFile(socketPath, []byte("left by a crashed session"), 0o600))

	listener, err := Acquire(context.Background(), socketPath, 50*time.Millisecond, 2)
	require.NoError(t, err)
	stop := serveAcquired(t, listener, &gateHandler{state: fsm.StateIdle})
	defer stop()

	owner, alive, err := Probe(context.Background(), socketPath, 200*time.Millisecond)
	require.NoError(t, err)
	require.True(t, alive)
	require.Equal(t, "idle", owner.State)
	require.Equal(t, "session-1", owner.Session.ID)
}

func TestAcquireLeavesUnresponsiveOwnerInPlace(t *testing.T) {
	socketPath := filepath.Join(t.TempDir(), "lampwake.sock")

	listener, err := net.Listen("unix", socketPath)
	require.NoError(t, err)

	acceptDone := make(chan struct{})
	go func() {
		defer close(acceptDone)
		for {
			conn, acceptErr := listener.Accept()
			if acceptErr != nil {
				return
			}
			go func(c net.Conn) {
				defer c.Close()
				time.Sleep(250 * time.Millisecond)
			}(conn)
		}
	}()

	_, err = Acquire(context.Background(), socketPath, 30*time.Millisecond, 3)
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrAlreadyRunning)
	require.Contains(t, err.Error(), "query existing socket owner")

	_, statErr := os.Stat(socketPath)
	require.NoError(t, statErr)
	require.NoError(t, listener.Close())
	<-acceptDone
}

func TestRuntimeSocketPath(t *testing.T) {
	t.Setenv("XDG_RUNTIME_DIR", "")
	_, err := RuntimeSocketPath()
	require.Error(t, err)

	dir := t.TempDir()
	t.Setenv("XDG_RUNTIME_DIR", dir)
	path, err := RuntimeSocketPath()
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "lampwake.sock"), path)
}

func TestRetryDelayGrows(t *testing.T) {
	require.Equal(t, 25*time.Millisecond, retryDelay(0))
	require.Equal(t, 75*time.Millisecond, retryDelay(2))
}
