package ipc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"
)

// ErrAlreadyRunning matches every *RunningError.
var ErrAlreadyRunning = errors.New("lampwake session already running")

// RunningError names the live session that answered on the control socket.
type RunningError struct {
	SessionID string
	State     string
}

func (e *RunningError) Error() string {
	state := e.State
	if state == "" {
		state = "unknown"
	}
	if e.SessionID == "" {
		return fmt.Sprintf("%s (state %s)", ErrAlreadyRunning, state)
	}
	return fmt.Sprintf("%s (session %s, state %s)", ErrAlreadyRunning, e.SessionID, state)
}

func (e *RunningError) Unwrap() error { return ErrAlreadyRunning }

// socketName is the control socket file under XDG_RUNTIME_DIR.
const socketName = "lampwake.sock"

// RuntimeSocketPath returns the control socket path for this user.
func RuntimeSocketPath() (string, error) {
	runtimeDir := strings.TrimSpace(os.Getenv("XDG_RUNTIME_DIR"))
	if runtimeDir == "" {
		return "", errors.New("XDG_RUNTIME_DIR is not set")
	}
	return filepath.Join(runtimeDir, socketName), nil
}

// Acquire binds the control socket for a new session. When the path is taken,
// the current owner is asked for its status: a live session yields a
// *RunningError, a dead one has its socket removed and the bind is retried up
// to retries times. An owner that neither answers nor refuses is left alone.
func Acquire(ctx context.Context, path string, ownerTimeout time.Duration, retries int) (net.Listener, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("ensure runtime socket dir: %w", err)
	}

	for attempt := 0; ; attempt++ {
		listener, err := net.Listen("unix", path)
		if err == nil {
			if err := os.Chmod(path, 0o600); err != nil {
				_ = listener.Close()
				return nil, fmt.Errorf("restrict socket %s: %w", path, err)
			}
			return listener, nil
		}
		if !errors.Is(err, syscall.EADDRINUSE) {
			return nil, fmt.Errorf("listen unix %s: %w", path, err)
		}

		owner, alive, ownerErr := Probe(ctx, path, ownerTimeout)
		switch {
		case alive:
			running := &RunningError{State: owner.State}
			if owner.Session != nil {
				running.SessionID = owner.Session.ID
			}
			return nil, running
		case ownerErr != nil:
			return nil, fmt.Errorf("query existing socket owner %s: %w", path, ownerErr)
		}

		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("remove stale socket %s: %w", path, err)
		}
		if attempt >= retries {
			return nil, fmt.Errorf("socket %s still busy after %d retries", path, retries)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(retryDelay(attempt)):
		}
	}
}

// retryDelay grows linearly so a racing session has time to finish binding.
func retryDelay(attempt int) time.Duration {
	return time.Duration(attempt+1) * 25 * time.Millisecond
}
