package asr

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/connectivity"
)

// NotReadyError reports a recognizer channel that never reached Ready.
type NotReadyError struct {
	Endpoint string
	State    connectivity.State
	Err      error
}

func (e *NotReadyError) Error() string {
	return fmt.Sprintf("recognizer %s not ready (last state %s): %v",
		e.Endpoint, strings.ToLower(e.State.String()), e.Err)
}

func (e *NotReadyError) Unwrap() error { return e.Err }

// awaitReady drives conn until it is Ready. An idle channel, including one
// that fell back to idle after a failed attempt, is asked to connect again.
func awaitReady(ctx context.Context, conn *grpc.ClientConn, endpoint string) error {
	state := conn.GetState()
	for state != connectivity.Ready {
		switch state {
		case connectivity.Shutdown:
			return &NotReadyError{Endpoint: endpoint, State: state, Err: errors.New("channel shut down")}
		case connectivity.Idle:
			conn.Connect()
		}
		if !conn.WaitForStateChange(ctx, state) {
			return &NotReadyError{Endpoint: endpoint, State: state, Err: ctx.Err()}
		}
		state = conn.GetState()
	}
	return nil
}

type opened[T any] struct {
	value T
	err   error
}

// openWithin runs open and gives up after timeout. A zero timeout waits for
// open itself. The caller owns cancelling whatever open is blocked on.
func openWithin[T any](ctx context.Context, what string, timeout time.Duration, open func() (T, error)) (T, error) {
	if timeout <= 0 {
		return open()
	}

	done := make(chan opened[T], 1)
	go func() {
		value, err := open()
		done <- opened[T]{value: value, err: err}
	}()

	var zero T
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case <-time.After(timeout):
		return zero, fmt.Errorf("%s timed out after %s", what, timeout)
	case result := <-done:
		return result.value, result.err
	}
}
