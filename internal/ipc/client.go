package ipc

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"syscall"
	"time"
)

// ErrMissingCommand rejects a request before it reaches the socket.
var ErrMissingCommand = errors.New("ipc request has no command")

// Send dials the session socket, writes req as one JSON line, and reads one
// JSON line back. The whole exchange shares one deadline.
func Send(ctx context.Context, path string, req Request, timeout time.Duration) (Response, error) {
	if strings.TrimSpace(req.Command) == "" {
		return Response{}, ErrMissingCommand
	}

	dialer := net.Dialer{Timeout: timeout}
	conn, err := dialer.DialContext(ctx, "unix", path)
	if err != nil {
		return Response{}, err
	}
	defer conn.Close()

	if err := conn.SetDeadline(time.Now().Add(timeout)); err != nil {
		return Response{}, fmt.Errorf("set deadline: %w", err)
	}
	return roundTrip(conn, req)
}

func roundTrip(conn net.Conn, req Request) (Response, error) {
	if err := json.NewEncoder(conn).Encode(req); err != nil {
		return Response{}, fmt.Errorf("encode request: %w", err)
	}

	line, err := bufio.NewReader(conn).ReadBytes('\n')
	if err != nil {
		return Response{}, fmt.Errorf("read response: %w", err)
	}

	var resp Response
	if err := json.Unmarshal(line, &resp); err != nil {
		return Response{}, fmt.Errorf("decode response: %w", err)
	}
	return resp, nil
}

// Probe asks the owner of path for its status. It reports false with no error
// when no session is listening.
func Probe(ctx context.Context, path string, timeout time.Duration) (Response, bool, error) {
	resp, err := Send(ctx, path, Request{Command: CommandStatus}, timeout)
	if err == nil {
		return resp, true, nil
	}
	if Unavailable(err) {
		return Response{}, false, nil
	}
	return Response{}, false, fmt.Errorf("session status request: %w", err)
}

// Unavailable reports dial failures meaning no session owns the socket: the
// path is absent or nothing is listening on it.
func Unavailable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, os.ErrNotExist) || errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}
	return strings.Contains(err.Error(), "no such file or directory")
}
