package executor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"go.bug.st/serial"
)

// DefaultSerialBaud is the light bridge line rate.
const DefaultSerialBaud = 115200

// Serial writes one "<ACTION> <IDENTIFIER>" line per action to a light bridge.
type Serial struct {
	name   string
	logger *slog.Logger

	mu   sync.Mutex
	port io.WriteCloser
}

// OpenSerial opens the bridge port at baud, 8N1.
func OpenSerial(path string, baud int, logger *slog.Logger) (*Serial, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("serial port path is empty")
	}
	if baud <= 0 {
		baud = DefaultSerialBaud
	}

	mode := &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", path, err)
	}

	s := NewSerial(port, path, logger)
	s.logger.Info("serial bridge opened", "port", path, "baud", baud)
	return s, nil
}

// NewSerial wraps an already-open port.
func NewSerial(port io.WriteCloser, name string, logger *slog.Logger) *Serial {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Serial{name: name, logger: logger, port: port}
}

func (s *Serial) Execute(ctx context.Context, action string, identifier string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	line, err := serialLine(action, identifier)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.port == nil {
		return fmt.Errorf("serial port %s is closed", s.name)
	}
	if _, err := io.WriteString(s.port, line); err != nil {
		return fmt.Errorf("write serial port %s: %w", s.name, err)
	}
	s.logger.Debug("serial action sent", "port", s.name, "action", action, "identifier", identifier)
	return nil
}

// Close releases the port. Later actions fail.
func (s *Serial) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.port == nil {
		return nil
	}
	err := s.port.Close()
	s.port = nil
	return err
}

// SerialPorts lists serial devices visible to the host.
func SerialPorts() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("list serial ports: %w", err)
	}
	return ports, nil
}

func serialLine(action string, identifier string) (string, error) {
	action = strings.TrimSpace(action)
	identifier = strings.TrimSpace(identifier)
	if action == "" || identifier == "" {
		return "", errors.New("serial action requires action and identifier")
	}
	if strings.ContainsAny(action+identifier, " \r\n") {
		return "", fmt.Errorf("serial action fields contain separators: %q %q", action, identifier)
	}
	return action + " " + identifier + "\n", nil
}
