package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"
)

// DefaultCommandTimeout bounds one command invocation.
const DefaultCommandTimeout = 5 * time.Second

// Command runs a configured argv per action. "{action}" and "{identifier}"
// are substituted in every argument.
type Command struct {
	argv    []string
	timeout time.Duration
	logger  *slog.Logger
}

// NewCommand validates argv and constructs a command backend.
func NewCommand(argv []string, timeout time.Duration, logger *slog.Logger) (*Command, error) {
	if len(argv) == 0 || strings.TrimSpace(argv[0]) == "" {
		return nil, errors.New("command argv cannot be empty")
	}
	if timeout <= 0 {
		timeout = DefaultCommandTimeout
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Command{argv: append([]string(nil), argv...), timeout: timeout, logger: logger}, nil
}

func (c *Command) Execute(ctx context.Context, action string, identifier string) error {
	argv := expandArgv(c.argv, action, identifier)

	runCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, argv[0], argv[1:]...)
	cmd.Env = append(os.Environ(),
		"LAMPWAKE_ACTION="+action,
		"LAMPWAKE_IDENTIFIER="+identifier,
	)
	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	if err := cmd.Run(); err != nil {
		detail := strings.TrimSpace(output.String())
		if detail != "" {
			return fmt.Errorf("run %s: %w: %s", argv[0], err, detail)
		}
		return fmt.Errorf("run %s: %w", argv[0], err)
	}
	c.logger.Debug("command action finished", "command", argv[0], "action", action, "identifier", identifier)
	return nil
}

func (c *Command) Close() error { return nil }

func expandArgv(argv []string, action string, identifier string) []string {
	replacer := strings.NewReplacer("{action}", action, "{identifier}", identifier)
	out := make([]string, len(argv))
	for i, arg := range argv {
		out[i] = replacer.Replace(arg)
	}
	return out
}
