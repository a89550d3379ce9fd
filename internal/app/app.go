// Package app routes parsed CLI commands to the lampwake subsystems.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/rbright/lampwake/internal/asr"
	"github.com/rbright/lampwake/internal/audio"
	"github.com/rbright/lampwake/internal/catalog"
	"github.com/rbright/lampwake/internal/cli"
	"github.com/rbright/lampwake/internal/config"
	"github.com/rbright/lampwake/internal/doctor"
	"github.com/rbright/lampwake/internal/grammar"
	"github.com/rbright/lampwake/internal/ipc"
	"github.com/rbright/lampwake/internal/logging"
	"github.com/rbright/lampwake/internal/recognition"
	"github.com/rbright/lampwake/internal/version"
)

type Runner struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	Logger *slog.Logger
}

func Execute(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	r := Runner{Stdin: stdin, Stdout: stdout, Stderr: stderr}
	return r.Execute(ctx, args)
}

func (r Runner) Execute(ctx context.Context, args []string) int {
	parsed, err := cli.Parse(args)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n\n", err)
		fmt.Fprint(r.Stderr, cli.HelpText("lampwake"))
		return 2
	}

	if parsed.ShowHelp {
		fmt.Fprint(r.Stdout, cli.HelpText("lampwake"))
		return 0
	}

	if parsed.Command == cli.CommandVersion {
		fmt.Fprintln(r.Stdout, version.String())
		return 0
	}

	cfgLoaded, err := config.Load(parsed.ConfigPath)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	logRuntime, err := logging.New(cfgLoaded.Config.Debug.LogLevel)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: setup logging: %v\n", err)
		return 1
	}
	defer func() { _ = logRuntime.Close() }()

	logger := r.Logger
	if logger == nil {
		logger = logRuntime.Logger
	}

	for _, w := range cfgLoaded.Warnings {
		msg := w.Message
		if w.Line > 0 {
			msg = fmt.Sprintf("line %d: %s", w.Line, w.Message)
		}
		fmt.Fprintf(r.Stderr, "warning: %s\n", msg)
		logger.Warn("config warning", "line", w.Line, "message", w.Message)
	}

	logger.Info("command start",
		"command", parsed.Command,
		"config", cfgLoaded.Path,
		"log", logRuntime.Path,
	)

	switch parsed.Command {
	case cli.CommandDoctor:
		report := doctor.Run(ctx, cfgLoaded)
		fmt.Fprintln(r.Stdout, report.String())
		if report.OK() {
			return 0
		}
		return 1
	case cli.CommandDevices:
		return r.commandDevices(ctx)
	case cli.CommandProfiles:
		return r.commandProfiles(ctx, cfgLoaded.Config)
	case cli.CommandGrammar:
		return r.commandGrammar(cfgLoaded.Config)
	case cli.CommandStatus:
		return r.commandStatus(ctx)
	case cli.CommandWake:
		return r.forwardOrFail(ctx, ipc.CommandWake)
	case cli.CommandCancel:
		return r.forwardOrFail(ctx, ipc.CommandCancel)
	case cli.CommandListen:
		return r.commandListen(ctx, cfgLoaded.Config, parsed.Stdin, logger, logRuntime.Path)
	default:
		fmt.Fprintf(r.Stderr, "error: unsupported command %q\n", parsed.Command)
		return 2
	}
}

func (r Runner) commandDevices(ctx context.Context) int {
	devices, err := audio.ListDevices(ctx)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if len(devices) == 0 {
		fmt.Fprintln(r.Stdout, "no audio devices found")
		return 1
	}

	for _, device := range devices {
		defaultMark := " "
		if device.Default {
			defaultMark = "*"
		}
		fmt.Fprintf(
			r.Stdout,
			"%s id=%s | description=%q | state=%s | available=%s | muted=%s\n",
			defaultMark,
			device.ID,
			device.Description,
			device.State,
			yesNo(device.Available),
			yesNo(device.Muted),
		)
	}

	return 0
}

// commandProfiles lists recognizer profiles and marks the one listen would use.
func (r Runner) commandProfiles(ctx context.Context, cfg config.Config) int {
	client, err := asr.Dial(ctx, asr.Config{Endpoint: cfg.Recognizer.GRPC, DialTimeout: cfg.Recognizer.DialTimeout()})
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	defer func() { _ = client.Close() }()

	profiles, err := client.ListProfiles(ctx)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if len(profiles) == 0 {
		fmt.Fprintln(r.Stdout, "no recognizer profiles offered")
		return 1
	}

	selected, selectErr := recognition.SelectProfile(profiles, cfg.Recognizer.LanguageCode)
	for _, profile := range profiles {
		mark := " "
		if selectErr == nil && profile.ID == selected.ID {
			mark = "*"
		}
		fmt.Fprintf(r.Stdout, "%s id=%s | language=%s | description=%q\n", mark, profile.ID, profile.Language, profile.Description)
	}
	if selectErr != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", selectErr)
		return 1
	}
	return 0
}

func (r Runner) commandGrammar(cfg config.Config) int {
	_, g, err := composeGrammar(cfg.Session, nil)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	fmt.Fprintln(r.Stdout, grammar.Render(g.Root()))
	return 0
}

func (r Runner) commandStatus(ctx context.Context) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintln(r.Stdout, "not running")
		return 0
	}

	resp, handled, err := tryForward(ctx, socketPath, ipc.CommandStatus)
	if !handled {
		fmt.Fprintln(r.Stdout, "not running")
		return 0
	}
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if resp.State == "" {
		resp.State = "unknown"
	}
	fmt.Fprintln(r.Stdout, resp.State)
	if s := resp.Session; s != nil {
		fmt.Fprintf(r.Stdout, "session=%s profile=%s timeout_ms=%d in_flight=%s\n", s.ID, s.Profile, s.TimeoutMS, yesNo(s.InFlight))
	}
	return 0
}

func (r Runner) forwardOrFail(ctx context.Context, command string) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	resp, handled, err := tryForward(ctx, socketPath, command)
	if !handled {
		fmt.Fprintf(r.Stderr, "error: no active lampwake session\n")
		return 1
	}
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if resp.Message != "" {
		fmt.Fprintln(r.Stdout, resp.Message)
	}
	return 0
}

// composeGrammar builds the house catalog bound to executor and its grammar.
func composeGrammar(cfg config.SessionConfig, executor catalog.Executor) (*catalog.Catalog, *grammar.Grammar, error) {
	c, err := catalog.House(executor)
	if err != nil {
		return nil, nil, fmt.Errorf("build catalog: %w", err)
	}
	g, err := grammar.Build(c, grammar.Phrases{Wake: cfg.WakePhrase, Cancel: cfg.CancelPhrase})
	if err != nil {
		return nil, nil, fmt.Errorf("compose grammar: %w", err)
	}
	return c, g, nil
}

func tryForward(ctx context.Context, socketPath string, command string) (ipc.Response, bool, error) {
	resp, err := ipc.Send(ctx, socketPath, ipc.Request{Command: command}, 220*time.Millisecond)
	if err == nil {
		if resp.OK {
			return resp, true, nil
		}
		return resp, true, errors.New(resp.Error)
	}

	if ipc.Unavailable(err) {
		return ipc.Response{}, false, nil
	}

	return ipc.Response{}, true, fmt.Errorf("forward command %q: %w", command, err)
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
