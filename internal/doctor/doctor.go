// Package doctor runs runtime readiness diagnostics for config, grammar,
// recognizer, audio, and the light executor.
package doctor

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"slices"
	"strings"

	"github.com/rbright/lampwake/internal/asr"
	"github.com/rbright/lampwake/internal/audio"
	"github.com/rbright/lampwake/internal/catalog"
	"github.com/rbright/lampwake/internal/config"
	"github.com/rbright/lampwake/internal/executor"
	"github.com/rbright/lampwake/internal/grammar"
	"github.com/rbright/lampwake/internal/recognition"
)

// Check is one doctor assertion result.
type Check struct {
	Name    string
	Pass    bool
	Message string
}

// Report is the full doctor output contract.
type Report struct {
	Checks []Check
}

// OK returns true when all checks pass.
func (r Report) OK() bool {
	for _, check := range r.Checks {
		if !check.Pass {
			return false
		}
	}
	return true
}

// String renders the report as user-facing text output.
func (r Report) String() string {
	var b strings.Builder
	for _, check := range r.Checks {
		status := "OK"
		if !check.Pass {
			status = "FAIL"
		}
		b.WriteString(fmt.Sprintf("[%s] %s: %s\n", status, check.Name, check.Message))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// probes are the live-system lookups a doctor run depends on.
type probes struct {
	selectDevice func(ctx context.Context, input, fallback string) (audio.Selection, error)
	serialPorts  func() ([]string, error)
}

var liveProbes = probes{
	selectDevice: audio.SelectDevice,
	serialPorts:  executor.SerialPorts,
}

// Run executes environment/config/runtime checks for a loaded config.
func Run(ctx context.Context, cfg config.Loaded) Report {
	return run(ctx, cfg, liveProbes)
}

func run(ctx context.Context, loaded config.Loaded, p probes) Report {
	cfg := loaded.Config
	checks := []Check{}

	configMessage := fmt.Sprintf("loaded %q", loaded.Path)
	if !loaded.Exists {
		configMessage = fmt.Sprintf("using defaults (%q not found)", loaded.Path)
	}
	checks = append(checks, Check{Name: "config", Pass: true, Message: configMessage})

	checks = append(checks, checkEnv("XDG_RUNTIME_DIR", func(v string) bool {
		return strings.TrimSpace(v) != ""
	}, "control socket directory is set", "XDG_RUNTIME_DIR is empty; status, wake and cancel are unavailable"))

	checks = append(checks, checkGrammar(cfg.Session))

	if cfg.Recognizer.Mode == config.RecognizerStream {
		checks = append(checks, checkRecognizer(ctx, cfg.Recognizer))
		checks = append(checks, checkAudioSelection(ctx, cfg.Audio, p))
	} else {
		checks = append(checks, Check{Name: "recognizer", Pass: true, Message: "text mode; recognizer service not required"})
	}

	checks = append(checks, checkExecutor(cfg.Executor, p))
	checks = append(checks, checkCueFiles(cfg.Feedback)...)

	return Report{Checks: checks}
}

// checkEnv validates an environment variable through a caller-supplied predicate.
func checkEnv(name string, predicate func(string) bool, okMsg, failMsg string) Check {
	value := os.Getenv(name)
	if predicate(value) {
		return Check{Name: name, Pass: true, Message: okMsg}
	}
	return Check{Name: name, Pass: false, Message: failMsg}
}

// checkGrammar composes the house grammar with the configured phrases.
func checkGrammar(cfg config.SessionConfig) Check {
	c, err := catalog.House(nil)
	if err != nil {
		return Check{Name: "grammar", Pass: false, Message: err.Error()}
	}
	g, err := grammar.Build(c, grammar.Phrases{Wake: cfg.WakePhrase, Cancel: cfg.CancelPhrase})
	if err != nil {
		return Check{Name: "grammar", Pass: false, Message: err.Error()}
	}
	return Check{Name: "grammar", Pass: true, Message: fmt.Sprintf(
		"%d identifiers, %d actions, %d vocabulary phrases",
		len(c.Identifiers()), len(c.Actions()), len(g.Vocabulary()),
	)}
}

// checkRecognizer dials the recognizer and verifies a profile for the language.
func checkRecognizer(ctx context.Context, cfg config.RecognizerConfig) Check {
	client, err := asr.Dial(ctx, asr.Config{Endpoint: cfg.GRPC, DialTimeout: cfg.DialTimeout()})
	if err != nil {
		return Check{Name: "recognizer", Pass: false, Message: err.Error()}
	}
	defer func() { _ = client.Close() }()

	profiles, err := client.ListProfiles(ctx)
	if err != nil {
		return Check{Name: "recognizer", Pass: false, Message: err.Error()}
	}
	profile, err := recognition.SelectProfile(profiles, cfg.LanguageCode)
	if err != nil {
		return Check{Name: "recognizer", Pass: false, Message: fmt.Sprintf("%v (%d profiles offered)", err, len(profiles))}
	}
	return Check{Name: "recognizer", Pass: true, Message: fmt.Sprintf("profile %q (%s) at %s", profile.ID, profile.Language, cfg.GRPC)}
}

// checkAudioSelection runs live device selection to surface selection/fallback issues.
func checkAudioSelection(ctx context.Context, cfg config.AudioConfig, p probes) Check {
	selection, err := p.selectDevice(ctx, cfg.Input, cfg.Fallback)
	if err != nil {
		return Check{Name: "audio.device", Pass: false, Message: err.Error()}
	}
	message := fmt.Sprintf("selected %q", selection.Device.ID)
	if selection.Warning != "" {
		message = message + " (" + selection.Warning + ")"
	}
	return Check{Name: "audio.device", Pass: true, Message: message}
}

// checkExecutor verifies the configured light backend can be reached.
func checkExecutor(cfg config.ExecutorConfig, p probes) Check {
	switch cfg.Backend {
	case config.ExecutorSerial:
		ports, err := p.serialPorts()
		if err != nil {
			return Check{Name: "executor", Pass: false, Message: err.Error()}
		}
		if !slices.Contains(ports, cfg.SerialPort) {
			return Check{Name: "executor", Pass: false, Message: fmt.Sprintf("serial port %s not found (available: %s)", cfg.SerialPort, strings.Join(ports, ", "))}
		}
		return Check{Name: "executor", Pass: true, Message: fmt.Sprintf("serial bridge %s at %d baud", cfg.SerialPort, cfg.SerialBaud)}
	case config.ExecutorCommand:
		return checkCommand(cfg.Command.Argv, "executor.command")
	default:
		return Check{Name: "executor", Pass: true, Message: "log backend; actions are only logged"}
	}
}

// checkCueFiles validates configured cue files and the player they need.
func checkCueFiles(cfg config.FeedbackConfig) []Check {
	if !cfg.SoundEnable {
		return nil
	}
	files := map[string]string{
		"feedback.sound_armed_file":       cfg.SoundArmedFile,
		"feedback.sound_acknowledge_file": cfg.SoundAcknowledgeFile,
		"feedback.sound_timeout_file":     cfg.SoundTimeoutFile,
	}
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	slices.Sort(names)

	checks := []Check{}
	for _, name := range names {
		path := strings.TrimSpace(files[name])
		if path == "" {
			continue
		}
		if _, err := os.Stat(path); err != nil {
			checks = append(checks, Check{Name: name, Pass: false, Message: err.Error()})
			continue
		}
		checks = append(checks, Check{Name: name, Pass: true, Message: path})
	}
	if len(checks) > 0 {
		checks = append(checks, checkBinary("pw-play", "cue file playback"))
	}
	return checks
}

// checkCommand validates that argv contains a runnable command.
func checkCommand(argv []string, name string) Check {
	if len(argv) == 0 {
		return Check{Name: name, Pass: false, Message: "command is empty"}
	}
	return checkBinary(argv[0], fmt.Sprintf("%s command is available", name))
}

// checkBinary validates that a binary exists in PATH.
func checkBinary(bin string, okMsg string) Check {
	path, err := exec.LookPath(bin)
	if err != nil {
		return Check{Name: bin, Pass: false, Message: fmt.Sprintf("binary not found in PATH: %s", bin)}
	}
	return Check{Name: bin, Pass: true, Message: fmt.Sprintf("found at %s (%s)", path, okMsg)}
}
