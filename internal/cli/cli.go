// Package cli parses lampwake command-line arguments.
package cli

import (
	"errors"
	"fmt"
	"strings"
)

type Command string

const (
	CommandListen   Command = "listen"
	CommandStatus   Command = "status"
	CommandWake     Command = "wake"
	CommandCancel   Command = "cancel"
	CommandDevices  Command = "devices"
	CommandProfiles Command = "profiles"
	CommandGrammar  Command = "grammar"
	CommandDoctor   Command = "doctor"
	CommandVersion  Command = "version"
	CommandHelp     Command = "help"
)

var validCommands = map[Command]struct{}{
	CommandListen:   {},
	CommandStatus:   {},
	CommandWake:     {},
	CommandCancel:   {},
	CommandDevices:  {},
	CommandProfiles: {},
	CommandGrammar:  {},
	CommandDoctor:   {},
	CommandVersion:  {},
	CommandHelp:     {},
}

type Parsed struct {
	Command    Command
	ConfigPath string
	Stdin      bool
	ShowHelp   bool
}

// Parse reads global flags followed by exactly one command.
func Parse(args []string) (Parsed, error) {
	parsed := Parsed{Command: CommandHelp, ShowHelp: true}

	for i := 0; i < len(args); i++ {
		arg := args[i]

		switch arg {
		case "-h", "--help":
			parsed.ShowHelp = true
			parsed.Command = CommandHelp
		case "--version":
			parsed.ShowHelp = false
			parsed.Command = CommandVersion
		case "--config":
			i++
			if i >= len(args) {
				return Parsed{}, errors.New("--config requires a path")
			}
			parsed.ConfigPath = args[i]
		case "--stdin":
			parsed.Stdin = true
		default:
			if strings.HasPrefix(arg, "-") {
				return Parsed{}, fmt.Errorf("unknown flag: %s", arg)
			}

			cmd := Command(arg)
			if _, ok := validCommands[cmd]; !ok {
				return Parsed{}, fmt.Errorf("unknown command: %s", arg)
			}

			parsed.Command = cmd
			parsed.ShowHelp = cmd == CommandHelp
			if i != len(args)-1 {
				return Parsed{}, fmt.Errorf("unexpected arguments after command %q", arg)
			}
		}
	}

	if parsed.Stdin && parsed.Command != CommandListen && !parsed.ShowHelp {
		return Parsed{}, fmt.Errorf("--stdin is only valid with %q", CommandListen)
	}

	return parsed, nil
}

func HelpText(binaryName string) string {
	return fmt.Sprintf(`Usage:
  %[1]s [--config PATH] [--stdin] <command>

Commands:
  listen    Run a voice-command session until the cancel phrase or Ctrl-C
  status    Print the gate state of the running session
  wake      Arm the running session without speaking the wake phrase
  cancel    Terminate the running session
  devices   List available input devices
  profiles  List recognizer profiles offered by the service
  grammar   Print the composed command grammar
  doctor    Run configuration and environment checks
  version   Print version information
  help      Show this help

Flags:
  --config PATH   Config file path (default: $XDG_CONFIG_HOME/lampwake/config.jsonc)
  --stdin         With listen: read one utterance per line from stdin instead of the microphone
  -h, --help      Show help
  --version       Show version
`, binaryName)
}
