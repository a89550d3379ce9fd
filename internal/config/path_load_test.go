package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolvePathPrecedence(t *testing.T) {
	explicit := "/tmp/custom.jsonc"
	resolved, err := ResolvePath(explicit)
	require.NoError(t, err)
	require.Equal(t, explicit, resolved)

	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)
	resolved, err = ResolvePath("")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(xdg, "lampwake", "config.jsonc"), resolved)

	t.Setenv("XDG_CONFIG_HOME", "")
	home := t.TempDir()
	t.Setenv("HOME", home)
	resolved, err = ResolvePath("")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(home, ".config", "lampwake", "config.jsonc"), resolved)
}

func TestLoadMissingConfigUsesDefaultsWithWarning(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.jsonc")

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, path, loaded.Path)
	require.False(t, loaded.Exists)
	require.Equal(t, Default(), loaded.Config)
	require.NotEmpty(t, loaded.Warnings)
	require.Contains(t, loaded.Warnings[0].Message, "not found")
}

func TestLoadExistingJSONCParsesAndValidates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.jsonc")
	contents := `
{
  "recognizer": {
    "grpc": "127.0.0.1:50052",
  },
  "executor": {
    "backend": "command",
    "command": ["lightctl", "{action}", "{identifier}"],
  },
}
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.True(t, loaded.Exists)
	require.Equal(t, path, loaded.Path)
	require.Equal(t, "127.0.0.1:50052", loaded.Config.Recognizer.GRPC)
	require.Equal(t, ExecutorCommand, loaded.Config.Executor.Backend)
	require.Equal(t, []string{"lightctl", "{action}", "{identifier}"}, loaded.Config.Executor.Command.Argv)
}

func TestLoadAppliesEnvOverridesAfterFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.jsonc")
	require.NoError(t, os.WriteFile(path, []byte(`{"session": {"wake_phrase": "jarvis"}}`), 0o600))
	t.Setenv("LAMPWAKE_WAKE_PHRASE", "friday")
	t.Setenv("LAMPWAKE_SILENCE_TIMEOUT_MS", "6000")

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "friday", loaded.Config.Session.WakePhrase)
	require.Equal(t, 6000, loaded.Config.Session.SilenceTimeoutMS)
}

func TestLoadValidatesEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.jsonc")
	t.Setenv("LAMPWAKE_EXECUTOR", "serial")

	_, err := Load(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "serial_port")
	require.Contains(t, err.Error(), path)
}

func TestLoadParseErrorIncludesPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.jsonc")
	require.NoError(t, os.WriteFile(path, []byte("{ not-json }"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "parse config")
	require.Contains(t, err.Error(), path)
}
