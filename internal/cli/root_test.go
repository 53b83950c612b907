package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// execute runs the CLI with args and returns stdout, stderr and the exit
// code.
func execute(t *testing.T, args ...string) (string, string, int) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := Execute(args, &stdout, &stderr)
	return stdout.String(), stderr.String(), code
}

// clearModeEnv unsets the PMSM_* variables for the duration of the test.
func clearModeEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{"PMSM_STORE_DB_DATA", "PMSM_MOCK_DB_DATA", "PMSM_DATA_DIR"} {
		t.Setenv(name, "")
		os.Unsetenv(name)
	}
}

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "dbtape", cmd.Use)
	assert.True(t, cmd.SilenceUsage)
	assert.True(t, cmd.SilenceErrors)
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{"inspect", "check", "mode", "path"}

	for _, cmdName := range commands {
		t.Run(cmdName, func(t *testing.T) {
			subCmd, _, err := cmd.Find([]string{cmdName})
			require.NoError(t, err, "Command %s should exist", cmdName)
			require.NotNil(t, subCmd)
			assert.Equal(t, cmdName, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)

	configFlag := cmd.PersistentFlags().Lookup("config")
	require.NotNil(t, configFlag)
	assert.Equal(t, "", configFlag.DefValue)
}

func TestCheckCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	checkCmd, _, err := cmd.Find([]string{"check"})
	require.NoError(t, err)

	driverFlag := checkCmd.Flags().Lookup("driver")
	require.NotNil(t, driverFlag)
	assert.Equal(t, "sqlite3", driverFlag.DefValue)

	dsnFlag := checkCmd.Flags().Lookup("dsn")
	require.NotNil(t, dsnFlag)
	assert.Equal(t, ":memory:", dsnFlag.DefValue)
}

func TestInvalidFormat(t *testing.T) {
	clearModeEnv(t)
	_, stderr, code := execute(t, "mode", "--format", "xml")
	assert.Equal(t, ExitCommandError, code)
	assert.Contains(t, stderr, `invalid format "xml"`)
}

func TestFormatFromEnvironment(t *testing.T) {
	clearModeEnv(t)
	t.Setenv("DBTAPE_FORMAT", "json")

	stdout, _, code := execute(t, "mode")
	require.Equal(t, ExitSuccess, code)
	assert.Contains(t, stdout, `"status": "ok"`)
}

func TestFlagBeatsEnvironment(t *testing.T) {
	clearModeEnv(t)
	t.Setenv("DBTAPE_FORMAT", "json")

	stdout, _, code := execute(t, "mode", "--format", "text")
	require.Equal(t, ExitSuccess, code)
	assert.Contains(t, stdout, "PMSM_MODE=Normal")
}

func TestConfigFile(t *testing.T) {
	clearModeEnv(t)
	dir := t.TempDir()
	config := filepath.Join(dir, "dbtape.yaml")
	require.NoError(t, os.WriteFile(config, []byte("format: yaml\nstore: true\ndata-dir: "+dir+"\n"), 0o644))

	stdout, _, code := execute(t, "mode", "--config", config)
	require.Equal(t, ExitSuccess, code)
	assert.Contains(t, stdout, "mode: Store Data")
	assert.Contains(t, stdout, "root: "+dir)
}

func TestMissingConfigFile(t *testing.T) {
	clearModeEnv(t)
	_, stderr, code := execute(t, "mode", "--config", filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Equal(t, ExitCommandError, code)
	assert.Contains(t, stderr, "failed to read config")
}

func TestUnknownCommand(t *testing.T) {
	_, stderr, code := execute(t, "record")
	assert.Equal(t, ExitCommandError, code)
	assert.Contains(t, stderr, "unknown command")
}
