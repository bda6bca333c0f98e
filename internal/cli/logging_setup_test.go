package cli

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koleo-cli/koleo/internal/logging"
)

func TestDebugLogging_ToStderr(t *testing.T) {
	env := newTestEnv(t, "")
	env.withDepartures()

	out, err := env.run(t, "--debug", "departures", "krakow glowny")
	require.NoError(t, err)
	assert.NotContains(t, out, "Logging to")
	assert.Contains(t, out, "IC 5300")
}

func TestDebugLogging_ToFile(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "koleo.log")
	env := newTestEnv(t, "logging:\n  level: warn\n  format: json\n  file: "+logFile+"\n")
	t.Setenv("KOLEO_LOG_LEVEL", "")
	t.Setenv("KOLEO_LOG_FORMAT", "")
	env.withDepartures()

	out, err := env.run(t, "--debug", "departures", "krakow glowny")
	require.NoError(t, err)
	assert.Contains(t, out, "Logging to "+logFile)
	assert.NotContains(t, out, "command started")

	data, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"message":"command started"`)
	assert.Contains(t, string(data), `"component":"cli"`)
	assert.Contains(t, string(data), `"trace_id":`)
}

func TestDebugLogging_FileWithoutDebugIsQuiet(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "koleo.log")
	env := newTestEnv(t, "logging:\n  level: warn\n  file: "+logFile+"\n")
	env.withDepartures()

	out, err := env.run(t, "departures", "krakow glowny")
	require.NoError(t, err)
	assert.NotContains(t, out, "Logging to")
}

func TestWithLog_ClosesOnError(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "koleo.log")
	result := logging.NewLoggerWithPath(logging.Config{Output: logging.OutputFile, File: logFile})
	t.Cleanup(func() { _ = result.Close() })
	require.True(t, result.IsOpen())

	broken := errors.New("config is broken")
	opts := &rootOptions{cfgErr: broken, logPath: &result}

	err := opts.run(nil)(&cobra.Command{}, nil)
	require.ErrorIs(t, err, broken)
	assert.False(t, result.IsOpen(), "log file is closed when the command fails")
}

func TestWithLog_ClosesOnSuccess(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "koleo.log")
	result := logging.NewLoggerWithPath(logging.Config{Output: logging.OutputFile, File: logFile})
	t.Cleanup(func() { _ = result.Close() })

	opts := &rootOptions{logPath: &result}
	called := false
	err := opts.withLog(func(*cobra.Command, []string) error {
		called = true
		return nil
	})(&cobra.Command{}, nil)
	require.NoError(t, err)
	assert.True(t, called)
	assert.False(t, result.IsOpen())
}
