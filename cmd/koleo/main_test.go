package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koleo-cli/koleo/internal/cli"
	"github.com/koleo-cli/koleo/pkg/version"
)

func TestMainComponents(t *testing.T) {
	t.Run("cli root command", func(t *testing.T) {
		root := cli.NewRootCmd(version.GetVersion())
		require.NotNil(t, root)
		assert.Equal(t, "koleo", root.Use)
	})
}

func TestRunExitCodes(t *testing.T) {
	t.Setenv("KOLEO_HOME", t.TempDir())

	tests := []struct {
		name string
		args []string
		want int
	}{
		{"version", []string{"version"}, cli.ExitOK},
		{"unknown command", []string{"no-such-command"}, cli.ExitFailure},
		{"missing arguments", []string{"trainroute"}, cli.ExitFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, run(tt.args))
		})
	}
}
