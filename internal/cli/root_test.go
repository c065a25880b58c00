package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "jersey", cmd.Use)
	assert.Contains(t, cmd.Long, "local log")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{"register", "lookup", "history", "copy-id", "sizes", "test"}

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
	assert.Equal(t, "c", configFlag.Shorthand)

	require.NotNil(t, cmd.PersistentFlags().Lookup("db"))
}

func TestRegisterCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	registerCmd, _, err := cmd.Find([]string{"register"})
	require.NoError(t, err)

	require.NotNil(t, registerCmd.Flags().Lookup("metrics-addr"))
}

func TestRootCommand_InvalidFormat(t *testing.T) {
	_, _, err := execute(NewRootCommand(), "", "sizes", "--format", "xml")

	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid format "xml"`)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestSizesCommand(t *testing.T) {
	t.Run("text", func(t *testing.T) {
		out, _, err := execute(NewRootCommand(), "", "sizes")

		require.NoError(t, err)
		assert.Equal(t, "XS\nS\nM\nL\nXL\nXXL\n3XL\n4XL\n", out)
	})

	t.Run("json", func(t *testing.T) {
		out, _, err := execute(NewRootCommand(), "", "sizes", "--format", "json")

		require.NoError(t, err)
		assert.JSONEq(t, `{"status":"ok","data":["XS","S","M","L","XL","XXL","3XL","4XL"]}`, out)
	})
}
