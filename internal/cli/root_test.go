package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "exodep", cmd.Name())
	assert.Contains(t, cmd.Long, "mydeps.exodep")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{"run", "watch", "history", "test"}

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

	noColorFlag := cmd.PersistentFlags().Lookup("no-color")
	require.NotNil(t, noColorFlag)
	assert.Equal(t, "false", noColorFlag.DefValue)
}

func TestScriptFlags(t *testing.T) {
	root := NewRootCommand()
	runCmd, _, err := root.Find([]string{"run"})
	require.NoError(t, err)
	watchCmd, _, err := root.Find([]string{"watch"})
	require.NoError(t, err)

	for _, cmd := range []struct {
		name string
		flag func(string) bool
	}{
		{"root", func(n string) bool { return root.Flags().Lookup(n) != nil }},
		{"run", func(n string) bool { return runCmd.Flags().Lookup(n) != nil }},
		{"watch", func(n string) bool { return watchCmd.Flags().Lookup(n) != nil }},
	} {
		t.Run(cmd.name, func(t *testing.T) {
			for _, name := range []string{"config", "var", "ledger", "timeout"} {
				assert.True(t, cmd.flag(name), "flag --%s", name)
			}
		})
	}

	assert.NotNil(t, watchCmd.Flags().Lookup("debounce"))
	assert.Equal(t, "30s", runCmd.Flags().Lookup("timeout").DefValue)
}

func TestHistoryCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	historyCmd, _, err := cmd.Find([]string{"history"})
	require.NoError(t, err)

	for _, name := range []string{"ledger", "run", "path", "limit", "config"} {
		assert.NotNil(t, historyCmd.Flags().Lookup(name), "flag --%s", name)
	}
	assert.Equal(t, "20", historyCmd.Flags().Lookup("limit").DefValue)
}

func TestFormatValidation(t *testing.T) {
	assert.True(t, isValidFormat("text"))
	assert.True(t, isValidFormat("json"))

	assert.False(t, isValidFormat("xml"))
	assert.False(t, isValidFormat(""))
	assert.False(t, isValidFormat("TEXT"))
}

func TestFormatValidationIntegration(t *testing.T) {
	inTempDir(t)

	_, _, err := execute(t, "--format", "invalid", "history")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestTooManyArgs(t *testing.T) {
	inTempDir(t)

	_, _, err := execute(t, "a.exodep", "b.exodep")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
