package main

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStageCommandsRejectArguments(t *testing.T) {
	rootCmd.SetOut(io.Discard)
	rootCmd.SetErr(io.Discard)
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	for _, name := range []string{"fetch", "backfill", "holidays", "transform", "run", "schedule"} {
		t.Run(name, func(t *testing.T) {
			rootCmd.SetArgs([]string{name, "extra"})
			err := rootCmd.Execute()
			require.Error(t, err)
			assert.Contains(t, err.Error(), `unknown command "extra"`)
		})
	}
}

func TestStageCommandsDeclareNoArgs(t *testing.T) {
	for _, cmd := range rootCmd.Commands() {
		if cmd.Name() == "version" || cmd.Name() == "help" || cmd.Name() == "completion" {
			continue
		}
		require.NotNil(t, cmd.Args, cmd.Name())
		assert.NoError(t, cmd.Args(cmd, nil), cmd.Name())
		assert.Error(t, cmd.Args(cmd, []string{"x"}), cmd.Name())
	}
}
