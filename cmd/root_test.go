package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	cmds := rootCmd.Commands()

	names := make(map[string]bool)
	for _, c := range cmds {
		names[c.Name()] = true
	}

	expected := []string{"match", "standardize", "automap", "preview", "score", "batch", "serve", "store"}
	for _, name := range expected {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "matchkey", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestMatchCommand_Flags(t *testing.T) {
	for _, flagName := range []string{"input", "output", "mapping", "columns", "blocking"} {
		flag := matchCmd.Flags().Lookup(flagName)
		require.NotNil(t, flag, "match command should have --%s flag", flagName)
	}
	assert.Equal(t, "composite", matchCmd.Flags().Lookup("blocking").DefValue)
}

func TestPreviewCommand_Flags(t *testing.T) {
	flag := previewCmd.Flags().Lookup("rows")
	require.NotNil(t, flag, "preview command should have --rows flag")
	assert.Equal(t, "10", flag.DefValue)
}

func TestServeCommand_Flags(t *testing.T) {
	flag := serveCmd.Flags().Lookup("port")
	require.NotNil(t, flag, "serve command should have --port flag")
	assert.Equal(t, "0", flag.DefValue)
}

func TestBatchCommand_Flags(t *testing.T) {
	flag := batchCmd.Flags().Lookup("skip-match")
	require.NotNil(t, flag, "batch command should have --skip-match flag")
	assert.Equal(t, "false", flag.DefValue)
}

func TestStoreCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range storeCmd.Commands() {
		names[c.Name()] = true
	}

	for _, name := range []string{"stats", "init"} {
		assert.True(t, names[name], "store should have subcommand %q", name)
	}
}
