package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sooth/audio-capture-library/internal/config"
)

func TestRootCommandRegistersSubcommands(t *testing.T) {
	var settings config.Settings
	root := rootCommand(&settings)

	names := make([]string, 0)
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.ElementsMatch(t, []string{"record", "mix", "serve"}, names)
}

func TestRecordCommandRequiresExactlyOneArg(t *testing.T) {
	var settings config.Settings
	cmd := recordCommand(&settings)
	require.NotNil(t, cmd.Args)
	assert.Error(t, cmd.Args(cmd, []string{}))
	assert.Error(t, cmd.Args(cmd, []string{"a", "b"}))
	assert.NoError(t, cmd.Args(cmd, []string{"out.wav"}))
}
