// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommands(t *testing.T) {
	root := newRootCmd()

	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.ElementsMatch(t, []string{"run", "console"}, names)

	for _, flag := range []string{"config", "verbose", "mock"} {
		require.NotNil(t, root.PersistentFlags().Lookup(flag), flag)
	}
	assert.Equal(t, "enviro.yml", root.PersistentFlags().Lookup("config").DefValue)
}

func TestRunRejectsArgs(t *testing.T) {
	root := newRootCmd()
	root.SetArgs([]string{"run", "extra"})
	root.SetOut(new(nopWriter))
	root.SetErr(new(nopWriter))
	assert.Error(t, root.Execute())
}

type nopWriter struct{}

func (*nopWriter) Write(p []byte) (int, error) { return len(p), nil }
