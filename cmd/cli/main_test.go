package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRunWithoutArgsPrintsUsage(t *testing.T) {
	var out bytes.Buffer

	err := run(&out, nil)

	require.NoError(t, err)
	require.Contains(t, out.String(), "Usage:")
}

func TestRunWithInvalidFlagFails(t *testing.T) {
	var out bytes.Buffer

	err := run(&out, []string{"-manifests", "m", "-list", "-log-level", "loud"})

	require.Error(t, err)
}
