package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vk/pluginhost/internal/app"
)

func TestParseListCommand(t *testing.T) {
	var out bytes.Buffer

	cfg, exit, err := Parse([]string{"-manifests", "testdata", "-list"}, &out)

	require.NoError(t, err)
	require.False(t, exit)
	require.Equal(t, "testdata", cfg.ManifestPath)
	require.Equal(t, "core", cfg.Package)
	require.Equal(t, app.ActionList, cfg.Action)
	require.Empty(t, cfg.ClassName)
	require.Equal(t, "json", cfg.LogFormat)
	require.Equal(t, "info", cfg.LogLevel)
}

func TestParseDescribeCommand(t *testing.T) {
	var out bytes.Buffer

	cfg, exit, err := Parse([]string{"-manifests", "m", "-describe", "pkgA/Foo", "-package", "pkgA", "-base", "demo::Greeter"}, &out)

	require.NoError(t, err)
	require.False(t, exit)
	require.Equal(t, app.ActionDescribe, cfg.Action)
	require.Equal(t, "pkgA/Foo", cfg.ClassName)
	require.Equal(t, "pkgA", cfg.Package)
	require.Equal(t, "demo::Greeter", cfg.BaseType)
}

func TestParseNoManifestsPrintsUsage(t *testing.T) {
	var out bytes.Buffer

	cfg, exit, err := Parse([]string{"-list"}, &out)

	require.NoError(t, err)
	require.True(t, exit)
	require.Nil(t, cfg)
	require.Contains(t, out.String(), "Usage:")
}

func TestParseNoCommand(t *testing.T) {
	var out bytes.Buffer

	_, _, err := Parse([]string{"-manifests", "m"}, &out)

	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	require.Equal(t, 2, exitErr.Code)
	require.Contains(t, exitErr.Message, "no command")
}

func TestParseConflictingCommands(t *testing.T) {
	var out bytes.Buffer

	_, _, err := Parse([]string{"-manifests", "m", "-list", "-load", "pkgA/Foo"}, &out)

	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	require.Contains(t, exitErr.Message, "conflicting")
}

func TestParseInvalidLogFormat(t *testing.T) {
	var out bytes.Buffer

	_, _, err := Parse([]string{"-manifests", "m", "-list", "-log-format", "xml"}, &out)

	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	require.Contains(t, exitErr.Message, "log-format")
}

func TestParseInvalidLogLevel(t *testing.T) {
	var out bytes.Buffer

	_, _, err := Parse([]string{"-manifests", "m", "-list", "-log-level", "loud"}, &out)

	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	require.Contains(t, exitErr.Message, "log-level")
}

func TestParseUnknownFlag(t *testing.T) {
	var out bytes.Buffer

	_, _, err := Parse([]string{"-bogus"}, &out)

	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	require.Equal(t, 2, exitErr.Code)
}
