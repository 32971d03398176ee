package app

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vk/pluginhost/internal/dynload/dynloadtest"
	"github.com/vk/pluginhost/internal/libpath"
)

// SafeBuffer is a thread-safe buffer for capturing output in tests.
type SafeBuffer struct {
	b  bytes.Buffer
	mu sync.Mutex
}

func (b *SafeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.Write(p)
}

func (b *SafeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.String()
}

const greeterManifest = `
library "greeter_plugins" {
  class "core/Polite" {
    type        = "demo::PoliteGreeter"
    base        = "demo::Greeter"
    description = "Greets politely."
  }
}
`

type greeter struct{}

func (greeter) Greet(name string) string { return "hello, " + name }

// setupAppTest lays out a manifest tree with a resolvable (empty) library
// file and wires an App over a fake loader serving that library.
func setupAppTest(t *testing.T, action Action, className string) (*App, *SafeBuffer, *dynloadtest.FakeLoader) {
	t.Helper()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "greeters.plugin.hcl"), []byte(greeterManifest), 0o644))

	// The package-relative layout: <root>/lib/<decorated name>. The file
	// only has to exist; the fake loader never reads it.
	libDir := filepath.Join(dir, "lib")
	require.NoError(t, os.MkdirAll(libDir, 0o755))
	libFile := filepath.Join(libDir, libpath.DecoratedName("greeter_plugins"))
	require.NoError(t, os.WriteFile(libFile, nil, 0o644))

	loader := dynloadtest.NewFakeLoader()
	loader.AddLibrary(libFile, map[string]func() any{
		"demo::PoliteGreeter": func() any { return greeter{} },
	})

	cfg, err := NewConfig(Config{
		ManifestPath: dir,
		Package:      "core",
		BaseType:     "demo::Greeter",
		Action:       action,
		ClassName:    className,
		LogFormat:    "text",
		LogLevel:     "debug",
	})
	require.NoError(t, err)

	out := &SafeBuffer{}
	return NewApp(out, cfg, loader), out, loader
}

func TestAppListCommand(t *testing.T) {
	app, out, _ := setupAppTest(t, ActionList, "")

	require.NoError(t, app.Run(context.Background()))

	require.Contains(t, out.String(), "core/Polite")
}

func TestAppDescribeCommand(t *testing.T) {
	app, out, _ := setupAppTest(t, ActionDescribe, "core/Polite")

	require.NoError(t, app.Run(context.Background()))

	output := out.String()
	require.Contains(t, output, "demo::PoliteGreeter")
	require.Contains(t, output, "greeter_plugins")
	require.Contains(t, output, "Greets politely.")
}

func TestAppCheckCommand(t *testing.T) {
	app, out, _ := setupAppTest(t, ActionCheck, "core/Polite")

	require.NoError(t, app.Run(context.Background()))

	require.Contains(t, out.String(), libpath.DecoratedName("greeter_plugins"))
}

func TestAppLoadCommand(t *testing.T) {
	app, out, loader := setupAppTest(t, ActionLoad, "core/Polite")

	require.NoError(t, app.Run(context.Background()))

	output := out.String()
	require.Contains(t, output, "created instance")
	require.Contains(t, output, "released instance")
	require.Len(t, loader.Opens(), 1)
	require.Len(t, loader.Closes(), 1)
	require.Empty(t, app.Host().LoadedPaths())
}

func TestAppDescribeUnknownClassFails(t *testing.T) {
	app, _, _ := setupAppTest(t, ActionDescribe, "core/Nope")

	err := app.Run(context.Background())

	require.Error(t, err)
	require.Contains(t, err.Error(), "core/Polite", "error must list the declared classes")
}

func TestNewConfigValidation(t *testing.T) {
	_, err := NewConfig(Config{Package: "core", Action: ActionList})
	require.Error(t, err, "manifest path is required")

	_, err = NewConfig(Config{ManifestPath: "m", Package: "core", Action: ActionDescribe})
	require.Error(t, err, "describe needs a class name")

	_, err = NewConfig(Config{ManifestPath: "m", Package: "core", Action: ActionList, ClassName: "x"})
	require.Error(t, err, "list takes no class name")

	_, err = NewConfig(Config{ManifestPath: "m", Package: "core", Action: "frobnicate"})
	require.Error(t, err, "unknown action")

	cfg, err := NewConfig(Config{ManifestPath: "m", Package: "core", Action: ActionLoad, ClassName: "a/B"})
	require.NoError(t, err)
	require.Equal(t, "a/B", cfg.ClassName)
}
