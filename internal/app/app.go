package app

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/vk/pluginhost/internal/dynload"
	"github.com/vk/pluginhost/internal/hclmanifest"
	"github.com/vk/pluginhost/internal/host"
	"github.com/vk/pluginhost/internal/libpath"
	"github.com/vk/pluginhost/internal/lifecycle"
	"github.com/vk/pluginhost/internal/registry"
	"github.com/vk/pluginhost/internal/searchpath"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW   io.Writer
	logger *slog.Logger
	config *Config

	manager    *lifecycle.Manager
	host       *host.Host[any]
	httpServer *http.Server
}

// NewApp is the constructor for the main application. It returns a fully
// initialized App instance, including its own isolated logger and a plugin
// host wired from the configuration. The loader is injected so tests can
// substitute a fake for the real dynamic loader.
func NewApp(outW io.Writer, cfg *Config, loader dynload.Loader) *App {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, outW)
	logger.Debug("Logger configured successfully.")

	provider := &searchpath.EnvProvider{Extra: cfg.LibraryPaths}
	packageRoot := func(pkg string) (string, bool) {
		if pkg == cfg.Package {
			return cfg.ManifestPath, true
		}
		return "", false
	}
	resolver := libpath.NewResolver(nil,
		&libpath.SearchPathStrategy{Provider: provider},
		&libpath.PackageLibStrategy{PackageRoot: packageRoot},
	)

	source := hclmanifest.NewSource(map[string]string{cfg.Package: cfg.ManifestPath})
	reg := registry.New(source, cfg.Package, cfg.BaseType)
	manager := lifecycle.New(loader)
	logger.Debug("Plugin host wired.", "package", cfg.Package, "base", cfg.BaseType, "manifests", cfg.ManifestPath)

	return &App{
		outW:    outW,
		logger:  logger,
		config:  cfg,
		manager: manager,
		host:    host.New[any](reg, resolver, manager),
	}
}

// Host returns the application's plugin host. This is primarily for testing.
func (a *App) Host() *host.Host[any] {
	return a.host
}
