package app

import (
	"context"
	"fmt"

	"github.com/vk/pluginhost/internal/ctxlog"
)

// Run executes the configured command. It performs the initial manifest
// scan, dispatches on the action, and shuts the status server down before
// returning.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	if a.config.StatusPort > 0 {
		a.startStatusServer(a.config.StatusPort)
		defer a.closeStatusServer(ctx)
	}

	if err := a.host.Refresh(ctx); err != nil {
		return fmt.Errorf("manifest scan failed: %w", err)
	}

	var err error
	switch a.config.Action {
	case ActionList:
		err = a.runList()
	case ActionDescribe:
		err = a.runDescribe(a.config.ClassName)
	case ActionCheck:
		err = a.runCheck(ctx, a.config.ClassName)
	case ActionLoad:
		err = a.runLoad(ctx, a.config.ClassName)
	default:
		err = fmt.Errorf("unknown action %q", a.config.Action)
	}

	a.logger.Debug("App.Run method finished.", "error", err)
	return err
}

func (a *App) runList() error {
	names := a.host.Declared()
	if len(names) == 0 {
		fmt.Fprintln(a.outW, "no classes declared")
		return nil
	}
	for _, name := range names {
		fmt.Fprintln(a.outW, name)
	}
	return nil
}

func (a *App) runDescribe(name string) error {
	desc, err := a.host.Describe(name)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.outW, "name:        %s\n", desc.Name)
	fmt.Fprintf(a.outW, "type:        %s\n", desc.Type)
	fmt.Fprintf(a.outW, "base:        %s\n", desc.Base)
	fmt.Fprintf(a.outW, "package:     %s\n", desc.Package)
	fmt.Fprintf(a.outW, "library:     %s\n", desc.Library)
	fmt.Fprintf(a.outW, "manifest:    %s\n", desc.ManifestPath)
	if desc.Description != "" {
		fmt.Fprintf(a.outW, "description: %s\n", desc.Description)
	}
	for key, value := range desc.Metadata {
		fmt.Fprintf(a.outW, "metadata.%s: %s\n", key, value)
	}
	return nil
}

func (a *App) runCheck(ctx context.Context, name string) error {
	path, err := a.host.ClassLibraryPath(ctx, name)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.outW, path)
	return nil
}

func (a *App) runLoad(ctx context.Context, name string) error {
	handle, err := a.host.CreateManaged(ctx, name)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.outW, "created instance %s of %s from %s\n", handle.ID(), name, handle.LibraryPath())
	if err := handle.Close(ctx); err != nil {
		return fmt.Errorf("failed to release instance: %w", err)
	}
	fmt.Fprintf(a.outW, "released instance %s, library loaded: %v\n", handle.ID(), a.host.IsLoaded(ctx, name))
	return nil
}
