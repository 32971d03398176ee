package app

import (
	"errors"
	"fmt"
)

// Action is one of the single-purpose commands an invocation performs.
type Action string

const (
	ActionList     Action = "list"
	ActionDescribe Action = "describe"
	ActionCheck    Action = "check"
	ActionLoad     Action = "load"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	ManifestPath string // root directory scanned for *.plugin.hcl files
	Package      string // package identifier owning the manifests
	BaseType     string // base capability filter; empty matches all

	Action    Action
	ClassName string // the command's class argument, empty for list

	LibraryPaths []string // extra library search directories
	StatusPort   int
	LogFormat    string
	LogLevel     string
}

// NewConfig validates a Config and returns it.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.ManifestPath == "" {
		return nil, errors.New("ManifestPath is a required configuration field and cannot be empty")
	}
	if cfg.Package == "" {
		return nil, errors.New("Package is a required configuration field and cannot be empty")
	}
	switch cfg.Action {
	case ActionList:
		if cfg.ClassName != "" {
			return nil, errors.New("the list command takes no class name")
		}
	case ActionDescribe, ActionCheck, ActionLoad:
		if cfg.ClassName == "" {
			return nil, fmt.Errorf("the %s command requires a class name", cfg.Action)
		}
	default:
		return nil, fmt.Errorf("unknown action %q", cfg.Action)
	}

	return &cfg, nil
}
