package cli

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/vk/pluginhost/internal/app"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// Parse processes command-line arguments. It returns a populated app.Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("pluginhost", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
pluginhost - A manifest-driven registry and loader for dynamically loaded plugins.

Usage:
  pluginhost -manifests DIR [options] COMMAND

Commands:
  -list             List all declared classes.
  -describe NAME    Print the full descriptor of a declared class.
  -check NAME       Resolve and print the library path providing a class.
  -load NAME        Load a class, create a managed instance, and release it.

Options:
`)
		flagSet.PrintDefaults()
	}

	manifestsFlag := flagSet.String("manifests", "", "Path to the directory containing *.plugin.hcl manifests.")
	packageFlag := flagSet.String("package", "core", "Identifier of the package owning the manifests.")
	baseFlag := flagSet.String("base", "", "Base capability type to filter declarations by. Empty matches all.")
	listFlag := flagSet.Bool("list", false, "List all declared classes.")
	describeFlag := flagSet.String("describe", "", "Describe the named class.")
	checkFlag := flagSet.String("check", "", "Resolve the library path for the named class.")
	loadFlag := flagSet.String("load", "", "Create and release a managed instance of the named class.")
	libPathFlag := flagSet.String("lib-path", "", "Extra library search directories, list-separated.")
	statusPortFlag := flagSet.Int("status-port", 0, "Port for the HTTP status server. 0 is disabled.")
	logFormatFlag := flagSet.String("log-format", "json", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	if *manifestsFlag == "" {
		slog.Debug("No manifests path provided, printing usage and exiting.")
		flagSet.Usage()
		return nil, true, nil
	}

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}

	action, className, err := selectCommand(*listFlag, *describeFlag, *checkFlag, *loadFlag)
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("CLI parameter validation complete.", "action", action, "class", className)

	var libPaths []string
	if *libPathFlag != "" {
		libPaths = filepath.SplitList(*libPathFlag)
	}

	config, err := app.NewConfig(app.Config{
		ManifestPath: *manifestsFlag,
		Package:      *packageFlag,
		BaseType:     *baseFlag,
		Action:       action,
		ClassName:    className,
		LibraryPaths: libPaths,
		StatusPort:   *statusPortFlag,
		LogFormat:    logFormat,
		LogLevel:     logLevel,
	})
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.", "config", config)
	return config, false, nil
}

// selectCommand validates that exactly one command flag was given and
// returns the resulting action and its class-name argument.
func selectCommand(list bool, describe, check, load string) (app.Action, string, error) {
	var (
		action    app.Action
		className string
		count     int
	)
	if list {
		action = app.ActionList
		count++
	}
	if describe != "" {
		action, className = app.ActionDescribe, describe
		count++
	}
	if check != "" {
		action, className = app.ActionCheck, check
		count++
	}
	if load != "" {
		action, className = app.ActionLoad, load
		count++
	}
	if count == 0 {
		return "", "", fmt.Errorf("no command given: use one of -list, -describe, -check, -load")
	}
	if count > 1 {
		return "", "", fmt.Errorf("conflicting commands: use exactly one of -list, -describe, -check, -load")
	}
	return action, className, nil
}
