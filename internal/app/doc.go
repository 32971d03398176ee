// Package app contains the core application logic. It defines the main App
// struct, its configuration, the wiring of the plugin host from a Config,
// and the command dispatch, decoupled from any specific entrypoint like a
// CLI.
package app
