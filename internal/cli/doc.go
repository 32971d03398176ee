// Package cli translates command-line arguments into a validated app.Config.
// It owns flag definitions, usage text, and argument validation, but no
// application logic.
package cli
