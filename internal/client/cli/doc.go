// Package cli provides the interactive notekeeper command-line client.
//
// It wires configuration, the local store, the API client and the services
// into a REPL that keeps working while the server is unreachable. Two
// background watchers run next to the REPL: one checks connectivity and
// pushes pending changes when the server comes back, the other reports
// session loss (for example after a failed token refresh).
//
// The REPL is started with App.Run, which blocks until the user exits.
package cli
