// Package cli builds the acmanager command tree:
//
//   - root.go: cobra root, persistent flags, version.
//   - serve.go: wiring of stores, orchestrator and HTTP server; shutdown.
//   - logger.go: zerolog setup (console on a terminal, JSON otherwise).
package cli
