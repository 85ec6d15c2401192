// Package cli provides the interactive sessionkeeper command-line client.
//
// It wires configuration and the HTTP API client into a small REPL:
// register, login, refresh, profile and logout. Tokens are kept in memory
// only and are forgotten when the program exits.
package cli
