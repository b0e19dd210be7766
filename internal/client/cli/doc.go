// Package cli provides the interactive multichat command-line client.
//
// It wires configuration and the typed RPC client into a REPL. After login
// the first model of the catalog is selected; any line that is not a
// command is sent to the selected model as a prompt.
//
// Commands:
//   - register / login / logout
//   - models, use <tag>
//   - history, delete <id>
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
package cli
