// Package file provides file-based storage for the CLI's session state.
//
// Adapters:
//   - Store: TOML-based application configuration (OAuth app settings,
//     endpoint overrides, export defaults)
//   - Credential persistence: JSON file holding the caller's current
//     OAuth credential between invocations
//
// The core never touches these files; they exist so the CLI, as the caller,
// can hold a credential across processes the way a web session would.
package file
