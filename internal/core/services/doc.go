// Package services implements the credential lifecycle and the export
// pipeline. Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// Credentials flow through services as immutable values: every operation
// that might refresh takes a Credential in and hands a (possibly new)
// Credential back. No service reads or writes ambient global state.
package services
