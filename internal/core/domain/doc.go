// Package domain defines the core business entities for the Awair exporter.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Credential: OAuth tokens with an absolute expiry
//   - Device: An Awair sensor unit registered to the user
//   - Sample: One 5-minute-average reading from a device
//   - Table: A row-oriented export table with a fixed column set
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
