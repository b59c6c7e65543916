// File: api/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

// Package api defines the contracts of the hioload-udp receive core:
// the DataHandler delivery capability, fragment flag bits, endpoint
// abstractions, the cross-thread ring contract, error taxonomy, and
// driver lifecycle events.
//
// The package holds interfaces and plain value types only, so every
// implementation package can depend on it without cycles.
package api
