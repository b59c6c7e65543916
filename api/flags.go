// File: api/flags.go
// Package api defines fragment flag bits.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package api

// Fragment flag bits carried on every data frame. The bit positions are
// an external wire contract; only the named bits are ever tested, the
// remaining bits are application-defined and passed through untouched.
const (
	// FlagUnfragmented marks a frame that carries a whole message.
	FlagUnfragmented uint8 = 0x01

	// FlagBegin marks the first fragment of a fragmented message.
	FlagBegin uint8 = 0x02

	// FlagEnd marks the last fragment of a fragmented message.
	FlagEnd uint8 = 0x04
)

// IsUnfragmented reports whether flags carry a whole message.
func IsUnfragmented(flags uint8) bool {
	return flags&FlagUnfragmented != 0
}
