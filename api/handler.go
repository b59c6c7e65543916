// File: api/handler.go
// Package api defines the DataHandler capability.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package api

// DataHandler consumes message payloads flowing up the receive path.
// Handlers compose as a chain of responsibilities: a decorating handler
// wraps an inner one and forwards whole messages down to it.
//
// The data slice is only valid for the duration of the call unless the
// producing layer documents otherwise.
type DataHandler interface {
	OnData(data []byte, offset, length int, sessionID int32, flags uint8) error
}

// DataHandlerFunc converts a function into a DataHandler.
type DataHandlerFunc func(data []byte, offset, length int, sessionID int32, flags uint8) error

// OnData calls the underlying function.
func (f DataHandlerFunc) OnData(data []byte, offset, length int, sessionID int32, flags uint8) error {
	return f(data, offset, length, sessionID, flags)
}

// DataMiddleware augments a DataHandler.
type DataMiddleware func(DataHandler) DataHandler

// NewDataHandlerChain applies middleware in order: first in slice is outermost.
func NewDataHandlerChain(base DataHandler, mw ...DataMiddleware) DataHandler {
	h := base
	for i := len(mw) - 1; i >= 0; i-- {
		h = mw[i](h)
	}
	return h
}
