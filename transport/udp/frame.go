// File: transport/udp/frame.go
// Package udp implements the datagram-facing edge of the receive core.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Frame header wire layout (little-endian, 32 bytes):
//
//	0  frameLength  int32
//	4  version      uint8
//	5  flags        uint8
//	6  frameType    uint16
//	8  termOffset   int32
//	12 sessionID    int32
//	16 streamID     int32
//	20 termID       int32
//	24 reserved     uint64
//
// Data and setup frames share the header; a setup frame carries the
// initial term id in the termID field. The layout is an external wire
// contract shared with the send side.

package udp

import (
	"encoding/binary"
	"errors"
	"fmt"
)

const (
	// HeaderLength is the fixed frame header size; payload starts here.
	HeaderLength = 32

	// CurrentVersion is the only protocol version this driver speaks.
	CurrentVersion uint8 = 0x01
)

// Frame types understood by the receive path.
const (
	FrameTypeData  uint16 = 0x0001
	FrameTypeSetup uint16 = 0x0005
)

var (
	ErrFrameTooShort  = errors.New("udp: frame shorter than header")
	ErrFrameTruncated = errors.New("udp: frame length exceeds datagram")
	ErrFrameVersion   = errors.New("udp: unsupported frame version")
)

// FrameHeader is the decoded fixed header of one datagram.
type FrameHeader struct {
	FrameLength int32
	Version     uint8
	Flags       uint8
	Type        uint16
	TermOffset  int32
	SessionID   int32
	StreamID    int32
	TermID      int32
}

// ParseFrameHeader decodes and validates the header of one datagram.
func ParseFrameHeader(b []byte) (FrameHeader, error) {
	var h FrameHeader
	if len(b) < HeaderLength {
		return h, fmt.Errorf("%w: %d bytes", ErrFrameTooShort, len(b))
	}
	h.FrameLength = int32(binary.LittleEndian.Uint32(b[0:]))
	h.Version = b[4]
	h.Flags = b[5]
	h.Type = binary.LittleEndian.Uint16(b[6:])
	h.TermOffset = int32(binary.LittleEndian.Uint32(b[8:]))
	h.SessionID = int32(binary.LittleEndian.Uint32(b[12:]))
	h.StreamID = int32(binary.LittleEndian.Uint32(b[16:]))
	h.TermID = int32(binary.LittleEndian.Uint32(b[20:]))

	if h.Version != CurrentVersion {
		return h, fmt.Errorf("%w: %#x", ErrFrameVersion, h.Version)
	}
	if int(h.FrameLength) < HeaderLength || int(h.FrameLength) > len(b) {
		return h, fmt.Errorf("%w: frame %d, datagram %d", ErrFrameTruncated, h.FrameLength, len(b))
	}
	return h, nil
}

// PayloadLength returns the number of payload bytes following the header.
func (h FrameHeader) PayloadLength() int {
	return int(h.FrameLength) - HeaderLength
}

// EncodeFrameHeader writes h into b, which must hold HeaderLength bytes.
// Used by the send side and by tests constructing datagrams.
func EncodeFrameHeader(b []byte, h FrameHeader) error {
	if len(b) < HeaderLength {
		return fmt.Errorf("%w: %d bytes", ErrFrameTooShort, len(b))
	}
	binary.LittleEndian.PutUint32(b[0:], uint32(h.FrameLength))
	b[4] = h.Version
	b[5] = h.Flags
	binary.LittleEndian.PutUint16(b[6:], h.Type)
	binary.LittleEndian.PutUint32(b[8:], uint32(h.TermOffset))
	binary.LittleEndian.PutUint32(b[12:], uint32(h.SessionID))
	binary.LittleEndian.PutUint32(b[16:], uint32(h.StreamID))
	binary.LittleEndian.PutUint32(b[20:], uint32(h.TermID))
	binary.LittleEndian.PutUint64(b[24:], 0)
	return nil
}

// NewDataFrame builds a complete data frame datagram for the given
// payload. Convenience for tests and example senders.
func NewDataFrame(sessionID, streamID, termID int32, flags uint8, payload []byte) []byte {
	frame := make([]byte, HeaderLength+len(payload))
	_ = EncodeFrameHeader(frame, FrameHeader{
		FrameLength: int32(HeaderLength + len(payload)),
		Version:     CurrentVersion,
		Flags:       flags,
		Type:        FrameTypeData,
		SessionID:   sessionID,
		StreamID:    streamID,
		TermID:      termID,
	})
	copy(frame[HeaderLength:], payload)
	return frame
}

// NewSetupFrame builds a setup frame announcing a session; termID holds
// the initial term id.
func NewSetupFrame(sessionID, streamID, initialTermID int32) []byte {
	frame := make([]byte, HeaderLength)
	_ = EncodeFrameHeader(frame, FrameHeader{
		FrameLength: HeaderLength,
		Version:     CurrentVersion,
		Type:        FrameTypeSetup,
		SessionID:   sessionID,
		StreamID:    streamID,
		TermID:      initialTermID,
	})
	return frame
}
