// Copyright 2025 Joseph Cumines
//
// Wire framing for the LookinServer protocol

// Package lookin implements the client side of the LookinServer protocol:
// a tag-multiplexed, length-prefixed binary request/response engine over a
// single TCP connection to an in-app agent on the iOS Simulator, together
// with the keyed-archive payload codec, port discovery, and the session
// cache coordinating multi-request workflows.
package lookin

import (
	"encoding/binary"
	"fmt"
	"io"
)

// FrameVersion is the only protocol version spoken on the wire.
const FrameVersion = 1

// headerSize is the fixed byte length of a frame header: four big-endian
// 32-bit fields (version, type, tag, payload size).
const headerSize = 16

// maxPayloadSize bounds the payload length accepted from a header. A header
// announcing more than this is treated as corrupt and tears down the
// connection rather than allocating an absurd buffer.
const maxPayloadSize = 64 << 20

// Request type codes understood by LookinServer.
const (
	RequestPing          uint32 = 200
	RequestApp           uint32 = 201
	RequestHierarchy     uint32 = 202
	RequestModification  uint32 = 204
	RequestInvokeMethod  uint32 = 206
	RequestAllAttrGroups uint32 = 210
	RequestAllSelectors  uint32 = 213
)

// Frame is one header-plus-payload unit on the wire.
type Frame struct {
	Payload []byte
	Type    uint32
	Tag     uint32
}

// encodeFrame serializes a frame into a single buffer so that header and
// payload go out in one write.
func encodeFrame(f *Frame) []byte {
	buf := make([]byte, headerSize+len(f.Payload))
	binary.BigEndian.PutUint32(buf[0:4], FrameVersion)
	binary.BigEndian.PutUint32(buf[4:8], f.Type)
	binary.BigEndian.PutUint32(buf[8:12], f.Tag)
	binary.BigEndian.PutUint32(buf[12:16], uint32(len(f.Payload)))
	copy(buf[headerSize:], f.Payload)
	return buf
}

// readFrame reads exactly one frame from r, accumulating across short reads.
// A malformed header (wrong version, oversized payload) is a protocol error.
func readFrame(r io.Reader) (*Frame, error) {
	var header [headerSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, err
	}

	version := binary.BigEndian.Uint32(header[0:4])
	if version != FrameVersion {
		return nil, fmt.Errorf("%w: unsupported frame version %d", ErrInvalidFrame, version)
	}

	f := &Frame{
		Type: binary.BigEndian.Uint32(header[4:8]),
		Tag:  binary.BigEndian.Uint32(header[8:12]),
	}

	size := binary.BigEndian.Uint32(header[12:16])
	if size > maxPayloadSize {
		return nil, fmt.Errorf("%w: payload size %d exceeds limit", ErrInvalidFrame, size)
	}
	if size > 0 {
		f.Payload = make([]byte, size)
		if _, err := io.ReadFull(r, f.Payload); err != nil {
			return nil, err
		}
	}

	return f, nil
}
