// Copyright 2025 Joseph Cumines
//
// Frame codec unit tests

package lookin

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"testing"
)

func TestFrameRoundtrip(t *testing.T) {
	tests := []struct {
		name    string
		reqType uint32
		tag     uint32
		payload []byte
	}{
		{name: "empty payload", reqType: RequestPing, tag: 1},
		{name: "small payload", reqType: RequestHierarchy, tag: 7, payload: []byte("hello")},
		{name: "max tag", reqType: RequestApp, tag: 0xFFFFFFFF, payload: bytes.Repeat([]byte{0xAB}, 1024)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoded := encodeFrame(&Frame{Type: tt.reqType, Tag: tt.tag, Payload: tt.payload})
			if len(encoded) != headerSize+len(tt.payload) {
				t.Fatalf("encoded length = %d, want %d", len(encoded), headerSize+len(tt.payload))
			}

			decoded, err := readFrame(bytes.NewReader(encoded))
			if err != nil {
				t.Fatalf("readFrame() error = %v", err)
			}
			if decoded.Type != tt.reqType {
				t.Errorf("Type = %d, want %d", decoded.Type, tt.reqType)
			}
			if decoded.Tag != tt.tag {
				t.Errorf("Tag = %d, want %d", decoded.Tag, tt.tag)
			}
			if !bytes.Equal(decoded.Payload, tt.payload) {
				t.Errorf("Payload = %v, want %v", decoded.Payload, tt.payload)
			}
		})
	}
}

func TestFrameHeaderLayout(t *testing.T) {
	encoded := encodeFrame(&Frame{Type: 202, Tag: 3, Payload: []byte{1, 2, 3}})

	if got := binary.BigEndian.Uint32(encoded[0:4]); got != 1 {
		t.Errorf("version field = %d, want 1", got)
	}
	if got := binary.BigEndian.Uint32(encoded[4:8]); got != 202 {
		t.Errorf("type field = %d, want 202", got)
	}
	if got := binary.BigEndian.Uint32(encoded[8:12]); got != 3 {
		t.Errorf("tag field = %d, want 3", got)
	}
	if got := binary.BigEndian.Uint32(encoded[12:16]); got != 3 {
		t.Errorf("size field = %d, want 3", got)
	}
}

func TestReadFrameRejectsBadVersion(t *testing.T) {
	encoded := encodeFrame(&Frame{Type: RequestPing, Tag: 1})
	binary.BigEndian.PutUint32(encoded[0:4], 2)

	_, err := readFrame(bytes.NewReader(encoded))
	if !errors.Is(err, ErrInvalidFrame) {
		t.Errorf("readFrame() error = %v, want ErrInvalidFrame", err)
	}
}

func TestReadFrameRejectsOversizedPayload(t *testing.T) {
	var header [headerSize]byte
	binary.BigEndian.PutUint32(header[0:4], FrameVersion)
	binary.BigEndian.PutUint32(header[12:16], maxPayloadSize+1)

	_, err := readFrame(bytes.NewReader(header[:]))
	if !errors.Is(err, ErrInvalidFrame) {
		t.Errorf("readFrame() error = %v, want ErrInvalidFrame", err)
	}
}

func TestReadFrameShortHeader(t *testing.T) {
	_, err := readFrame(bytes.NewReader([]byte{0, 0, 0, 1, 0}))
	if err == nil {
		t.Error("readFrame() accepted a truncated header")
	}
}

func TestReadFrameTruncatedPayload(t *testing.T) {
	encoded := encodeFrame(&Frame{Type: RequestPing, Tag: 1, Payload: []byte("abcdef")})
	_, err := readFrame(bytes.NewReader(encoded[:len(encoded)-2]))
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("readFrame() error = %v, want ErrUnexpectedEOF", err)
	}
}
