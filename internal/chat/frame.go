package chat

import (
	"encoding/binary"
	"fmt"
	"io"
)

// FrameHeaderLen is the size of the length prefix preceding every payload.
const FrameHeaderLen = 4

// DefaultMaxPayload caps inbound and outbound frame payloads at 1 MiB.
const DefaultMaxPayload = 1 << 20

// WriteFrame encodes payload as a big-endian uint32 length prefix followed by
// the payload bytes and writes the whole frame in one call.
func WriteFrame(w io.Writer, payload []byte, max uint32) error {
	if uint64(len(payload)) > uint64(max) {
		return ErrFrameTooLarge
	}
	frame := make([]byte, FrameHeaderLen+len(payload))
	binary.BigEndian.PutUint32(frame, uint32(len(payload)))
	copy(frame[FrameHeaderLen:], payload)
	if _, err := w.Write(frame); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}

// ReadFrame reads exactly one frame from r, looping over partial reads until
// the full header and payload have arrived.
//
// A stream that ends cleanly before any header byte returns io.EOF so callers
// can treat it as a graceful disconnect. A stream that ends mid-header or
// mid-payload, or a header announcing more than max bytes, returns an error
// wrapping ErrProtocol.
func ReadFrame(r io.Reader, max uint32) ([]byte, error) {
	var header [FrameHeaderLen]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("%w: truncated frame header: %v", ErrProtocol, err)
	}

	size := binary.BigEndian.Uint32(header[:])
	if size > max {
		return nil, fmt.Errorf("%w: frame of %d bytes exceeds %d byte limit", ErrProtocol, size, max)
	}

	payload := make([]byte, size)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, fmt.Errorf("%w: truncated frame payload: %v", ErrProtocol, err)
	}
	return payload, nil
}
