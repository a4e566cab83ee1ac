// Package frame implements the C1 module-frame codec: recognizing and
// emitting the 8-byte module frame
//
//	0xF8 0xF8 SRC DST TYPE PARAM 0x55 0x55
//
// The doubled start and end markers exist to survive a single dropped bit
// at either edge and to give a receiver a window to complete its own role
// switch before the payload begins; there is no length field, the payload
// is always exactly four bytes.
package frame

import revomod "github.com/fieldrobotics/revomod"

const (
	Start byte = 0xF8
	End   byte = 0x55
)

// Encode returns the 8-byte wire representation of f. It returns
// revomod.ErrFrameInvalid if f.Type is not one of the six defined frame
// types -- the one field a malformed Frame can carry that the wire format
// has no room to signal once emitted (spec 4.1's TYPE enumeration).
func Encode(f revomod.Frame) ([8]byte, error) {
	switch f.Type {
	case revomod.Hello, revomod.IDAssign, revomod.IDAssignOK, revomod.Ping, revomod.ClearConfig, revomod.ConfigCleared:
	default:
		return [8]byte{}, revomod.ErrFrameInvalid
	}
	return [8]byte{
		Start, Start,
		f.Source, f.Destination, byte(f.Type), f.Param,
		End, End,
	}, nil
}

// state is the accumulator's position within a frame.
type state uint8

const (
	stateIdle        state = iota // waiting for the first start byte
	stateSawOneStart              // saw one 0xF8, waiting for the second
	statePayload                  // accumulating the 4 payload bytes
	stateSawOneEndA               // payload complete, waiting for first 0x55
	stateSawOneEndB               // saw first 0x55, waiting for second
)

// Reader is a byte-at-a-time accumulator implementing the "two consecutive
// start bytes then exactly four payload bytes, then two consecutive end
// bytes" contract from spec 4.1. It holds no frame buffer beyond the
// current in-flight frame, matching spec 3's "no buffering" invariant.
//
// A single stray 0xF8 (only one seen, not two) causes the reader to drop
// back to idle and keep listening, per spec 4.1 -- it is not treated as an
// error, just silently discarded.
type Reader struct {
	st      state
	payload [4]byte
	filled  int
}

// NewReader returns a fresh accumulator positioned at the start of a frame.
func NewReader() *Reader {
	return &Reader{}
}

// Reset returns the accumulator to idle, discarding any partial frame.
func (r *Reader) Reset() {
	r.st = stateIdle
	r.filled = 0
}

// Push feeds one byte from the wire into the accumulator. It returns
// (frame, true) when b completes a frame; the accumulator resets itself
// automatically on completion and on any framing error.
func (r *Reader) Push(b byte) (revomod.Frame, bool) {
	switch r.st {
	case stateIdle:
		if b == Start {
			r.st = stateSawOneStart
		}

	case stateSawOneStart:
		switch b {
		case Start:
			r.st = statePayload
			r.filled = 0
		default:
			// Only one start byte was seen: discard and keep listening.
			r.st = stateIdle
		}

	case statePayload:
		r.payload[r.filled] = b
		r.filled++
		if r.filled == len(r.payload) {
			r.st = stateSawOneEndA
		}

	case stateSawOneEndA:
		if b == End {
			r.st = stateSawOneEndB
		} else {
			// Malformed end marker: drop the frame and return to idle.
			r.Reset()
		}

	case stateSawOneEndB:
		defer r.Reset()
		if b != End {
			return revomod.Frame{}, false
		}
		return revomod.Frame{
			Source:      r.payload[0],
			Destination: r.payload[1],
			Type:        revomod.FrameType(r.payload[2]),
			Param:       r.payload[3],
		}, true
	}
	return revomod.Frame{}, false
}
