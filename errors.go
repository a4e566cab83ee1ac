package revomod

import "errors"

var (
	// ErrIllegalArgument is returned when a caller passes a nil collaborator
	// or an out-of-range value to a constructor.
	ErrIllegalArgument = errors.New("revomod: illegal argument")

	// ErrTimeout names a wait that was aborted by the shared timeout flag
	// rather than by the awaited condition. No function in this module
	// returns it: timeout.WaitUntil reports that outcome as false.
	ErrTimeout = errors.New("revomod: timed out waiting for condition")

	// ErrNotConnected is returned by a Bus operation attempted before
	// Connect has succeeded.
	ErrNotConnected = errors.New("revomod: bus not connected")

	// ErrFrameInvalid is returned by a codec when asked to encode a frame
	// whose fields are outside their defined ranges. It is never returned
	// for a malformed byte stream on receive -- spec 7.1 says a framing
	// error is dropped silently, not surfaced as an error.
	ErrFrameInvalid = errors.New("revomod: frame fields out of range")
)
