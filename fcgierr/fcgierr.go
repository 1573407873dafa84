// Package fcgierr collects the sentinel errors used across the FastCGI
// protocol stack. Every kind named in the wire-protocol specification has a
// distinct sentinel here so callers can branch with errors.Is/errors.As
// instead of string matching.
package fcgierr

import "errors"

// Framing errors. Fatal to the connection: no further record on the wire
// can be trusted once one of these occurs.
var (
	ErrIncompatibleVersion = errors.New("fcgierr: incompatible protocol version")
	ErrCorruptedHeader     = errors.New("fcgierr: corrupted header (reserved byte set)")
)

// Body decode errors. Fatal to the request that produced them.
var (
	ErrCorruptedFrame          = errors.New("fcgierr: corrupted frame body")
	ErrInsufficientDataInBuffer = errors.New("fcgierr: insufficient data in buffer")
)

// State errors raised by the client/server parser state machines.
var (
	ErrInvalidState           = errors.New("fcgierr: invalid parser state transition")
	ErrUnexpectedEndOfStream  = errors.New("fcgierr: unexpected end of stream")
	ErrUnexpectedAbortRequest = errors.New("fcgierr: unexpected abort request")
)

// UnexpectedRecordType reports a record type that is illegal in the current
// parser state. It wraps ErrInvalidState so generic handling still matches.
type UnexpectedRecordType struct {
	Type byte
}

func (e *UnexpectedRecordType) Error() string {
	return "fcgierr: unexpected record type"
}

func (e *UnexpectedRecordType) Unwrap() error { return ErrInvalidState }

// MaximumStreamSizeExceeded is returned by the defragmenter when the
// accumulated size of a stream exceeds its configured cap.
type MaximumStreamSizeExceeded struct {
	Size  int64
	Limit int64
}

func (e *MaximumStreamSizeExceeded) Error() string {
	return "fcgierr: maximum stream size exceeded"
}

// Protocol-status errors, derived from a well-formed EndRequest. These are
// surfaced as the request's outcome and never trigger an abort.
var (
	ErrCantMpxConn = errors.New("fcgierr: server cannot multiplex connections")
	ErrOverloaded  = errors.New("fcgierr: server overloaded")
	ErrUnknownRole = errors.New("fcgierr: server does not support requested role")
)

// ErrUnknownManagementType is returned when the server answers a
// management query with FCGI_UNKNOWN_TYPE.
var ErrUnknownManagementType = errors.New("fcgierr: server does not recognize the management record type")

// Control errors surfaced to callers of the multiplex client.
var (
	ErrExpired                = errors.New("fcgierr: pending request deadline expired")
	ErrSenderClosed           = errors.New("fcgierr: outbound sender closed")
	ErrRecvChannelClosedEarly = errors.New("fcgierr: inbound channel closed before end of request")
	ErrIDAssign               = errors.New("fcgierr: no request id available")
	ErrClientClosed           = errors.New("fcgierr: client is closed")
)
